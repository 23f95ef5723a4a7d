package fanout

import "errors"

var (
	ErrNilSubscriber     = errors.New("fanout: nil subscriber")
	ErrSubscriberClosed  = errors.New("fanout: subscriber already closed")
	ErrAlreadySubscribed = errors.New("fanout: subscriber already registered for room")
)
