package fanout

import (
	"log"
	"sync"

	"github.com/google/uuid"
	"tumorboard/pkg/types"
)

// DeliverFunc pushes one message to a listener (typically a WebSocket
// write). It may block and it may fail; neither affects other subscribers.
type DeliverFunc func(msg *types.Message) error

// Subscriber is one live listener registered against a room.
// FUNCTIONAL DISCOVERY: Each subscriber owns its queue and one pump
// goroutine, so a slow or stalled listener only ever delays itself
type Subscriber struct {
	id      string
	userID  string
	deliver DeliverFunc
	q       *queue

	// deliverMu serializes delivery against unsubscription: once
	// Unsubscribe returns, no further delivery can begin.
	deliverMu sync.Mutex
}

// NewSubscriber creates an unregistered subscriber for userID. The user ID
// is only used for originator exclusion and may be empty.
func NewSubscriber(userID string, deliver DeliverFunc) *Subscriber {
	return &Subscriber{
		id:      uuid.New().String(),
		userID:  userID,
		deliver: deliver,
		q:       newQueue(),
	}
}

// UserID returns the user associated with this subscriber.
func (sub *Subscriber) UserID() string {
	return sub.userID
}

// pump drains the queue and delivers messages outside all registry and room
// locks. It exits when the queue is closed by Unsubscribe.
func (sub *Subscriber) pump() {
	for {
		msg, ok := sub.q.pop()
		if !ok {
			return
		}
		sub.dispatch(msg)
	}
}

// dispatch delivers one message with per-listener fault isolation.
// ARCHITECTURAL DISCOVERY: This is the central failure-isolation contract of
// the fan-out - a panicking or failing callback is caught and logged here,
// never propagated, and never auto-unsubscribed (the listener may recover
// on a future broadcast)
func (sub *Subscriber) dispatch(msg *types.Message) {
	sub.deliverMu.Lock()
	defer sub.deliverMu.Unlock()

	if sub.q.isClosed() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Subscriber callback panicked: user=%s kind=%s room=%s: %v",
				sub.userID, msg.Kind, msg.RoomID, r)
		}
	}()

	if err := sub.deliver(msg); err != nil {
		log.Printf("Delivery failed: user=%s kind=%s room=%s: %v",
			sub.userID, msg.Kind, msg.RoomID, err)
	}
}

// Registry tracks the live subscriber sets per room and fans events out to
// them. Subscriber lifetime is independent of room lifetime - a room may be
// deleted while its subscribers remain registered by ID.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]*Subscriber // roomID -> subscriberID -> Subscriber
}

// NewRegistry creates an empty fan-out registry.
func NewRegistry() *Registry {
	return &Registry{
		subscribers: make(map[string]map[string]*Subscriber),
	}
}

// Subscribe registers sub against roomID and starts its delivery pump.
// Multiple subscribers per room are allowed, with no cap.
func (r *Registry) Subscribe(roomID string, sub *Subscriber) error {
	if sub == nil {
		return ErrNilSubscriber
	}
	if sub.q.isClosed() {
		return ErrSubscriberClosed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.subscribers[roomID]
	if !exists {
		room = make(map[string]*Subscriber)
		r.subscribers[roomID] = room
	}
	if _, dup := room[sub.id]; dup {
		return ErrAlreadySubscribed
	}
	room[sub.id] = sub

	go sub.pump()
	return nil
}

// Unsubscribe removes the matching registration and shuts down its pump.
// Idempotent, and effective immediately: once this returns no further
// delivery to sub can begin, even if a broadcast was in flight.
// An emptied room drops its registry entry; room data is untouched.
func (r *Registry) Unsubscribe(roomID string, sub *Subscriber) {
	if sub == nil {
		return
	}

	r.mu.Lock()
	if room, exists := r.subscribers[roomID]; exists {
		delete(room, sub.id)
		if len(room) == 0 {
			delete(r.subscribers, roomID)
		}
	}
	r.mu.Unlock()

	sub.q.close()

	// TECHNICAL DISCOVERY: Taking deliverMu waits out any delivery already
	// past its closed-check, which is what makes the no-use-after-
	// unsubscribe guarantee hold rather than merely being likely
	sub.deliverMu.Lock()
	sub.deliverMu.Unlock() //nolint:staticcheck // empty critical section is the point
}

// Publish enqueues msg to every subscriber of roomID except the one whose
// user ID equals excludeUserID (when non-empty). Enqueue only - actual
// delivery happens on each subscriber's pump goroutine, so callers may hold
// room locks across this call.
func (r *Registry) Publish(roomID string, msg *types.Message, excludeUserID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sub := range r.subscribers[roomID] {
		if excludeUserID != "" && sub.userID == excludeUserID {
			continue
		}
		sub.q.push(msg)
	}
}

// Count returns the number of live subscribers for a room. Consulted by the
// reaper before any deletion.
func (r *Registry) Count(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers[roomID])
}

// GetStats returns registry statistics for monitoring and debugging.
func (r *Registry) GetStats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	backlog := 0
	for _, room := range r.subscribers {
		total += len(room)
		for _, sub := range room {
			backlog += sub.q.depth()
		}
	}
	return map[string]int{
		"subscribed_rooms":  len(r.subscribers),
		"total_subscribers": total,
		"queued_messages":   backlog,
	}
}
