package fanout

import (
	"sync"

	"tumorboard/pkg/types"
)

// queue is the per-subscriber outbound buffer: unbounded, FIFO, with
// in-place coalescing of cursor updates.
// ARCHITECTURAL DISCOVERY: An unbounded queue (slice + condvar) instead of a
// fixed channel is what lets enqueue stay O(1) and non-blocking under the
// room lock while still guaranteeing that membership and annotation events
// are never dropped - only coalescible messages ever disappear, and only by
// being replaced with a newer value
type queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []*types.Message
	closed  bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends a message, or replaces a pending coalescible message from
// the same user with the newer value. No-op once closed.
func (q *queue) push(msg *types.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	if msg.Coalescible() {
		// FUNCTIONAL DISCOVERY: Scan from the tail - the coalescing target
		// for a cursor stream is almost always the most recent entry
		for i := len(q.pending) - 1; i >= 0; i-- {
			p := q.pending[i]
			if p.Coalescible() && p.Kind == msg.Kind && p.UserID == msg.UserID {
				q.pending[i] = msg
				q.cond.Signal()
				return
			}
		}
	}

	q.pending = append(q.pending, msg)
	q.cond.Signal()
}

// pop blocks until a message is available or the queue is closed.
// Closing discards anything still pending - an unsubscribed listener must
// not receive further deliveries.
func (q *queue) pop() (*types.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.pending) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return nil, false
	}

	msg := q.pending[0]
	q.pending = q.pending[1:]
	return msg, true
}

// close marks the queue dead and wakes the pump.
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.pending = nil
	q.cond.Broadcast()
}

func (q *queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// depth reports how many messages are pending, for stats.
func (q *queue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
