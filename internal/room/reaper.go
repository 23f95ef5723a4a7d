package room

import (
	"log"
	"sync"
	"time"
)

// Default reaper cadence.
// FUNCTIONAL DISCOVERY: A 5-minute sweep against a 30-minute TTL keeps worst
// case retention of a dead room to 35 minutes, which is fine for memory
// reclamation without risking an active case
const (
	DefaultReapInterval = 5 * time.Minute
	DefaultRoomTTL      = 30 * time.Minute
)

// SubscriberCounter reports how many live listeners a room currently has.
// Implemented by the fan-out registry.
type SubscriberCounter interface {
	Count(roomID string) int
}

// Reaper periodically evicts rooms that have been idle past the TTL and
// have no live subscribers.
// ARCHITECTURAL DISCOVERY: Modeled as an explicit task with its own stop
// handle instead of a fire-and-forget timer, so tests invoke Sweep directly
// and never wait on the wall clock
type Reaper struct {
	store    *Store
	subs     SubscriberCounter
	interval time.Duration
	ttl      time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewReaper creates a reaper over store, consulting subs before any
// deletion. Non-positive interval or ttl fall back to the defaults.
func NewReaper(store *Store, subs SubscriberCounter, interval, ttl time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if ttl <= 0 {
		ttl = DefaultRoomTTL
	}
	return &Reaper{
		store:    store,
		subs:     subs,
		interval: interval,
		ttl:      ttl,
	}
}

// Start begins periodic sweeping in a background goroutine.
func (r *Reaper) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrReaperRunning
	}
	r.running = true
	r.stopCh = make(chan struct{})

	r.wg.Add(1)
	go r.run(r.stopCh)

	log.Printf("Room reaper started: interval=%s ttl=%s", r.interval, r.ttl)
	return nil
}

// Stop halts sweeping and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrReaperNotRunning
	}
	r.running = false
	close(r.stopCh)
	r.mu.Unlock()

	r.wg.Wait()
	log.Println("Room reaper stopped")
	return nil
}

func (r *Reaper) run(stopCh chan struct{}) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-stopCh:
			return
		}
	}
}

// Sweep performs one deterministic reap pass and returns the IDs of the
// rooms it deleted.
func (r *Reaper) Sweep() []string {
	reaped := r.store.ReapIdle(r.ttl, r.subs.Count)
	if len(reaped) > 0 {
		log.Printf("Reaper sweep evicted %d idle room(s)", len(reaped))
	}
	return reaped
}
