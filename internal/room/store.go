package room

import (
	"log"
	"sync"
	"time"

	"tumorboard/pkg/types"
)

// DefaultCursorStaleness is how long a cursor survives without an update
// before it disappears from query results.
// FUNCTIONAL DISCOVERY: 5 seconds matches the expected viewer UX - a cursor
// that stops moving fades out before it becomes misleading
const DefaultCursorStaleness = 5 * time.Second

// Broadcaster receives room-state-change events as they are applied.
// ARCHITECTURAL DISCOVERY: The store publishes while still holding the room
// lock so per-room broadcast order always equals mutation order; the
// implementation must therefore only enqueue, never perform delivery I/O
type Broadcaster interface {
	Publish(roomID string, msg *types.Message, excludeUserID string)
}

// entry is the canonical state for one review room.
// All fields are guarded by mu. The store map itself is guarded separately
// so presence updates in one case never contend with another case.
type entry struct {
	mu           sync.Mutex
	id           string
	users        map[string]*types.User
	cursors      map[string]*types.CursorPosition
	annotations  map[string]*types.Annotation
	leaderID     string
	view         *types.ViewState
	createdAt    time.Time
	lastActivity time.Time

	// deleted is set under e.mu (with the store lock also held) when the
	// entry is removed from the map. A caller that fetched the pointer
	// before deletion must re-check it after locking: a dead entry is
	// treated as an absent room, never mutated.
	deleted bool
}

// Store owns the mapping from room ID to room state - the single source of
// truth for all Room/User/CursorPosition/Annotation objects.
// ARCHITECTURAL DISCOVERY: Explicit store object constructed once at process
// start and injected into request handlers, replacing the ambient globals of
// earlier designs - this is what makes per-room lock ownership testable
type Store struct {
	mu        sync.RWMutex
	rooms     map[string]*entry
	bus       Broadcaster
	staleness time.Duration
	now       func() time.Time // injectable for deterministic staleness tests
}

// NewStore creates a room store publishing through bus.
// A nil bus is allowed; mutations are then applied without fan-out.
func NewStore(bus Broadcaster, staleness time.Duration) *Store {
	if staleness <= 0 {
		staleness = DefaultCursorStaleness
	}
	return &Store{
		rooms:     make(map[string]*entry),
		bus:       bus,
		staleness: staleness,
		now:       time.Now,
	}
}

// getOrCreateEntry returns the existing room entry or creates an empty one.
func (s *Store) getOrCreateEntry(roomID string) *entry {
	s.mu.RLock()
	e, exists := s.rooms[roomID]
	s.mu.RUnlock()
	if exists {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// FUNCTIONAL DISCOVERY: Re-check under the write lock - two concurrent
	// joiners must converge on the same entry
	if e, exists = s.rooms[roomID]; exists {
		return e
	}
	now := s.now()
	e = &entry{
		id:           roomID,
		users:        make(map[string]*types.User),
		cursors:      make(map[string]*types.CursorPosition),
		annotations:  make(map[string]*types.Annotation),
		createdAt:    now,
		lastActivity: now,
	}
	s.rooms[roomID] = e
	return e
}

// get returns the room entry if it exists.
func (s *Store) get(roomID string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, exists := s.rooms[roomID]
	return e, exists
}

// maybeDelete removes a room from the map if it is still empty of users.
// TECHNICAL DISCOVERY: Lock-recheck idiom - the emptiness observed under the
// entry lock may be stale by the time the store write lock is acquired, so
// the condition is verified again with both locks held (store before entry,
// always in that order). The deleted flag is set while e.mu is still held:
// a mutator racing this deletion on a stale pointer observes the flag after
// locking and retries against the map instead of writing into an orphan
func (s *Store) maybeDelete(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, exists := s.rooms[roomID]
	if !exists {
		return
	}
	e.mu.Lock()
	if len(e.users) == 0 {
		e.deleted = true
		delete(s.rooms, roomID)
		log.Printf("Room deleted (empty): room=%s", roomID)
	}
	e.mu.Unlock()
}

// publish forwards a state-change event to the fan-out if one is attached.
// Must be called with the room entry lock held.
func (s *Store) publish(roomID string, msg *types.Message, excludeUserID string) {
	if s.bus == nil {
		return
	}
	msg.RoomID = roomID
	msg.Timestamp = s.now()
	s.bus.Publish(roomID, msg, excludeUserID)
}

// lockLiveEntry returns the room entry with e.mu held, creating an empty
// room as needed. A fetched entry that was deleted before the lock was won
// is discarded and the lookup retried, so the caller always mutates an
// entry that is still in the map.
func (s *Store) lockLiveEntry(roomID string) *entry {
	for {
		e := s.getOrCreateEntry(roomID)
		e.mu.Lock()
		if !e.deleted {
			return e
		}
		e.mu.Unlock()
	}
}

// GetOrCreate returns a snapshot of the room, creating an empty room (no
// users, no leader) if none exists. Never fails.
func (s *Store) GetOrCreate(roomID string) *types.RoomSnapshot {
	e := s.lockLiveEntry(roomID)
	defer e.mu.Unlock()
	return s.snapshotLocked(e)
}

// AddUser inserts or overwrites a user by ID and returns the room snapshot
// after the join. The first user in a room, or any user joining with the
// leader flag set, becomes leader - even mid-session.
func (s *Store) AddUser(roomID string, user types.User) *types.RoomSnapshot {
	now := s.now()
	if user.JoinedAt.IsZero() {
		user.JoinedAt = now
	}

	// A join racing the last leave must land in the recreated room, never
	// in the entry maybeDelete just orphaned.
	e := s.lockLiveEntry(roomID)
	defer e.mu.Unlock()

	wasEmpty := len(e.users) == 0
	e.users[user.ID] = &user
	if wasEmpty || user.Leader {
		e.leaderID = user.ID
	}
	e.lastActivity = now

	s.publish(roomID, &types.Message{
		Kind:     types.MessageKindJoin,
		UserID:   user.ID,
		User:     &user,
		LeaderID: e.leaderID,
	}, user.ID)

	return s.snapshotLocked(e)
}

// RemoveUser deletes a user and any cursor entry for that user. If the
// departing user was leader, leadership passes to an arbitrary remaining
// member, or is cleared if none remain. An emptied room is deleted
// immediately rather than waiting for the reaper. Returns the snapshot
// after the leave, or (nil, false) if the room was deleted or never existed.
func (s *Store) RemoveUser(roomID, userID string) (*types.RoomSnapshot, bool) {
	e, exists := s.get(roomID)
	if !exists {
		return nil, false
	}

	e.mu.Lock()
	if e.deleted {
		e.mu.Unlock()
		return nil, false
	}
	if _, present := e.users[userID]; !present {
		snap := s.snapshotLocked(e)
		e.mu.Unlock()
		return snap, true
	}

	delete(e.users, userID)
	delete(e.cursors, userID)
	if e.leaderID == userID {
		e.leaderID = anyUserID(e.users)
	}
	e.lastActivity = s.now()
	empty := len(e.users) == 0

	// The leave event is published before any deletion so subscribers that
	// outlive the room still observe the final departure.
	s.publish(roomID, &types.Message{
		Kind:     types.MessageKindLeave,
		UserID:   userID,
		LeaderID: e.leaderID,
	}, userID)

	var snap *types.RoomSnapshot
	if !empty {
		snap = s.snapshotLocked(e)
	}
	e.mu.Unlock()

	if empty {
		s.maybeDelete(roomID)
		return nil, false
	}
	return snap, true
}

// SetLeader unconditionally overwrites the leader if the room exists.
// FUNCTIONAL DISCOVERY: Membership is deliberately NOT validated - the
// observed product behavior allows "follow me" handoff to a user the room
// has not seen yet. Flagged in the log rather than silently corrected.
func (s *Store) SetLeader(roomID, userID string) bool {
	e, exists := s.get(roomID)
	if !exists {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return false
	}

	if _, member := e.users[userID]; !member {
		log.Printf("Leader assigned to non-member: room=%s user=%s", roomID, userID)
	}
	e.leaderID = userID
	e.lastActivity = s.now()

	s.publish(roomID, &types.Message{
		Kind:     types.MessageKindLeaderChange,
		UserID:   userID,
		LeaderID: userID,
	}, "")
	return true
}

// GetLeader returns the current leader, or "" if the room is absent or has
// no leader assigned.
func (s *Store) GetLeader(roomID string) string {
	e, exists := s.get(roomID)
	if !exists {
		return ""
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return ""
	}
	return e.leaderID
}

// UpdateView records the leader's current plane/slice and rebroadcasts the
// view change. Non-leader view changes are relayed but not recorded, so a
// late joiner always syncs to the leader's view.
func (s *Store) UpdateView(roomID, userID string, view types.ViewState) bool {
	e, exists := s.get(roomID)
	if !exists {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return false
	}

	if e.leaderID == userID {
		v := view
		e.view = &v
	}
	e.lastActivity = s.now()

	s.publish(roomID, &types.Message{
		Kind:   types.MessageKindViewChange,
		UserID: userID,
		View:   &view,
	}, userID)
	return true
}

// Touch bumps the room's activity timestamp without changing state.
func (s *Store) Touch(roomID string) {
	e, exists := s.get(roomID)
	if !exists {
		return
	}
	e.mu.Lock()
	if !e.deleted {
		e.lastActivity = s.now()
	}
	e.mu.Unlock()
}

// Snapshot returns a point-in-time read of the room, or (nil, false) if the
// room does not exist. Expired cursors are purged as a side effect.
func (s *Store) Snapshot(roomID string) (*types.RoomSnapshot, bool) {
	e, exists := s.get(roomID)
	if !exists {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, false
	}
	return s.snapshotLocked(e), true
}

// HasRoom reports whether a room currently exists.
func (s *Store) HasRoom(roomID string) bool {
	_, exists := s.get(roomID)
	return exists
}

// RoomCount returns the number of live rooms for monitoring.
func (s *Store) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// ReapIdle deletes every room whose last activity is older than ttl AND
// that currently has zero subscribers, returning the reaped room IDs.
// ARCHITECTURAL DISCOVERY: The per-room lock is acquired before deleting so
// a sweep can never race an in-flight mutation; a room with even one live
// subscriber is never reaped regardless of activity age
func (s *Store) ReapIdle(ttl time.Duration, subscriberCount func(roomID string) int) []string {
	s.mu.RLock()
	candidates := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		candidates = append(candidates, id)
	}
	s.mu.RUnlock()

	cutoff := s.now().Add(-ttl)
	var reaped []string
	for _, id := range candidates {
		s.mu.Lock()
		e, exists := s.rooms[id]
		if !exists {
			s.mu.Unlock()
			continue
		}
		// The idle check, the deleted flag, and the map removal all happen
		// under e.mu so a mutator holding a stale pointer can never slip a
		// write between the decision and the deletion.
		e.mu.Lock()
		if e.lastActivity.Before(cutoff) && subscriberCount(id) == 0 {
			e.deleted = true
			delete(s.rooms, id)
			reaped = append(reaped, id)
			log.Printf("Room reaped (idle): room=%s", id)
		}
		e.mu.Unlock()
		s.mu.Unlock()
	}
	return reaped
}

// snapshotLocked copies the room state. Caller must hold e.mu.
func (s *Store) snapshotLocked(e *entry) *types.RoomSnapshot {
	snap := &types.RoomSnapshot{
		RoomID:      e.id,
		Users:       make([]types.User, 0, len(e.users)),
		Cursors:     s.liveCursorsLocked(e),
		Annotations: make([]types.Annotation, 0, len(e.annotations)),
		LeaderID:    e.leaderID,
		CreatedAt:   e.createdAt,
	}
	for _, u := range e.users {
		snap.Users = append(snap.Users, *u)
	}
	for _, a := range e.annotations {
		snap.Annotations = append(snap.Annotations, *a)
	}
	if e.view != nil {
		v := *e.view
		snap.View = &v
	}
	return snap
}

// anyUserID picks an arbitrary member for leader reassignment.
// Map iteration order is not a correctness requirement here.
func anyUserID(users map[string]*types.User) string {
	for id := range users {
		return id
	}
	return ""
}
