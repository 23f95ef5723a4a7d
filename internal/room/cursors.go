package room

import "tumorboard/pkg/types"

// UpdateCursor overwrites the user's cursor entry, stamps it with the
// current time, and bumps room activity. Exactly one live entry exists per
// user at any time; updates replace, never merge.
// Reports false if the room does not exist.
func (s *Store) UpdateCursor(roomID string, cursor types.CursorPosition) bool {
	e, exists := s.get(roomID)
	if !exists {
		return false
	}

	now := s.now()
	cursor.UpdatedAt = now

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return false
	}

	c := cursor
	e.cursors[cursor.UserID] = &c
	e.lastActivity = now

	s.publish(roomID, &types.Message{
		Kind:   types.MessageKindCursor,
		UserID: cursor.UserID,
		Cursor: &c,
	}, cursor.UserID)
	return true
}

// LiveCursors returns every cursor updated within the staleness window.
// Expired entries are deleted opportunistically as a side effect of the
// read - there is no background timer for cursor expiry.
func (s *Store) LiveCursors(roomID string) []types.CursorPosition {
	e, exists := s.get(roomID)
	if !exists {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil
	}
	return s.liveCursorsLocked(e)
}

// liveCursorsLocked filters and purges stale cursors. Caller must hold e.mu.
// FUNCTIONAL DISCOVERY: A cursor is dead once now - UpdatedAt reaches the
// staleness window; lazy deletion at read time keeps the write path free of
// timers while still reclaiming memory on every snapshot
func (s *Store) liveCursorsLocked(e *entry) []types.CursorPosition {
	now := s.now()
	live := make([]types.CursorPosition, 0, len(e.cursors))
	for userID, c := range e.cursors {
		if now.Sub(c.UpdatedAt) >= s.staleness {
			delete(e.cursors, userID)
			continue
		}
		live = append(live, *c)
	}
	return live
}
