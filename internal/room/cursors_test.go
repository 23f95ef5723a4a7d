package room

import (
	"testing"
	"time"

	"tumorboard/pkg/types"
)

func cursorAt(userID string, x, y float64) types.CursorPosition {
	return types.CursorPosition{UserID: userID, X: x, Y: y, Plane: types.PlaneAxial, Slice: 10}
}

func TestUpdateCursor_ReplacesNotMerges(t *testing.T) {
	s, _ := newTestStore(nil)
	s.AddUser("case-7", user("a"))

	s.UpdateCursor("case-7", cursorAt("a", 10, 20))
	s.UpdateCursor("case-7", cursorAt("a", 30, 40))

	live := s.LiveCursors("case-7")
	if len(live) != 1 {
		t.Fatalf("expected exactly one cursor per user, got %d", len(live))
	}
	if live[0].X != 30 || live[0].Y != 40 {
		t.Errorf("later update must replace the earlier one, got (%v,%v)", live[0].X, live[0].Y)
	}
}

func TestUpdateCursor_UnknownRoom(t *testing.T) {
	s, _ := newTestStore(nil)
	if s.UpdateCursor("nope", cursorAt("a", 1, 1)) {
		t.Error("cursor update on a missing room must report false")
	}
}

func TestLiveCursors_StalenessWindow(t *testing.T) {
	s, clock := newTestStore(nil)
	s.AddUser("case-7", user("a"))
	s.UpdateCursor("case-7", cursorAt("a", 1, 2))

	clock.Advance(4 * time.Second)
	if live := s.LiveCursors("case-7"); len(live) != 1 {
		t.Errorf("cursor at 4s must still be live, got %d cursors", len(live))
	}

	clock.Advance(2 * time.Second) // now 6s since the update
	if live := s.LiveCursors("case-7"); len(live) != 0 {
		t.Errorf("cursor at 6s must be expired, got %d cursors", len(live))
	}
}

func TestLiveCursors_ExactBoundaryIsStale(t *testing.T) {
	s, clock := newTestStore(nil)
	s.AddUser("case-7", user("a"))
	s.UpdateCursor("case-7", cursorAt("a", 1, 2))

	clock.Advance(DefaultCursorStaleness)
	if live := s.LiveCursors("case-7"); len(live) != 0 {
		t.Errorf("cursor exactly at the staleness window must be expired, got %d", len(live))
	}
}

func TestLiveCursors_UpdateResetsWindow(t *testing.T) {
	s, clock := newTestStore(nil)
	s.AddUser("case-7", user("a"))

	s.UpdateCursor("case-7", cursorAt("a", 1, 2))
	clock.Advance(4 * time.Second)
	s.UpdateCursor("case-7", cursorAt("a", 3, 4))
	clock.Advance(4 * time.Second)

	// 8s since the first update but only 4s since the latest.
	if live := s.LiveCursors("case-7"); len(live) != 1 {
		t.Errorf("a fresh update must restart the staleness window, got %d cursors", len(live))
	}
}

func TestLiveCursors_StaleEntriesPurged(t *testing.T) {
	s, clock := newTestStore(nil)
	s.AddUser("case-7", user("a"))
	s.AddUser("case-7", user("b"))

	s.UpdateCursor("case-7", cursorAt("a", 1, 1))
	clock.Advance(3 * time.Second)
	s.UpdateCursor("case-7", cursorAt("b", 2, 2))
	clock.Advance(3 * time.Second)

	// a is 6s old, b is 3s old.
	live := s.LiveCursors("case-7")
	if len(live) != 1 || live[0].UserID != "b" {
		t.Fatalf("expected only b's cursor to survive, got %+v", live)
	}

	// The stale entry was deleted, not just filtered: a fresh update for a
	// after purge still yields two live cursors.
	s.UpdateCursor("case-7", cursorAt("a", 9, 9))
	if live := s.LiveCursors("case-7"); len(live) != 2 {
		t.Errorf("expected both cursors live after re-update, got %d", len(live))
	}
}

func TestRemoveUser_DropsCursor(t *testing.T) {
	s, _ := newTestStore(nil)
	s.AddUser("case-7", user("a"))
	s.AddUser("case-7", user("b"))
	s.UpdateCursor("case-7", cursorAt("a", 1, 1))

	s.RemoveUser("case-7", "a")
	if live := s.LiveCursors("case-7"); len(live) != 0 {
		t.Errorf("departing user's cursor must be dropped, got %d cursors", len(live))
	}
}

func TestSnapshot_PurgesStaleCursors(t *testing.T) {
	s, clock := newTestStore(nil)
	s.AddUser("case-7", user("a"))
	s.UpdateCursor("case-7", cursorAt("a", 1, 1))

	clock.Advance(DefaultCursorStaleness + time.Second)
	snap, ok := s.Snapshot("case-7")
	if !ok {
		t.Fatal("expected snapshot")
	}
	if len(snap.Cursors) != 0 {
		t.Errorf("snapshot must exclude stale cursors, got %d", len(snap.Cursors))
	}
}
