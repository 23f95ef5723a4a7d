package room

import (
	"testing"
	"time"

	"tumorboard/pkg/types"
)

// stubCounter maps room IDs to fixed subscriber counts.
type stubCounter map[string]int

func (c stubCounter) Count(roomID string) int { return c[roomID] }

func TestReaper_SweepEvictsIdleRooms(t *testing.T) {
	s, clock := newTestStore(nil)
	subs := stubCounter{}
	r := NewReaper(s, subs, DefaultReapInterval, DefaultRoomTTL)

	s.GetOrCreate("case-idle")
	clock.Advance(31 * time.Minute)

	reaped := r.Sweep()
	if len(reaped) != 1 || reaped[0] != "case-idle" {
		t.Fatalf("expected case-idle reaped, got %v", reaped)
	}
	if s.HasRoom("case-idle") {
		t.Error("reaped room must be gone from the store")
	}
}

func TestReaper_ActiveRoomSurvives(t *testing.T) {
	s, clock := newTestStore(nil)
	r := NewReaper(s, stubCounter{}, DefaultReapInterval, DefaultRoomTTL)

	s.GetOrCreate("case-busy")
	clock.Advance(29 * time.Minute)
	s.UpdateCursor("case-busy", types.CursorPosition{UserID: "a", Plane: types.PlaneAxial})
	clock.Advance(29 * time.Minute)

	// 58 minutes old but active 29 minutes ago.
	if reaped := r.Sweep(); len(reaped) != 0 {
		t.Errorf("recently active room must not be reaped, got %v", reaped)
	}
}

func TestReaper_LiveSubscriberBlocksEviction(t *testing.T) {
	s, clock := newTestStore(nil)
	subs := stubCounter{"case-watched": 1}
	r := NewReaper(s, subs, DefaultReapInterval, DefaultRoomTTL)

	s.GetOrCreate("case-watched")
	s.GetOrCreate("case-abandoned")
	clock.Advance(31 * time.Minute)

	reaped := r.Sweep()
	if len(reaped) != 1 || reaped[0] != "case-abandoned" {
		t.Fatalf("expected only the unwatched room reaped, got %v", reaped)
	}
	if !s.HasRoom("case-watched") {
		t.Error("a room with a live subscriber must never be reaped")
	}
}

func TestReaper_StartStopLifecycle(t *testing.T) {
	s, _ := newTestStore(nil)
	r := NewReaper(s, stubCounter{}, time.Hour, time.Hour)

	if err := r.Stop(); err != ErrReaperNotRunning {
		t.Errorf("stopping a stopped reaper: expected ErrReaperNotRunning, got %v", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if err := r.Start(); err != ErrReaperRunning {
		t.Errorf("double start: expected ErrReaperRunning, got %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	// Restart after a clean stop is allowed.
	if err := r.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
}

func TestReaper_DefaultsApplied(t *testing.T) {
	s, _ := newTestStore(nil)
	r := NewReaper(s, stubCounter{}, 0, -time.Second)
	if r.interval != DefaultReapInterval {
		t.Errorf("expected default interval, got %s", r.interval)
	}
	if r.ttl != DefaultRoomTTL {
		t.Errorf("expected default ttl, got %s", r.ttl)
	}
}
