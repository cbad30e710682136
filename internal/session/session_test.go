package session

import (
	"errors"
	"testing"
	"time"

	"github.com/hackerloum/secureview/internal/session/protection"
	"github.com/hackerloum/secureview/internal/session/watermark"
)

func beginTestSession(t *testing.T, cfg Config, cb Callbacks) *Session {
	t.Helper()
	s := New(cfg, cb)
	err := s.Begin("content-1", "AB12CD", "fp", protection.Environment{}, watermark.Viewport{Width: 1280, Height: 800})
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	return s
}

func TestSession_BeginInitializesCounters(t *testing.T) {
	s := beginTestSession(t, Config{}, Callbacks{})

	if s.State() != StateActive {
		t.Fatalf("expected ACTIVE, got %s", s.State())
	}
	if s.RemainingSeconds() != 600 {
		t.Fatalf("expected 600 seconds, got %d", s.RemainingSeconds())
	}
	if s.RemainingViews() != 3 {
		t.Fatalf("expected 3 views, got %d", s.RemainingViews())
	}
	if _, ok := s.Layout(); !ok {
		t.Fatal("expected a watermark layout after Begin")
	}
}

func TestSession_BeginTwiceRejected(t *testing.T) {
	s := beginTestSession(t, Config{}, Callbacks{})
	err := s.Begin("content-2", "ZZ99ZZ", "fp", protection.Environment{}, watermark.Viewport{})
	if !errors.Is(err, ErrNotLive) {
		t.Fatalf("expected ErrNotLive, got %v", err)
	}
}

func TestSession_CountdownExpires(t *testing.T) {
	var terminal State
	terminations := 0
	s := beginTestSession(t, Config{Duration: 3 * time.Second}, Callbacks{
		OnTerminate: func(st State) {
			terminal = st
			terminations++
		},
	})

	s.Tick()
	s.Tick()
	if s.State() != StateActive {
		t.Fatalf("expected ACTIVE mid-countdown, got %s", s.State())
	}

	s.Tick()
	if s.State() != StateExpired {
		t.Fatalf("expected EXPIRED, got %s", s.State())
	}

	// Further ticks on a terminal session are inert.
	s.Tick()
	s.Tick()
	if terminal != StateExpired || terminations != 1 {
		t.Fatalf("expected exactly one EXPIRED termination, got %d x %s", terminations, terminal)
	}
}

func TestSession_ViewLimit(t *testing.T) {
	warnings := 0
	var terminal State
	s := beginTestSession(t, Config{MaxViews: 3}, Callbacks{
		OnLastViewWarning: func() { warnings++ },
		OnTerminate:       func(st State) { terminal = st },
	})

	if err := s.ConsumeView(); err != nil {
		t.Fatalf("first view: %v", err)
	}
	if warnings != 0 {
		t.Fatal("warning must not fire before the last view")
	}

	if err := s.ConsumeView(); err != nil {
		t.Fatalf("second view: %v", err)
	}
	if warnings != 1 {
		t.Fatalf("expected the warning exactly when one view remains, got %d", warnings)
	}

	if err := s.ConsumeView(); err != nil {
		t.Fatalf("third view: %v", err)
	}
	if terminal != StateExhausted {
		t.Fatalf("expected EXHAUSTED, got %s", terminal)
	}

	if err := s.ConsumeView(); !errors.Is(err, ErrNotLive) {
		t.Fatalf("expected ErrNotLive after exhaustion, got %v", err)
	}
	if warnings != 1 {
		t.Fatalf("expected the warning to fire once, got %d", warnings)
	}
}

func TestSession_Deny(t *testing.T) {
	var terminal State
	s := New(Config{}, Callbacks{
		OnTerminate: func(st State) { terminal = st },
	})

	s.Deny()
	if s.State() != StateDenied {
		t.Fatalf("expected DENIED, got %s", s.State())
	}
	if terminal != StateDenied {
		t.Fatalf("expected the termination callback with DENIED, got %s", terminal)
	}

	// A denied session can never begin.
	err := s.Begin("content-1", "AB12CD", "fp", protection.Environment{}, watermark.Viewport{})
	if !errors.Is(err, ErrNotLive) {
		t.Fatalf("expected ErrNotLive, got %v", err)
	}
}

func TestSession_SuspectStateFollowsEngine(t *testing.T) {
	s := beginTestSession(t, Config{}, Callbacks{})

	s.HandleEvent(protection.Event{Kind: protection.EventVisibility, Hidden: true})
	if s.State() != StateSuspect {
		t.Fatalf("expected SUSPECT while hidden, got %s", s.State())
	}
	if !s.Blurred() {
		t.Fatal("expected the blur flag while SUSPECT")
	}

	s.HandleEvent(protection.Event{Kind: protection.EventVisibility, Hidden: false})
	if s.State() != StateActive {
		t.Fatalf("expected ACTIVE after recovery, got %s", s.State())
	}
}

func TestSession_SuspectDoesNotPauseCountdown(t *testing.T) {
	s := beginTestSession(t, Config{Duration: 10 * time.Second}, Callbacks{})

	s.HandleEvent(protection.Event{Kind: protection.EventVisibility, Hidden: true})
	before := s.RemainingSeconds()
	s.Tick()
	if s.RemainingSeconds() != before-1 {
		t.Fatal("the countdown must keep running while SUSPECT")
	}
	if err := s.ConsumeView(); err != nil {
		t.Fatalf("views must stay consumable while SUSPECT: %v", err)
	}
}

func TestSession_LayoutStableAcrossTicks(t *testing.T) {
	s := beginTestSession(t, Config{}, Callbacks{})

	first, _ := s.Layout()
	s.Tick()
	s.HandleEvent(protection.Event{Kind: protection.EventVisibility, Hidden: true})
	second, _ := s.Layout()

	if len(first.Marks) != len(second.Marks) {
		t.Fatal("the layout must never change within a session")
	}
	for i := range first.Marks {
		if first.Marks[i] != second.Marks[i] {
			t.Fatal("the layout must never change within a session")
		}
	}
}

func TestSession_StopIdempotent(t *testing.T) {
	s := beginTestSession(t, Config{}, Callbacks{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	s.Stop()
	s.Stop()
}

func TestSession_OnTickReportsRemaining(t *testing.T) {
	var seen []int
	s := beginTestSession(t, Config{Duration: 3 * time.Second}, Callbacks{
		OnTick: func(remaining int) { seen = append(seen, remaining) },
	})

	s.Tick()
	s.Tick()
	s.Tick()

	want := []int{2, 1, 0}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, seen)
		}
	}
}

func TestNewID_Format(t *testing.T) {
	id := NewID()
	if len(id) != 10 {
		t.Fatalf("expected 10 characters, got %q", id)
	}
	for _, r := range id {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'z')) {
			t.Fatalf("id %q contains %q outside base36", id, r)
		}
	}
	if NewID() == id {
		t.Fatal("expected ids to differ")
	}
}
