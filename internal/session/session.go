// Package session implements the ephemeral client-side viewing session: a
// countdown, a remaining-view counter, the protection engine and the
// watermark layout, owned by exactly one viewing context and torn down
// deterministically when the session ends.
package session

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/hackerloum/secureview/internal/session/protection"
	"github.com/hackerloum/secureview/internal/session/watermark"
)

// State is the session lifecycle state. Active and Suspect are both live;
// Expired, Exhausted and Denied are terminal with no re-entry.
type State int

const (
	StateInit State = iota
	StateActive
	StateSuspect
	StateExpired
	StateExhausted
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateActive:
		return "ACTIVE"
	case StateSuspect:
		return "SUSPECT"
	case StateExpired:
		return "EXPIRED"
	case StateExhausted:
		return "EXHAUSTED"
	case StateDenied:
		return "DENIED"
	default:
		return "UNKNOWN"
	}
}

var (
	// ErrNotLive signals an operation on a session outside its live window.
	ErrNotLive = errors.New("session is not live")
)

// Config bounds one viewing session.
type Config struct {
	Duration   time.Duration
	MaxViews   int
	Protection protection.Config
}

// Callbacks surface session transitions to whatever renders the content.
// All callbacks fire on the session's own goroutine or the caller's; none
// may block.
type Callbacks struct {
	OnTick            func(remainingSeconds int)
	OnStateChange     func(State)
	OnLastViewWarning func()
	OnToast           func(protection.Notice)
	OnTerminate       func(State)
}

// Session is the client-owned viewing state. It is never persisted and never
// shared; the mutex only serializes the ticker goroutine against the event
// feed.
type Session struct {
	ID         string
	AccessCode string
	ContentID  string

	cfg Config
	cb  Callbacks

	mu               sync.Mutex
	state            State
	remainingSeconds int
	remainingViews   int
	warned           bool
	engine           *protection.Engine
	layout           watermark.Layout
	hasLayout        bool

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a session awaiting code resolution.
func New(cfg Config, cb Callbacks) *Session {
	if cfg.Duration <= 0 {
		cfg.Duration = 600 * time.Second
	}
	if cfg.MaxViews <= 0 {
		cfg.MaxViews = 3
	}
	return &Session{
		ID:    NewID(),
		cfg:   cfg,
		cb:    cb,
		state: StateInit,
		stop:  make(chan struct{}),
	}
}

// Begin moves INIT to ACTIVE after a successful resolution: counters
// initialize, the protection engine attaches and the watermark layout is
// generated once for the session lifetime.
func (s *Session) Begin(contentID, accessCode, fingerprint string, env protection.Environment, vp watermark.Viewport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInit {
		return ErrNotLive
	}

	s.ContentID = contentID
	s.AccessCode = accessCode
	s.remainingSeconds = int(s.cfg.Duration / time.Second)
	s.remainingViews = s.cfg.MaxViews
	s.engine = protection.NewEngine(s.cfg.Protection, env, s.cb.OnToast)
	s.layout = watermark.Generate(watermark.Seed{
		SessionID:   s.ID,
		AccessCode:  accessCode,
		Fingerprint: fingerprint,
	}, vp)
	s.hasLayout = true
	s.state = StateActive

	// Seed the idle clock so a freshly opened session is not instantly idle.
	s.engine.HandleEvent(protection.Event{Kind: protection.EventActivity, At: time.Now()})

	s.notifyState()
	return nil
}

// Deny terminates an INIT session after a failed resolution. No session state
// is retained beyond the terminal flag.
func (s *Session) Deny() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInit {
		return
	}
	s.terminateLocked(StateDenied)
}

// Start launches the 1 Hz countdown. Stop (or a terminal transition) tears it
// down; timers never outlive the session.
func (s *Session) Start() error {
	s.mu.Lock()
	if !s.liveLocked() {
		s.mu.Unlock()
		return ErrNotLive
	}
	s.mu.Unlock()

	go s.run()
	return nil
}

// Stop deterministically releases the ticker and listeners. Idempotent.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Session) run() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-s.stop:
			return
		}
	}
}

// Tick advances the countdown by one second. The protection flag gates only
// rendering, never the timer.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.liveLocked() {
		return
	}

	s.remainingSeconds--
	if s.cb.OnTick != nil {
		s.cb.OnTick(s.remainingSeconds)
	}

	s.engine.Tick(time.Now())

	if s.remainingSeconds <= 0 {
		s.terminateLocked(StateExpired)
	}
}

// ConsumeView spends one viewing attempt. The one-time warning fires exactly
// when the counter becomes 1; reaching 0 exhausts the session.
func (s *Session) ConsumeView() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.liveLocked() {
		return ErrNotLive
	}

	s.remainingViews--
	if s.remainingViews == 1 && !s.warned {
		s.warned = true
		if s.cb.OnLastViewWarning != nil {
			s.cb.OnLastViewWarning()
		}
	}
	if s.remainingViews <= 0 {
		s.terminateLocked(StateExhausted)
	}
	return nil
}

// HandleEvent forwards a raw protection signal to the detector set.
func (s *Session) HandleEvent(ev protection.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.liveLocked() {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	s.engine.HandleEvent(ev)
}

// State reports the lifecycle state; while live, the protection flag decides
// between ACTIVE and SUSPECT.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.liveLocked() && s.engine.Blurred() {
		return StateSuspect
	}
	return s.state
}

// Blurred reports whether rendering must blur right now.
func (s *Session) Blurred() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveLocked() && s.engine.Blurred()
}

// RemainingSeconds returns the countdown value.
func (s *Session) RemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingSeconds
}

// RemainingViews returns the view counter.
func (s *Session) RemainingViews() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingViews
}

// Layout returns the session's immutable watermark layout.
func (s *Session) Layout() (watermark.Layout, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout, s.hasLayout
}

func (s *Session) liveLocked() bool {
	return s.state == StateActive || s.state == StateSuspect
}

func (s *Session) terminateLocked(st State) {
	s.state = st
	s.notifyState()
	if s.cb.OnTerminate != nil {
		s.cb.OnTerminate(st)
	}
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Session) notifyState() {
	if s.cb.OnStateChange != nil {
		s.cb.OnStateChange(s.state)
	}
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID mints a short random session token.
func NewID() string {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the platform entropy source is broken.
		panic(err)
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf)
}
