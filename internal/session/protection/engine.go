package protection

import "time"

// State is the coalesced protection flag. Multiple concurrent triggers reduce
// to one value; the strictest active detector wins.
type State int

const (
	StateClear State = iota
	StateSuspect
)

func (s State) String() string {
	if s == StateSuspect {
		return "SUSPECT"
	}
	return "CLEAR"
}

// Config carries detector thresholds. Zero values fall back to the defaults
// mirrored in the application configuration.
type Config struct {
	WindowShapeThreshold int
	ScreenshotCooldown   time.Duration
	ScreenshotDebounce   time.Duration
	TouchCooldown        time.Duration
	IdleTimeout          time.Duration
	ToastDuration        time.Duration
}

const (
	defaultWindowShapeThreshold = 100
	defaultScreenshotCooldown   = 2500 * time.Millisecond
	defaultScreenshotDebounce   = time.Second
	defaultTouchCooldown        = 2 * time.Second
	defaultIdleTimeout          = 60 * time.Second
	defaultToastDuration        = 3 * time.Second
)

// Notice is a transient human-visible warning, auto-dismissed after a fixed
// delay independent of how long the blur lasts.
type Notice struct {
	Message   string
	At        time.Time
	ExpiresAt time.Time
}

// Engine owns the detector set and reduces it to a single CLEAR/SUSPECT flag.
// All methods must be called from one goroutine; the session controller owns
// the engine and serializes access.
type Engine struct {
	detectors []Detector
	state     State
	toastTTL  time.Duration
	onNotice  func(Notice)
}

// NewEngine builds the detector set for the given environment. Detectors that
// cannot apply (touch heuristics without a touch screen) are simply absent.
func NewEngine(cfg Config, env Environment, onNotice func(Notice)) *Engine {
	if cfg.WindowShapeThreshold <= 0 {
		cfg.WindowShapeThreshold = defaultWindowShapeThreshold
	}
	if cfg.ScreenshotCooldown <= 0 {
		cfg.ScreenshotCooldown = defaultScreenshotCooldown
	}
	if cfg.ScreenshotDebounce <= 0 {
		cfg.ScreenshotDebounce = defaultScreenshotDebounce
	}
	if cfg.TouchCooldown <= 0 {
		cfg.TouchCooldown = defaultTouchCooldown
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.ToastDuration <= 0 {
		cfg.ToastDuration = defaultToastDuration
	}

	detectors := []Detector{
		&visibilityDetector{},
		&windowShapeDetector{threshold: cfg.WindowShapeThreshold},
		&screenshotKeyDetector{
			platform: env.Platform,
			cooldown: cfg.ScreenshotCooldown,
			debounce: cfg.ScreenshotDebounce,
		},
		&idleDetector{timeout: cfg.IdleTimeout},
	}
	if env.TouchCapable {
		detectors = append(detectors, &touchDetector{cooldown: cfg.TouchCooldown})
	}
	if env.DisplayCaptureAPI {
		detectors = append(detectors, &captureAPIDetector{pinned: true})
	}

	return &Engine{
		detectors: detectors,
		state:     StateClear,
		toastTTL:  cfg.ToastDuration,
		onNotice:  onNotice,
	}
}

// HandleEvent feeds one observation to every detector and re-evaluates.
func (e *Engine) HandleEvent(ev Event) {
	for _, d := range e.detectors {
		d.Observe(ev)
	}
	e.evaluate(ev.At)
}

// Tick re-evaluates time-based detectors (cooldowns, idle) without new input.
func (e *Engine) Tick(now time.Time) {
	e.evaluate(now)
}

// State returns the coalesced protection flag.
func (e *Engine) State() State { return e.state }

// Blurred is the single derived rendering signal: blur whenever not CLEAR.
func (e *Engine) Blurred() bool { return e.state != StateClear }

func (e *Engine) evaluate(now time.Time) {
	suspect := ""
	for _, d := range e.detectors {
		if d.Suspect(now) {
			suspect = d.Name()
			break
		}
	}

	next := StateClear
	if suspect != "" {
		next = StateSuspect
	}
	if next == e.state {
		return
	}

	e.state = next
	if next == StateSuspect && e.onNotice != nil {
		e.onNotice(Notice{
			Message:   noticeMessage(suspect),
			At:        now,
			ExpiresAt: now.Add(e.toastTTL),
		})
	}
}

func noticeMessage(detector string) string {
	switch detector {
	case "visibility":
		return "Content blurred for security"
	case "window_shape":
		return "DevTools detected - Content protected"
	case "screenshot_keys":
		return "Screenshot blocked - Content protected"
	case "capture_api":
		return "Screen capture capability detected"
	case "touch":
		return "Action restricted for content protection"
	case "idle":
		return "Session idle - Content blurred"
	default:
		return "Content protected"
	}
}
