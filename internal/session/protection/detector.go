package protection

import "time"

// Platform selects which screenshot key signatures apply.
type Platform int

const (
	PlatformOther Platform = iota
	PlatformMac
	PlatformWindows
)

// Environment describes the viewing context a detector set is built for.
// Capability flags are probed once at attach time; they are signals, not
// proof of capture.
type Environment struct {
	Platform          Platform
	TouchCapable      bool
	DisplayCaptureAPI bool
}

// EventKind enumerates the raw signals fed into the detector set.
type EventKind int

const (
	// EventVisibility carries the document hidden/visible flag.
	EventVisibility EventKind = iota
	// EventWindowResize carries outer and inner viewport heights.
	EventWindowResize
	// EventKeyDown carries key identity and modifier state.
	EventKeyDown
	// EventTouchStart marks a touch on a touch-capable device.
	EventTouchStart
	// EventActivity is any pointer/scroll/input activity. It only feeds the
	// idle clock; scrolling is never treated as capture-suspicious.
	EventActivity
)

// Event is one observation delivered to every detector.
type Event struct {
	Kind        EventKind
	At          time.Time
	Hidden      bool
	OuterHeight int
	InnerHeight int
	Key         string
	Meta        bool
	Shift       bool
}

// Detector is one independent heuristic. Observe feeds it an event; Suspect
// reports whether it currently holds the protection state at SUSPECT.
// Detectors are combined by OR-reduction in the engine, so adding or removing
// one never touches the state machine.
type Detector interface {
	Name() string
	Observe(ev Event)
	Suspect(at time.Time) bool
}

// visibilityDetector: hidden tab means SUSPECT immediately, CLEAR again the
// moment visibility returns. No cooldown.
type visibilityDetector struct {
	hidden bool
}

func (d *visibilityDetector) Name() string { return "visibility" }

func (d *visibilityDetector) Observe(ev Event) {
	if ev.Kind == EventVisibility {
		d.hidden = ev.Hidden
	}
}

func (d *visibilityDetector) Suspect(time.Time) bool { return d.hidden }

// windowShapeDetector treats a large outer-vs-inner height delta as a
// debug-tooling proxy. Sustained until the shape normalizes.
type windowShapeDetector struct {
	threshold int
	exceeded  bool
}

func (d *windowShapeDetector) Name() string { return "window_shape" }

func (d *windowShapeDetector) Observe(ev Event) {
	if ev.Kind == EventWindowResize {
		d.exceeded = ev.OuterHeight-ev.InnerHeight > d.threshold
	}
}

func (d *windowShapeDetector) Suspect(time.Time) bool { return d.exceeded }

// screenshotKeyDetector matches platform-specific capture key combinations,
// holding SUSPECT for a cooldown. Key-repeat storms collapse into one trigger
// via the debounce window.
type screenshotKeyDetector struct {
	platform     Platform
	cooldown     time.Duration
	debounce     time.Duration
	lastTrigger  time.Time
	suspectUntil time.Time
}

func (d *screenshotKeyDetector) Name() string { return "screenshot_keys" }

func (d *screenshotKeyDetector) Observe(ev Event) {
	if ev.Kind != EventKeyDown || !d.matches(ev) {
		return
	}
	if !d.lastTrigger.IsZero() && ev.At.Sub(d.lastTrigger) < d.debounce {
		return
	}
	d.lastTrigger = ev.At
	d.suspectUntil = ev.At.Add(d.cooldown)
}

func (d *screenshotKeyDetector) matches(ev Event) bool {
	switch d.platform {
	case PlatformMac:
		return ev.Meta && ev.Shift && (ev.Key == "3" || ev.Key == "4")
	default:
		return ev.Key == "PrintScreen" || ev.Key == "Snapshot"
	}
}

func (d *screenshotKeyDetector) Suspect(at time.Time) bool {
	return at.Before(d.suspectUntil)
}

// captureAPIDetector pins SUSPECT for the whole session when a display
// capture API exists. Capability only; actual invocation is undetectable.
type captureAPIDetector struct {
	pinned bool
}

func (d *captureAPIDetector) Name() string { return "capture_api" }

func (d *captureAPIDetector) Observe(Event) {}

func (d *captureAPIDetector) Suspect(time.Time) bool { return d.pinned }

// touchDetector treats touch-start as a coarse proxy for platform screenshot
// gestures on touch-capable devices.
type touchDetector struct {
	cooldown     time.Duration
	suspectUntil time.Time
}

func (d *touchDetector) Name() string { return "touch" }

func (d *touchDetector) Observe(ev Event) {
	if ev.Kind == EventTouchStart {
		d.suspectUntil = ev.At.Add(d.cooldown)
	}
}

func (d *touchDetector) Suspect(at time.Time) bool {
	return at.Before(d.suspectUntil)
}

// idleDetector flags prolonged inactivity. Any activity event clears it and
// resets the clock.
type idleDetector struct {
	timeout      time.Duration
	lastActivity time.Time
}

func (d *idleDetector) Name() string { return "idle" }

func (d *idleDetector) Observe(ev Event) {
	switch ev.Kind {
	case EventActivity, EventKeyDown, EventTouchStart:
		d.lastActivity = ev.At
	}
}

func (d *idleDetector) Suspect(at time.Time) bool {
	if d.lastActivity.IsZero() {
		return false
	}
	return at.Sub(d.lastActivity) >= d.timeout
}
