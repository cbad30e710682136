package watermark

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
)

const (
	// Tiling gets denser below the mobile breakpoint.
	MobileBreakpointPx = 768
	mobileCellPx       = 140
	desktopCellPx      = 220

	minOpacity = 0.2
	maxOpacity = 0.5
	minScale   = 0.8
	maxScale   = 1.2

	gridColor = "#00C6B3"
	// The center mark uses a warm hue so it survives contrast and hue
	// manipulation better than the teal grid.
	specialColor   = "#FFD166"
	specialOpacity = 0.85
)

// Seed identifies one viewing session. The same seed always produces the same
// layout, which keeps a leaked frame traceable.
type Seed struct {
	SessionID   string `json:"session_id"`
	AccessCode  string `json:"access_code"`
	Fingerprint string `json:"fingerprint"`
}

// Viewport is the pixel area the layout tiles over.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Mark is one overlay element. X and Y are percentages of the viewport.
type Mark struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity"`
	Scale    float64 `json:"scale"`
	Text     string  `json:"text"`
	Color    string  `json:"color"`
	Special  bool    `json:"special,omitempty"`
}

// Layout is the ordered, immutable mark sequence for one session.
type Layout struct {
	Viewport Viewport `json:"viewport"`
	Marks    []Mark   `json:"marks"`
}

// Generate tiles the viewport with jittered, randomly rotated grid marks and
// appends exactly one high-visibility mark at the visual center. All
// randomness derives from the seed, so regenerating within a session yields
// the identical sequence.
func Generate(seed Seed, vp Viewport) Layout {
	if vp.Width <= 0 {
		vp.Width = 1280
	}
	if vp.Height <= 0 {
		vp.Height = 800
	}

	rng := rand.New(rand.NewSource(seedValue(seed)))

	cell := desktopCellPx
	if vp.Width < MobileBreakpointPx {
		cell = mobileCellPx
	}

	gridText := fmt.Sprintf("SECUREVIEW • %s", seed.SessionID)

	var marks []Mark
	for y := 0; y <= vp.Height; y += cell {
		for x := 0; x <= vp.Width; x += cell {
			jx := float64(x) + (rng.Float64()*2-1)*float64(cell)/3
			jy := float64(y) + (rng.Float64()*2-1)*float64(cell)/3
			marks = append(marks, Mark{
				X:        clampPercent(jx / float64(vp.Width) * 100),
				Y:        clampPercent(jy / float64(vp.Height) * 100),
				Rotation: rng.Float64() * 360,
				Opacity:  minOpacity + rng.Float64()*(maxOpacity-minOpacity),
				Scale:    minScale + rng.Float64()*(maxScale-minScale),
				Text:     gridText,
				Color:    gridColor,
			})
		}
	}

	marks = append(marks, Mark{
		X:        50,
		Y:        50,
		Rotation: 0,
		Opacity:  specialOpacity,
		Scale:    1,
		Text:     fmt.Sprintf("%s-%s", seed.AccessCode, seed.SessionID),
		Color:    specialColor,
		Special:  true,
	})

	return Layout{Viewport: vp, Marks: marks}
}

func seedValue(seed Seed) int64 {
	sum := sha256.Sum256([]byte(seed.SessionID + "|" + seed.AccessCode + "|" + seed.Fingerprint))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
