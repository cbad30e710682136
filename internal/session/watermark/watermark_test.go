package watermark

import (
	"reflect"
	"strings"
	"testing"
)

func TestGenerate_Deterministic(t *testing.T) {
	seed := Seed{SessionID: "s1", AccessCode: "AB12CD", Fingerprint: "fp"}
	vp := Viewport{Width: 1280, Height: 800}

	first := Generate(seed, vp)
	second := Generate(seed, vp)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected the same seed to produce the same layout")
	}
}

func TestGenerate_DifferentSessionsDiffer(t *testing.T) {
	vp := Viewport{Width: 1280, Height: 800}
	a := Generate(Seed{SessionID: "s1", AccessCode: "AB12CD"}, vp)
	b := Generate(Seed{SessionID: "s2", AccessCode: "AB12CD"}, vp)

	if reflect.DeepEqual(a.Marks, b.Marks) {
		t.Fatal("expected distinct sessions to produce distinct layouts")
	}
}

func TestGenerate_ExactlyOneSpecialMark(t *testing.T) {
	layout := Generate(Seed{SessionID: "s1", AccessCode: "AB12CD"}, Viewport{Width: 1280, Height: 800})

	specials := 0
	for _, mark := range layout.Marks {
		if mark.Special {
			specials++
			if mark.X != 50 || mark.Y != 50 {
				t.Fatalf("expected the special mark at the center, got %.1f,%.1f", mark.X, mark.Y)
			}
			if mark.Opacity != specialOpacity {
				t.Fatalf("expected special opacity %v, got %v", specialOpacity, mark.Opacity)
			}
			if !strings.Contains(mark.Text, "AB12CD") || !strings.Contains(mark.Text, "s1") {
				t.Fatalf("expected the special text to carry code and session, got %q", mark.Text)
			}
		}
	}
	if specials != 1 {
		t.Fatalf("expected exactly one special mark, got %d", specials)
	}
}

func TestGenerate_GridBands(t *testing.T) {
	layout := Generate(Seed{SessionID: "s1", AccessCode: "AB12CD"}, Viewport{Width: 1280, Height: 800})

	for _, mark := range layout.Marks {
		if mark.Special {
			continue
		}
		if mark.Opacity < minOpacity || mark.Opacity > maxOpacity {
			t.Fatalf("grid opacity %v outside [%v,%v]", mark.Opacity, minOpacity, maxOpacity)
		}
		if mark.Scale < minScale || mark.Scale > maxScale {
			t.Fatalf("grid scale %v outside [%v,%v]", mark.Scale, minScale, maxScale)
		}
		if mark.Rotation < 0 || mark.Rotation >= 360 {
			t.Fatalf("grid rotation %v outside [0,360)", mark.Rotation)
		}
		if mark.X < 0 || mark.X > 100 || mark.Y < 0 || mark.Y > 100 {
			t.Fatalf("grid position %.1f,%.1f outside the viewport", mark.X, mark.Y)
		}
		if !strings.Contains(mark.Text, "s1") {
			t.Fatalf("expected the grid text to carry the session id, got %q", mark.Text)
		}
	}
}

func TestGenerate_MobileTilesDenser(t *testing.T) {
	seed := Seed{SessionID: "s1", AccessCode: "AB12CD"}

	narrow := Generate(seed, Viewport{Width: 600, Height: 800})
	wide := Generate(seed, Viewport{Width: 900, Height: 800})

	// The narrow viewport covers less area but tiles with a smaller cell, so
	// it must still end up with more marks.
	if len(narrow.Marks) <= len(wide.Marks) {
		t.Fatalf("expected the narrow viewport to tile denser: narrow=%d wide=%d",
			len(narrow.Marks), len(wide.Marks))
	}
}

func TestGenerate_DefaultsEmptyViewport(t *testing.T) {
	layout := Generate(Seed{SessionID: "s1"}, Viewport{})
	if layout.Viewport.Width != 1280 || layout.Viewport.Height != 800 {
		t.Fatalf("expected default viewport 1280x800, got %dx%d",
			layout.Viewport.Width, layout.Viewport.Height)
	}
	if len(layout.Marks) == 0 {
		t.Fatal("expected marks for the default viewport")
	}
}
