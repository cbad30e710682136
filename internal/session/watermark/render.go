package watermark

import (
	"fmt"
	"image"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
)

const baseFontSizePx = 18

// Renderer burns a layout into an image, producing the watermarked frame a
// viewer actually receives.
type Renderer struct {
	font *truetype.Font
}

// NewRenderer loads the TTF font used for mark text.
func NewRenderer(fontPath string) (*Renderer, error) {
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("watermark: read font: %w", err)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("watermark: parse font: %w", err)
	}
	return &Renderer{font: f}, nil
}

// Render draws every mark of the layout over the source image. The source is
// scaled to the layout viewport first so percent positions line up.
func (r *Renderer) Render(src image.Image, layout Layout) (image.Image, error) {
	w := layout.Viewport.Width
	h := layout.Viewport.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("watermark: layout has no viewport")
	}

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Over, nil)

	dc := gg.NewContextForRGBA(scaled)
	for _, mark := range layout.Marks {
		if err := r.drawMark(dc, mark, w, h); err != nil {
			return nil, err
		}
	}
	return dc.Image(), nil
}

func (r *Renderer) drawMark(dc *gg.Context, mark Mark, w, h int) error {
	cr, cg, cb, err := parseHexColor(mark.Color)
	if err != nil {
		return err
	}

	px := mark.X / 100 * float64(w)
	py := mark.Y / 100 * float64(h)

	face := r.face(baseFontSizePx * mark.Scale)
	dc.SetFontFace(face)
	dc.SetRGBA(cr, cg, cb, mark.Opacity)

	dc.Push()
	dc.RotateAbout(gg.Radians(mark.Rotation), px, py)
	dc.DrawStringAnchored(mark.Text, px, py, 0.5, 0.5)
	dc.Pop()
	return nil
}

func (r *Renderer) face(size float64) font.Face {
	return truetype.NewFace(r.font, &truetype.Options{Size: size})
}

func parseHexColor(s string) (float64, float64, float64, error) {
	var ri, gi, bi int
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &ri, &gi, &bi); err != nil {
		return 0, 0, 0, fmt.Errorf("watermark: bad color %q: %w", s, err)
	}
	return float64(ri) / 255, float64(gi) / 255, float64(bi) / 255, nil
}
