package canvas

import (
	"image"
	"io"

	"github.com/fogleman/gg"
)

// Raster draws onto an in-memory RGBA image through gg.
type Raster struct {
	dc *gg.Context
}

func NewRaster(w, h int) *Raster {
	if h > MaxHeight {
		h = MaxHeight
	}
	dc := gg.NewContext(w, h)
	dc.SetFontFace(Face)
	r := &Raster{dc: dc}
	r.Clear(float64(w), float64(h))
	return r
}

// Clear paints the whole image white. The image size is fixed at creation.
func (r *Raster) Clear(_, _ float64) {
	r.dc.SetColor(White.RGBA(1))
	r.dc.Clear()
}

func (r *Raster) Size() (float64, float64) {
	return float64(r.dc.Width()), float64(r.dc.Height())
}

func (r *Raster) Image() image.Image { return r.dc.Image() }

func (r *Raster) EncodePNG(w io.Writer) error {
	return r.dc.EncodePNG(w)
}

func (r *Raster) set(s Style) {
	r.dc.SetColor(s.Color.RGBA(s.Alpha))
	if s.LineWidth > 0 {
		r.dc.SetLineWidth(s.LineWidth)
	} else {
		r.dc.SetLineWidth(1)
	}
}

func (r *Raster) FillRect(x, y, w, h float64, s Style) {
	r.set(s)
	r.dc.DrawRectangle(x, y, w, h)
	r.dc.Fill()
}

func (r *Raster) StrokeRect(x, y, w, h float64, s Style) {
	r.set(s)
	r.dc.DrawRectangle(x, y, w, h)
	r.dc.Stroke()
}

func (r *Raster) Line(x1, y1, x2, y2 float64, s Style) {
	r.set(s)
	r.dc.DrawLine(x1, y1, x2, y2)
	r.dc.Stroke()
}

func (r *Raster) Polygon(pts []Point, fill bool, s Style) {
	if len(pts) < 2 {
		return
	}
	r.set(s)
	r.dc.NewSubPath()
	r.dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		r.dc.LineTo(p.X, p.Y)
	}
	r.dc.ClosePath()
	if fill {
		r.dc.Fill()
	} else {
		r.dc.Stroke()
	}
}

func (r *Raster) Circle(cx, cy, rad float64, fill bool, s Style) {
	r.set(s)
	r.dc.DrawCircle(cx, cy, rad)
	if fill {
		r.dc.Fill()
	} else {
		r.dc.Stroke()
	}
}

func (r *Raster) Text(text string, x, y float64, align Align, baseline Baseline, s Style) {
	r.set(s)
	r.dc.DrawStringAnchored(text, x, y, anchorX(align), anchorY(baseline))
}

func (r *Raster) MeasureText(text string) float64 {
	return MeasureText(text)
}

func anchorX(a Align) float64 {
	switch a {
	case AlignCenter:
		return 0.5
	case AlignRight:
		return 1
	default:
		return 0
	}
}

// anchorY follows gg's convention: 0 puts y on the baseline, 1 hangs the
// text below y.
func anchorY(b Baseline) float64 {
	switch b {
	case BaselineTop:
		return 1
	case BaselineBottom:
		return 0
	default:
		return 0.5
	}
}
