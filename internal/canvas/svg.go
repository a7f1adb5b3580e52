package canvas

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"
)

// SVG streams primitives to w as SVG elements. Coordinates are rounded to
// whole pixels; stroke widths keep their fractional part.
type SVG struct {
	canv *svg.SVG
	w, h float64
	done bool
}

// NewSVG writes the document header for a w x h canvas.
func NewSVG(w io.Writer, width, height int) *SVG {
	if height > MaxHeight {
		height = MaxHeight
	}
	s := &SVG{canv: svg.New(w), w: float64(width), h: float64(height)}
	s.canv.Start(width, height)
	s.canv.Gstyle("font-family:monospace;font-size:11.6px")
	s.Clear(s.w, s.h)
	return s
}

// Close finishes the document. Further drawing calls are ignored.
func (s *SVG) Close() {
	if s.done {
		return
	}
	s.canv.Gend()
	s.canv.End()
	s.done = true
}

func (s *SVG) Clear(w, h float64) {
	if s.done {
		return
	}
	s.canv.Rect(0, 0, px(w), px(h), "fill:#ffffff")
}

func (s *SVG) Size() (float64, float64) { return s.w, s.h }

func (s *SVG) FillRect(x, y, w, h float64, st Style) {
	if s.done {
		return
	}
	s.canv.Rect(px(x), px(y), px(math.Max(w, 1)), px(math.Max(h, 1)), fillCSS(st))
}

func (s *SVG) StrokeRect(x, y, w, h float64, st Style) {
	if s.done {
		return
	}
	s.canv.Rect(px(x), px(y), px(w), px(h), strokeCSS(st))
}

func (s *SVG) Line(x1, y1, x2, y2 float64, st Style) {
	if s.done {
		return
	}
	s.canv.Line(px(x1), px(y1), px(x2), px(y2), strokeCSS(st))
}

func (s *SVG) Polygon(pts []Point, fill bool, st Style) {
	if s.done || len(pts) < 2 {
		return
	}
	xs := make([]int, len(pts))
	ys := make([]int, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = px(p.X), px(p.Y)
	}
	if fill {
		s.canv.Polygon(xs, ys, fillCSS(st))
		return
	}
	s.canv.Polygon(xs, ys, strokeCSS(st))
}

func (s *SVG) Circle(cx, cy, r float64, fill bool, st Style) {
	if s.done {
		return
	}
	css := strokeCSS(st)
	if fill {
		css = fillCSS(st)
	}
	s.canv.Circle(px(cx), px(cy), px(r), css)
}

func (s *SVG) Text(text string, x, y float64, align Align, baseline Baseline, st Style) {
	if s.done || text == "" {
		return
	}
	anchor := "start"
	switch align {
	case AlignCenter:
		anchor = "middle"
	case AlignRight:
		anchor = "end"
	}
	dominant := "middle"
	switch baseline {
	case BaselineTop:
		dominant = "hanging"
	case BaselineBottom:
		dominant = "text-after-edge"
	}
	s.canv.Text(px(x), px(y), text, fmt.Sprintf("%s;text-anchor:%s;dominant-baseline:%s", fillCSS(st), anchor, dominant))
}

func (s *SVG) MeasureText(text string) float64 {
	return MeasureText(text)
}

func px(v float64) int {
	return int(math.Round(v))
}

func fillCSS(st Style) string {
	return fmt.Sprintf("fill:%s;fill-opacity:%.3g;stroke:none", st.Color.Hex(), clamp01(st.Alpha))
}

func strokeCSS(st Style) string {
	w := st.LineWidth
	if w <= 0 {
		w = 1
	}
	return fmt.Sprintf("fill:none;stroke:%s;stroke-opacity:%.3g;stroke-width:%.3g", st.Color.Hex(), clamp01(st.Alpha), w)
}
