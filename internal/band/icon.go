package band

import "missiontl/internal/canvas"

// IconFunc draws an icon of the given width centred in q.
type IconFunc func(s canvas.Surface, q quad, width float64, fill bool, st canvas.Style)

// Icon is a named marker painters draw on top of an interval. A nil Color
// uses the interval colour.
type Icon struct {
	Width float64
	Color *canvas.RGB
	Paint IconFunc
}

// DefaultIcons returns the built-in icon set.
func DefaultIcons() map[string]Icon {
	return map[string]Icon{
		"plus":     {Width: 12, Paint: paintPlus},
		"cross":    {Width: 12, Paint: paintCross},
		"circle":   {Width: 8, Paint: paintCircle},
		"triangle": {Width: 10, Paint: paintTriangle},
		"square":   {Width: 10, Paint: paintSquare},
		"diamond":  {Width: 10, Paint: paintDiamond},
	}
}

func centre(q quad) (float64, float64) {
	return q.ll.X + (q.lr.X-q.ll.X)/2, q.ll.Y - (q.ll.Y-q.ul.Y)/2
}

func paintPlus(s canvas.Surface, q quad, w float64, _ bool, st canvas.Style) {
	x, y := centre(q)
	st.LineWidth = 3
	s.Line(x, y-w/2, x, y+w/2, st)
	s.Line(x-w/2, y, x+w/2, y, st)
}

func paintCross(s canvas.Surface, q quad, w float64, _ bool, st canvas.Style) {
	x, y := centre(q)
	st.LineWidth = 3
	s.Line(x-w/2, y-w/2, x+w/2, y+w/2, st)
	s.Line(x-w/2, y+w/2, x+w/2, y-w/2, st)
}

func paintCircle(s canvas.Surface, q quad, w float64, fill bool, st canvas.Style) {
	x, y := centre(q)
	st.LineWidth = 2
	s.Circle(x, y, w/2, fill, st)
}

func paintTriangle(s canvas.Surface, q quad, w float64, fill bool, st canvas.Style) {
	x, y := centre(q)
	st.LineWidth = 2
	s.Polygon([]canvas.Point{
		{X: x, Y: y - w/2},
		{X: x - w/2, Y: y + w/2},
		{X: x + w/2, Y: y + w/2},
	}, fill, st)
}

func paintSquare(s canvas.Surface, q quad, w float64, fill bool, st canvas.Style) {
	x, y := centre(q)
	if fill {
		s.FillRect(x-w/2, y-w/2, w, w, st)
		return
	}
	st.LineWidth = 2
	s.StrokeRect(x-w/2, y-w/2, w, w, st)
}

func paintDiamond(s canvas.Surface, q quad, w float64, fill bool, st canvas.Style) {
	x, y := centre(q)
	st.LineWidth = 2
	s.Polygon([]canvas.Point{
		{X: x, Y: y - w/2},
		{X: x - w/2, Y: y},
		{X: x, Y: y + w/2},
		{X: x + w/2, Y: y},
	}, fill, st)
}
