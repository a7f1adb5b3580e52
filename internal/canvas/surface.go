// Package canvas is the drawing-surface layer bands paint onto. A band paints
// into its own Recorder; the Recorder is later replayed onto a raster (gg) or
// SVG (svgo) surface at the band's page offset.
package canvas

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// MaxHeight is the tallest surface a band may allocate. Taller requests are
// clamped.
const MaxHeight = 32767

type Point struct {
	X, Y float64
}

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

type Baseline int

const (
	BaselineMiddle Baseline = iota
	BaselineTop
	BaselineBottom
)

// Style describes how a shape is filled or stroked.
type Style struct {
	Color     RGB
	Alpha     float64
	LineWidth float64
}

// Fill returns a fill style with the given colour and alpha.
func Fill(c RGB, alpha float64) Style {
	return Style{Color: c, Alpha: alpha}
}

// Stroke returns a stroke style.
func Stroke(c RGB, alpha, width float64) Style {
	return Style{Color: c, Alpha: alpha, LineWidth: width}
}

// Surface is the set of drawing primitives painters and decorators use.
type Surface interface {
	// Clear blanks the surface and sets its size to w x h.
	Clear(w, h float64)
	Size() (w, h float64)
	FillRect(x, y, w, h float64, s Style)
	StrokeRect(x, y, w, h float64, s Style)
	Line(x1, y1, x2, y2 float64, s Style)
	// Polygon closes the path through pts. With fill set the shape is
	// filled, otherwise it is stroked.
	Polygon(pts []Point, fill bool, s Style)
	Circle(cx, cy, r float64, fill bool, s Style)
	Text(text string, x, y float64, align Align, baseline Baseline, s Style)
	MeasureText(text string) float64
}

// Face is the font every surface lays text out with, so label trimming and
// packing are identical across outputs.
var Face font.Face = basicfont.Face7x13

// MeasureText returns the advance width of text in Face.
func MeasureText(text string) float64 {
	return float64(font.MeasureString(Face, text).Ceil())
}

// TextHeight is the line height of Face.
func TextHeight() float64 {
	return float64(Face.Metrics().Height.Ceil())
}

// TrimToWidth shortens text so that it fits width, replacing the tail with
// "..". Text that cannot keep more than two characters becomes empty.
func TrimToWidth(text string, width float64, measure func(string) float64) string {
	if width < 0 {
		width = 0
	}
	tw := measure(text)
	if tw <= width {
		return text
	}
	runes := []rune(text)
	n := int(float64(len(runes))*(width/tw)) - 2
	if n <= 2 {
		return ""
	}
	return string(runes[:n-2]) + ".."
}
