package band

import (
	"math"

	"missiontl/internal/canvas"
	"missiontl/internal/model"
	"missiontl/internal/timeaxis"
)

// Decorator paints everything around a band's intervals: the tick grid,
// labels, background and foreground highlights, guides and the now marker.
type Decorator struct {
	LabelFontSize           float64
	GuideColor              canvas.RGB
	NowColor                canvas.RGB
	NowWidth                float64
	HideBackgroundIntervals bool
}

func DefaultDecorator() *Decorator {
	return &Decorator{
		LabelFontSize: 10,
		GuideColor:    canvas.ForestGreen,
		NowColor:      canvas.Red,
		NowWidth:      4,
	}
}

// Paint runs the pre-interval passes: ticks, label, value ticks and the
// background intervals.
func (d *Decorator) Paint(s canvas.Surface, b *Band) {
	d.PaintTimeTicks(s, b)
	d.PaintLabel(s, b, 0)
	b.variant.valueTicks(s, b, b.ViewAxis.X1())
	d.PaintBackgroundIntervals(s, b)
}

func (d *Decorator) PaintTimeTicks(s canvas.Surface, b *Band) {
	view := b.ViewAxis
	h := b.paintHeight()
	st := canvas.Stroke(canvas.Black, 0.5, 0.5)

	s.StrokeRect(0, 0, b.width(), h, st)
	s.Line(view.X1(), 0, view.X1(), h, st)
	for _, t := range view.TickTimes() {
		if t < view.Start() || t > view.End() {
			continue
		}
		x := view.XFromTime(t)
		delta := 4.0
		if t%int64(timeaxis.Day) == 0 {
			delta = h
		}
		for y := 0.0; y < h; y += delta * 2 {
			s.Line(x, y, x, y+delta, st)
		}
	}
}

// PaintLabel draws the band label and minor labels from yStart down and
// returns the y after the last line.
func (d *Decorator) PaintLabel(s canvas.Surface, b *Band, yStart float64) float64 {
	labelWidth := b.ViewAxis.X1()
	x := 2.0
	y := d.LabelFontSize + yStart
	st := canvas.Fill(b.LabelColor, 1)

	if labelWidth <= 2 {
		s.Text(b.Label, x, y, canvas.AlignLeft, canvas.BaselineMiddle, st)
		return y
	}
	s.Text(canvas.TrimToWidth(b.Label, labelWidth-x, s.MeasureText), x, y, canvas.AlignLeft, canvas.BaselineMiddle, st)
	x += 5
	y += d.LabelFontSize
	for _, minor := range b.MinorLabels {
		s.Text(canvas.TrimToWidth(minor, labelWidth-x, s.MeasureText), x, y, canvas.AlignLeft, canvas.BaselineMiddle, st)
		y += d.LabelFontSize
	}
	return y
}

func (d *Decorator) paintHighlight(s canvas.Surface, b *Band, iv *model.DrawableInterval) (float64, float64) {
	x1 := b.ViewAxis.XFromTime(iv.Start)
	x2 := b.ViewAxis.XFromTime(iv.End)
	c := canvas.Black
	if iv.Color != nil {
		c = *iv.Color
	}
	s.FillRect(x1, 0, math.Max(0.5, x2-x1), b.Height, canvas.Fill(c, iv.Opacity))
	return x1, x2
}

// PaintBackgroundIntervals paints background highlights with their
// annotation label.
func (d *Decorator) PaintBackgroundIntervals(s canvas.Surface, b *Band) {
	if d.HideBackgroundIntervals {
		return
	}
	for _, list := range b.background {
		for _, iv := range list {
			x1, x2 := d.paintHighlight(s, b, iv)
			q := quad{
				ll: canvas.Point{X: x1, Y: 18},
				ul: canvas.Point{X: 0, Y: 10},
				ur: canvas.Point{X: 0, Y: 10},
				lr: canvas.Point{X: x2, Y: 30},
			}
			b.Painter.paintLabel(s, iv, q, labelOpts{trim: b.Painter.TrimLabel, annotation: true})
		}
	}
}

func (d *Decorator) PaintForegroundIntervals(s canvas.Surface, b *Band) {
	for _, list := range b.foreground {
		for _, iv := range list {
			d.paintHighlight(s, b, iv)
		}
	}
}

// PaintGuideTimes draws the data axis guide times that fall in the view.
func (d *Decorator) PaintGuideTimes(s canvas.Surface, b *Band) {
	view := b.ViewAxis
	h := b.paintHeight()
	st := canvas.Stroke(d.GuideColor, 0.8, 2)
	for _, t := range b.TimeAxis.GuideTimes() {
		if t >= view.Start() && t <= view.End() {
			x := view.XFromTime(t)
			s.Line(x, 0, x, h, st)
		}
	}
}

// PaintNow draws the now marker when it lies in [viewStart, viewEnd).
func (d *Decorator) PaintNow(s canvas.Surface, b *Band) {
	view := b.ViewAxis
	now, ok := view.Now()
	if !ok || now < view.Start() || now >= view.End() {
		return
	}
	x := view.XFromTime(now)
	s.Line(x, 0, x, b.paintHeight(), canvas.Stroke(d.NowColor, 0.8, d.NowWidth))
}
