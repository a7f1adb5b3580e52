package band

import (
	"fmt"
	"math"
	"slices"

	"missiontl/internal/canvas"
	"missiontl/internal/model"
)

// AutoScale selects which values bound a resource plot vertically.
type AutoScale int

const (
	// ScaleNone spans all values and the limits.
	ScaleNone AutoScale = iota
	// ScaleVisible spans the values in view when the view is zoomed.
	ScaleVisible
	// ScaleAll spans all values, ignoring the limits.
	ScaleAll
)

func ParseAutoScale(s string) (AutoScale, error) {
	switch s {
	case "", "none":
		return ScaleNone, nil
	case "visible_intervals", "visible":
		return ScaleVisible, nil
	case "all_intervals", "all":
		return ScaleAll, nil
	}
	return 0, fmt.Errorf("band: unknown auto scale %q", s)
}

// Interpolation selects how gaps between resource intervals are filled.
type Interpolation int

const (
	InterpolateNone Interpolation = iota
	InterpolateConstant
	InterpolateLinear
)

func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "", "none":
		return InterpolateNone, nil
	case "constant":
		return InterpolateConstant, nil
	case "linear":
		return InterpolateLinear, nil
	}
	return 0, fmt.Errorf("band: unknown interpolation %q", s)
}

type ResourceOptions struct {
	MinLimit *float64
	MaxLimit *float64
	// DefaultValue seeds the value range. Nil uses MinLimit.
	DefaultValue *float64

	AutoScale     AutoScale
	Interpolation Interpolation

	TickValues     []float64
	AutoTickValues bool
	HideTicks      bool
	// LogTicks places TickValues evenly and maps values between them.
	LogTicks bool
	// FormatTickValue defaults to model.FormatValue.
	FormatTickValue func(float64) string

	Fill      bool
	FillColor *canvas.RGB
}

func DefaultResourceOptions() ResourceOptions {
	return ResourceOptions{Fill: true}
}

// Resource plots a value over time.
type Resource struct {
	Options ResourceOptions

	minValue, maxValue float64
	hasValues          bool
	minPaint, maxPaint float64

	// logHeights maps each log tick to the y it was drawn at. The value-tick
	// pass fills it before intervals are painted.
	logHeights map[float64]float64
	fillers    fillers
}

func (*Resource) Kind() Kind { return KindResource }

func NewResource(c Common, opts ResourceOptions) *Band {
	if opts.DefaultValue == nil {
		opts.DefaultValue = opts.MinLimit
	}
	r := &Resource{Options: opts, logHeights: map[float64]float64{}}
	b := newBand(c, r)
	r.intervalsChanged(b)
	return b
}

// ValueRange returns the smallest and largest value of all intervals.
func (r *Resource) ValueRange() (float64, float64) { return r.minValue, r.maxValue }

// PaintRange returns the values at the bottom and top of the band.
func (r *Resource) PaintRange() (float64, float64) { return r.minPaint, r.maxPaint }

func (r *Resource) limits() (float64, float64, bool) {
	lo, hi := r.minValue, r.maxValue
	if r.Options.MinLimit != nil {
		lo = *r.Options.MinLimit
	}
	if r.Options.MaxLimit != nil {
		hi = *r.Options.MaxLimit
	}
	return lo, hi, r.hasValues || r.Options.MinLimit != nil || r.Options.MaxLimit != nil
}

func (r *Resource) filterTooltip(ivs []*model.DrawableInterval) []*model.DrawableInterval {
	return preferMeasured(ivs)
}

func (r *Resource) intervalsChanged(b *Band) {
	r.fillers.clear(b)
	r.computeValueRange(b)
	if r.Options.Interpolation != InterpolateNone {
		for i, list := range b.intervalsList {
			var added []*model.DrawableInterval
			for j := 1; j < len(list); j++ {
				prev, cur := list[j-1], list[j]
				if prev.End >= cur.Start {
					continue
				}
				end := prev.EndValue
				if r.Options.Interpolation == InterpolateLinear {
					end = cur.StartValue
				}
				added = append(added, r.fillers.filler(prev, prev.End, cur.Start, prev.EndValue, end))
			}
			if len(added) > 0 {
				b.insert(added, i)
			}
		}
	}
	r.computePaintRange(b)
}

func (r *Resource) prepare(b *Band) {
	if r.Options.AutoScale == ScaleVisible {
		r.computePaintRange(b)
	}
}

func (r *Resource) logScale() bool {
	return r.Options.LogTicks && len(r.Options.TickValues) > 0
}

func (r *Resource) computeValueRange(b *Band) {
	r.hasValues = false
	if d := r.Options.DefaultValue; d != nil {
		r.minValue, r.maxValue, r.hasValues = *d, *d, true
	}
	if r.logScale() {
		ticks := r.Options.TickValues
		r.minValue, r.maxValue, r.hasValues = ticks[0], ticks[len(ticks)-1], true
		return
	}
	for _, list := range b.intervalsList {
		for _, iv := range list {
			r.widen(math.Min(iv.StartValue, iv.EndValue), math.Max(iv.StartValue, iv.EndValue))
		}
	}
}

func (r *Resource) widen(lo, hi float64) {
	if !r.hasValues {
		r.minValue, r.maxValue, r.hasValues = lo, hi, true
		return
	}
	r.minValue = math.Min(r.minValue, lo)
	r.maxValue = math.Max(r.maxValue, hi)
}

func (r *Resource) computePaintRange(b *Band) {
	if r.logScale() {
		ticks := r.Options.TickValues
		r.minPaint, r.maxPaint = ticks[0], ticks[len(ticks)-1]
		return
	}

	view, data := b.ViewAxis, b.TimeAxis
	var lo, hi float64
	found := false
	if r.Options.AutoScale == ScaleVisible && (view.Start() != data.Start() || view.End() != data.End()) {
		start, end := view.Start(), view.End()
		for _, list := range b.intervalsList {
			for _, iv := range list {
				if iv.Start > end {
					break
				}
				if iv.End < start {
					continue
				}
				sv, ev := iv.StartValue, iv.EndValue
				if sv != ev {
					if iv.Start < start {
						sv = model.InterpolateY(iv.Start, iv.StartValue, iv.End, iv.EndValue, start)
					}
					if iv.End > end {
						ev = model.InterpolateY(iv.Start, iv.StartValue, iv.End, iv.EndValue, end)
					}
				}
				if !found {
					lo, hi, found = math.Min(sv, ev), math.Max(sv, ev), true
					continue
				}
				lo = math.Min(lo, math.Min(sv, ev))
				hi = math.Max(hi, math.Max(sv, ev))
			}
		}
	} else {
		lo, hi, found = r.minValue, r.maxValue, r.hasValues
		if r.Options.AutoScale == ScaleNone {
			if l := r.Options.MinLimit; l != nil {
				if found {
					lo = math.Min(lo, *l)
				} else {
					lo, hi, found = *l, *l, true
				}
			}
			if l := r.Options.MaxLimit; l != nil {
				if found {
					hi = math.Max(hi, *l)
				} else {
					lo, hi, found = *l, *l, true
				}
			}
		}
	}
	if !found {
		lo, hi = 0, 0
	}
	if lo == hi {
		if lo == 0 {
			lo, hi = -1, 1
		} else {
			lo -= math.Abs(lo * 0.1)
			hi += math.Abs(hi * 0.1)
		}
	}
	r.minPaint, r.maxPaint = lo, hi
}

// YFromValue maps v to a y on the band surface.
func (r *Resource) YFromValue(b *Band, v float64) float64 {
	if r.Options.LogTicks {
		return r.yFromValueLog(b, v)
	}
	span := r.maxPaint - r.minPaint
	if span == 0 {
		return 0
	}
	return b.Height - (v-r.minPaint)*b.Height/span + b.HeightPadding
}

// yFromValueLog interpolates between the two drawn ticks around v. Values
// outside the ticks extrapolate from the nearest pair.
func (r *Resource) yFromValueLog(b *Band, v float64) float64 {
	if v <= 0 || len(r.logHeights) == 0 {
		return b.Height
	}
	ticks := make([]float64, 0, len(r.logHeights))
	for t := range r.logHeights {
		ticks = append(ticks, t)
	}
	slices.Sort(ticks)
	if len(ticks) == 1 {
		return r.logHeights[ticks[0]]
	}
	i := 0
	for i < len(ticks)-2 && v > ticks[i+1] {
		i++
	}
	lo, hi := ticks[i], ticks[i+1]
	f := (v - lo) / (hi - lo)
	return r.logHeights[lo] + f*(r.logHeights[hi]-r.logHeights[lo])
}

func (r *Resource) formatTick(v float64) string {
	if r.Options.FormatTickValue != nil {
		return r.Options.FormatTickValue(v)
	}
	return model.FormatValue(v)
}

func (r *Resource) valueTicks(s canvas.Surface, b *Band, xStart float64) float64 {
	o := r.Options
	var ticks []float64
	switch {
	case len(o.TickValues) > 0:
		for _, v := range o.TickValues {
			if v > r.maxPaint {
				r.maxPaint = v
			} else if v < r.minPaint {
				r.minPaint = v
			}
			ticks = append(ticks, v)
		}
	case o.AutoTickValues:
		if o.MaxLimit != nil && r.maxPaint != *o.MaxLimit {
			ticks = append(ticks, *o.MaxLimit)
		}
		if o.MinLimit != nil && r.minPaint != *o.MinLimit {
			ticks = append(ticks, *o.MinLimit)
		}
		if r.maxPaint > 0 && r.minPaint < 0 {
			ticks = append(ticks, 0)
		}
		if b.HeightPadding > 0 {
			ticks = append(ticks, r.maxPaint, r.minPaint)
		}
	}
	if len(ticks) == 0 {
		return xStart
	}

	// Log tick heights place every value, so they are kept even when the
	// ticks are hidden.
	step := b.Height / float64(len(ticks))
	if o.LogTicks {
		clear(r.logHeights)
	}
	type tick struct {
		v, y float64
	}
	var placed []tick
	seen := map[float64]bool{}
	logY := 0.0
	for _, v := range ticks {
		if seen[v] {
			continue
		}
		seen[v] = true
		var y float64
		if o.LogTicks {
			y = b.Height - logY
			r.logHeights[v] = y
			logY += step
		} else {
			y = r.YFromValue(b, v)
		}
		placed = append(placed, tick{v: v, y: y})
	}
	if o.HideTicks {
		return xStart
	}

	labelX := xStart - 2
	x1 := b.ViewAxis.X1()
	fill := canvas.Fill(b.LabelColor, 1)
	line := canvas.Stroke(b.LabelColor, 0.5, 0.5)
	maxW := 0.0
	for _, t := range placed {
		label := r.formatTick(t.v)
		s.Text(label, labelX, t.y, canvas.AlignRight, canvas.BaselineBottom, fill)
		maxW = math.Max(maxW, s.MeasureText(label))

		const dash = 4
		for x := x1; x <= x1+b.width(); x += dash * 2 {
			s.Line(x, t.y, x+dash, t.y, line)
		}
	}
	if xStart != x1 {
		s.Line(xStart, 0, xStart, b.paintHeight(), line)
	}
	return labelX - maxW
}

func (r *Resource) color(b *Band, iv *model.DrawableInterval) canvas.RGB {
	if iv.Color != nil {
		return *iv.Color
	}
	if b.Painter.AutoColor {
		return valueColor(iv.StartValue, r.minValue, r.maxValue-r.minValue)
	}
	return b.Painter.Color
}

func (r *Resource) paint(s canvas.Surface, b *Band) CoordTable {
	view := b.ViewAxis
	var coords CoordTable
	for _, list := range b.IntervalsInTimeRange(view.Start(), view.End()) {
		var prev *model.DrawableInterval
		for _, iv := range list {
			coords = append(coords, r.paintUnit(s, b, prev, iv))
			prev = iv
		}
	}
	return coords
}

func (r *Resource) paintUnit(s canvas.Surface, b *Band, prev, iv *model.DrawableInterval) Coord {
	p := &b.Painter
	view := b.ViewAxis
	c := r.color(b, iv)

	start, end := iv.Start, iv.End
	sv, ev := iv.StartValue, iv.EndValue
	if start < view.Start() {
		start = view.Start()
		sv = model.InterpolateY(iv.Start, iv.StartValue, iv.End, iv.EndValue, start)
	}
	if end > view.End() {
		end = view.End()
		ev = model.InterpolateY(iv.Start, iv.StartValue, iv.End, iv.EndValue, end)
	}
	x1, x2 := view.XFromTime(start), view.XFromTime(end)
	y1, y2 := r.YFromValue(b, sv), r.YFromValue(b, ev)

	if r.Options.Fill {
		yZero := r.YFromValue(b, 0)
		fc := c
		if r.Options.FillColor != nil {
			fc = *r.Options.FillColor
		}
		poly := []canvas.Point{{X: x1, Y: y1}, {X: x2, Y: y2}, {X: x2, Y: yZero}, {X: x1, Y: yZero}}
		s.Polygon(poly, true, canvas.Fill(fc, iv.Opacity))
		if p.BorderWidth > 0 {
			s.Polygon(poly, false, canvas.Stroke(canvas.Black, iv.Opacity, p.BorderWidth))
		}
	}

	st := canvas.Stroke(c, iv.Opacity, 2)
	s.Line(x1, y1, x2, y2, st)
	if prev != nil && r.Options.Interpolation == InterpolateConstant {
		s.Line(x1, y1, x1, r.YFromValue(b, prev.EndValue), st)
	}

	q := quad{
		ll: canvas.Point{X: x1, Y: y2},
		ul: canvas.Point{X: x1, Y: y1},
		ur: canvas.Point{X: x2, Y: y1},
		lr: canvas.Point{X: x2, Y: y2},
	}
	if p.ShowIcon {
		if w := p.paintIcon(s, iv, q, c, iv.Opacity); w > 0 {
			x1 -= w / 2
			x2 += w / 2
			q.ll.X, q.ul.X, q.ur.X, q.lr.X = x1, x1, x2, x2
		}
	}
	p.paintLabel(s, iv, q, labelOpts{trim: p.TrimLabel})
	return newCoord(iv, x1, x2, 0, b.paintHeight())
}
