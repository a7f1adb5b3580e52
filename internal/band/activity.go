package band

import (
	"fmt"
	"math"

	"missiontl/internal/canvas"
	"missiontl/internal/model"
)

// ActivityStyle selects how an activity is drawn.
type ActivityStyle int

const (
	StyleBar ActivityStyle = iota
	StyleLine
	StyleIcon
)

// Layout selects how overlapping activities are placed in rows.
type Layout int

const (
	LayoutCompact Layout = iota
	LayoutWaterfall
)

func ParseActivityStyle(s string) (ActivityStyle, error) {
	switch s {
	case "", "bar":
		return StyleBar, nil
	case "line":
		return StyleLine, nil
	case "icon":
		return StyleIcon, nil
	}
	return 0, fmt.Errorf("band: unknown activity style %q", s)
}

func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "compact":
		return LayoutCompact, nil
	case "waterfall":
		return LayoutWaterfall, nil
	}
	return 0, fmt.Errorf("band: unknown layout %q", s)
}

type ActivityOptions struct {
	RowHeight        float64
	RowPadding       float64
	ActivityHeight   float64
	StartRangeHeight float64
	EndRangeHeight   float64
	// AutoFit shrinks the row height so every row fits the band.
	AutoFit bool
	Style   ActivityStyle
	Layout  Layout
	// AutoHeight grows the band to NumRows * RowHeight on every repaint.
	AutoHeight bool
	Draggable  DraggableOptions
}

func DefaultActivityOptions() ActivityOptions {
	return ActivityOptions{
		RowHeight:        24,
		RowPadding:       2,
		ActivityHeight:   20,
		StartRangeHeight: 4,
		EndRangeHeight:   4,
	}
}

// Activity packs intervals into rows and supports drag editing.
type Activity struct {
	plain
	Options ActivityOptions
	drag    *DraggableHelper
}

func (*Activity) Kind() Kind { return KindActivity }

// NewActivity builds an activity band.
func NewActivity(c Common, opts ActivityOptions) *Band {
	b := newBand(c, &Activity{Options: opts})
	a := b.variant.(*Activity)
	if opts.AutoHeight {
		b.Height = a.autoHeight(b)
	}
	return b
}

func (a *Activity) prepare(b *Band) {
	if a.Options.AutoHeight {
		b.Height = a.autoHeight(b)
	}
}

func (a *Activity) autoHeight(b *Band) float64 {
	if a.Options.RowHeight <= 0 {
		return b.Height
	}
	return float64(a.NumRows(b)) * a.Options.RowHeight
}

// NumRows is the number of rows the layout needs for the intervals in view.
func (a *Activity) NumRows(b *Band) int {
	switch a.Options.Layout {
	case LayoutWaterfall:
		rows := 1
		for _, list := range b.intervalsList {
			rows = max(rows, len(list))
		}
		return rows
	case LayoutCompact:
		return a.compactRows(b)
	}
	return 1
}

func (a *Activity) compactRows(b *Band) int {
	view := b.ViewAxis
	maxRows := 1
	for _, list := range b.IntervalsInTimeRange(view.Start(), view.End()) {
		maxRows = max(maxRows, len(a.packRows(b, list, a.compactTrim())))
	}
	return maxRows
}

// compactTrim reports whether compact rows trim labels to their interval.
// AutoFit leaves labels whole, so they take room in the row.
func (a *Activity) compactTrim() bool {
	return !a.Options.AutoFit
}

// packRows splits list into compact rows, bottom row first. An interval
// that starts before the previous one in the row finished drawing goes to
// a later row. Drawing includes the trailing label when labels are not
// trimmed.
func (a *Activity) packRows(b *Band, list []*model.DrawableInterval, trim bool) [][]*model.DrawableInterval {
	var rows [][]*model.DrawableInterval
	open := list
	for len(open) > 0 {
		var row, next []*model.DrawableInterval
		var prevDrawEnd int64
		for _, iv := range open {
			if len(row) > 0 && prevDrawEnd > iv.Start {
				next = append(next, iv)
				continue
			}
			row = append(row, iv)
			prevDrawEnd = a.drawEnd(b, iv, trim)
		}
		rows = append(rows, row)
		open = next
	}
	return rows
}

// drawEnd is the time at which iv stops drawing in its row. Selected
// intervals are painted apart from the row and end with the interval.
func (a *Activity) drawEnd(b *Band, iv *model.DrawableInterval, trim bool) int64 {
	if iv.Selected {
		return iv.End
	}
	view := b.ViewAxis
	p := &b.Painter
	x2 := view.XFromTime(iv.End)
	if p.ShowLabel && !trim && iv.Label != "" {
		x2 = math.Max(x2, view.XFromTime(iv.Start)+canvas.MeasureText(iv.Label)+p.LabelPadding)
	}
	return view.TimeFromX(x2)
}

// geometry is the row layout in effect for one paint.
type geometry struct {
	rowHeight      float64
	rowPadding     float64
	activityHeight float64
	trim           bool
}

func (a *Activity) geometry(b *Band) geometry {
	g := geometry{
		rowHeight:      a.Options.RowHeight,
		rowPadding:     a.Options.RowPadding,
		activityHeight: a.Options.ActivityHeight,
		trim:           b.Painter.TrimLabel,
	}
	if a.Options.AutoFit {
		n := a.NumRows(b)
		if n == 1 {
			g.rowHeight = b.Height
		} else {
			g.rowHeight = math.Max(0, (b.Height-g.activityHeight-g.rowPadding)/float64(n-1))
		}
	}
	return g
}

func (a *Activity) paint(s canvas.Surface, b *Band) CoordTable {
	g := a.geometry(b)
	var coords CoordTable
	for _, list := range b.IntervalsInTimeRange(b.ViewAxis.Start(), b.ViewAxis.End()) {
		if len(list) == 0 {
			continue
		}
		switch a.Options.Layout {
		case LayoutWaterfall:
			coords = append(coords, a.paintWaterfall(s, b, g, list)...)
		default:
			coords = append(coords, a.paintCompact(s, b, g, list)...)
		}
	}
	return coords
}

func (a *Activity) paintWaterfall(s canvas.Surface, b *Band, g geometry, list []*model.DrawableInterval) CoordTable {
	g.trim = false
	g.rowHeight = math.Max(5, math.Floor(b.Height/float64(len(list))))
	g.rowPadding = math.Ceil(g.rowHeight / 3)
	g.activityHeight = math.Min(20, g.rowHeight-g.rowPadding)
	g.rowPadding = g.rowHeight - g.activityHeight

	coords := make(CoordTable, 0, len(list))
	rowY := g.rowHeight
	for _, iv := range list {
		p := a.paintActivity(s, b, g, rowY, iv, nil)
		if g.activityHeight > 5 && iv.Label != "" {
			b.Painter.paintLabel(s, iv, rect(p.draw[0], p.draw[1], p.draw[2], p.draw[3]), labelOpts{})
		}
		coords = append(coords, newCoord(iv, p.act[0], p.act[1], p.act[2], p.act[3]))
		if rowY+g.rowHeight <= b.Height {
			rowY += g.rowHeight
		}
	}
	return coords
}

// paintCompact paints the rows of packRows from the bottom of the band up.
// Selected intervals are painted last so they sit on top.
func (a *Activity) paintCompact(s canvas.Surface, b *Band, g geometry, list []*model.DrawableInterval) CoordTable {
	type deferred struct {
		iv   *model.DrawableInterval
		rowY float64
	}
	rowY := b.Height
	g.trim = a.compactTrim()

	var coords CoordTable
	var selected []deferred
	for _, row := range a.packRows(b, list, g.trim) {
		var prev *previous
		for _, iv := range row {
			if iv.Selected {
				selected = append(selected, deferred{iv, rowY})
				continue
			}
			p := a.paintActivity(s, b, g, rowY, iv, prev)
			prev = &previous{iv: iv, x1: p.draw[0], x2: p.draw[1], y1: p.draw[2], y2: p.draw[3]}
			coords = append(coords, newCoord(iv, p.act[0], p.act[1], p.act[2], p.act[3]))
		}

		// The last label of the row has nothing to its right.
		if !a.Options.AutoFit && prev != nil && b.Painter.ShowLabel && g.rowHeight > 5 {
			b.Painter.paintLabel(s, prev.iv, rect(prev.x1, prev.x2, prev.y1, prev.y2), labelOpts{})
		}

		rowY -= g.rowHeight
		if rowY < 0 {
			rowY = g.activityHeight - 5
		}
	}

	for _, d := range selected {
		p := a.paintActivity(s, b, g, d.rowY, d.iv, nil)
		coords = append(coords, newCoord(d.iv, p.act[0], p.act[1], p.act[2], p.act[3]))
	}
	return coords
}

// previous is the last activity painted in a row. Its label is drawn once
// the next activity's start bounds it.
type previous struct {
	iv             *model.DrawableInterval
	x1, x2, y1, y2 float64
}

type painted struct {
	// act is the activity rectangle, draw the extent including an untrimmed
	// label: x1, x2, y1, y2.
	act, draw [4]float64
}

func (a *Activity) paintActivity(s canvas.Surface, b *Band, g geometry, rowY float64, iv *model.DrawableInterval, prev *previous) painted {
	if a.Options.Style == StyleLine {
		return a.paintLine(s, b, g, rowY, iv)
	}
	return a.paintBar(s, b, g, rowY, iv, prev)
}

func (a *Activity) paintBar(s canvas.Surface, b *Band, g geometry, rowY float64, iv *model.DrawableInterval, prev *previous) painted {
	p := &b.Painter
	view := b.ViewAxis
	rowY -= g.rowPadding

	x1 := view.XFromTime(iv.Start)
	x2 := view.XFromTime(iv.End)
	y1 := rowY - g.activityHeight
	y2 := rowY
	w := math.Max(1, x2-x1)
	h := g.activityHeight

	c := p.color(iv, iv.Label)
	opacity := iv.Opacity
	// Too thin for a border: draw it opaque and wider instead.
	if p.BorderWidth > 0 && w < p.BorderWidth*2 {
		opacity = 1
		w *= 1.5
	}
	if a.Options.Style == StyleBar {
		s.FillRect(x1, y1, w, h, canvas.Fill(c, opacity))
	}

	if iv.LatestStart != nil {
		ls := view.XFromTime(*iv.LatestStart)
		s.FillRect(x1, y1, ls-x1, a.Options.StartRangeHeight, canvas.Fill(canvas.Gray75, iv.Opacity))
	}
	if iv.EarliestEnd != nil {
		ee := view.XFromTime(*iv.EarliestEnd)
		s.FillRect(ee, y1, x2-ee, a.Options.EndRangeHeight, canvas.Fill(canvas.Gray75, iv.Opacity))
	}
	if iv.IsConflicted {
		s.FillRect(x1, y1+h-2, w, 2, canvas.Fill(canvas.Red, iv.Opacity))
	}

	q := rect(x1, x2, y1, y2)
	if p.ShowIcon || a.Options.Style == StyleIcon {
		p.paintIcon(s, iv, q, c, 1)
	}

	if p.ShowLabel {
		if a.Options.AutoFit {
			p.paintLabel(s, iv, q, labelOpts{trim: g.trim})
		} else if prev != nil {
			maxR := x1
			p.paintLabel(s, prev.iv, rect(prev.x1, prev.x2, y1, y2), labelOpts{trim: g.trim, maxR: &maxR})
		}
	}

	if iv.Selected {
		st := canvas.Stroke(canvas.Black, 1, 1)
		s.Line(x1, y1, x2, y2, st)
		s.Line(x1, y2, x2, y1, st)
	}

	if a.Options.Style == StyleBar && p.BorderWidth > 0 {
		s.StrokeRect(x1, y1, w, h, canvas.Stroke(canvas.Black, 0.5, p.BorderWidth))
	}

	out := painted{act: [4]float64{x1, x2, y1, y2}, draw: [4]float64{x1, x2, y1, y2}}
	if p.ShowLabel && !g.trim && iv.Label != "" {
		out.draw[1] = math.Max(out.draw[1], x1+s.MeasureText(iv.Label)+p.LabelPadding)
	}
	return out
}

func (a *Activity) paintLine(s canvas.Surface, b *Band, g geometry, rowY float64, iv *model.DrawableInterval) painted {
	p := &b.Painter
	view := b.ViewAxis
	rowY -= g.rowPadding

	half := g.activityHeight / 2
	x1 := view.XFromTime(iv.Start)
	x2 := view.XFromTime(iv.End)
	y := rowY - half
	hy1, hy2 := y-half, y+half

	c := p.color(iv, iv.Label)
	if iv.IsConflicted {
		c = canvas.Red
	}
	st := canvas.Stroke(c, 1, 1)
	s.Line(x1, hy1, x1, hy2, st)
	s.Line(x1, y, x2, y, st)
	s.Line(x2, hy1, x2, hy2, st)
	if iv.LatestStart != nil {
		x := view.XFromTime(*iv.LatestStart)
		s.Line(x, hy1, x, hy2, st)
	}
	if iv.EarliestEnd != nil {
		x := view.XFromTime(*iv.EarliestEnd)
		s.Line(x, hy1, x, hy2, st)
	}

	if p.ShowIcon {
		p.paintIcon(s, iv, rect(x1, x2, hy1, hy2), c, iv.Opacity)
	}
	p.paintLabel(s, iv, rect(x1, x2, y, y), labelOpts{trim: g.trim})

	out := painted{act: [4]float64{x1, x2, hy1, hy2}, draw: [4]float64{x1, x2, hy1, hy2}}
	if p.ShowLabel && !g.trim && iv.Label != "" {
		out.draw[1] = math.Max(out.draw[1], x1+s.MeasureText(iv.Label)+p.LabelPadding)
	}
	return out
}
