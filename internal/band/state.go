package band

import (
	"math"

	"missiontl/internal/canvas"
	"missiontl/internal/model"
)

type StateOptions struct {
	// Interpolate fills gaps, and the tail up to the data end, with the
	// previous state.
	Interpolate bool
}

// State paints discrete values as full-height blocks.
type State struct {
	plain
	Options StateOptions
	fillers fillers
}

func (*State) Kind() Kind { return KindState }

func NewState(c Common, opts StateOptions) *Band {
	b := newBand(c, &State{Options: opts})
	b.variant.intervalsChanged(b)
	return b
}

func (st *State) filterTooltip(ivs []*model.DrawableInterval) []*model.DrawableInterval {
	return preferMeasured(ivs)
}

func (st *State) intervalsChanged(b *Band) {
	st.fillers.clear(b)
	if !st.Options.Interpolate {
		return
	}
	for i, list := range b.intervalsList {
		var added []*model.DrawableInterval
		for j := 1; j < len(list); j++ {
			prev, cur := list[j-1], list[j]
			if prev.End < cur.Start {
				added = append(added, st.fillers.filler(prev, prev.End, cur.Start, prev.EndValue, prev.EndValue))
			}
		}
		if n := len(list); n > 0 && list[n-1].End < b.TimeAxis.End() {
			last := list[n-1]
			added = append(added, st.fillers.filler(last, last.End, b.TimeAxis.End(), last.StartValue, last.EndValue))
		}
		if len(added) > 0 {
			b.insert(added, i)
		}
	}
}

func (st *State) color(p *Painter, iv *model.DrawableInterval) canvas.RGB {
	key := iv.State
	if key == "" {
		key = model.FormatValue(iv.StartValue)
	}
	return p.color(iv, key)
}

func (st *State) paint(s canvas.Surface, b *Band) CoordTable {
	p := &b.Painter
	view := b.ViewAxis
	var coords CoordTable
	for _, list := range b.IntervalsInTimeRange(view.Start(), view.End()) {
		for _, iv := range list {
			x1 := view.XFromTime(iv.Start)
			x2 := view.XFromTime(iv.End)
			h := b.Height
			c := st.color(p, iv)

			if x1 == x2 {
				s.Line(x1, 0, x2, h, canvas.Stroke(c, iv.Opacity, math.Max(1, p.BorderWidth)))
			} else {
				s.FillRect(x1, 0, x2-x1, h, canvas.Fill(c, iv.Opacity))
				if p.BorderWidth > 0 {
					s.StrokeRect(x1, 0, x2-x1, h, canvas.Stroke(canvas.Black, iv.Opacity, p.BorderWidth))
				}
			}

			if p.ShowIcon {
				if w := p.paintIcon(s, iv, rect(x1, x2, 0, h), c, iv.Opacity); w > 0 {
					x1 -= w / 2
					x2 += w / 2
				}
			}
			p.paintLabel(s, iv, rect(x1, x2, 0, h), labelOpts{trim: p.TrimLabel})
			coords = append(coords, newCoord(iv, x1, x2, 0, b.paintHeight()))
		}
	}
	return coords
}

// fillers tracks the interpolated intervals a band synthesized so they can
// be removed before the next recompute.
type fillers struct {
	ids []int64
}

func (f *fillers) clear(b *Band) {
	if len(f.ids) > 0 {
		b.remove(f.ids, false)
		f.ids = nil
	}
}

// filler clones from over [start, end] with the given values.
func (f *fillers) filler(from *model.DrawableInterval, start, end int64, startValue, endValue float64) *model.DrawableInterval {
	iv := from.Clone()
	iv.ID = model.NextLocalID()
	iv.Start, iv.End = start, end
	iv.StartValue, iv.EndValue = startValue, endValue
	iv.Icon = ""
	iv.Selected = false
	iv.Interpolated = true
	iv.OnGetTooltipText = model.InterpolatedTooltip
	f.ids = append(f.ids, iv.ID)
	return iv
}
