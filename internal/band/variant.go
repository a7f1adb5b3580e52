package band

import (
	"github.com/samber/lo"

	"missiontl/internal/canvas"
	"missiontl/internal/model"
)

// Variant is the kind-specific behaviour of a band. The set is closed:
// Activity, Resource, State and Composite.
type Variant interface {
	Kind() Kind

	// paint draws the intervals in view and returns their coordinates.
	paint(s canvas.Surface, b *Band) CoordTable
	// valueTicks draws value ticks from xStart leftwards and returns the x
	// for the next set.
	valueTicks(s canvas.Surface, b *Band, xStart float64) float64
	filterTooltip(ivs []*model.DrawableInterval) []*model.DrawableInterval
	// intervalsChanged runs after every interval mutation.
	intervalsChanged(b *Band)
	// prepare runs at the start of every repaint.
	prepare(b *Band)
	// limits are the value limits used for tooltip percentages.
	limits() (low, high float64, ok bool)
}

// plain supplies the no-op parts of Variant.
type plain struct{}

func (plain) valueTicks(_ canvas.Surface, _ *Band, xStart float64) float64 { return xStart }

func (plain) filterTooltip(ivs []*model.DrawableInterval) []*model.DrawableInterval { return ivs }

func (plain) intervalsChanged(*Band) {}

func (plain) prepare(*Band) {}

func (plain) limits() (float64, float64, bool) { return 0, 0, false }

// preferMeasured drops synthesized filler intervals unless nothing else is
// left.
func preferMeasured(ivs []*model.DrawableInterval) []*model.DrawableInterval {
	measured := lo.Filter(ivs, func(iv *model.DrawableInterval, _ int) bool {
		return !iv.Interpolated
	})
	if len(measured) > 0 {
		return measured
	}
	return ivs
}
