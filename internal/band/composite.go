package band

import "missiontl/internal/canvas"

// Composite overlays member bands on one surface. The arena paints and
// hit-tests the members; the composite itself owns no intervals.
type Composite struct {
	plain
	members []Handle
}

func (*Composite) Kind() Kind { return KindComposite }

// NewComposite builds an empty composite band. Members are attached with
// Arena.AddMember.
func NewComposite(c Common) *Band {
	c.Intervals = nil
	return newBand(c, &Composite{})
}

func (*Composite) paint(canvas.Surface, *Band) CoordTable { return nil }
