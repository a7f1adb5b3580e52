package timeline

import (
	"github.com/samber/lo"

	"missiontl/internal/band"
)

type Window struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// BandInfo describes one band for API clients.
type BandInfo struct {
	ID       string          `json:"id"`
	Kind     band.Kind       `json:"kind"`
	Label    string          `json:"label"`
	Y        float64         `json:"y"`
	Height   float64         `json:"height"`
	Level    int             `json:"level"`
	Visible  bool            `json:"visible"`
	Expanded bool            `json:"expanded"`
	Parent   string          `json:"parent,omitempty"`
	Children []string        `json:"children,omitempty"`
	Members  []BandInfo      `json:"members,omitempty"`
	Coords   band.CoordTable `json:"coords"`
	// Values is the bottom and top of a resource band's paint range.
	Values *[2]float64 `json:"values,omitempty"`
}

// Drag is the interval drag in flight: the snapped range it would drop at
// and the proxy's pixel extent.
type Drag struct {
	Band       string  `json:"band"`
	IntervalID int64   `json:"interval_id"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	X1         float64 `json:"x1"`
	X2         float64 `json:"x2"`
	Caption    string  `json:"caption"`
}

// Snapshot is the JSON view of a timeline.
type Snapshot struct {
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	LabelWidth float64    `json:"label_width"`
	Data       Window     `json:"data"`
	View       Window     `json:"view"`
	TickUnit   string     `json:"tick_unit"`
	Ticks      []int64    `json:"ticks"`
	Now        *int64     `json:"now,omitempty"`
	Generation uint64     `json:"generation"`
	Bands      []BandInfo `json:"bands"`
	Tooltip    Tooltip    `json:"tooltip"`
	Drag       *Drag      `json:"drag,omitempty"`
}

// Describe returns a snapshot of the layout, coordinate tables and ticks.
func (t *Timeline) Describe() Snapshot {
	t.mu.Lock()
	defer t.unlock()

	s := Snapshot{
		Width:      t.width,
		Height:     t.height,
		LabelWidth: t.labelWidth,
		Data:       Window{t.data.Start(), t.data.End()},
		View:       Window{t.view.Start(), t.view.End()},
		TickUnit:   t.view.TickUnit().String(),
		Ticks: lo.Filter(t.view.TickTimes(), func(tick int64, _ int) bool {
			return tick >= t.view.Start() && tick <= t.view.End()
		}),
		Generation: t.gen,
		Tooltip:    t.tooltip,
		Drag:       t.dragState(),
	}
	if n, ok := t.view.Now(); ok {
		s.Now = &n
	}
	s.Bands = lo.Map(t.placements, func(p Placement, _ int) BandInfo {
		info := t.bandInfo(t.arena.Get(p.Handle))
		info.Y, info.Level = p.Y, p.Level
		return info
	})
	return s
}

func (t *Timeline) bandInfo(b *band.Band) BandInfo {
	info := BandInfo{
		ID:       b.ID,
		Kind:     b.Kind(),
		Label:    b.Label,
		Height:   b.SurfaceHeight(),
		Visible:  b.Visible(),
		Expanded: t.arena.IsExpanded(b.Handle()),
		Coords:   b.Coords(),
	}
	if p := t.arena.Get(b.Parent()); p != nil {
		info.Parent = p.ID
	}
	info.Children = lo.FilterMap(b.Children(), func(h band.Handle, _ int) (string, bool) {
		c := t.arena.Get(h)
		if c == nil {
			return "", false
		}
		return c.ID, true
	})
	info.Members = lo.Map(t.arena.Members(b.Handle()), func(m *band.Band, _ int) BandInfo {
		return t.bandInfo(m)
	})
	if r, ok := b.Variant().(*band.Resource); ok {
		bottom, top := r.PaintRange()
		info.Values = &[2]float64{bottom, top}
	}
	if info.Coords == nil {
		info.Coords = band.CoordTable{}
	}
	return info
}
