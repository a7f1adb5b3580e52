// Package band is the rendering and interaction engine for timeline bands.
//
// A Band stores layered interval lists and paints them onto its own
// canvas.Recorder through a Variant (activity, resource, state or
// composite). Bands live in an Arena that owns the parent/child and
// composite-member relations and routes pointer events.
package band

import (
	"math"
	"time"

	"github.com/samber/lo"

	"missiontl/internal/canvas"
	appLog "missiontl/internal/log"
	"missiontl/internal/model"
	"missiontl/internal/timeaxis"
)

const (
	DefaultHeight       = 35
	DefaultTooltipDelay = 250 * time.Millisecond

	// hitSlop widens every painted rectangle when hit-testing.
	hitSlop = 2
)

// Kind names a band variant.
type Kind string

const (
	KindActivity  Kind = "activity"
	KindResource  Kind = "resource"
	KindState     Kind = "state"
	KindComposite Kind = "composite"
)

// Handle indexes a band in its Arena.
type Handle int

const NoHandle Handle = -1

// Coord is one painted interval and the rectangle it occupies.
type Coord struct {
	Interval *model.DrawableInterval `json:"-"`
	ID       int64                   `json:"id"`
	X1       float64                 `json:"x1"`
	X2       float64                 `json:"x2"`
	Y1       float64                 `json:"y1"`
	Y2       float64                 `json:"y2"`
}

func newCoord(iv *model.DrawableInterval, x1, x2, y1, y2 float64) Coord {
	return Coord{Interval: iv, ID: iv.ID, X1: x1, X2: x2, Y1: y1, Y2: y2}
}

// CoordTable is the paint order of a band's intervals. A new table is built
// on every repaint and never modified afterwards.
type CoordTable []Coord

// Find returns the intervals whose rectangle, widened by two pixels, holds
// (x, y). Later entries were painted on top of earlier ones.
func (t CoordTable) Find(x, y float64) []*model.DrawableInterval {
	var out []*model.DrawableInterval
	for _, c := range t {
		if x >= c.X1-hitSlop && x <= c.X2+hitSlop && y >= c.Y1-hitSlop && y <= c.Y2+hitSlop {
			out = append(out, c.Interval)
		}
	}
	return out
}

// Common holds the settings every band kind shares.
type Common struct {
	ID          string
	Label       string
	LabelColor  canvas.RGB
	MinorLabels []string

	Height        float64
	HeightPadding float64
	// Width is the surface width. Zero uses the view axis x2.
	Width float64

	TimeAxis *timeaxis.TimeAxis
	ViewAxis *timeaxis.TimeAxis

	// Painter and Decorator default when nil.
	Painter   *Painter
	Decorator *Decorator

	ClampPan  bool
	Intervals []*model.DrawableInterval
}

// Band is one horizontal strip of the timeline.
type Band struct {
	ID          string
	Label       string
	LabelColor  canvas.RGB
	MinorLabels []string

	Height        float64
	HeightPadding float64
	Width         float64

	// TimeAxis is the data range, ViewAxis the visible window. Both are
	// shared with the owning timeline.
	TimeAxis *timeaxis.TimeAxis
	ViewAxis *timeaxis.TimeAxis

	Painter   Painter
	Decorator *Decorator
	Handlers  Handlers

	// TooltipDelay of zero shows tooltips immediately.
	TooltipDelay time.Duration
	// ClampPan keeps panned windows inside TimeAxis.
	ClampPan bool

	intervalsList [][]*model.DrawableInterval
	background    [][]*model.DrawableInterval
	foreground    [][]*model.DrawableInterval

	surface *canvas.Recorder
	coords  CoordTable
	variant Variant

	handle    Handle
	parent    Handle
	composite Handle
	children  []Handle
	visible   bool

	pan             panState
	tooltip         *Debouncer
	annotationShown bool

	log appLog.Logger
}

func newBand(c Common, v Variant) *Band {
	b := &Band{
		ID:            c.ID,
		Label:         c.Label,
		LabelColor:    c.LabelColor,
		MinorLabels:   c.MinorLabels,
		Height:        c.Height,
		HeightPadding: c.HeightPadding,
		Width:         c.Width,
		TimeAxis:      c.TimeAxis,
		ViewAxis:      c.ViewAxis,
		Decorator:     c.Decorator,
		TooltipDelay:  DefaultTooltipDelay,
		ClampPan:      c.ClampPan,
		surface:       canvas.NewRecorder(),
		variant:       v,
		handle:        NoHandle,
		parent:        NoHandle,
		composite:     NoHandle,
		visible:       true,
		tooltip:       NewDebouncer(nil, nil),
		log:           appLog.With("band", c.ID, "kind", v.Kind()),
	}
	if b.Label == "" {
		b.Label = b.ID
	}
	if b.Height <= 0 {
		b.Height = DefaultHeight
	}
	if c.Painter != nil {
		b.Painter = *c.Painter
	} else {
		b.Painter = DefaultPainter()
	}
	if b.Decorator == nil {
		b.Decorator = DefaultDecorator()
	}
	if len(c.Intervals) > 0 {
		b.intervalsList = [][]*model.DrawableInterval{sorted(c.Intervals)}
	}
	return b
}

func sorted(list []*model.DrawableInterval) []*model.DrawableInterval {
	out := append([]*model.DrawableInterval(nil), list...)
	model.SortEarlyStartEarlyEnd(out)
	return out
}

func (b *Band) Kind() Kind { return b.variant.Kind() }
func (b *Band) Variant() Variant { return b.variant }
func (b *Band) Handle() Handle { return b.handle }
func (b *Band) Parent() Handle { return b.parent }
func (b *Band) Visible() bool { return b.visible }
func (b *Band) Coords() CoordTable { return b.coords }
func (b *Band) Surface() *canvas.Recorder { return b.surface }

// Member reports whether b paints into a composite's surface.
func (b *Band) Member() bool { return b.composite != NoHandle }

// Children returns the handles of b's child bands in insertion order.
func (b *Band) Children() []Handle {
	return append([]Handle(nil), b.children...)
}

// SurfaceHeight is the height of the band surface, capped at
// canvas.MaxHeight.
func (b *Band) SurfaceHeight() float64 {
	return math.Min(b.Height+b.HeightPadding, canvas.MaxHeight)
}

func (b *Band) paintHeight() float64 { return b.Height + b.HeightPadding }

func (b *Band) width() float64 {
	if b.Width > 0 {
		return b.Width
	}
	return b.ViewAxis.X2()
}

func (b *Band) tooltipInfo(t int64) model.TooltipInfo {
	info := model.TooltipInfo{Time: t, Location: b.TimeAxis.Location()}
	info.MinLimit, info.MaxLimit, info.HasLimits = b.variant.limits()
	return info
}

func (b *Band) layer(i int) []*model.DrawableInterval {
	for len(b.intervalsList) <= i {
		b.intervalsList = append(b.intervalsList, nil)
	}
	return b.intervalsList[i]
}

// Layers is the number of interval lists.
func (b *Band) Layers() int { return len(b.intervalsList) }

// Intervals returns a copy of layer i.
func (b *Band) Intervals(i int) []*model.DrawableInterval {
	if i < 0 || i >= len(b.intervalsList) {
		return nil
	}
	return append([]*model.DrawableInterval(nil), b.intervalsList[i]...)
}

// SetIntervals replaces layer i. The list is copied and sorted.
func (b *Band) SetIntervals(list []*model.DrawableInterval, i int) {
	if i < 0 {
		return
	}
	b.layer(i)
	b.intervalsList[i] = sorted(list)
	b.coords = nil
	b.variant.intervalsChanged(b)
}

func (b *Band) AddInterval(iv *model.DrawableInterval, i int) {
	b.AddIntervals([]*model.DrawableInterval{iv}, i)
}

// AddIntervals appends to layer i and re-sorts it.
func (b *Band) AddIntervals(list []*model.DrawableInterval, i int) {
	if i < 0 {
		return
	}
	b.insert(list, i)
	b.variant.intervalsChanged(b)
}

func (b *Band) insert(list []*model.DrawableInterval, i int) {
	merged := append(b.layer(i), list...)
	model.SortEarlyStartEarlyEnd(merged)
	b.intervalsList[i] = merged
}

// RemoveInterval removes the first interval with id and returns it.
func (b *Band) RemoveInterval(id int64) *model.DrawableInterval {
	removed := b.remove([]int64{id}, true)
	if len(removed) == 0 {
		return nil
	}
	b.variant.intervalsChanged(b)
	return removed[0]
}

// RemoveIntervals removes every interval whose id is in ids.
func (b *Band) RemoveIntervals(ids []int64) []*model.DrawableInterval {
	removed := b.remove(ids, false)
	if len(removed) > 0 {
		b.variant.intervalsChanged(b)
	}
	return removed
}

func (b *Band) remove(ids []int64, first bool) []*model.DrawableInterval {
	var removed []*model.DrawableInterval
	for li, list := range b.intervalsList {
		kept := list[:0:0]
		for _, iv := range list {
			if lo.Contains(ids, iv.ID) && !(first && len(removed) > 0) {
				removed = append(removed, iv)
				continue
			}
			kept = append(kept, iv)
		}
		b.intervalsList[li] = kept
	}
	return removed
}

// Interval returns the interval with id, or nil.
func (b *Band) Interval(id int64) *model.DrawableInterval {
	for _, list := range b.intervalsList {
		for _, iv := range list {
			if iv.ID == id {
				return iv
			}
		}
	}
	return nil
}

// IntervalsInTimeRange returns, per layer, the intervals intersecting
// [start, end]. Layers are sorted, so the scan stops at the first interval
// starting after end.
func (b *Band) IntervalsInTimeRange(start, end int64) [][]*model.DrawableInterval {
	out := make([][]*model.DrawableInterval, len(b.intervalsList))
	for li, list := range b.intervalsList {
		for _, iv := range list {
			if iv.End < start {
				continue
			}
			if iv.Start > end {
				break
			}
			out[li] = append(out[li], iv)
		}
	}
	return out
}

// FindIntervals hit-tests the last painted coordinate table. The topmost
// interval is the last element.
func (b *Band) FindIntervals(x, y float64) []*model.DrawableInterval {
	return b.coords.Find(x, y)
}

// FindIntervalCoords returns the painted rectangle of interval id.
func (b *Band) FindIntervalCoords(id int64) (Coord, bool) {
	for _, c := range b.coords {
		if c.ID == id {
			return c, true
		}
	}
	return Coord{}, false
}

func setList(lists [][]*model.DrawableInterval, list []*model.DrawableInterval, i int) [][]*model.DrawableInterval {
	for len(lists) <= i {
		lists = append(lists, nil)
	}
	lists[i] = list
	return lists
}

func (b *Band) SetBackgroundIntervals(list []*model.DrawableInterval, i int) {
	if i >= 0 {
		b.background = setList(b.background, list, i)
	}
}

func (b *Band) ClearBackgroundIntervals(i int) {
	if i >= 0 && i < len(b.background) {
		b.background[i] = nil
	}
}

func (b *Band) ClearAllBackgroundIntervals() { b.background = nil }

func (b *Band) SetForegroundIntervals(list []*model.DrawableInterval, i int) {
	if i >= 0 {
		b.foreground = setList(b.foreground, list, i)
	}
}

func (b *Band) ClearForegroundIntervals(i int) {
	if i >= 0 && i < len(b.foreground) {
		b.foreground[i] = nil
	}
}

func (b *Band) ClearAllForegroundIntervals() { b.foreground = nil }

// FindBackgroundIntervals returns the background intervals spanning x.
func (b *Band) FindBackgroundIntervals(x float64) []*model.DrawableInterval {
	return b.findSpanning(b.background, x)
}

// FindForegroundIntervals returns the foreground intervals spanning x.
func (b *Band) FindForegroundIntervals(x float64) []*model.DrawableInterval {
	return b.findSpanning(b.foreground, x)
}

func (b *Band) findSpanning(lists [][]*model.DrawableInterval, x float64) []*model.DrawableInterval {
	var out []*model.DrawableInterval
	for _, list := range lists {
		out = append(out, lo.Filter(list, func(iv *model.DrawableInterval, _ int) bool {
			return x >= b.ViewAxis.XFromTime(iv.Start) && x <= b.ViewAxis.XFromTime(iv.End)
		})...)
	}
	return out
}
