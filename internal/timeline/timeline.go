// Package timeline stacks configured bands on one page. It owns the shared
// data and view axes, lays bands out vertically, routes page pointer events
// to band-local coordinates and turns band callbacks into published events.
//
// A Timeline is safe for concurrent use: every method takes the session
// mutex, and tooltip timers dispatch through the same mutex.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"missiontl/internal/band"
	"missiontl/internal/config"
	"missiontl/internal/events"
	appLog "missiontl/internal/log"
	"missiontl/internal/model"
	"missiontl/internal/timeaxis"
)

var ErrInvalidView = errors.New("timeline: invalid view window")

// Options injects the timeline's collaborators. Zero values use the real
// clock, wall time and no publisher.
type Options struct {
	Clock     band.Clock
	Now       func() time.Time
	Publisher events.Publisher
}

// Placement is where a band's surface lands on the page.
type Placement struct {
	Handle band.Handle
	ID     string
	Y      float64
	Height float64
	Level  int
}

// Tooltip is the tooltip the page should currently show.
type Tooltip struct {
	Visible bool    `json:"visible"`
	Band    string  `json:"band,omitempty"`
	HTML    string  `json:"html,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
}

// Pointer is a pointer event in page coordinates.
type Pointer struct {
	Kind   band.PointerKind
	X, Y   float64
	Button band.Button
}

type Timeline struct {
	mu sync.Mutex

	data  *timeaxis.TimeAxis
	view  *timeaxis.TimeAxis
	arena *band.Arena

	order      []band.Handle
	placements []Placement
	height     float64

	width, labelWidth float64
	clampPan          bool
	showNow           bool
	initial           [2]int64

	tooltip Tooltip
	hover   band.Handle
	drag    band.Handle
	pan     band.Handle

	gen      uint64
	now      func() time.Time
	pub      events.Publisher
	captured *[]events.Event
	log      appLog.Logger

	// pending holds events emitted under mu. unlock publishes them.
	pending []events.Event
}

// Build constructs the bands declared in cfg and fills them from intervals,
// keyed by band ID.
func Build(cfg *config.Config, intervals map[string][]*model.DrawableInterval, opts Options) (*Timeline, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	v := cfg.View
	start, end, viewStart, viewEnd, err := v.Window(now())
	if err != nil {
		return nil, err
	}
	var guides []int64
	for _, g := range v.GuideTimes {
		gt, err := config.ParseTime(g, now())
		if err != nil {
			return nil, err
		}
		guides = append(guides, gt)
	}
	data, err := timeaxis.New(start, end, v.LabelWidth, v.Width, timeaxis.Options{
		TimeZone:     cfg.Timezone,
		MinTickWidth: v.MinTickWidth,
		GuideTimes:   guides,
	})
	if err != nil {
		return nil, fmt.Errorf("timeline: data axis: %w", err)
	}
	view := data.Clone()
	if !view.UpdateTimes(viewStart, viewEnd) {
		return nil, ErrInvalidView
	}

	t := &Timeline{
		data:       data,
		view:       view,
		width:      v.Width,
		labelWidth: v.LabelWidth,
		clampPan:   v.ClampPan,
		showNow:    v.ShowNow,
		initial:    [2]int64{viewStart, viewEnd},
		hover:      band.NoHandle,
		drag:       band.NoHandle,
		pan:        band.NoHandle,
		now:        now,
		pub:        opts.Publisher,
		log:        appLog.With("component", "timeline"),
	}
	t.arena = band.NewArena(opts.Clock, t.dispatch)

	delay := time.Duration(v.TooltipDelayMS) * time.Millisecond
	for _, bc := range cfg.Bands {
		b, err := t.newBand(bc, v, intervals[bc.ID])
		if err != nil {
			return nil, err
		}
		b.TooltipDelay = delay
		b.SetBackgroundIntervals(t.overlay(bc.ID, bc.Background), 0)
		b.SetForegroundIntervals(t.overlay(bc.ID, bc.Foreground), 0)
		t.wire(b, bc)
		t.arena.Add(b)
	}
	for _, bc := range cfg.Bands {
		h, _ := t.arena.ByID(bc.ID)
		for _, m := range bc.Members {
			mh, err := t.arena.Lookup(m)
			if err != nil {
				return nil, err
			}
			if !t.arena.AddMember(h, mh) {
				return nil, fmt.Errorf("timeline: band %q cannot hold member %q", bc.ID, m)
			}
		}
		for _, c := range bc.Children {
			ch, err := t.arena.Lookup(c)
			if err != nil {
				return nil, err
			}
			if !t.arena.AddChild(h, ch) {
				return nil, fmt.Errorf("timeline: band %q cannot adopt %q", bc.ID, c)
			}
		}
	}
	for _, b := range t.arena.Roots() {
		t.order = append(t.order, b.Handle())
	}
	t.repaint()
	return t, nil
}

// dispatch serialises tooltip tasks with the rest of the session.
func (t *Timeline) dispatch(f func()) {
	t.mu.Lock()
	defer t.unlock()
	f()
}

func (t *Timeline) newBand(bc config.BandConfig, v config.ViewConfig, ivs []*model.DrawableInterval) (*band.Band, error) {
	c := band.Common{
		ID:        bc.ID,
		Label:     bc.Label,
		Height:    bc.Height,
		TimeAxis:  t.data,
		ViewAxis:  t.view,
		ClampPan:  v.ClampPan,
		Intervals: ivs,
	}
	switch band.Kind(bc.Kind) {
	case band.KindActivity:
		opts := band.DefaultActivityOptions()
		if bc.Activity.Layout != "" {
			l, err := band.ParseLayout(bc.Activity.Layout)
			if err != nil {
				return nil, err
			}
			opts.Layout = l
		}
		if bc.Activity.Style != "" {
			s, err := band.ParseActivityStyle(bc.Activity.Style)
			if err != nil {
				return nil, err
			}
			opts.Style = s
		}
		if bc.Activity.RowHeight > 0 {
			opts.RowHeight = bc.Activity.RowHeight
			opts.ActivityHeight = bc.Activity.RowHeight - 4
		}
		opts.AutoHeight = bc.Activity.AutoHeight
		if bc.Activity.Draggable {
			opts.Draggable = band.DraggableOptions{StartDraggable: true, EndDraggable: true, SnapSeconds: v.SnapSeconds}
		}
		return band.NewActivity(c, opts), nil

	case band.KindResource:
		rc := bc.Resource
		opts := band.DefaultResourceOptions()
		opts.MinLimit, opts.MaxLimit, opts.DefaultValue = rc.MinLimit, rc.MaxLimit, rc.DefaultValue
		if rc.AutoScale != "" {
			s, err := band.ParseAutoScale(rc.AutoScale)
			if err != nil {
				return nil, err
			}
			opts.AutoScale = s
		}
		if rc.Interpolation != "" {
			in, err := band.ParseInterpolation(rc.Interpolation)
			if err != nil {
				return nil, err
			}
			opts.Interpolation = in
		}
		if rc.Fill != nil {
			opts.Fill = *rc.Fill
		}
		opts.TickValues = rc.TickValues
		opts.AutoTickValues = len(rc.TickValues) == 0
		opts.LogTicks = rc.LogTicks
		if rc.Unit != "" {
			c.MinorLabels = []string{rc.Unit}
		}
		return band.NewResource(c, opts), nil

	case band.KindState:
		return band.NewState(c, band.StateOptions{Interpolate: bc.State.Interpolate}), nil

	case band.KindComposite:
		return band.NewComposite(c), nil
	}
	return nil, fmt.Errorf("timeline: band %q: unknown kind %q", bc.ID, bc.Kind)
}

// wire connects a band's callbacks to the tooltip state, the view and the
// publisher.
func (t *Timeline) wire(b *band.Band, bc config.BandConfig) {
	h := &b.Handlers
	h.ShowTooltip = func(e band.TooltipEvent) {
		t.tooltip = Tooltip{Visible: true, Band: e.Band.ID, HTML: e.HTML, X: e.PageX, Y: t.offsetOf(e.Band.Handle()) + e.Y}
	}
	h.HideTooltip = func() { t.tooltip = Tooltip{} }
	h.UpdateView = func(start, end int64) { t.setView(start, end) }
	h.LeftClick = func(e band.ClickEvent) {
		t.emit(events.Event{Kind: events.KindClick, Band: e.Band.ID, IntervalID: idOf(e.Interval), Time: e.Time})
	}
	h.RightClick = func(e band.ClickEvent) {
		t.emit(events.Event{Kind: events.KindRightClick, Band: e.Band.ID, IntervalID: idOf(e.Interval), Time: e.Time})
	}
	h.DblLeftClick = func(e band.DblClickEvent) {
		t.emit(events.Event{Kind: events.KindDblClick, Band: e.Band.ID, IntervalID: idOf(e.Interval), Background: e.Background})
	}
	if bc.Activity.Draggable {
		h.IsDraggable = func(e band.DragEvent) bool { return e.Interval.ID >= 0 && !e.Interval.Interpolated }
		h.DragStart = func(e band.DragEvent) {
			t.emit(events.Event{Kind: events.KindDragStart, Band: e.Band.ID, IntervalID: idOf(e.Interval)})
		}
		h.DragStop = func(e band.DropEvent) {
			t.emit(events.Event{Kind: events.KindDragStop, Band: e.Band.ID, IntervalID: idOf(e.Interval), Start: e.DropStart, End: e.DropEnd})
		}
	}
	if bc.Activity.Droppable {
		h.IsDroppable = func(e band.DragEvent) bool { return e.Interval != nil }
		h.Drop = func(e band.DropEvent) {
			src := ""
			if sb := t.arena.Get(t.drag); sb != nil {
				src = sb.ID
			}
			t.emit(events.Event{Kind: events.KindDrop, Band: e.Band.ID, SourceBand: src, IntervalID: idOf(e.Interval), Start: e.DropStart, End: e.DropEnd})
		}
	}
}

func idOf(iv *model.DrawableInterval) *int64 {
	if iv == nil {
		return nil
	}
	id := iv.ID
	return &id
}

func (t *Timeline) emit(e events.Event) {
	e.At = t.now().UTC()
	if t.captured != nil {
		*t.captured = append(*t.captured, e)
	}
	if t.pub != nil {
		t.pending = append(t.pending, e)
	}
}

// unlock releases the session, then publishes the events emitted while it
// was held. A slow broker delays only the caller.
func (t *Timeline) unlock() {
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()
	for _, e := range pending {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := t.pub.Publish(ctx, e); err != nil {
			t.log.Error("publish event", err, "kind", e.Kind)
		}
		cancel()
	}
}

// Generation changes whenever data or layout change, so cached renders keyed
// on it go stale.
func (t *Timeline) Generation() uint64 {
	t.mu.Lock()
	defer t.unlock()
	return t.gen
}

// SetIntervals replaces the main intervals of band id and repaints.
func (t *Timeline) SetIntervals(id string, list []*model.DrawableInterval) error {
	t.mu.Lock()
	defer t.unlock()
	h, err := t.arena.Lookup(id)
	if err != nil {
		return err
	}
	t.arena.Get(h).SetIntervals(list, 0)
	t.gen++
	t.repaint()
	return nil
}

// SetOverlays replaces the background and foreground intervals of band id
// and repaints.
func (t *Timeline) SetOverlays(id string, background, foreground []*model.DrawableInterval) error {
	t.mu.Lock()
	defer t.unlock()
	h, err := t.arena.Lookup(id)
	if err != nil {
		return err
	}
	b := t.arena.Get(h)
	b.SetBackgroundIntervals(t.overlay(id, background), 0)
	b.SetForegroundIntervals(t.overlay(id, foreground), 0)
	t.gen++
	t.repaint()
	return nil
}

// overlay copies list for band id. Invalid intervals are logged and
// dropped.
func (t *Timeline) overlay(id string, list []*model.DrawableInterval) []*model.DrawableInterval {
	out := make([]*model.DrawableInterval, 0, len(list))
	for _, iv := range list {
		c := iv.Clone()
		if err := c.Normalize(); err != nil {
			t.log.Error("skip overlay interval", err, "band", id, "interval", iv.ID)
			continue
		}
		out = append(out, c)
	}
	return out
}

// Load replaces the intervals of every band named in data and repaints
// once. Unknown IDs are logged and skipped.
func (t *Timeline) Load(data map[string][]*model.DrawableInterval) {
	t.mu.Lock()
	defer t.unlock()
	for id, list := range data {
		h, err := t.arena.Lookup(id)
		if err != nil {
			t.log.Error("load intervals", err)
			continue
		}
		t.arena.Get(h).SetIntervals(list, 0)
	}
	t.gen++
	t.repaint()
	t.emit(events.Event{Kind: events.KindRefresh})
}

// Children shows, hides or toggles the children of band id.
func (t *Timeline) Children(id, action string) error {
	t.mu.Lock()
	defer t.unlock()
	h, err := t.arena.Lookup(id)
	if err != nil {
		return err
	}
	switch action {
	case "show":
		t.arena.ShowChildren(h)
	case "hide":
		t.arena.HideChildren(h)
	case "toggle":
		t.arena.ToggleChildren(h)
	default:
		return fmt.Errorf("timeline: unknown children action %q", action)
	}
	t.gen++
	t.repaint()
	return nil
}

// Repaint redraws every band and recomputes the layout.
func (t *Timeline) Repaint() {
	t.mu.Lock()
	defer t.unlock()
	t.repaint()
}

func (t *Timeline) repaint() {
	if t.showNow {
		t.view.SetNow(t.now().Unix())
	}
	for _, h := range t.order {
		t.arena.Repaint(h)
	}
	t.layout()
}

// Tooltip returns the current tooltip state.
func (t *Timeline) Tooltip() Tooltip {
	t.mu.Lock()
	defer t.unlock()
	return t.tooltip
}

// Size is the page size in pixels.
func (t *Timeline) Size() (float64, float64) {
	t.mu.Lock()
	defer t.unlock()
	return t.width, t.height
}

// View returns the visible window.
func (t *Timeline) View() (int64, int64) {
	t.mu.Lock()
	defer t.unlock()
	return t.view.Start(), t.view.End()
}

// Data returns the data range sources load over.
func (t *Timeline) Data() (int64, int64) {
	t.mu.Lock()
	defer t.unlock()
	return t.data.Start(), t.data.End()
}
