package timeline

import (
	"math"

	"missiontl/internal/band"
	"missiontl/internal/events"
)

// Pointer routes a page pointer event and returns the events it emitted.
//
// While a drag is in flight every event goes to the drag's source band; a
// release over another band first offers it the drop. A pan keeps receiving
// moves after the pointer leaves its band. Otherwise the event goes to the
// band under the pointer, and the band it left gets an out event.
func (t *Timeline) Pointer(p Pointer) []events.Event {
	t.mu.Lock()
	defer t.unlock()

	var out []events.Event
	t.captured = &out
	defer func() { t.captured = nil }()

	target, over := t.bandAt(p.Y)

	if src := t.arena.Get(t.drag); src != nil {
		if p.Kind == band.PointerUp && over && target.Handle != t.drag {
			t.arena.Drop(target.Handle, t.drag)
		}
		t.arena.HandlePointer(t.drag, t.local(t.drag, p))
		if !src.Dragging() {
			t.drag = band.NoHandle
		}
		t.dragMoved()
		return out
	}

	if t.arena.Get(t.pan) != nil && p.Kind != band.PointerDown {
		t.arena.HandlePointer(t.pan, t.local(t.pan, p))
		if p.Kind == band.PointerUp {
			t.pan = band.NoHandle
		}
		return out
	}
	t.pan = band.NoHandle

	if !over || p.Kind == band.PointerOut {
		t.leave()
		return out
	}
	if t.hover != target.Handle {
		t.leave()
		t.hover = target.Handle
	}
	t.arena.HandlePointer(target.Handle, t.local(target.Handle, p))
	if b := t.arena.Get(target.Handle); b != nil && p.Kind == band.PointerDown {
		switch {
		case b.Dragging():
			t.drag = target.Handle
			t.dragMoved()
		case b.Panning():
			t.pan = target.Handle
		}
	}
	return out
}

// dragMoved repaints so the drag proxy follows the pointer, and starts a new
// generation so cached renders pick it up.
func (t *Timeline) dragMoved() {
	t.gen++
	t.repaint()
}

// DragState returns the drag in flight, or nil.
func (t *Timeline) DragState() *Drag {
	t.mu.Lock()
	defer t.unlock()
	return t.dragState()
}

func (t *Timeline) dragState() *Drag {
	b := t.arena.Get(t.drag)
	if b == nil {
		return nil
	}
	h := b.DragHelper()
	if h == nil {
		return nil
	}
	return &Drag{
		Band:       b.ID,
		IntervalID: h.Interval.ID,
		Start:      h.IntervalStart,
		End:        h.IntervalEnd,
		X1:         h.HelperX1,
		X2:         h.HelperX2,
		Caption:    h.Caption,
	}
}

func (t *Timeline) leave() {
	if t.arena.Get(t.hover) != nil {
		t.arena.HandlePointer(t.hover, band.Pointer{Kind: band.PointerOut})
	}
	t.hover = band.NoHandle
}

func (t *Timeline) local(h band.Handle, p Pointer) band.Pointer {
	return band.Pointer{Kind: p.Kind, X: p.X, Y: p.Y - t.offsetOf(h), PageX: p.X, Button: p.Button}
}

// setView moves the shared view axis, repaints and publishes the new
// window. Invalid windows are refused.
func (t *Timeline) setView(start, end int64) bool {
	if t.clampPan {
		start, end = band.ClampWindow(start, end, t.data.Start(), t.data.End())
	}
	if start == t.view.Start() && end == t.view.End() {
		return true
	}
	if !t.view.UpdateTimes(start, end) {
		return false
	}
	t.repaint()
	t.emit(events.Event{Kind: events.KindViewUpdate, Start: start, End: end})
	return true
}

// SetView shows [start, end].
func (t *Timeline) SetView(start, end int64) error {
	t.mu.Lock()
	defer t.unlock()
	if !t.setView(start, end) {
		return ErrInvalidView
	}
	return nil
}

// Pan shifts the view by dt seconds.
func (t *Timeline) Pan(dt int64) error {
	t.mu.Lock()
	defer t.unlock()
	if !t.setView(t.view.Start()+dt, t.view.End()+dt) {
		return ErrInvalidView
	}
	return nil
}

// Zoom scales the view duration by factor around centre, keeping centre
// at the same x. A factor below one zooms in. The window never shrinks
// below one minute.
func (t *Timeline) Zoom(factor float64, centre int64) error {
	t.mu.Lock()
	defer t.unlock()
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return ErrInvalidView
	}
	start, end := t.view.Start(), t.view.End()
	if centre < start || centre > end {
		centre = start + (end-start)/2
	}
	d := float64(end - start)
	nd := math.Max(60, d*factor)
	frac := float64(centre-start) / d
	ns := centre - int64(math.Round(frac*nd))
	if !t.setView(ns, ns+int64(math.Round(nd))) {
		return ErrInvalidView
	}
	return nil
}

// ResetView returns to the configured initial window.
func (t *Timeline) ResetView() {
	t.mu.Lock()
	defer t.unlock()
	t.setView(t.initial[0], t.initial[1])
}
