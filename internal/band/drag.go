package band

import (
	"math"
	"strings"

	"missiontl/internal/canvas"
	"missiontl/internal/model"
	"missiontl/internal/timeaxis"
)

// DragType is what part of an interval a drag moves.
type DragType int

const (
	DragMove      DragType = 1
	DragStartTime DragType = 2
	DragEndTime   DragType = 3
)

// edgeDistance is how close, in pixels, a press must be to an edge to
// resize instead of move.
const edgeDistance = 6

type DraggableOptions struct {
	StartDraggable bool
	EndDraggable   bool
	// SnapSeconds rounds dragged times to a multiple of itself. Snaps above
	// a minute are aligned in the data axis time zone.
	SnapSeconds int64
	// Axis "y" drags vertically only and leaves the times alone.
	Axis string
}

// DraggableHelper follows the pointer while an interval is dragged and
// tracks the snapped range it would be dropped at.
type DraggableHelper struct {
	Type     DragType
	Snap     int64
	Interval *model.DrawableInterval
	// CursorOffset is the press x minus the interval start x.
	CursorOffset float64

	HelperX1, HelperX2 float64
	HelperLeft         float64
	HelperWidth        float64

	IntervalStart int64
	IntervalEnd   int64
	// Caption is "HHMM-HHMM", plus a second line with the latest start and
	// earliest end when those differ.
	Caption string

	axis string
	view *timeaxis.TimeAxis
	data *timeaxis.TimeAxis
}

func newDraggableHelper(b *Band, opts DraggableOptions, iv *model.DrawableInterval) *DraggableHelper {
	return &DraggableHelper{
		Type:          DragMove,
		Snap:          max(1, opts.SnapSeconds),
		Interval:      iv,
		IntervalStart: iv.Start,
		IntervalEnd:   iv.End,
		axis:          opts.Axis,
		view:          b.ViewAxis,
		data:          b.TimeAxis,
	}
}

// SnapOffset is the signed distance from t to the nearest snap boundary.
func (h *DraggableHelper) SnapOffset(t int64) int64 {
	if h.Snap > 60 {
		t += h.data.ZoneOffset(t)
	}
	off := t % h.Snap
	if off < h.Snap/2 {
		return off
	}
	return off - h.Snap
}

// dragType picks the drag type for a press at x.
func dragType(opts DraggableOptions, view *timeaxis.TimeAxis, iv *model.DrawableInterval, x float64) DragType {
	if opts.StartDraggable && x-view.XFromTime(iv.Start) < edgeDistance {
		return DragStartTime
	}
	if opts.EndDraggable && view.XFromTime(iv.End)-x < edgeDistance {
		return DragEndTime
	}
	return DragMove
}

// update moves the helper so its start edge sits at helperX.
func (h *DraggableHelper) update(helperX float64) {
	iv := h.Interval
	view := h.view
	hs, he := iv.Start, iv.End

	if h.axis != "y" {
		switch h.Type {
		case DragMove:
			hs = view.TimeFromX(helperX)
			he = hs + iv.Duration()
			so := h.SnapOffset(hs)
			hs -= so
			he -= so
		case DragStartTime:
			hs = view.TimeFromX(helperX)
			if hs < he {
				so := h.SnapOffset(hs)
				if hs-so >= he {
					so += h.Snap
				}
				hs -= so
			} else {
				eo := h.SnapOffset(he)
				if eo <= 0 {
					eo += h.Snap
				}
				hs = he - eo
			}
		case DragEndTime:
			width := view.XFromTime(iv.End) - view.XFromTime(iv.Start)
			he = view.TimeFromX(helperX + width)
			if he > hs {
				so := h.SnapOffset(he)
				if he-so <= hs {
					so -= h.Snap
				}
				he -= so
			} else {
				so := h.SnapOffset(hs)
				if so >= 0 {
					so -= h.Snap
				}
				he = hs - so
			}
		}
		hs, he = h.clampToView(hs, he)
	}

	h.IntervalStart, h.IntervalEnd = hs, he
	h.HelperX1 = view.XFromTime(hs)
	h.HelperX2 = view.XFromTime(he)
	h.HelperLeft = h.HelperX1 - view.XFromTime(iv.Start)
	h.HelperWidth = math.Max(0, h.HelperX2-h.HelperX1)
	h.Caption = h.caption(hs, he)
}

// clampToView keeps the dragged range inside the view. A move keeps its
// duration where the view allows it; a resize only clamps the moving edge.
func (h *DraggableHelper) clampToView(hs, he int64) (int64, int64) {
	vs, ve := h.view.Start(), h.view.End()
	switch h.Type {
	case DragMove:
		d := he - hs
		if d >= ve-vs {
			return vs, ve
		}
		if hs < vs {
			return vs, vs + d
		}
		if he > ve {
			return ve - d, ve
		}
	case DragStartTime:
		hs = min(max(hs, vs), ve)
	case DragEndTime:
		he = min(max(he, vs), ve)
	}
	return hs, he
}

func (h *DraggableHelper) caption(hs, he int64) string {
	iv := h.Interval
	loc := h.data.Location()
	latest, earliest := iv.Start, iv.End
	if iv.LatestStart != nil {
		latest = *iv.LatestStart
	}
	if iv.EarliestEnd != nil {
		earliest = *iv.EarliestEnd
	}
	ls := hs + (latest - iv.Start)
	ee := he - (iv.End - earliest)

	c := timeaxis.FormatHHMM(hs, loc) + "-" + timeaxis.FormatHHMM(he, loc)
	if ls != hs || ee != he {
		c += "\n" + timeaxis.FormatHHMM(ls, loc) + "-" + timeaxis.FormatHHMM(ee, loc)
	}
	return c
}

// paint draws the proxy at its snapped range on the dragged interval's row,
// with the caption stacked above it.
func (h *DraggableHelper) paint(s canvas.Surface, b *Band) {
	y1, y2 := 0.0, b.Height
	if c, ok := b.FindIntervalCoords(h.Interval.ID); ok {
		y1, y2 = c.Y1, c.Y2
	}
	w := math.Max(1, h.HelperWidth)
	s.FillRect(h.HelperX1, y1, w, y2-y1, canvas.Fill(canvas.Gray75, 0.5))
	s.StrokeRect(h.HelperX1, y1, w, y2-y1, canvas.Stroke(canvas.Black, 1, 1))

	lines := strings.Split(h.Caption, "\n")
	lh := canvas.TextHeight()
	y := math.Max(y1, lh*float64(len(lines)))
	for i := len(lines) - 1; i >= 0; i-- {
		s.Text(lines[i], h.HelperX1, y, canvas.AlignLeft, canvas.BaselineBottom, canvas.Fill(canvas.Black, 1))
		y -= lh
	}
}

// Dragging reports whether b has a drag in progress.
func (b *Band) Dragging() bool { return b.DragHelper() != nil }

// DragHelper returns the active drag, or nil.
func (b *Band) DragHelper() *DraggableHelper {
	if a, ok := b.variant.(*Activity); ok {
		return a.drag
	}
	return nil
}

func (a *Activity) beginDrag(b *Band, iv *model.DrawableInterval, x float64) {
	h := newDraggableHelper(b, a.Options.Draggable, iv)
	h.CursorOffset = x - b.ViewAxis.XFromTime(iv.Start)
	h.Type = dragType(a.Options.Draggable, b.ViewAxis, iv, x)
	h.update(x - h.CursorOffset)
	a.drag = h
	b.log.Debug("drag start", "interval", iv.ID, "type", int(h.Type))
	if b.Handlers.DragStart != nil {
		b.Handlers.DragStart(DragEvent{Band: b, Interval: iv})
	}
}

func (a *Activity) endDrag(b *Band) {
	h := a.drag
	if h == nil {
		return
	}
	a.drag = nil
	h.Type = DragMove
	b.log.Debug("drag stop", "interval", h.Interval.ID, "start", h.IntervalStart, "end", h.IntervalEnd)
	if b.Handlers.DragStop != nil {
		b.Handlers.DragStop(DropEvent{Band: b, Interval: h.Interval, DropStart: h.IntervalStart, DropEnd: h.IntervalEnd})
	}
}

// cancelDrag drops the drag without reporting it.
func (a *Activity) cancelDrag() { a.drag = nil }

// Drop offers the drag in progress on source to target. It reports whether
// target accepted it. The interval itself is never changed.
func (a *Arena) Drop(target, source Handle) bool {
	tb, sb := a.Get(target), a.Get(source)
	if tb == nil || sb == nil {
		return false
	}
	h := sb.DragHelper()
	if h == nil {
		return false
	}
	if _, ok := tb.variant.(*Activity); !ok || tb.Handlers.Drop == nil {
		return false
	}
	if tb.Handlers.IsDroppable == nil || !tb.Handlers.IsDroppable(DragEvent{Band: tb, Interval: h.Interval}) {
		return false
	}
	tb.Handlers.Drop(DropEvent{Band: tb, Interval: h.Interval, DropStart: h.IntervalStart, DropEnd: h.IntervalEnd})
	return true
}
