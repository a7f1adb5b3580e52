package band

import (
	"strings"

	"missiontl/internal/model"
	"missiontl/internal/timeaxis"
)

const tooltipSeparator = "<hr class='tooltiphr'/>"

// panState is the pointer x of the last pan step. A pan is active while
// active is set.
type panState struct {
	active bool
	lastX  float64
}

// Panning reports whether b has a pan in progress.
func (b *Band) Panning() bool { return b.pan.active }

// HandlePointer routes one pointer event to band h.
func (a *Arena) HandlePointer(h Handle, ev Pointer) {
	b := a.Get(h)
	if b == nil {
		return
	}
	switch ev.Kind {
	case PointerMove:
		a.pointerMove(b, ev)
	case PointerDown:
		a.pointerDown(b, ev)
	case PointerUp:
		b.pan.active = false
		if act, ok := b.variant.(*Activity); ok {
			act.endDrag(b)
		}
	case PointerOut:
		b.tooltip.Cancel()
		b.hideTooltip()
	case PointerDblClick:
		a.pointerDblClick(b, ev)
	}
}

func (a *Arena) pointerMove(b *Band, ev Pointer) {
	if drag := b.DragHelper(); drag != nil {
		drag.update(ev.X - drag.CursorOffset)
	} else if b.pan.active {
		b.panStep(ev.PageX)
	}

	b.tooltip.Cancel()
	// The move that follows a double click must not close its annotation.
	if b.annotationShown {
		b.annotationShown = false
		return
	}
	b.hideTooltip()
	if b.TooltipDelay <= 0 {
		a.ShowTooltip(b.handle, ev)
		return
	}
	h := b.handle
	b.tooltip.Schedule(b.TooltipDelay, func() {
		a.ShowTooltip(h, ev)
	})
}

func (b *Band) hideTooltip() {
	if b.Handlers.HideTooltip != nil {
		b.Handlers.HideTooltip()
	}
}

func (b *Band) showTooltip(html string, ev Pointer) {
	if b.Handlers.ShowTooltip != nil {
		b.Handlers.ShowTooltip(TooltipEvent{Band: b, HTML: html, X: ev.X, Y: ev.Y, PageX: ev.PageX})
	}
}

// ShowTooltip computes the tooltip for a pointer at ev and reports it
// through the band's handlers. A disposed band is ignored.
func (a *Arena) ShowTooltip(h Handle, ev Pointer) {
	b := a.Get(h)
	if b == nil {
		return
	}
	if html, ok := a.TooltipHTML(h, ev.X, ev.Y); ok {
		b.showTooltip(html, ev)
		return
	}
	b.hideTooltip()
}

// TooltipHTML returns the tooltip for (x, y) on band h. ok is false when
// nothing is under the pointer.
func (a *Arena) TooltipHTML(h Handle, x, y float64) (string, bool) {
	b := a.Get(h)
	if b == nil {
		return "", false
	}
	t := b.ViewAxis.TimeFromX(x)

	if x >= 0 && x < b.ViewAxis.X1() {
		return b.Label, b.Label != ""
	}

	if fg := b.FindForegroundIntervals(x); len(fg) > 0 {
		return joinReversed(b, fg, t), true
	}

	var text string
	if _, ok := b.variant.(*Composite); ok {
		var parts []string
		for _, m := range a.Members(h) {
			ivs := m.filterTooltip(m.FindIntervals(x, y), t)
			if len(ivs) > 0 {
				parts = append(parts, m.intervalTooltip(ivs[0], t))
			}
		}
		text = strings.Join(parts, tooltipSeparator)
	} else if ivs := b.filterTooltip(b.FindIntervals(x, y), t); len(ivs) > 0 {
		text = b.intervalTooltip(ivs[0], t)
	}
	if text != "" {
		return text, true
	}

	if bg := b.FindBackgroundIntervals(x); len(bg) > 0 {
		return joinReversed(b, bg, t), true
	}
	return "", false
}

func (b *Band) filterTooltip(ivs []*model.DrawableInterval, t int64) []*model.DrawableInterval {
	if b.Handlers.FilterTooltip != nil {
		return b.Handlers.FilterTooltip(b, ivs, t)
	}
	return b.variant.filterTooltip(ivs)
}

func (b *Band) intervalTooltip(iv *model.DrawableInterval, t int64) string {
	if msg, ok := iv.Property("message"); ok {
		return "<p>" + timeaxis.FormatDOY(iv.Start) + "</p>" + msg
	}
	return iv.TooltipText(b.tooltipInfo(t))
}

// joinReversed renders ivs topmost first.
func joinReversed(b *Band, ivs []*model.DrawableInterval, t int64) string {
	parts := make([]string, 0, len(ivs))
	for i := len(ivs) - 1; i >= 0; i-- {
		parts = append(parts, ivs[i].TooltipText(b.tooltipInfo(t)))
	}
	return strings.Join(parts, tooltipSeparator)
}

func (a *Arena) pointerDown(b *Band, ev Pointer) {
	h := b.Handlers
	act, isActivity := b.variant.(*Activity)
	if h.LeftClick == nil && h.RightClick == nil && h.UpdateView == nil &&
		!(isActivity && h.IsDraggable != nil) {
		return
	}

	t := b.ViewAxis.TimeFromX(ev.X)
	var hit *model.DrawableInterval
	if found := a.FindIntervals(b.handle, ev.X, ev.Y); len(found) > 0 {
		hit = found[len(found)-1]
	}

	if ev.Button == ButtonRight {
		if h.RightClick == nil {
			return
		}
		if hit == nil {
			if bg := b.FindBackgroundIntervals(ev.X); len(bg) > 0 {
				hit = bg[0]
			}
		}
		h.RightClick(ClickEvent{Band: b, Interval: hit, Time: t})
		return
	}

	if h.LeftClick != nil {
		h.LeftClick(ClickEvent{Band: b, Interval: hit, Time: t})
	}
	if isActivity && hit != nil && h.IsDraggable != nil && h.IsDraggable(DragEvent{Band: b, Interval: hit}) {
		act.beginDrag(b, hit, ev.X)
		return
	}
	if ev.X >= b.ViewAxis.X1() && h.UpdateView != nil && !b.Dragging() {
		b.pan = panState{active: true, lastX: ev.PageX}
	}
}

// panStep shifts the view by the time between the last and the current
// pointer x, against the pointer direction.
func (b *Band) panStep(pageX float64) {
	view := b.ViewAxis
	d := view.TimeFromX(b.pan.lastX) - view.TimeFromX(pageX)
	start, end := view.Start()+d, view.End()+d
	if b.ClampPan {
		start, end = ClampWindow(start, end, b.TimeAxis.Start(), b.TimeAxis.End())
	}
	if b.Handlers.UpdateView != nil {
		b.Handlers.UpdateView(start, end)
	}
	b.pan.lastX = pageX
}

// ClampWindow shifts [start, end] inside [lo, hi] keeping its duration. A
// window at least as long as the bounds becomes the bounds.
func ClampWindow(start, end, lo, hi int64) (int64, int64) {
	d := end - start
	if d >= hi-lo {
		return lo, hi
	}
	if start < lo {
		return lo, lo + d
	}
	if end > hi {
		return hi - d, hi
	}
	return start, end
}

func (a *Arena) pointerDblClick(b *Band, ev Pointer) {
	if act, ok := b.variant.(*Activity); ok {
		act.cancelDrag()
	}
	if bg := b.FindBackgroundIntervals(ev.X); len(bg) > 0 {
		html := model.AnnotationHTML(bg[0])
		if b.Handlers.DblLeftClick != nil {
			b.Handlers.DblLeftClick(DblClickEvent{Band: b, Interval: bg[0], Background: true, AnnotationHTML: html})
		}
		b.annotationShown = true
		b.showTooltip(html, ev)
		return
	}
	b.annotationShown = false
	if b.Handlers.DblLeftClick == nil {
		return
	}
	var hit *model.DrawableInterval
	if found := a.FindIntervals(b.handle, ev.X, ev.Y); len(found) > 0 {
		hit = found[len(found)-1]
	}
	b.Handlers.DblLeftClick(DblClickEvent{Band: b, Interval: hit})
}
