package band

import (
	"errors"
	"fmt"
	"slices"

	"missiontl/internal/canvas"
	appLog "missiontl/internal/log"
	"missiontl/internal/model"
)

// Arena owns a set of bands and the relations between them. Parents,
// children and composite members refer to each other by Handle, so a
// disposed band is simply an empty slot and stale handles resolve to nil.
//
// An Arena is not safe for concurrent use; callers serialise access (the
// timeline holds a mutex and passes its own dispatch to tooltip timers).
type Arena struct {
	bands []*Band
	byID  map[string]Handle

	clock    Clock
	dispatch func(func())
	log      appLog.Logger
}

// NewArena returns an empty arena. clock and dispatch configure the tooltip
// debouncers of added bands; nil values use the real clock and run tasks on
// the timer goroutine.
func NewArena(clock Clock, dispatch func(func())) *Arena {
	return &Arena{
		byID:     map[string]Handle{},
		clock:    clock,
		dispatch: dispatch,
		log:      appLog.With("component", "arena"),
	}
}

// Add registers b and returns its handle. A second band with the same ID
// takes over the ID lookup.
func (a *Arena) Add(b *Band) Handle {
	h := Handle(len(a.bands))
	b.handle = h
	b.tooltip = NewDebouncer(a.clock, a.dispatch)
	a.bands = append(a.bands, b)
	if prev, ok := a.byID[b.ID]; ok && a.Get(prev) != nil {
		a.log.Info("band id reused", "id", b.ID)
	}
	a.byID[b.ID] = h
	return h
}

// Get resolves h, returning nil for unknown or disposed handles.
func (a *Arena) Get(h Handle) *Band {
	if h < 0 || int(h) >= len(a.bands) {
		return nil
	}
	return a.bands[h]
}

var ErrUnknownBand = errors.New("band: unknown band")

// Lookup is ByID returning ErrUnknownBand for a missing id.
func (a *Arena) Lookup(id string) (Handle, error) {
	h, ok := a.ByID(id)
	if !ok {
		return NoHandle, fmt.Errorf("%w: %q", ErrUnknownBand, id)
	}
	return h, nil
}

func (a *Arena) ByID(id string) (Handle, bool) {
	h, ok := a.byID[id]
	if !ok || a.Get(h) == nil {
		return NoHandle, false
	}
	return h, true
}

// Bands returns the live bands in insertion order.
func (a *Arena) Bands() []*Band {
	out := make([]*Band, 0, len(a.bands))
	for _, b := range a.bands {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}

// Roots returns the live bands that have no parent and are not composite
// members.
func (a *Arena) Roots() []*Band {
	var out []*Band
	for _, b := range a.bands {
		if b != nil && b.parent == NoHandle && b.composite == NoHandle {
			out = append(out, b)
		}
	}
	return out
}

// AddChild makes child a child of parent, detaching it from any previous
// parent. It refuses self-parenting and cycles.
func (a *Arena) AddChild(parent, child Handle) bool {
	p, c := a.Get(parent), a.Get(child)
	if p == nil || c == nil || parent == child {
		a.log.Debug("add child ignored", "parent", parent, "child", child)
		return false
	}
	for anc := p; anc != nil; anc = a.Get(anc.parent) {
		if anc.handle == child {
			a.log.Info("add child would create a cycle", "parent", p.ID, "child", c.ID)
			return false
		}
	}
	if old := a.Get(c.parent); old != nil {
		old.children = slices.DeleteFunc(old.children, func(h Handle) bool { return h == child })
	}
	c.parent = parent
	p.children = append(p.children, child)
	return true
}

// RemoveChild detaches child from parent. Mismatched handles are ignored.
func (a *Arena) RemoveChild(parent, child Handle) {
	p, c := a.Get(parent), a.Get(child)
	if p == nil || c == nil || c.parent != parent {
		a.log.Debug("remove child ignored", "parent", parent, "child", child)
		return
	}
	p.children = slices.DeleteFunc(p.children, func(h Handle) bool { return h == child })
	c.parent = NoHandle
}

func (a *Arena) ClearChildren(parent Handle) {
	p := a.Get(parent)
	if p == nil {
		return
	}
	for _, h := range p.children {
		if c := a.Get(h); c != nil {
			c.parent = NoHandle
		}
	}
	p.children = nil
}

func (a *Arena) setChildrenVisible(parent Handle, visible func(bool) bool) {
	p := a.Get(parent)
	if p == nil {
		return
	}
	for _, h := range p.children {
		if c := a.Get(h); c != nil {
			c.visible = visible(c.visible)
		}
	}
	a.Revalidate(parent)
	a.Repaint(parent)
}

func (a *Arena) ShowChildren(parent Handle) {
	a.setChildrenVisible(parent, func(bool) bool { return true })
}

func (a *Arena) HideChildren(parent Handle) {
	a.setChildrenVisible(parent, func(bool) bool { return false })
}

// ToggleChildren flips the visibility of each child.
func (a *Arena) ToggleChildren(parent Handle) {
	a.setChildrenVisible(parent, func(v bool) bool { return !v })
}

// IsExpanded is false if any child of h is hidden.
func (a *Arena) IsExpanded(h Handle) bool {
	b := a.Get(h)
	if b == nil {
		return false
	}
	for _, ch := range b.children {
		if c := a.Get(ch); c != nil && !c.visible {
			return false
		}
	}
	return true
}

// Level is the number of ancestors of h.
func (a *Arena) Level(h Handle) int {
	n := 0
	for b := a.Get(h); b != nil && b.parent != NoHandle; b = a.Get(b.parent) {
		n++
	}
	return n
}

// Dispose detaches h from every relation, cancels its tooltip task and
// frees its slot. Its handle stays invalid afterwards.
func (a *Arena) Dispose(h Handle) {
	b := a.Get(h)
	if b == nil {
		return
	}
	a.ClearChildren(h)
	a.RemoveChild(b.parent, h)
	if comp := a.Get(b.composite); comp != nil {
		a.RemoveMember(b.composite, b.ID)
	}
	if c, ok := b.variant.(*Composite); ok {
		for _, m := range c.members {
			if mb := a.Get(m); mb != nil {
				mb.composite = NoHandle
				mb.surface = canvas.NewRecorder()
			}
		}
		c.members = nil
	}
	if b.tooltip != nil {
		b.tooltip.Cancel()
	}
	b.surface.Release()
	b.coords = nil
	if cur, ok := a.byID[b.ID]; ok && cur == h {
		delete(a.byID, b.ID)
	}
	a.bands[h] = nil
}

// Revalidate resizes the surfaces of h and its visible descendants to their
// current width and height.
func (a *Arena) Revalidate(h Handle) {
	b := a.Get(h)
	if b == nil {
		return
	}
	b.surface.Clear(b.width(), b.SurfaceHeight())
	for _, ch := range b.children {
		if c := a.Get(ch); c != nil && c.visible {
			a.Revalidate(ch)
		}
	}
}

// SetHeight changes the height of h and, for a composite, of its members.
func (a *Arena) SetHeight(h Handle, height, padding float64) {
	b := a.Get(h)
	if b == nil {
		return
	}
	b.Height = height
	b.HeightPadding = padding
	if c, ok := b.variant.(*Composite); ok {
		for _, m := range c.members {
			if mb := a.Get(m); mb != nil {
				mb.Height = height
				mb.HeightPadding = padding
			}
		}
	}
	a.Revalidate(h)
}

// AddMember makes member paint into composite's surface. NoHandle and
// non-composite targets are ignored.
func (a *Arena) AddMember(composite, member Handle) bool {
	cb, mb := a.Get(composite), a.Get(member)
	if cb == nil || mb == nil || composite == member {
		return false
	}
	c, ok := cb.variant.(*Composite)
	if !ok {
		a.log.Info("add member to non-composite band", "band", cb.ID)
		return false
	}
	if _, isComp := mb.variant.(*Composite); isComp {
		a.log.Info("composite bands cannot be nested", "band", mb.ID)
		return false
	}
	if prev := a.Get(mb.composite); prev != nil {
		a.RemoveMember(mb.composite, mb.ID)
	}
	mb.composite = composite
	mb.surface = cb.surface
	mb.Height = cb.Height
	mb.HeightPadding = cb.HeightPadding
	mb.ViewAxis = cb.ViewAxis
	c.members = append(c.members, member)
	return true
}

// RemoveMember detaches the member with the given band ID and returns its
// handle, or NoHandle when there is none.
func (a *Arena) RemoveMember(composite Handle, id string) Handle {
	cb := a.Get(composite)
	if cb == nil {
		return NoHandle
	}
	c, ok := cb.variant.(*Composite)
	if !ok {
		return NoHandle
	}
	for i, m := range c.members {
		mb := a.Get(m)
		if mb == nil || mb.ID != id {
			continue
		}
		c.members = slices.Delete(c.members, i, i+1)
		mb.composite = NoHandle
		mb.surface = canvas.NewRecorder()
		mb.coords = nil
		return m
	}
	return NoHandle
}

// Members returns the member bands of a composite, in paint order.
func (a *Arena) Members(composite Handle) []*Band {
	cb := a.Get(composite)
	if cb == nil {
		return nil
	}
	c, ok := cb.variant.(*Composite)
	if !ok {
		return nil
	}
	out := make([]*Band, 0, len(c.members))
	for _, m := range c.members {
		if mb := a.Get(m); mb != nil {
			out = append(out, mb)
		}
	}
	return out
}

// FindIntervals hit-tests band h. For a composite the first member, in paint
// order, with any hit answers.
func (a *Arena) FindIntervals(h Handle, x, y float64) []*model.DrawableInterval {
	b := a.Get(h)
	if b == nil {
		return nil
	}
	if _, ok := b.variant.(*Composite); ok {
		for _, mb := range a.Members(h) {
			if found := mb.FindIntervals(x, y); len(found) > 0 {
				return found
			}
		}
		return nil
	}
	return b.FindIntervals(x, y)
}

// Repaint redraws h and its visible descendants. Every pass builds a new
// coordinate table; hit-testing never sees a partially painted band.
func (a *Arena) Repaint(h Handle) {
	b := a.Get(h)
	if b == nil {
		return
	}
	b.variant.prepare(b)
	s := b.surface
	s.Clear(b.width(), b.SurfaceHeight())

	if _, ok := b.variant.(*Composite); ok {
		a.paintComposite(s, b)
	} else {
		b.Decorator.Paint(s, b)
		b.coords = b.variant.paint(s, b)
	}

	for _, ch := range b.children {
		if c := a.Get(ch); c != nil && c.visible {
			a.Repaint(ch)
		}
	}

	b.Decorator.PaintForegroundIntervals(s, b)
	b.Decorator.PaintGuideTimes(s, b)
	b.Decorator.PaintNow(s, b)
	if h := b.DragHelper(); h != nil {
		h.paint(s, b)
	}
}

// paintComposite paints the shared ticks once, then each member's label,
// value ticks and intervals in order. Member labels stack downwards and
// value ticks stack leftwards from the view start.
func (a *Arena) paintComposite(s canvas.Surface, b *Band) {
	b.Decorator.PaintTimeTicks(s, b)
	labelY := 0.0
	valueX := b.ViewAxis.X1()
	for _, m := range a.Members(b.handle) {
		m.variant.prepare(m)
		labelY = m.Decorator.PaintLabel(s, m, labelY)
		valueX = m.variant.valueTicks(s, m, valueX)
		m.coords = m.variant.paint(s, m)
	}
	b.coords = nil
}
