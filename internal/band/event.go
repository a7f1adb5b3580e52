package band

import "missiontl/internal/model"

// ClickEvent is emitted for left and right clicks. Interval is nil when the
// pointer was not over one.
type ClickEvent struct {
	Band     *Band
	Interval *model.DrawableInterval
	Time     int64
}

// DblClickEvent is emitted on double click. When a background interval was
// hit, Interval is that interval and AnnotationHTML its rendered annotation.
type DblClickEvent struct {
	Band           *Band
	Interval       *model.DrawableInterval
	Background     bool
	AnnotationHTML string
}

// DragEvent asks about or reports a drag of Interval on Band.
type DragEvent struct {
	Band     *Band
	Interval *model.DrawableInterval
}

// DropEvent carries the snapped range a dragged interval was released at.
// The engine never writes the range back to the interval.
type DropEvent struct {
	Band      *Band
	Interval  *model.DrawableInterval
	DropStart int64
	DropEnd   int64
}

// TooltipEvent asks the host to show html near the pointer.
type TooltipEvent struct {
	Band  *Band
	HTML  string
	X, Y  float64
	PageX float64
}

// Handlers are the callbacks a band reports interaction through. Every
// field is optional.
type Handlers struct {
	ShowTooltip  func(TooltipEvent)
	HideTooltip  func()
	UpdateView   func(start, end int64)
	LeftClick    func(ClickEvent)
	RightClick   func(ClickEvent)
	DblLeftClick func(DblClickEvent)

	// FilterTooltip replaces the band kind's own tooltip filter.
	FilterTooltip func(b *Band, ivs []*model.DrawableInterval, t int64) []*model.DrawableInterval

	// Activity bands only.
	IsDraggable func(DragEvent) bool
	DragStart   func(DragEvent)
	DragStop    func(DropEvent)
	IsDroppable func(DragEvent) bool
	Drop        func(DropEvent)
}

type PointerKind int

const (
	PointerMove PointerKind = iota
	PointerDown
	PointerUp
	PointerOut
	PointerDblClick
)

func (k PointerKind) String() string {
	switch k {
	case PointerMove:
		return "move"
	case PointerDown:
		return "down"
	case PointerUp:
		return "up"
	case PointerOut:
		return "out"
	case PointerDblClick:
		return "dblclick"
	}
	return "unknown"
}

// ParsePointerKind is the inverse of PointerKind.String.
func ParsePointerKind(s string) (PointerKind, bool) {
	for k := PointerMove; k <= PointerDblClick; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

type Button int

const (
	ButtonLeft  Button = 1
	ButtonRight Button = 3
)

// Pointer is one pointer event in band-local coordinates. PageX is the
// page-relative x used for pan deltas.
type Pointer struct {
	Kind   PointerKind
	X, Y   float64
	PageX  float64
	Button Button
}
