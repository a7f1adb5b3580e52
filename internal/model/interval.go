package model

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"missiontl/internal/canvas"
)

// Property is one name/value pair shown in tooltips, in insertion order.
type Property struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// TooltipInfo is the context a tooltip is rendered in.
type TooltipInfo struct {
	// Time is the pointer time.
	Time int64
	// Location is the band's display zone.
	Location *time.Location
	// MinLimit and MaxLimit, when HasLimits is set, are the resource limits
	// used for percentages.
	MinLimit, MaxLimit float64
	HasLimits          bool
}

// TooltipFunc renders the HTML tooltip of an interval.
type TooltipFunc func(iv *DrawableInterval, info TooltipInfo) string

// DrawableInterval is the unit of data a band renders.
type DrawableInterval struct {
	ID     int64  `yaml:"id" json:"id"`
	Source string `yaml:"source,omitempty" json:"source,omitempty"`
	Label  string `yaml:"label,omitempty" json:"label,omitempty"`

	Start int64 `yaml:"start" json:"start"`
	End   int64 `yaml:"end" json:"end"`

	// LatestStart and EarliestEnd render as uncertainty markers.
	LatestStart *int64 `yaml:"latest_start,omitempty" json:"latest_start,omitempty"`
	EarliestEnd *int64 `yaml:"earliest_end,omitempty" json:"earliest_end,omitempty"`

	Color        *canvas.RGB `yaml:"color,omitempty" json:"color,omitempty"`
	Opacity      float64     `yaml:"opacity,omitempty" json:"opacity,omitempty"`
	LabelColor   *canvas.RGB `yaml:"label_color,omitempty" json:"label_color,omitempty"`
	LabelOpacity float64     `yaml:"label_opacity,omitempty" json:"label_opacity,omitempty"`
	Icon         string      `yaml:"icon,omitempty" json:"icon,omitempty"`

	StartValue float64 `yaml:"start_value,omitempty" json:"start_value,omitempty"`
	EndValue   float64 `yaml:"end_value,omitempty" json:"end_value,omitempty"`
	// State is the discrete value of a state-band interval.
	State string `yaml:"state,omitempty" json:"state,omitempty"`

	IsConflicted bool `yaml:"conflicted,omitempty" json:"conflicted,omitempty"`
	Interpolated bool `yaml:"-" json:"interpolated,omitempty"`
	Selected     bool `yaml:"selected,omitempty" json:"selected,omitempty"`

	Properties []Property `yaml:"properties,omitempty" json:"properties,omitempty"`

	OnGetTooltipText TooltipFunc `yaml:"-" json:"-"`
}

// New returns an interval with default opacities.
func New(id, start, end int64, label string) *DrawableInterval {
	return &DrawableInterval{
		ID:           id,
		Label:        label,
		Start:        start,
		End:          end,
		Opacity:      1,
		LabelOpacity: 1,
	}
}

var ErrInvertedInterval = errors.New("model: interval end is before start")

// Normalize fills default opacities and validates the time invariants.
// Uncertainty markers outside [start, end] are dropped.
func (iv *DrawableInterval) Normalize() error {
	if iv.End < iv.Start {
		return fmt.Errorf("%w: id=%d start=%d end=%d", ErrInvertedInterval, iv.ID, iv.Start, iv.End)
	}
	if iv.Opacity <= 0 {
		iv.Opacity = 1
	}
	if iv.LabelOpacity <= 0 {
		iv.LabelOpacity = 1
	}
	if iv.LatestStart != nil && (*iv.LatestStart < iv.Start || *iv.LatestStart > iv.End) {
		iv.LatestStart = nil
	}
	if iv.EarliestEnd != nil && (*iv.EarliestEnd > iv.End || *iv.EarliestEnd < iv.Start) {
		iv.EarliestEnd = nil
	}
	return nil
}

func (iv *DrawableInterval) Duration() int64 { return iv.End - iv.Start }

// Clone returns a copy that shares nothing mutable with iv.
func (iv *DrawableInterval) Clone() *DrawableInterval {
	c := *iv
	c.Properties = slices.Clone(iv.Properties)
	if iv.LatestStart != nil {
		v := *iv.LatestStart
		c.LatestStart = &v
	}
	if iv.EarliestEnd != nil {
		v := *iv.EarliestEnd
		c.EarliestEnd = &v
	}
	if iv.Color != nil {
		v := *iv.Color
		c.Color = &v
	}
	if iv.LabelColor != nil {
		v := *iv.LabelColor
		c.LabelColor = &v
	}
	return &c
}

// Property returns the value of the first property called name.
func (iv *DrawableInterval) Property(name string) (string, bool) {
	for _, p := range iv.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// SetProperty replaces or appends a property.
func (iv *DrawableInterval) SetProperty(name, value string) {
	for i := range iv.Properties {
		if iv.Properties[i].Name == name {
			iv.Properties[i].Value = value
			return
		}
	}
	iv.Properties = append(iv.Properties, Property{Name: name, Value: value})
}

// TooltipText renders the interval's tooltip, falling back to DefaultTooltip.
func (iv *DrawableInterval) TooltipText(info TooltipInfo) string {
	if iv.OnGetTooltipText != nil {
		return iv.OnGetTooltipText(iv, info)
	}
	return DefaultTooltip(iv, info)
}

// CompareEarlyStartEarlyEnd orders intervals by start, then end.
func CompareEarlyStartEarlyEnd(a, b *DrawableInterval) int {
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}
	return cmp.Compare(a.End, b.End)
}

// SortEarlyStartEarlyEnd stably sorts list in place.
func SortEarlyStartEarlyEnd(list []*DrawableInterval) {
	slices.SortStableFunc(list, CompareEarlyStartEarlyEnd)
}

var localID atomic.Int64

// NextLocalID returns a fresh id for intervals synthesized by the engine.
// Local ids are negative and never collide with caller ids, which are
// expected to be non-negative.
func NextLocalID() int64 {
	return localID.Add(-1)
}

// AnnotationHTML renders a background interval as an annotation: the label
// followed by one line per row of its "text" property.
func AnnotationHTML(iv *DrawableInterval) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(escape(iv.Label))
	b.WriteString("</b>")
	if text, ok := iv.Property("text"); ok {
		for _, line := range strings.Split(text, "\n") {
			b.WriteString("<br/>")
			b.WriteString(escape(line))
		}
	}
	return b.String()
}
