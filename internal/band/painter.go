package band

import (
	"math"
	"sync"

	"missiontl/internal/canvas"
	"missiontl/internal/model"
)

// Painter holds the options shared by every interval painter.
type Painter struct {
	Color        canvas.RGB
	AutoColor    bool
	ShowLabel    bool
	TrimLabel    bool
	LabelPadding float64
	BorderWidth  float64
	ShowIcon     bool
	IconFill     bool
	AlignLabel   canvas.Align
	// BaselineLabel places labels against the bottom, top or middle of the
	// interval rectangle.
	BaselineLabel canvas.Baseline
	Icons         map[string]Icon
}

// DefaultPainter returns the painter defaults: black, labels shown and
// trimmed, left aligned on the bottom edge, a 0.2px border.
func DefaultPainter() Painter {
	return Painter{
		Color:         canvas.Black,
		ShowLabel:     true,
		TrimLabel:     true,
		LabelPadding:  2,
		BorderWidth:   0.2,
		ShowIcon:      true,
		AlignLabel:    canvas.AlignLeft,
		BaselineLabel: canvas.BaselineBottom,
		Icons:         DefaultIcons(),
	}
}

// quad is the rectangle an interval was drawn in: lower-left, upper-left,
// upper-right, lower-right.
type quad struct {
	ll, ul, ur, lr canvas.Point
}

func rect(x1, x2, y1, y2 float64) quad {
	return quad{
		ll: canvas.Point{X: x1, Y: y2},
		ul: canvas.Point{X: x1, Y: y1},
		ur: canvas.Point{X: x2, Y: y1},
		lr: canvas.Point{X: x2, Y: y2},
	}
}

type labelOpts struct {
	trim bool
	// maxR, when set, bounds the label on the right instead of lr.
	maxR       *float64
	annotation bool
}

// paintLabel draws the label of iv inside q.
func (p *Painter) paintLabel(s canvas.Surface, iv *model.DrawableInterval, q quad, o labelOpts) {
	if !p.ShowLabel || iv.Label == "" {
		return
	}
	width := q.lr.X - q.ll.X
	if o.maxR != nil {
		width = *o.maxR - q.ll.X
	}
	pad := p.LabelPadding
	label := iv.Label
	if o.trim {
		label = canvas.TrimToWidth(label, width-pad*2, s.MeasureText)
	}
	if label == "" {
		return
	}

	var x float64
	switch {
	case o.annotation:
		// Annotation labels start one label width past the highlight start.
		x = q.ll.X + s.MeasureText(label) + pad
	case p.AlignLabel == canvas.AlignCenter:
		x = math.Max(q.ll.X+(q.lr.X-q.ll.X)/2-s.MeasureText(label)/2, q.ll.X+pad)
	case p.AlignLabel == canvas.AlignRight:
		x = math.Max(q.lr.X-s.MeasureText(label)-pad, q.ll.X+pad)
	default:
		x = q.ll.X + pad
	}

	var y float64
	switch p.BaselineLabel {
	case canvas.BaselineMiddle:
		y = q.ul.Y + (q.ll.Y-q.ul.Y)/2
	case canvas.BaselineTop:
		y = q.ul.Y
	default:
		y = q.ll.Y
	}

	c := canvas.Black
	if iv.LabelColor != nil {
		c = *iv.LabelColor
	}
	s.Text(label, x, y, canvas.AlignLeft, p.BaselineLabel, canvas.Fill(c, iv.LabelOpacity))
}

// paintIcon draws iv's icon centred in q, if the painter knows it. It
// reports the icon width, or 0 when nothing was drawn.
func (p *Painter) paintIcon(s canvas.Surface, iv *model.DrawableInterval, q quad, fallback canvas.RGB, alpha float64) float64 {
	if iv.Icon == "" {
		return 0
	}
	icon, ok := p.Icons[iv.Icon]
	if !ok || icon.Paint == nil {
		return 0
	}
	c := fallback
	if icon.Color != nil {
		c = *icon.Color
	}
	icon.Paint(s, q, icon.Width, p.IconFill, canvas.Fill(c, alpha))
	return icon.Width
}

// color returns the explicit colour of iv, else an auto colour keyed by key,
// else the painter colour.
func (p *Painter) color(iv *model.DrawableInterval, key string) canvas.RGB {
	if iv.Color != nil {
		return *iv.Color
	}
	if p.AutoColor {
		return AutoColor(key)
	}
	return p.Color
}

// Palette is the auto-colour wheel. Red is reserved for conflicts.
var Palette = []canvas.RGB{
	{255, 127, 191}, {255, 127, 254}, {191, 127, 255}, {127, 127, 255},
	{127, 191, 255}, {127, 254, 255}, {127, 255, 191}, {127, 255, 127},
	{191, 255, 127}, {254, 255, 127}, {255, 191, 127}, {191, 63, 127},
	{191, 63, 191}, {127, 63, 191}, {63, 63, 191}, {63, 127, 191},
	{63, 191, 191}, {63, 191, 127}, {63, 191, 63}, {127, 191, 63},
	{191, 191, 63}, {191, 127, 63}, {223, 159, 191}, {223, 159, 223},
	{191, 159, 223}, {159, 159, 223}, {159, 191, 223}, {159, 223, 223},
	{159, 223, 191}, {159, 223, 159}, {191, 223, 159}, {223, 223, 159},
	{223, 191, 159},
}

// Auto colours are process wide so a key keeps its colour on every band.
var (
	autoMu     sync.Mutex
	autoColors = map[string]canvas.RGB{}
	autoNext   int
)

// AutoColor assigns palette colours round-robin, once per key. The empty
// key is black.
func AutoColor(key string) canvas.RGB {
	if key == "" {
		return canvas.Black
	}
	autoMu.Lock()
	defer autoMu.Unlock()
	if c, ok := autoColors[key]; ok {
		return c
	}
	c := Palette[autoNext%len(Palette)]
	autoNext++
	autoColors[key] = c
	return c
}

// ResetAutoColors forgets every assignment.
func ResetAutoColors() {
	autoMu.Lock()
	autoColors = map[string]canvas.RGB{}
	autoNext = 0
	autoMu.Unlock()
}

// valueColor picks a palette entry by where v sits in [min, min+span].
func valueColor(v, min, span float64) canvas.RGB {
	if span == 0 {
		return Palette[0]
	}
	i := int(math.Floor((v - min) / span * float64(len(Palette)-1)))
	if i < 0 || i > len(Palette)-1 {
		i = 0
	}
	return Palette[i]
}
