package canvas

// OpKind names a recorded drawing primitive.
type OpKind string

const (
	OpFillRect   OpKind = "fill_rect"
	OpStrokeRect OpKind = "stroke_rect"
	OpLine       OpKind = "line"
	OpPolygon    OpKind = "polygon"
	OpCircle     OpKind = "circle"
	OpText       OpKind = "text"
)

// Op is one recorded primitive. Fields not used by Kind are zero.
type Op struct {
	Kind     OpKind   `json:"kind"`
	X        float64  `json:"x,omitempty"`
	Y        float64  `json:"y,omitempty"`
	W        float64  `json:"w,omitempty"`
	H        float64  `json:"h,omitempty"`
	X2       float64  `json:"x2,omitempty"`
	Y2       float64  `json:"y2,omitempty"`
	Points   []Point  `json:"points,omitempty"`
	Fill     bool     `json:"fill,omitempty"`
	Text     string   `json:"text,omitempty"`
	Align    Align    `json:"align,omitempty"`
	Baseline Baseline `json:"baseline,omitempty"`
	Style    Style    `json:"style"`
}

// Recorder is a retained-mode Surface. It is the backing surface each band
// owns; Replay draws its contents onto another surface.
type Recorder struct {
	w, h float64
	ops  []Op
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Clear(w, h float64) {
	r.w, r.h = w, h
	r.ops = r.ops[:0]
}

func (r *Recorder) Size() (float64, float64) { return r.w, r.h }

// Ops returns the recorded primitives. The slice must not be modified.
func (r *Recorder) Ops() []Op { return r.ops }

func (r *Recorder) FillRect(x, y, w, h float64, s Style) {
	r.ops = append(r.ops, Op{Kind: OpFillRect, X: x, Y: y, W: w, H: h, Style: s})
}

func (r *Recorder) StrokeRect(x, y, w, h float64, s Style) {
	r.ops = append(r.ops, Op{Kind: OpStrokeRect, X: x, Y: y, W: w, H: h, Style: s})
}

func (r *Recorder) Line(x1, y1, x2, y2 float64, s Style) {
	r.ops = append(r.ops, Op{Kind: OpLine, X: x1, Y: y1, X2: x2, Y2: y2, Style: s})
}

func (r *Recorder) Polygon(pts []Point, fill bool, s Style) {
	r.ops = append(r.ops, Op{Kind: OpPolygon, Points: append([]Point(nil), pts...), Fill: fill, Style: s})
}

func (r *Recorder) Circle(cx, cy, rad float64, fill bool, s Style) {
	r.ops = append(r.ops, Op{Kind: OpCircle, X: cx, Y: cy, W: rad, Fill: fill, Style: s})
}

func (r *Recorder) Text(text string, x, y float64, align Align, baseline Baseline, s Style) {
	r.ops = append(r.ops, Op{Kind: OpText, X: x, Y: y, Text: text, Align: align, Baseline: baseline, Style: s})
}

func (r *Recorder) MeasureText(text string) float64 {
	return MeasureText(text)
}

// Release drops the recorded operations and their memory.
func (r *Recorder) Release() {
	r.ops = nil
	r.w, r.h = 0, 0
}

// Replay draws every recorded primitive onto dst, translated by (dx, dy).
func (r *Recorder) Replay(dst Surface, dx, dy float64) {
	for _, op := range r.ops {
		switch op.Kind {
		case OpFillRect:
			dst.FillRect(op.X+dx, op.Y+dy, op.W, op.H, op.Style)
		case OpStrokeRect:
			dst.StrokeRect(op.X+dx, op.Y+dy, op.W, op.H, op.Style)
		case OpLine:
			dst.Line(op.X+dx, op.Y+dy, op.X2+dx, op.Y2+dy, op.Style)
		case OpPolygon:
			pts := make([]Point, len(op.Points))
			for i, p := range op.Points {
				pts[i] = Point{X: p.X + dx, Y: p.Y + dy}
			}
			dst.Polygon(pts, op.Fill, op.Style)
		case OpCircle:
			dst.Circle(op.X+dx, op.Y+dy, op.W, op.Fill, op.Style)
		case OpText:
			dst.Text(op.Text, op.X+dx, op.Y+dy, op.Align, op.Baseline, op.Style)
		}
	}
}
