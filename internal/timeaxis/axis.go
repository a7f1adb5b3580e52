package timeaxis

import (
	"errors"
	"math"
	"time"
)

// DefaultMinTickWidth is also the floor applied to Options.MinTickWidth.
const DefaultMinTickWidth = 100

// Options holds the optional TimeAxis settings. Zero values select defaults.
type Options struct {
	// TimeZone is an IANA zone name used for labels and snapping. Default "UTC".
	TimeZone string
	// TickUnits restricts the units considered for ticks. Nil means AllUnits.
	TickUnits []Unit
	// MinTickWidth is the minimum pixel distance between ticks (>= 100).
	MinTickWidth float64
	// MinTickUnits maps a best-fit range bucket to the finest tick unit
	// allowed for it, e.g. {Week: Day} keeps a one-week view at day ticks.
	MinTickUnits map[Unit]Unit
	// Now, when non-nil, is drawn as the "now" marker.
	Now *int64
	// GuideTimes are drawn as vertical guide lines.
	GuideTimes []int64
}

// TimeAxis maps the time range [start, end] onto the pixel range [x1, x2]
// and keeps the tick times for that mapping.
type TimeAxis struct {
	start, end int64
	x1, x2     float64

	timeZone     string
	loc          *time.Location
	tickUnits    []Unit
	minTickWidth float64
	minTickUnits map[Unit]Unit
	now          *int64
	guideTimes   []int64

	tickUnit  Unit
	tickTimes []int64
}

var ErrInvalidRange = errors.New("timeaxis: range must satisfy start < end and x1 < x2")

// New builds an axis and computes its ticks.
func New(start, end int64, x1, x2 float64, opts Options) (*TimeAxis, error) {
	if start >= end || x1 >= x2 {
		return nil, ErrInvalidRange
	}
	a := &TimeAxis{
		start:        start,
		end:          end,
		x1:           x1,
		x2:           x2,
		timeZone:     opts.TimeZone,
		tickUnits:    opts.TickUnits,
		minTickWidth: math.Max(opts.MinTickWidth, DefaultMinTickWidth),
		minTickUnits: opts.MinTickUnits,
		guideTimes:   append([]int64(nil), opts.GuideTimes...),
	}
	if a.timeZone == "" {
		a.timeZone = "UTC"
	}
	a.loc = loadLocation(a.timeZone)
	if opts.Now != nil {
		n := *opts.Now
		a.now = &n
	}
	a.computeTickTimes()
	return a, nil
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Clone returns an independent copy, typically used to derive a view axis
// from the data axis.
func (a *TimeAxis) Clone() *TimeAxis {
	c := *a
	c.tickUnits = append([]Unit(nil), a.tickUnits...)
	c.guideTimes = append([]int64(nil), a.guideTimes...)
	c.tickTimes = append([]int64(nil), a.tickTimes...)
	if a.minTickUnits != nil {
		c.minTickUnits = make(map[Unit]Unit, len(a.minTickUnits))
		for k, v := range a.minTickUnits {
			c.minTickUnits[k] = v
		}
	}
	if a.now != nil {
		n := *a.now
		c.now = &n
	}
	return &c
}

func (a *TimeAxis) Start() int64 { return a.start }
func (a *TimeAxis) End() int64 { return a.end }
func (a *TimeAxis) Duration() int64 { return a.end - a.start }
func (a *TimeAxis) X1() float64 { return a.x1 }
func (a *TimeAxis) X2() float64 { return a.x2 }
func (a *TimeAxis) TimeZone() string { return a.timeZone }
func (a *TimeAxis) Location() *time.Location { return a.loc }
func (a *TimeAxis) TickUnit() Unit { return a.tickUnit }

// TickTimes returns a copy of the current tick times.
func (a *TimeAxis) TickTimes() []int64 {
	return append([]int64(nil), a.tickTimes...)
}

// Now reports the "now" marker time, if any.
func (a *TimeAxis) Now() (int64, bool) {
	if a.now == nil {
		return 0, false
	}
	return *a.now, true
}

func (a *TimeAxis) SetNow(t int64) { a.now = &t }
func (a *TimeAxis) ClearNow() { a.now = nil }

func (a *TimeAxis) GuideTimes() []int64 {
	return append([]int64(nil), a.guideTimes...)
}

func (a *TimeAxis) AddGuideTime(t int64) {
	a.guideTimes = append(a.guideTimes, t)
}

func (a *TimeAxis) ClearGuideTimes() {
	a.guideTimes = nil
}

// UpdateTimes moves the axis to [start, end]. It returns false and leaves the
// axis untouched when start >= end.
func (a *TimeAxis) UpdateTimes(start, end int64) bool {
	if start >= end {
		return false
	}
	a.start, a.end = start, end
	a.computeTickTimes()
	return true
}

// UpdateXCoordinates moves the pixel range to [x1, x2]. It returns false and
// leaves the axis untouched when x1 >= x2.
func (a *TimeAxis) UpdateXCoordinates(x1, x2 float64) bool {
	if x1 >= x2 {
		return false
	}
	a.x1, a.x2 = x1, x2
	a.computeTickTimes()
	return true
}

func (a *TimeAxis) computeTickTimes() {
	timeRange := a.end - a.start
	rangeUnit := BestFitTimeUnit(timeRange)
	maxTicks := int(math.Floor((a.x2-a.x1)/a.minTickWidth)) - 1
	if maxTicks < 1 {
		maxTicks = 1
	}

	a.tickUnit = ComputeTickTimeUnit(timeRange, maxTicks, a.tickUnits)
	if floor, ok := a.minTickUnits[rangeUnit]; ok && floor > a.tickUnit {
		a.tickUnit = floor
	}

	a.tickTimes = a.tickTimes[:0]
	if QuantizeUp(a.start, 0, a.tickUnit) == a.start {
		a.tickTimes = append(a.tickTimes, a.start)
	}
	for t := QuantizeUp(a.start, 1, a.tickUnit); t < a.end; t = QuantizeUp(t, 1, a.tickUnit) {
		a.tickTimes = append(a.tickTimes, t)
	}
}

func (a *TimeAxis) scale() float64 {
	return (a.x2 - a.x1) / float64(a.end-a.start)
}

// XFromTime maps t to a whole pixel, clamped to [x1, x2].
func (a *TimeAxis) XFromTime(t int64) float64 {
	x := math.Floor(float64(t-a.start)*a.scale() + a.x1)
	x = math.Min(math.Max(x, a.x1), a.x2)
	return math.Floor(x + 0.5)
}

// XFromTimeNoClamping maps t to a whole pixel that may fall outside [x1, x2].
func (a *TimeAxis) XFromTimeNoClamping(t int64) float64 {
	x := math.Floor(float64(t-a.start)*a.scale() + a.x1)
	return math.Floor(x + 0.5)
}

// TimeFromX is the inverse of XFromTime, rounded up to the next second.
func (a *TimeAxis) TimeFromX(x float64) int64 {
	return int64(math.Ceil((x-a.x1)/a.scale() + float64(a.start)))
}

// XWidthOfTime returns the pixel width spanned by duration d.
func (a *TimeAxis) XWidthOfTime(d int64) float64 {
	return float64(d) * a.scale()
}

// ZoneOffset returns the offset east of UTC, in seconds, of the axis time
// zone at t.
func (a *TimeAxis) ZoneOffset(t int64) int64 {
	_, off := time.Unix(t, 0).In(a.loc).Zone()
	return int64(off)
}
