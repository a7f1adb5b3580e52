// Package resource folds weighted reservations into a piecewise-constant
// resource profile and answers conflict and average queries over it.
package resource

import (
	"cmp"
	"math"
	"slices"
)

// Reservation adds Value to the resource over [Start, End).
type Reservation struct {
	Start int64   `json:"start" yaml:"start"`
	End   int64   `json:"end" yaml:"end"`
	Value float64 `json:"value" yaml:"value"`
}

// Unit is a maximal run of constant aggregate value.
type Unit struct {
	Start int64   `json:"start"`
	End   int64   `json:"end"`
	Value float64 `json:"value"`
}

// TimeLine is the resource profile over the window [Start, End].
type TimeLine struct {
	Start, End         int64
	MinLimit, MaxLimit float64
	DefaultValue       float64
	Properties         map[string]string

	minValue, maxValue float64
	avg                float64
	reservations       []Reservation
	units              []Unit
}

// Options configures a TimeLine. DefaultValue falls back to MinLimit when
// HasDefault is false.
type Options struct {
	MinLimit, MaxLimit float64
	DefaultValue       float64
	HasDefault         bool
	Properties         map[string]string
}

func New(start, end int64, opts Options) *TimeLine {
	def := opts.MinLimit
	if opts.HasDefault {
		def = opts.DefaultValue
	}
	return &TimeLine{
		Start:        start,
		End:          end,
		MinLimit:     opts.MinLimit,
		MaxLimit:     opts.MaxLimit,
		DefaultValue: def,
		Properties:   opts.Properties,
		minValue:     def,
		maxValue:     def,
	}
}

func (tl *TimeLine) Clone() *TimeLine {
	c := *tl
	c.reservations = slices.Clone(tl.reservations)
	c.units = slices.Clone(tl.units)
	return &c
}

func (tl *TimeLine) Clear() {
	tl.minValue = tl.DefaultValue
	tl.maxValue = tl.DefaultValue
	tl.avg = 0
	tl.reservations = nil
	tl.units = nil
}

func (tl *TimeLine) Reservations() []Reservation { return slices.Clone(tl.reservations) }
func (tl *TimeLine) Units() []Unit { return slices.Clone(tl.units) }
func (tl *TimeLine) MinValue() float64 { return tl.minValue }
func (tl *TimeLine) MaxValue() float64 { return tl.maxValue }

func (tl *TimeLine) AddReservation(r Reservation) {
	tl.reservations = append(tl.reservations, r)
	tl.ComputeUnits()
}

func (tl *TimeLine) AddReservations(rs []Reservation) {
	tl.reservations = append(tl.reservations, rs...)
	tl.ComputeUnits()
}

// RemoveReservation removes the first reservation equal to r and reports
// whether one was found.
func (tl *TimeLine) RemoveReservation(r Reservation) bool {
	i := slices.Index(tl.reservations, r)
	if i < 0 {
		return false
	}
	tl.reservations = slices.Delete(tl.reservations, i, i+1)
	tl.ComputeUnits()
	return true
}

// RemoveReservations removes one stored reservation per entry of rs and
// returns how many were removed.
func (tl *TimeLine) RemoveReservations(rs []Reservation) int {
	pending := slices.Clone(rs)
	kept := tl.reservations[:0:0]
	for _, other := range tl.reservations {
		if i := slices.Index(pending, other); i >= 0 {
			pending = slices.Delete(pending, i, i+1)
			continue
		}
		kept = append(kept, other)
	}
	removed := len(tl.reservations) - len(kept)
	if removed > 0 {
		tl.reservations = kept
		tl.ComputeUnits()
	}
	return removed
}

// ComputeUnits rebuilds the unit partition with an event sweep over the
// distinct boundary times of the sorted reservations.
func (tl *TimeLine) ComputeUnits() {
	tl.units = tl.units[:0]
	tl.minValue = tl.DefaultValue
	tl.maxValue = tl.DefaultValue
	tl.avg = 0

	slices.SortStableFunc(tl.reservations, func(a, b Reservation) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})

	deltas := make(map[int64]float64, 2*len(tl.reservations))
	times := make([]int64, 0, 2*len(tl.reservations))
	for _, r := range tl.reservations {
		if _, ok := deltas[r.Start]; !ok {
			times = append(times, r.Start)
		}
		deltas[r.Start] += r.Value
		if _, ok := deltas[r.End]; !ok {
			times = append(times, r.End)
		}
		deltas[r.End] -= r.Value
	}
	slices.Sort(times)

	duration := float64(tl.End - tl.Start)
	value := tl.DefaultValue
	for i, t := range times {
		if i > 0 {
			u := Unit{Start: times[i-1], End: t, Value: value}
			tl.units = append(tl.units, u)

			if d := overlap(u, tl.Start, tl.End); d > 0 {
				if duration > 0 {
					tl.avg += float64(d) * value / duration
				}
				tl.maxValue = math.Max(value, tl.maxValue)
				tl.minValue = math.Min(value, tl.minValue)
			}
		}
		value += deltas[t]
	}
}

func overlap(u Unit, start, end int64) int64 {
	return min(u.End, end) - max(u.Start, start)
}

// Average is the time-weighted mean value over [Start, End].
func (tl *TimeLine) Average() float64 {
	return tl.avg
}

// NormalizedAverage is Average divided by MaxLimit, or 0 without a
// MaxLimit.
func (tl *TimeLine) NormalizedAverage() float64 {
	return tl.normalize(tl.avg)
}

// AverageInTimeRange is the time-weighted mean value over [start, end].
func (tl *TimeLine) AverageInTimeRange(start, end int64) float64 {
	duration := float64(end - start)
	if duration <= 0 {
		return 0
	}
	avg := 0.0
	for _, u := range tl.units {
		if u.Start > end {
			break
		}
		if d := overlap(u, start, end); d > 0 {
			avg += float64(d) * u.Value / duration
		}
	}
	return avg
}

func (tl *TimeLine) NormalizedAverageInTimeRange(start, end int64) float64 {
	return tl.normalize(tl.AverageInTimeRange(start, end))
}

func (tl *TimeLine) normalize(v float64) float64 {
	if tl.MaxLimit == 0 {
		return 0
	}
	return v / tl.MaxLimit
}

func (tl *TimeLine) inConflict(v float64) bool {
	return v < tl.MinLimit || v > tl.MaxLimit
}

// HasConflict reports whether any unit inside [Start, End] leaves the limits.
func (tl *TimeLine) HasConflict() bool {
	return tl.inConflict(tl.minValue) || tl.inConflict(tl.maxValue)
}

func (tl *TimeLine) HasConflictInTimeRange(start, end int64) bool {
	for _, u := range tl.units {
		if u.Start <= end && u.End >= start && tl.inConflict(u.Value) {
			return true
		}
	}
	return false
}

func (tl *TimeLine) FindConflictingUnitsInTimeRange(start, end int64) []Unit {
	var out []Unit
	for _, u := range tl.units {
		if u.Start <= end && u.End >= start && tl.inConflict(u.Value) {
			out = append(out, u)
		}
	}
	return out
}

// DurationInConflict sums the conflicting time inside [Start, End].
func (tl *TimeLine) DurationInConflict() int64 {
	var total int64
	for _, u := range tl.units {
		if u.Start <= tl.End && u.End >= tl.Start && tl.inConflict(u.Value) {
			total += overlap(u, tl.Start, tl.End)
		}
	}
	return total
}

// ValueAt returns the value of the unit containing t, or DefaultValue.
func (tl *TimeLine) ValueAt(t int64) float64 {
	for _, u := range tl.units {
		if t >= u.Start && t < u.End {
			return u.Value
		}
	}
	return tl.DefaultValue
}
