package timeaxis

import (
	"fmt"
	"time"
)

// Unit is a tick spacing measured in seconds.
type Unit int64

const (
	Second     Unit = 1
	TenSecond  Unit = 10
	Minute     Unit = 60
	TenMinute  Unit = 600
	Hour       Unit = 3600
	TwoHour    Unit = 7200
	SixHour    Unit = 21600
	EightHour  Unit = 28800
	TwelveHour Unit = 43200
	Day        Unit = 86400
	TwoDay     Unit = 172800
	ThreeDay   Unit = 259200
	FiveDay    Unit = 432000
	Week       Unit = 604800
	TenDay     Unit = 864000
	FourWeek   Unit = 2419200
	Month      Unit = 2592000
	ThreeMonth Unit = 7776000
	Year       Unit = 31536000
)

// AllUnits is the ascending ladder scanned when choosing a tick unit.
var AllUnits = []Unit{
	Second, TenSecond, Minute, TenMinute, Hour, TwoHour, SixHour, EightHour,
	TwelveHour, Day, TwoDay, ThreeDay, FiveDay, Week, TenDay, FourWeek, Month,
	ThreeMonth, Year,
}

var unitNames = map[Unit]string{
	Second:     "second",
	TenSecond:  "10second",
	Minute:     "minute",
	TenMinute:  "10minute",
	Hour:       "hour",
	TwoHour:    "2hour",
	SixHour:    "6hour",
	EightHour:  "8hour",
	TwelveHour: "12hour",
	Day:        "day",
	TwoDay:     "2day",
	ThreeDay:   "3day",
	FiveDay:    "5day",
	Week:       "week",
	TenDay:     "10day",
	FourWeek:   "4week",
	Month:      "month",
	ThreeMonth: "3month",
	Year:       "year",
}

func (u Unit) String() string {
	if s, ok := unitNames[u]; ok {
		return s
	}
	return fmt.Sprintf("unit(%d)", int64(u))
}

// ParseUnit is the inverse of Unit.String.
func ParseUnit(s string) (Unit, error) {
	for u, name := range unitNames {
		if name == s {
			return u, nil
		}
	}
	return 0, fmt.Errorf("timeaxis: unknown time unit %q", s)
}

// MarshalText and UnmarshalText let units appear by name in YAML and JSON.
func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *Unit) UnmarshalText(b []byte) error {
	v, err := ParseUnit(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// QuantizeUp returns t advanced by quantum steps of unit, with every finer
// calendar field zeroed. All arithmetic is done in UTC. A quantum of 0 only
// aligns t down to the unit boundary.
func QuantizeUp(t int64, quantum int, unit Unit) int64 {
	if unit == Second {
		return t + int64(quantum)
	}

	d := time.Unix(t, 0).UTC()
	y, mo, day := d.Date()
	h, mi, s := d.Clock()

	switch unit {
	case TenSecond:
		s += quantum*10 - s%10
	case Minute:
		mi += quantum
		s = 0
	case TenMinute:
		mi += quantum*10 - mi%10
		s = 0
	case Hour, TwoHour, SixHour, EightHour, TwelveHour:
		n := int(unit / Hour)
		h += quantum*n - h%n
		mi, s = 0, 0
	case Day, TwoDay, ThreeDay, FiveDay, TenDay:
		day += quantum * int(unit/Day)
		h, mi, s = 0, 0, 0
	case Week, FourWeek:
		// Monday aligned.
		day += quantum*int(unit/Day) - (int(d.Weekday())+6)%7
		h, mi, s = 0, 0, 0
	case Month:
		mo += time.Month(quantum)
		h, mi, s = 0, 0, 0
	case ThreeMonth:
		mo += time.Month(quantum*3 - int(mo-1)%3)
		h, mi, s = 0, 0, 0
	case Year:
		y += quantum
		h, mi, s = 0, 0, 0
	default:
		return t + int64(quantum)*int64(unit)
	}
	return time.Date(y, mo, day, h, mi, s, 0, time.UTC).Unix()
}

// ComputeTickTimeUnit returns the smallest unit from units (ascending) whose
// spacing keeps the tick count of duration within maxTicks. A nil units slice
// means AllUnits.
func ComputeTickTimeUnit(duration int64, maxTicks int, units []Unit) Unit {
	if maxTicks < 1 {
		maxTicks = 1
	}
	if units == nil {
		units = AllUnits
	}
	secsPerTick := float64(duration) / float64(maxTicks)
	for _, u := range units {
		if secsPerTick/float64(u) <= 1 {
			return u
		}
	}
	return Year
}

// BestFitTimeUnit buckets a total range duration into the smallest unit that
// covers it.
func BestFitTimeUnit(duration int64) Unit {
	for _, u := range AllUnits[1 : len(AllUnits)-1] {
		if duration <= int64(u) {
			return u
		}
	}
	return Year
}
