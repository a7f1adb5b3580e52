package timeaxis

import (
	"fmt"
	"time"
)

// DefaultTimeLayout renders "2025-03-14 (073) 09:30:00".
const DefaultTimeLayout = "2006-01-02 (002) 15:04:05"

// FormatTime renders a Unix-seconds time in loc using DefaultTimeLayout.
func FormatTime(t int64, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(t, 0).In(loc).Format(DefaultTimeLayout)
}

// FormatDOY renders the UTC day-of-year form "2025-073T09:30:00".
func FormatDOY(t int64) string {
	return time.Unix(t, 0).UTC().Format("2006-002T15:04:05")
}

// FormatHHMM renders the wall-clock hour and minute of t in loc.
func FormatHHMM(t int64, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(t, 0).In(loc).Format("1504")
}

// FormatDHM renders a duration in seconds as "1d 02h 03m", dropping the day
// part when it is zero.
func FormatDHM(d int64) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	days := d / 86400
	hours := (d % 86400) / 3600
	mins := (d % 3600) / 60
	if days > 0 {
		return fmt.Sprintf("%s%dd %02dh %02dm", sign, days, hours, mins)
	}
	return fmt.Sprintf("%s%02dh %02dm", sign, hours, mins)
}

// TimeRangeString renders "start - end (duration)" for tooltips.
func TimeRangeString(start, end int64, loc *time.Location) string {
	return FormatTime(start, loc) + " - " + FormatTime(end, loc) + " (" + FormatDHM(end-start) + ")"
}
