package model

import (
	"fmt"
	"html"
	"math"
	"strings"

	"missiontl/internal/timeaxis"
)

func escape(s string) string { return html.EscapeString(s) }

func row(b *strings.Builder, name, value string) {
	b.WriteString("<tr><td class='tooltiptablecell'><b>")
	b.WriteString(escape(name))
	b.WriteString(":</b></td><td class='tooltiptablecell'>")
	b.WriteString(escape(value))
	b.WriteString("</td></tr>")
}

// DefaultTooltip renders the time range and every property as a table.
func DefaultTooltip(iv *DrawableInterval, info TooltipInfo) string {
	var b strings.Builder
	b.WriteString("<table class='tooltiptable'>")
	row(&b, "Interval", timeaxis.TimeRangeString(iv.Start, iv.End, info.Location))
	for _, p := range iv.Properties {
		row(&b, p.Name, p.Value)
	}
	b.WriteString("</table>")
	return b.String()
}

// InterpolatedTooltip renders a synthesized filler interval: its range, its
// start and end values and the value at the pointer, each with a percentage
// of the band limits.
func InterpolatedTooltip(iv *DrawableInterval, info TooltipInfo) string {
	pct := func(v float64) string {
		if !info.HasLimits {
			return FormatValue(v)
		}
		return fmt.Sprintf("%s (%d%%)", FormatValue(v), Percent(v, info.MinLimit, info.MaxLimit))
	}
	var b strings.Builder
	b.WriteString("<table class='tooltiptable'>")
	row(&b, "Interval", timeaxis.TimeRangeString(iv.Start, iv.End, info.Location))
	row(&b, "Start Value", pct(iv.StartValue))
	row(&b, "End Value", pct(iv.EndValue))
	row(&b, "Value", pct(InterpolateY(iv.Start, iv.StartValue, iv.End, iv.EndValue, info.Time)))
	for _, p := range iv.Properties {
		row(&b, p.Name, p.Value)
	}
	b.WriteString("</table>")
	return b.String()
}

// InterpolateY returns the value at x3 on the line through (x1, y1) and
// (x2, y2). A vertical segment yields y1.
func InterpolateY(x1 int64, y1 float64, x2 int64, y2 float64, x3 int64) float64 {
	if x1 == x2 {
		return y1
	}
	return y2 - float64(x2-x3)*((y2-y1)/float64(x2-x1))
}

// Percent is the rounded position of v within [lo, hi], in percent.
func Percent(v, lo, hi float64) int {
	if hi == lo {
		return 0
	}
	return int(math.Round(100 * (v - lo) / (hi - lo)))
}

// FormatValue prints a value without trailing zeros.
func FormatValue(v float64) string {
	return fmt.Sprintf("%g", v)
}
