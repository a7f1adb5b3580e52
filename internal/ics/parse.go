package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"missiontl/internal/canvas"
	appLog "missiontl/internal/log"
)

// Event is a VEVENT before recurrence expansion.
type Event struct {
	Source Source

	UID string
	Seq int

	Summary     string
	Description string
	Location    string
	Status      string
	Categories  []string
	// Color is the RFC 7986 COLOR property when it parses as #rrggbb.
	Color *canvas.RGB

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule   string
	ExDates []time.Time
	// RecurrenceID marks an override of one recurring instance.
	RecurrenceID *time.Time
}

// Parse reads every VEVENT in body. Events that fail to parse are logged
// and skipped.
func Parse(src Source, body []byte) ([]Event, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(src, ve)
		if err != nil {
			appLog.Error("ics vevent skipped", err, "id", src.ID)
			continue
		}
		out = append(out, ev)
	}
	appLog.Debug("ics parsed", "id", src.ID, "events", len(out))
	return out, nil
}

func prop(ve *ical.VEvent, p ical.ComponentProperty) string {
	if v := ve.GetProperty(p); v != nil {
		return v.Value
	}
	return ""
}

func parseVEvent(src Source, ve *ical.VEvent) (Event, error) {
	ev := Event{Source: src}
	ev.UID = prop(ve, ical.ComponentPropertyUniqueId)
	if ev.UID == "" {
		return ev, errors.New("missing UID")
	}
	if n, err := strconv.Atoi(strings.TrimSpace(prop(ve, ical.ComponentPropertySequence))); err == nil {
		ev.Seq = n
	}
	ev.Summary = prop(ve, ical.ComponentPropertySummary)
	ev.Description = prop(ve, ical.ComponentPropertyDescription)
	ev.Location = prop(ve, ical.ComponentPropertyLocation)
	ev.Status = prop(ve, ical.ComponentProperty("STATUS"))
	if cats := prop(ve, ical.ComponentProperty("CATEGORIES")); cats != "" {
		for _, c := range strings.Split(cats, ",") {
			if c = strings.TrimSpace(c); c != "" {
				ev.Categories = append(ev.Categories, c)
			}
		}
	}
	if c, err := canvas.ParseRGB(prop(ve, ical.ComponentProperty("COLOR"))); err == nil {
		ev.Color = &c
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return ev, err
	}
	ev.Start = start
	if end, err := ve.GetEndAt(); err == nil {
		ev.End = end
	} else {
		ev.End = start
	}

	if dt := ve.GetProperty(ical.ComponentPropertyDtStart); dt != nil {
		if vs := dt.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			ev.AllDay = true
		}
		if !strings.Contains(dt.Value, "T") {
			ev.AllDay = true
		}
	}
	if ev.AllDay && !ev.End.After(ev.Start) {
		ev.End = ev.Start.Add(24 * time.Hour)
	}

	ev.RRule = prop(ve, ical.ComponentPropertyRrule)
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseTime(part, start.Location()); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}
	if rid := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); rid != nil {
		if t, err := parseTime(rid.Value, start.Location()); err == nil {
			ev.RecurrenceID = &t
		}
	}
	return ev, nil
}

// parseTime reads the basic DATE and DATE-TIME forms of EXDATE and
// RECURRENCE-ID. Floating times are taken in loc.
func parseTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
