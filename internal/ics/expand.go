package ics

import (
	"errors"
	"hash/fnv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "missiontl/internal/log"
	"missiontl/internal/model"
)

const defaultMaxOccurrences = 5000

// Window is the range occurrences are expanded over.
type Window struct {
	Start, End time.Time
	// MaxOccurrences caps each recurring event. Zero means 5000.
	MaxOccurrences int
}

// Expansion is the expanded interval list plus the UIDs that hit the cap.
type Expansion struct {
	Intervals []*model.DrawableInterval
	Truncated []string
}

// Expand turns events into one interval per occurrence overlapping w.
// RRULE recurrences honour EXDATE, and RECURRENCE-ID overrides replace the
// instance they name.
func Expand(events []Event, w Window) (Expansion, error) {
	var res Expansion
	if !w.End.After(w.Start) {
		return res, errors.New("ics: expand window is empty")
	}
	if w.MaxOccurrences <= 0 {
		w.MaxOccurrences = defaultMaxOccurrences
	}

	base := map[string][]Event{}
	overrides := map[string][]Event{}
	var order []string
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, ok := base[ev.UID]; !ok {
			order = append(order, ev.UID)
		}
		base[ev.UID] = append(base[ev.UID], ev)
	}

	for _, uid := range order {
		for _, ev := range base[uid] {
			ivs, capped := expandEvent(ev, overrides[uid], w)
			res.Intervals = append(res.Intervals, ivs...)
			if capped {
				res.Truncated = append(res.Truncated, uid)
				appLog.Info("ics occurrences truncated", "uid", uid, "cap", w.MaxOccurrences)
			}
		}
	}
	model.SortEarlyStartEarlyEnd(res.Intervals)
	return res, nil
}

func expandEvent(ev Event, overrides []Event, w Window) ([]*model.DrawableInterval, bool) {
	if ev.RRule == "" {
		start, end, src := ev.Start, ev.End, ev
		if o, ok := findOverride(overrides, start); ok {
			start, end, src = o.Start, o.End, o
		}
		if !overlaps(start, end, w) {
			return nil, false
		}
		return []*model.DrawableInterval{toInterval(src, start, end)}, false
	}

	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		appLog.Error("ics rrule parse failed", err, "uid", ev.UID, "rrule", ev.RRule)
		return nil, false
	}
	r.DTStart(ev.Start)
	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Occurrences starting before the window can still reach into it.
	dur := ev.End.Sub(ev.Start)
	loc := ev.Start.Location()
	times := set.Between(w.Start.Add(-dur).In(loc), w.End.In(loc), true)
	capped := len(times) > w.MaxOccurrences
	if capped {
		times = times[:w.MaxOccurrences]
	}

	out := make([]*model.DrawableInterval, 0, len(times))
	for _, t := range times {
		start, end := t, t.Add(dur)
		if ev.AllDay {
			start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
			end = start.AddDate(0, 0, max(1, int(dur/(24*time.Hour))))
		}
		src := ev
		if o, ok := findOverride(overrides, start); ok {
			start, end, src = o.Start, o.End, o
		}
		if overlaps(start, end, w) {
			out = append(out, toInterval(src, start, end))
		}
	}
	return out, capped
}

func findOverride(overrides []Event, start time.Time) (Event, bool) {
	for _, o := range overrides {
		if o.RecurrenceID.Equal(start) {
			return o, true
		}
	}
	return Event{}, false
}

func overlaps(start, end time.Time, w Window) bool {
	return start.Before(w.End) && end.After(w.Start)
}

// toInterval builds the interval of one occurrence. Its ID hashes the
// source, UID and start so it is stable across reloads.
func toInterval(ev Event, start, end time.Time) *model.DrawableInterval {
	h := fnv.New64a()
	h.Write([]byte(ev.Source.ID + "\x00" + ev.UID + "\x00" + start.UTC().Format(time.RFC3339)))
	id := int64(h.Sum64() >> 1)

	iv := model.New(id, start.Unix(), end.Unix(), ev.Summary)
	iv.Source = ev.Source.ID
	iv.Color = ev.Color
	iv.SetProperty("uid", ev.UID)
	if ev.Location != "" {
		iv.SetProperty("location", ev.Location)
	}
	if ev.Description != "" {
		iv.SetProperty("description", ev.Description)
	}
	if ev.Status != "" {
		iv.SetProperty("status", ev.Status)
	}
	if len(ev.Categories) > 0 {
		iv.SetProperty("categories", strings.Join(ev.Categories, ", "))
	}
	if ev.AllDay {
		iv.SetProperty("all_day", "true")
	}
	return iv
}
