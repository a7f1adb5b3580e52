package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const feed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:pass@test\r\n" +
	"DTSTART:20240101T100000Z\r\n" +
	"DTEND:20240101T110000Z\r\n" +
	"SUMMARY:Ground pass\r\n" +
	"LOCATION:Svalbard\r\n" +
	"RRULE:FREQ=DAILY;COUNT=5\r\n" +
	"EXDATE:20240103T100000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:pass@test\r\n" +
	"RECURRENCE-ID:20240104T100000Z\r\n" +
	"DTSTART:20240104T120000Z\r\n" +
	"DTEND:20240104T130000Z\r\n" +
	"SUMMARY:Ground pass (moved)\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:burn@test\r\n" +
	"DTSTART:20240102T000000Z\r\n" +
	"DTEND:20240102T003000Z\r\n" +
	"SUMMARY:Burn\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseAndExpand(t *testing.T) {
	src := Source{ID: "passes"}
	events, err := Parse(src, []byte(feed))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}

	w := Window{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)}
	res, err := Expand(events, w)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	// 5 daily passes minus one EXDATE, plus the burn.
	if len(res.Intervals) != 5 {
		t.Fatalf("intervals = %d, want 5", len(res.Intervals))
	}
	var moved, located bool
	for _, iv := range res.Intervals {
		if iv.Start == time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC).Unix() {
			t.Fatal("excluded occurrence expanded")
		}
		if iv.Label == "Ground pass (moved)" && iv.Start == time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC).Unix() {
			moved = true
		}
		if v, ok := iv.Property("location"); ok && v == "Svalbard" {
			located = true
		}
		if iv.Source != "passes" || iv.ID < 0 {
			t.Fatalf("interval %+v", iv)
		}
	}
	if !moved || !located {
		t.Fatalf("override applied=%v location kept=%v", moved, located)
	}

	again, _ := Expand(events, w)
	if again.Intervals[0].ID != res.Intervals[0].ID {
		t.Fatal("interval ids are not stable")
	}
}

func TestExpandCap(t *testing.T) {
	events, _ := Parse(Source{ID: "x"}, []byte(feed))
	w := Window{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), MaxOccurrences: 2}
	res, _ := Expand(events, w)
	if len(res.Truncated) != 1 || res.Truncated[0] != "pass@test" {
		t.Fatalf("truncated = %v", res.Truncated)
	}
}

func TestFetcherRevalidatesAndFallsBack(t *testing.T) {
	var hits, notModified atomic.Int32
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if down.Load() {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	src := Source{ID: "passes", URL: srv.URL + "/secret.ics?token=abc"}
	ctx := context.Background()

	first, err := f.Fetch(ctx, src)
	if err != nil || first.FromCache || !strings.Contains(string(first.Body), "Ground pass") {
		t.Fatalf("first fetch = %+v, %v", first.FromCache, err)
	}
	second, err := f.Fetch(ctx, src)
	if err != nil || !second.FromCache || notModified.Load() != 1 {
		t.Fatalf("second fetch cache=%v err=%v 304s=%d", second.FromCache, err, notModified.Load())
	}
	down.Store(true)
	third, err := f.Fetch(ctx, src)
	if err != nil || !third.FromCache {
		t.Fatalf("fallback fetch cache=%v err=%v", third.FromCache, err)
	}
	if hits.Load() != 3 {
		t.Fatalf("hits = %d", hits.Load())
	}
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://cal.example.com/private/abc.ics?token=1"); got != "https://cal.example.com/...(redacted)" {
		t.Fatalf("redactURL = %q", got)
	}
	if got := redactURL("not a url"); got != "ics://...(redacted)" {
		t.Fatalf("redactURL = %q", got)
	}
}
