package model

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSortEarlyStartEarlyEnd(t *testing.T) {
	list := []*DrawableInterval{
		New(1, 10, 30, "c"),
		New(2, 5, 40, "a"),
		New(3, 10, 20, "b"),
		New(4, 10, 20, "b2"),
	}
	SortEarlyStartEarlyEnd(list)

	want := []int64{2, 3, 4, 1}
	for i, id := range want {
		if list[i].ID != id {
			t.Fatalf("position %d: id %d, want %d", i, list[i].ID, id)
		}
	}
}

func TestNormalize(t *testing.T) {
	ls, ee := int64(50), int64(5)
	iv := &DrawableInterval{ID: 1, Start: 10, End: 40, LatestStart: &ls, EarliestEnd: &ee}
	if err := iv.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if iv.Opacity != 1 || iv.LabelOpacity != 1 {
		t.Fatalf("opacities = %v/%v", iv.Opacity, iv.LabelOpacity)
	}
	if iv.LatestStart != nil || iv.EarliestEnd != nil {
		t.Fatal("out-of-range uncertainty markers kept")
	}

	bad := &DrawableInterval{ID: 2, Start: 10, End: 5}
	if err := bad.Normalize(); !errors.Is(err, ErrInvertedInterval) {
		t.Fatalf("Normalize(inverted) = %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	ls := int64(12)
	iv := New(1, 10, 20, "x")
	iv.LatestStart = &ls
	iv.SetProperty("owner", "ops")

	c := iv.Clone()
	*c.LatestStart = 15
	c.SetProperty("owner", "eng")

	if *iv.LatestStart != 12 {
		t.Fatal("clone shares LatestStart")
	}
	if v, _ := iv.Property("owner"); v != "ops" {
		t.Fatalf("clone shares properties: %q", v)
	}
}

func TestNextLocalIDIsNegativeAndDecrements(t *testing.T) {
	a := NextLocalID()
	b := NextLocalID()
	if a >= 0 || b >= a {
		t.Fatalf("ids %d, %d", a, b)
	}
}

func TestDefaultTooltip(t *testing.T) {
	iv := New(1, 0, 3600, "x")
	iv.SetProperty("Owner", "<ops>")
	html := iv.TooltipText(TooltipInfo{Location: time.UTC})

	if !strings.Contains(html, "<b>Interval:</b>") {
		t.Fatalf("missing interval row: %s", html)
	}
	if !strings.Contains(html, "1970-01-01 (001) 00:00:00 - 1970-01-01 (001) 01:00:00 (01h 00m)") {
		t.Fatalf("unexpected range: %s", html)
	}
	if !strings.Contains(html, "&lt;ops&gt;") {
		t.Fatalf("property not escaped: %s", html)
	}
}

func TestCustomTooltip(t *testing.T) {
	iv := New(1, 0, 10, "x")
	iv.OnGetTooltipText = func(iv *DrawableInterval, info TooltipInfo) string { return "custom" }
	if got := iv.TooltipText(TooltipInfo{}); got != "custom" {
		t.Fatalf("TooltipText = %q", got)
	}
}

func TestInterpolatedTooltip(t *testing.T) {
	iv := New(-1, 0, 100, "")
	iv.StartValue, iv.EndValue = 0, 10
	html := InterpolatedTooltip(iv, TooltipInfo{Time: 50, Location: time.UTC, MinLimit: 0, MaxLimit: 20, HasLimits: true})
	if !strings.Contains(html, "5 (25%)") {
		t.Fatalf("value row missing: %s", html)
	}
}

func TestInterpolateY(t *testing.T) {
	if got := InterpolateY(0, 0, 10, 100, 5); got != 50 {
		t.Fatalf("InterpolateY = %v", got)
	}
	if got := InterpolateY(3, 7, 3, 9, 3); got != 7 {
		t.Fatalf("vertical InterpolateY = %v", got)
	}
}

func TestAnnotationHTML(t *testing.T) {
	iv := New(1, 0, 10, "Pass")
	iv.SetProperty("text", "AOS 10:00\nLOS 10:12")
	if got := AnnotationHTML(iv); got != "<b>Pass</b><br/>AOS 10:00<br/>LOS 10:12" {
		t.Fatalf("AnnotationHTML = %q", got)
	}
}
