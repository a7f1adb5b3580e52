package band

import (
	"strings"
	"testing"
	"time"

	"missiontl/internal/model"
)

func TestClampWindow(t *testing.T) {
	cases := []struct {
		start, end int64
		wantS      int64
		wantE      int64
	}{
		{100, 300, 100, 300},
		{-50, 150, 0, 200},
		{900, 1100, 800, 1000},
		{-10, 2000, 0, 1000},
	}
	for _, tc := range cases {
		s, e := ClampWindow(tc.start, tc.end, 0, 1000)
		if s != tc.wantS || e != tc.wantE {
			t.Errorf("ClampWindow(%d, %d) = %d, %d, want %d, %d", tc.start, tc.end, s, e, tc.wantS, tc.wantE)
		}
	}
}

func TestPanStaysInsideDataAxis(t *testing.T) {
	c := common(t, "acts")
	c.ViewAxis = axis(t, 200, 400, 0, 1000)
	c.ClampPan = true
	b := NewActivity(c, DefaultActivityOptions())
	b.TooltipDelay = 0
	var views [][2]int64
	b.Handlers.UpdateView = func(start, end int64) {
		views = append(views, [2]int64{start, end})
		b.ViewAxis.UpdateTimes(start, end)
	}
	a := NewArena(&fakeClock{}, nil)
	h := a.Add(b)
	a.Repaint(h)

	a.HandlePointer(h, Pointer{Kind: PointerDown, X: 500, Y: 5, PageX: 500, Button: ButtonLeft})
	if !b.Panning() {
		t.Fatal("press did not start a pan")
	}
	a.HandlePointer(h, Pointer{Kind: PointerMove, X: 1000, Y: 5, PageX: 1000})
	a.HandlePointer(h, Pointer{Kind: PointerMove, X: 2000, Y: 5, PageX: 2000})
	a.HandlePointer(h, Pointer{Kind: PointerUp, X: 2000, Y: 5, PageX: 2000, Button: ButtonLeft})

	want := [][2]int64{{100, 300}, {0, 200}}
	if len(views) != len(want) {
		t.Fatalf("views = %v, want %v", views, want)
	}
	for i := range want {
		if views[i] != want[i] {
			t.Fatalf("views = %v, want %v", views, want)
		}
	}
	if b.Panning() {
		t.Fatal("pan still active after release")
	}
}

func TestClicks(t *testing.T) {
	bg := model.New(9, 700, 800, "window")
	bg.SetProperty("text", "line one\nline two")
	b := NewActivity(common(t, "acts", model.New(1, 100, 200, "")), DefaultActivityOptions())
	b.SetBackgroundIntervals([]*model.DrawableInterval{bg}, 0)

	var left, right []ClickEvent
	var dbl []DblClickEvent
	var shown []string
	b.Handlers.LeftClick = func(e ClickEvent) { left = append(left, e) }
	b.Handlers.RightClick = func(e ClickEvent) { right = append(right, e) }
	b.Handlers.DblLeftClick = func(e DblClickEvent) { dbl = append(dbl, e) }
	b.Handlers.ShowTooltip = func(e TooltipEvent) { shown = append(shown, e.HTML) }
	b.Handlers.HideTooltip = func() {}

	a := NewArena(&fakeClock{}, nil)
	h := a.Add(b)
	a.Repaint(h)

	a.HandlePointer(h, Pointer{Kind: PointerDown, X: 150, Y: 20, Button: ButtonLeft})
	if len(left) != 1 || left[0].Interval == nil || left[0].Interval.ID != 1 || left[0].Time != 150 {
		t.Fatalf("left click = %+v", left)
	}

	a.HandlePointer(h, Pointer{Kind: PointerDown, X: 750, Y: 20, Button: ButtonRight})
	if len(right) != 1 || right[0].Interval != bg {
		t.Fatalf("right click should fall back to the background interval: %+v", right)
	}

	a.HandlePointer(h, Pointer{Kind: PointerDblClick, X: 750, Y: 20})
	if len(dbl) != 1 || !dbl[0].Background || !strings.Contains(dbl[0].AnnotationHTML, "line two") {
		t.Fatalf("dblclick = %+v", dbl)
	}
	if len(shown) != 1 || shown[0] != dbl[0].AnnotationHTML {
		t.Fatalf("annotation not shown as tooltip: %v", shown)
	}

	a.HandlePointer(h, Pointer{Kind: PointerDblClick, X: 150, Y: 20})
	if len(dbl) != 2 || dbl[1].Background || dbl[1].Interval == nil || dbl[1].Interval.ID != 1 {
		t.Fatalf("dblclick on interval = %+v", dbl[1])
	}
}

func TestTooltipDelayAndOut(t *testing.T) {
	clock := &fakeClock{}
	b := NewActivity(common(t, "acts", model.New(1, 100, 200, "")), DefaultActivityOptions())
	b.TooltipDelay = 250 * time.Millisecond
	var shown []string
	hidden := 0
	b.Handlers.ShowTooltip = func(e TooltipEvent) { shown = append(shown, e.HTML) }
	b.Handlers.HideTooltip = func() { hidden++ }

	a := NewArena(clock, nil)
	h := a.Add(b)
	a.Repaint(h)

	a.HandlePointer(h, Pointer{Kind: PointerMove, X: 150, Y: 20})
	clock.Advance(100 * time.Millisecond)
	if len(shown) != 0 {
		t.Fatal("tooltip shown before the delay")
	}
	clock.Advance(200 * time.Millisecond)
	if len(shown) != 1 || !strings.Contains(shown[0], "Interval") {
		t.Fatalf("tooltip = %v", shown)
	}

	a.HandlePointer(h, Pointer{Kind: PointerMove, X: 150, Y: 20})
	a.HandlePointer(h, Pointer{Kind: PointerOut})
	clock.Advance(time.Second)
	if len(shown) != 1 {
		t.Fatal("out did not cancel the pending tooltip")
	}
	if hidden < 2 {
		t.Fatalf("hide called %d times, want at least 2", hidden)
	}
}

func TestForegroundTooltipTopmostFirst(t *testing.T) {
	lower := model.New(1, 0, 500, "")
	lower.OnGetTooltipText = func(*model.DrawableInterval, model.TooltipInfo) string { return "lower" }
	upper := model.New(2, 0, 500, "")
	upper.OnGetTooltipText = func(*model.DrawableInterval, model.TooltipInfo) string { return "upper" }

	b := NewActivity(common(t, "acts"), DefaultActivityOptions())
	b.SetForegroundIntervals([]*model.DrawableInterval{lower, upper}, 0)
	a := NewArena(&fakeClock{}, nil)
	h := a.Add(b)

	html, ok := a.TooltipHTML(h, 100, 5)
	if !ok || html != "upper"+tooltipSeparator+"lower" {
		t.Fatalf("tooltip = %q", html)
	}
}
