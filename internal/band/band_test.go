package band

import (
	"testing"
	"time"

	"missiontl/internal/canvas"
	"missiontl/internal/model"
	"missiontl/internal/timeaxis"
)

func axis(t *testing.T, start, end int64, x1, x2 float64) *timeaxis.TimeAxis {
	t.Helper()
	a, err := timeaxis.New(start, end, x1, x2, timeaxis.Options{})
	if err != nil {
		t.Fatalf("timeaxis.New: %v", err)
	}
	return a
}

// common returns band settings over a 0..1000s data axis drawn on 0..1000px.
func common(t *testing.T, id string, ivs ...*model.DrawableInterval) Common {
	t.Helper()
	data := axis(t, 0, 1000, 0, 1000)
	return Common{ID: id, TimeAxis: data, ViewAxis: data.Clone(), Intervals: ivs}
}

// fakeClock fires timers only when Advance passes their deadline.
type fakeClock struct {
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now += d
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			t.f()
		}
	}
}

func TestSetIntervalsSortsCopy(t *testing.T) {
	list := []*model.DrawableInterval{
		model.New(1, 300, 400, "c"),
		model.New(2, 100, 200, "a"),
		model.New(3, 100, 150, "b"),
	}
	b := NewActivity(common(t, "acts"), DefaultActivityOptions())
	b.SetIntervals(list, 0)

	got := b.Intervals(0)
	want := []int64{3, 2, 1}
	for i, iv := range got {
		if iv.ID != want[i] {
			t.Fatalf("order = %v, want %v", ids(got), want)
		}
	}
	if list[0].ID != 1 {
		t.Fatal("SetIntervals reordered the caller's slice")
	}
}

func ids(ivs []*model.DrawableInterval) []int64 {
	out := make([]int64, len(ivs))
	for i, iv := range ivs {
		out[i] = iv.ID
	}
	return out
}

func TestRemoveInterval(t *testing.T) {
	b := NewActivity(common(t, "acts",
		model.New(1, 0, 10, ""),
		model.New(2, 20, 30, ""),
		model.New(3, 40, 50, ""),
	), DefaultActivityOptions())

	if got := b.RemoveInterval(2); got == nil || got.ID != 2 {
		t.Fatalf("RemoveInterval(2) = %v", got)
	}
	if b.RemoveInterval(2) != nil {
		t.Fatal("second RemoveInterval(2) found something")
	}
	removed := b.RemoveIntervals([]int64{1, 3, 99})
	if len(removed) != 2 || len(b.Intervals(0)) != 0 {
		t.Fatalf("RemoveIntervals removed %v, left %v", ids(removed), ids(b.Intervals(0)))
	}
}

func TestIntervalsInTimeRange(t *testing.T) {
	b := NewActivity(common(t, "acts",
		model.New(1, 0, 10, ""),
		model.New(2, 20, 30, ""),
		model.New(3, 40, 50, ""),
	), DefaultActivityOptions())
	got := b.IntervalsInTimeRange(10, 39)
	if len(got) != 1 || len(got[0]) != 2 || got[0][0].ID != 1 || got[0][1].ID != 2 {
		t.Fatalf("IntervalsInTimeRange(10, 39) = %v", got)
	}
}

func TestSurfaceHeightIsClamped(t *testing.T) {
	c := common(t, "tall")
	c.Height = canvas.MaxHeight + 500
	b := NewActivity(c, DefaultActivityOptions())
	if got := b.SurfaceHeight(); got != canvas.MaxHeight {
		t.Fatalf("SurfaceHeight = %v, want %v", got, canvas.MaxHeight)
	}
}

func TestArenaChildren(t *testing.T) {
	a := NewArena(&fakeClock{}, nil)
	root := a.Add(NewActivity(common(t, "root"), DefaultActivityOptions()))
	mid := a.Add(NewActivity(common(t, "mid"), DefaultActivityOptions()))
	leaf := a.Add(NewActivity(common(t, "leaf"), DefaultActivityOptions()))

	if !a.AddChild(root, mid) || !a.AddChild(mid, leaf) {
		t.Fatal("AddChild refused a valid child")
	}
	if a.AddChild(leaf, root) {
		t.Fatal("AddChild accepted a cycle")
	}
	if a.AddChild(root, root) {
		t.Fatal("AddChild accepted self-parenting")
	}
	if got := a.Level(leaf); got != 2 {
		t.Fatalf("Level(leaf) = %d, want 2", got)
	}
	if len(a.Roots()) != 1 {
		t.Fatalf("Roots = %d, want 1", len(a.Roots()))
	}

	if !a.IsExpanded(root) {
		t.Fatal("new children should be visible")
	}
	a.HideChildren(root)
	if a.IsExpanded(root) || a.Get(mid).Visible() {
		t.Fatal("HideChildren left a child visible")
	}
	a.ToggleChildren(root)
	if !a.IsExpanded(root) {
		t.Fatal("ToggleChildren did not show the hidden child")
	}

	// Mismatched parent is a no-op.
	a.RemoveChild(root, leaf)
	if a.Get(leaf).Parent() != mid {
		t.Fatal("RemoveChild detached a child from the wrong parent")
	}

	a.Dispose(mid)
	if a.Get(mid) != nil {
		t.Fatal("disposed handle still resolves")
	}
	if a.Get(leaf).Parent() != NoHandle {
		t.Fatal("child of disposed band kept its parent")
	}
	if len(a.Get(root).Children()) != 0 {
		t.Fatal("disposed band is still a child of root")
	}
	if _, ok := a.ByID("mid"); ok {
		t.Fatal("ByID found a disposed band")
	}
}

func TestRepaintOrder(t *testing.T) {
	fill := canvas.RGB{R: 1, G: 2, B: 3}
	fgColor := canvas.RGB{R: 4, G: 5, B: 6}

	iv := model.New(1, 100, 200, "")
	iv.Color = &fill
	c := common(t, "acts", iv)
	c.TimeAxis.AddGuideTime(500)
	b := NewActivity(c, DefaultActivityOptions())
	b.ViewAxis.SetNow(600)
	fg := model.New(2, 300, 400, "")
	fg.Color = &fgColor
	b.SetForegroundIntervals([]*model.DrawableInterval{fg}, 0)

	a := NewArena(&fakeClock{}, nil)
	h := a.Add(b)
	a.Repaint(h)

	ops := b.Surface().Ops()
	index := func(match func(canvas.Op) bool) int {
		for i, op := range ops {
			if match(op) {
				return i
			}
		}
		return -1
	}
	bar := index(func(op canvas.Op) bool { return op.Kind == canvas.OpFillRect && op.Style.Color == fill })
	fore := index(func(op canvas.Op) bool { return op.Kind == canvas.OpFillRect && op.Style.Color == fgColor })
	guide := index(func(op canvas.Op) bool { return op.Kind == canvas.OpLine && op.Style.Color == canvas.ForestGreen })
	now := index(func(op canvas.Op) bool { return op.Kind == canvas.OpLine && op.Style.Color == canvas.Red })

	if bar < 0 || !(bar < fore && fore < guide && guide < now) {
		t.Fatalf("paint order bar=%d fore=%d guide=%d now=%d", bar, fore, guide, now)
	}
	if len(b.Coords()) != 1 {
		t.Fatalf("coords = %d, want 1", len(b.Coords()))
	}
}

func TestPaintNowRange(t *testing.T) {
	cases := []struct {
		now  int64
		want bool
	}{
		{0, true},
		{999, true},
		{1000, false},
		{-1, false},
	}
	for _, tc := range cases {
		b := NewActivity(common(t, "acts"), DefaultActivityOptions())
		b.ViewAxis.SetNow(tc.now)
		rec := canvas.NewRecorder()
		b.Decorator.PaintNow(rec, b)
		if got := len(rec.Ops()) == 1; got != tc.want {
			t.Errorf("now=%d painted=%v, want %v", tc.now, got, tc.want)
		}
	}
}

func TestCompositeFirstMemberWins(t *testing.T) {
	a := NewArena(&fakeClock{}, nil)
	comp := a.Add(NewComposite(common(t, "comp")))
	first := a.Add(NewActivity(common(t, "first", model.New(1, 0, 100, "")), DefaultActivityOptions()))
	second := a.Add(NewActivity(common(t, "second",
		model.New(2, 0, 100, ""),
		model.New(3, 400, 600, ""),
	), DefaultActivityOptions()))

	if a.AddMember(comp, NoHandle) {
		t.Fatal("AddMember accepted NoHandle")
	}
	a.AddMember(comp, first)
	a.AddMember(comp, second)
	a.Repaint(comp)

	if got := a.FindIntervals(comp, 50, 20); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("hit at 50 = %v, want first member's interval 1", ids(got))
	}
	if got := a.FindIntervals(comp, 500, 20); len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("hit at 500 = %v, want second member's interval 3", ids(got))
	}
	if a.Get(first).Surface() != a.Get(comp).Surface() {
		t.Fatal("member does not share the composite surface")
	}

	a.SetHeight(comp, 80, 0)
	if a.Get(second).Height != 80 {
		t.Fatal("height did not propagate to members")
	}

	if got := a.RemoveMember(comp, "first"); got != first {
		t.Fatalf("RemoveMember = %v, want %v", got, first)
	}
	if got := a.FindIntervals(comp, 50, 20); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("after removal hit at 50 = %v, want 2", ids(got))
	}
}

func TestStateTrailingFiller(t *testing.T) {
	on := model.New(1, 0, 100, "")
	on.State = "on"
	off := model.New(2, 200, 300, "")
	off.State = "off"
	b := NewState(common(t, "state", on, off), StateOptions{Interpolate: true})

	got := b.Intervals(0)
	if len(got) != 4 {
		t.Fatalf("intervals = %d, want 4 (two fillers)", len(got))
	}
	last := got[3]
	if !last.Interpolated || last.Start != 300 || last.End != 1000 || last.State != "off" {
		t.Fatalf("trailing filler = %+v", last)
	}
	if got[1].Start != 100 || got[1].End != 200 || got[1].State != "on" || got[1].ID >= 0 {
		t.Fatalf("gap filler = %+v", got[1])
	}

	// Fillers are rebuilt, not accumulated.
	b.AddInterval(model.New(3, 500, 600, ""), 0)
	if n := len(b.Intervals(0)); n != 6 {
		t.Fatalf("after add: %d intervals, want 6", n)
	}
}
