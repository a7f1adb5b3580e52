package band

import (
	"math"
	"strings"
	"testing"

	"missiontl/internal/model"
)

func ptr(v float64) *float64 { return &v }

func valued(id, start, end int64, sv, ev float64) *model.DrawableInterval {
	iv := model.New(id, start, end, "")
	iv.StartValue, iv.EndValue = sv, ev
	return iv
}

func TestResourcePaintRange(t *testing.T) {
	cases := []struct {
		name   string
		opts   ResourceOptions
		ivs    []*model.DrawableInterval
		lo, hi float64
	}{
		{"limits widen", ResourceOptions{MinLimit: ptr(0), MaxLimit: ptr(10)}, []*model.DrawableInterval{valued(1, 0, 10, 2, 4)}, 0, 10},
		{"all ignores limits", ResourceOptions{MinLimit: ptr(0), MaxLimit: ptr(10), AutoScale: ScaleAll, DefaultValue: ptr(3)}, []*model.DrawableInterval{valued(1, 0, 10, 2, 4)}, 2, 4},
		{"equal bounds widen", ResourceOptions{}, []*model.DrawableInterval{valued(1, 0, 10, 5, 5)}, 4.5, 5.5},
		{"zero widens to one", ResourceOptions{}, []*model.DrawableInterval{valued(1, 0, 10, 0, 0)}, -1, 1},
		{"empty band", ResourceOptions{}, nil, -1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewResource(common(t, "res", tc.ivs...), tc.opts)
			lo, hi := b.Variant().(*Resource).PaintRange()
			if lo != tc.lo || hi != tc.hi {
				t.Fatalf("PaintRange = %v..%v, want %v..%v", lo, hi, tc.lo, tc.hi)
			}
		})
	}
}

func TestResourceYFromValue(t *testing.T) {
	c := common(t, "res")
	c.Height = 40
	b := NewResource(c, ResourceOptions{MinLimit: ptr(0), MaxLimit: ptr(10)})
	r := b.Variant().(*Resource)
	for v, want := range map[float64]float64{0: 40, 5: 20, 10: 0} {
		if got := r.YFromValue(b, v); got != want {
			t.Errorf("YFromValue(%v) = %v, want %v", v, got, want)
		}
	}
}

func TestResourceLogTicks(t *testing.T) {
	for _, hide := range []bool{false, true} {
		c := common(t, "res")
		c.Height = 30
		b := NewResource(c, ResourceOptions{TickValues: []float64{1, 10, 100}, LogTicks: true, HideTicks: hide})
		a := NewArena(&fakeClock{}, nil)
		a.Repaint(a.Add(b))
		r := b.Variant().(*Resource)

		near := func(got, want float64) bool { return math.Abs(got-want) < 1e-9 }
		if got := r.YFromValue(b, 1); !near(got, 30) {
			t.Fatalf("hide=%v: Y(1) = %v, want 30", hide, got)
		}
		if got := r.YFromValue(b, 10); !near(got, 20) {
			t.Fatalf("hide=%v: Y(10) = %v, want 20", hide, got)
		}
		if got := r.YFromValue(b, 55); !near(got, 15) {
			t.Fatalf("hide=%v: Y(55) = %v, want 15", hide, got)
		}
		if got := r.YFromValue(b, 0); got != 30 {
			t.Fatalf("hide=%v: Y(0) = %v, want the bottom", hide, got)
		}
	}
}

func TestResourceFillers(t *testing.T) {
	b := NewResource(common(t, "res",
		valued(1, 0, 100, 1, 1),
		valued(2, 200, 300, 4, 4),
	), ResourceOptions{Interpolation: InterpolateLinear, Fill: true})

	got := b.Intervals(0)
	if len(got) != 3 {
		t.Fatalf("intervals = %d, want 3", len(got))
	}
	f := got[1]
	if !f.Interpolated || f.Start != 100 || f.End != 200 || f.StartValue != 1 || f.EndValue != 4 {
		t.Fatalf("filler = %+v", f)
	}

	b.SetIntervals([]*model.DrawableInterval{valued(3, 0, 100, 1, 1)}, 0)
	if n := len(b.Intervals(0)); n != 1 {
		t.Fatalf("stale fillers kept: %d intervals", n)
	}
}

func TestTooltipSkipsInterpolated(t *testing.T) {
	b := NewResource(common(t, "res",
		valued(1, 0, 100, 1, 1),
		valued(2, 200, 300, 2, 2),
	), ResourceOptions{Interpolation: InterpolateConstant, Fill: true})
	b.TooltipDelay = 0
	a := NewArena(&fakeClock{}, nil)
	h := a.Add(b)
	a.Repaint(h)

	// x=100 touches both the measured interval and the filler after it.
	html, ok := a.TooltipHTML(h, 100, 10)
	if !ok || strings.Contains(html, "Start Value") {
		t.Fatalf("tooltip at 100 = %q, want the measured interval", html)
	}
	html, ok = a.TooltipHTML(h, 150, 10)
	if !ok || !strings.Contains(html, "Start Value") {
		t.Fatalf("tooltip at 150 = %q, want the filler", html)
	}
}
