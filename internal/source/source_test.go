package source

import (
	"context"
	"errors"
	"testing"

	"missiontl/internal/config"
	"missiontl/internal/model"
	"missiontl/internal/resource"
)

func ptr(v float64) *float64 { return &v }

func TestFold(t *testing.T) {
	rc := config.ResourceConfig{MinLimit: ptr(0), MaxLimit: ptr(5)}
	got := Fold(rc, Window{0, 100}, []resource.Reservation{
		{Start: 0, End: 50, Value: 3},
		{Start: 20, End: 40, Value: 4},
	})
	want := []struct {
		start, end int64
		value      float64
		conflict   bool
	}{
		{0, 20, 3, false},
		{20, 40, 7, true},
		{40, 50, 3, false},
	}
	if len(got) != len(want) {
		t.Fatalf("units = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		iv := got[i]
		if iv.Start != w.start || iv.End != w.end || iv.StartValue != w.value || iv.EndValue != w.value || iv.IsConflicted != w.conflict {
			t.Fatalf("unit %d = %+v, want %+v", i, iv, w)
		}
	}
}

func TestFoldWithoutLimitsNeverConflicts(t *testing.T) {
	for _, iv := range Fold(config.ResourceConfig{}, Window{0, 10}, []resource.Reservation{{Start: 0, End: 10, Value: -1e9}}) {
		if iv.IsConflicted {
			t.Fatalf("unexpected conflict %+v", iv)
		}
	}
}

func TestStaticClonesIntervals(t *testing.T) {
	orig := model.New(1, 0, 10, "a")
	bc := config.BandConfig{ID: "a", Source: "static", Intervals: []*model.DrawableInterval{orig}}
	got, err := Static{}.Intervals(context.Background(), bc, Window{0, 100})
	if err != nil || len(got) != 1 {
		t.Fatalf("Intervals = %v, %v", got, err)
	}
	got[0].Label = "changed"
	if orig.Label != "a" {
		t.Fatal("static provider handed out the config interval")
	}
}

func TestStaticUnitIDsDoNotCollide(t *testing.T) {
	bc := config.BandConfig{
		ID:           "power",
		Source:       "static",
		Intervals:    []*model.DrawableInterval{model.New(1, 0, 10, "a"), model.New(2, 40, 50, "b")},
		Reservations: []resource.Reservation{{Start: 20, End: 30, Value: 2}, {Start: 25, End: 35, Value: 1}},
	}
	got, err := Static{}.Intervals(context.Background(), bc, Window{0, 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("intervals = %d, want 5", len(got))
	}
	seen := map[int64]bool{}
	for _, iv := range got {
		if seen[iv.ID] {
			t.Fatalf("duplicate interval id %d", iv.ID)
		}
		seen[iv.ID] = true
	}
}

type failing struct{}

func (failing) Intervals(context.Context, config.BandConfig, Window) ([]*model.DrawableInterval, error) {
	return nil, errors.New("down")
}

func TestRegistryLoadAll(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Bands = []config.BandConfig{
		{ID: "a", Kind: "activity", Source: "static", Intervals: []*model.DrawableInterval{
			model.New(1, 0, 10, "ok"),
			model.New(2, 10, 5, "inverted"),
		}},
		{ID: "b", Kind: "activity", Source: "broken"},
		{ID: "c", Kind: "activity", Source: "nowhere"},
		{ID: "d", Kind: "activity"},
	}

	r := NewRegistry()
	r.Register("static", Static{})
	r.Register("broken", failing{})

	data, err := r.LoadAll(context.Background(), cfg, Window{0, 100})
	if err == nil {
		t.Fatal("LoadAll hid the failing band")
	}
	if len(data) != 1 || len(data["a"]) != 1 || data["a"][0].ID != 1 {
		t.Fatalf("data = %+v", data)
	}
	if _, err := r.Provider("nowhere"); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("Provider err = %v", err)
	}
}
