package refresh

import (
	"context"
	"errors"
	"testing"
	"time"

	"missiontl/internal/cache"
	"missiontl/internal/config"
	"missiontl/internal/model"
	"missiontl/internal/source"
	"missiontl/internal/timeline"
)

type fakeLoader struct {
	calls int
	w     source.Window
	err   error
}

func (f *fakeLoader) LoadAll(_ context.Context, _ *config.Config, w source.Window) (map[string][]*model.DrawableInterval, error) {
	f.calls++
	f.w = w
	return map[string][]*model.DrawableInterval{"a": {model.New(1, 10, 20, "x")}}, f.err
}

func setup(t *testing.T) (*config.Config, *timeline.Timeline) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.View = config.ViewConfig{Start: "0", End: "1000", Width: 600, LabelWidth: 100, MinTickWidth: 100}
	cfg.Bands = []config.BandConfig{{ID: "a", Kind: "activity", Source: "static"}}
	cfg.Normalize()
	tl, err := timeline.Build(cfg, nil, timeline.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return cfg, tl
}

func TestRunOnce(t *testing.T) {
	cfg, tl := setup(t)
	mem := cache.NewMemory()
	ctx := context.Background()
	mem.Set(ctx, cache.RenderKey("svg", 0, 1000, tl.Generation()), []byte("old"), time.Minute)
	mem.Set(ctx, "other", []byte("keep"), time.Minute)

	loader := &fakeLoader{}
	var snaps int
	s := New(cfg, tl, loader, Options{Cache: mem, Snapshot: func(context.Context) error { snaps++; return nil }})

	gen := tl.Generation()
	if err := s.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}
	if loader.w != (source.Window{Start: 0, End: 1000}) {
		t.Fatalf("window = %+v", loader.w)
	}
	if tl.Generation() == gen {
		t.Fatal("generation not bumped")
	}
	if got := tl.Describe().Bands[0].Coords; len(got) != 1 {
		t.Fatalf("coords = %+v", got)
	}
	if _, err := mem.Get(ctx, cache.RenderKey("svg", 0, 1000, gen)); !errors.Is(err, cache.ErrMiss) {
		t.Fatal("render cache survived the refresh")
	}
	if _, err := mem.Get(ctx, "other"); err != nil {
		t.Fatal("unrelated key dropped")
	}
	if snaps != 1 {
		t.Fatalf("snapshots = %d", snaps)
	}
	if st := s.Status(); st.Runs != 1 || st.LastError != "" {
		t.Fatalf("status = %+v", st)
	}
}

func TestRunOnceReportsErrors(t *testing.T) {
	cfg, tl := setup(t)
	loader := &fakeLoader{err: errors.New("db down")}
	s := New(cfg, tl, loader, Options{Snapshot: func(context.Context) error { return errors.New("no browser") }})
	err := s.RunOnce(context.Background())
	if err == nil || s.Status().LastError == "" {
		t.Fatalf("err = %v, status = %+v", err, s.Status())
	}
	// The bands that did load are still applied.
	if got := tl.Describe().Bands[0].Coords; len(got) != 1 {
		t.Fatalf("coords = %+v", got)
	}
}

func TestStart(t *testing.T) {
	cfg, tl := setup(t)
	cfg.RefreshCron = "not a spec"
	s := New(cfg, tl, &fakeLoader{}, Options{})
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("bad spec accepted")
	}

	cfg.RefreshCron = "*/5 * * * *"
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err == nil {
		t.Fatal("second start accepted")
	}
	if s.Status().Next.IsZero() {
		t.Fatal("no next run scheduled")
	}
	cancel()
	s.Stop()
}
