// Package refresh reloads every band source into the timeline on a cron
// schedule.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"missiontl/internal/cache"
	"missiontl/internal/config"
	appLog "missiontl/internal/log"
	"missiontl/internal/model"
	"missiontl/internal/source"
	"missiontl/internal/timeline"
)

// Loader loads the intervals of every band. *source.Registry implements it.
type Loader interface {
	LoadAll(ctx context.Context, cfg *config.Config, w source.Window) (map[string][]*model.DrawableInterval, error)
}

// Options holds the optional collaborators of a Scheduler.
type Options struct {
	// Cache has its rendered pages dropped after each load.
	Cache cache.Cache
	// Snapshot runs after each load when set.
	Snapshot func(ctx context.Context) error
	// Location is the zone the schedule is read in. Nil means UTC.
	Location *time.Location
}

// Status describes the last run.
type Status struct {
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
	Next      time.Time `json:"next"`
	Runs      int       `json:"runs"`
}

// Scheduler runs refreshes. Runs never overlap.
type Scheduler struct {
	cfg    *config.Config
	tl     *timeline.Timeline
	loader Loader
	opts   Options
	log    appLog.Logger

	run sync.Mutex

	mu     sync.Mutex
	cron   *cron.Cron
	status Status
}

func New(cfg *config.Config, tl *timeline.Timeline, loader Loader, opts Options) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Scheduler{cfg: cfg, tl: tl, loader: loader, opts: opts, log: appLog.With("component", "refresh")}
}

// RunOnce loads every source into the timeline, drops cached renders, then
// takes the snapshot. A failing source leaves its band's data in place; its
// error is returned after the rest of the run completes.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.run.Lock()
	defer s.run.Unlock()

	began := time.Now()
	start, end := s.tl.Data()
	data, loadErr := s.loader.LoadAll(ctx, s.cfg, source.Window{Start: start, End: end})
	s.tl.Load(data)

	var errs []error
	if loadErr != nil {
		errs = append(errs, loadErr)
	}
	if s.opts.Cache != nil {
		if err := s.opts.Cache.Invalidate(ctx, "render:"); err != nil {
			s.log.Error("render cache invalidate failed", err)
		}
	}
	if s.opts.Snapshot != nil {
		if err := s.opts.Snapshot(ctx); err != nil {
			errs = append(errs, fmt.Errorf("refresh: snapshot: %w", err))
		}
	}
	err := errors.Join(errs...)

	s.mu.Lock()
	s.status.LastRun = began
	s.status.Runs++
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
	s.mu.Unlock()

	s.log.Info("refresh done", "bands", len(data), "took", time.Since(began), "ok", err == nil)
	return err
}

// Start schedules RunOnce on the configured cron spec until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("refresh: already started")
	}
	c := cron.New(
		cron.WithLocation(s.opts.Location),
		cron.WithLogger(cronLogger{s.log}),
		cron.WithChain(cron.Recover(cronLogger{s.log}), cron.SkipIfStillRunning(cronLogger{s.log})),
	)
	if _, err := c.AddFunc(s.cfg.RefreshCron, func() {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Error("scheduled refresh failed", err)
		}
	}); err != nil {
		return fmt.Errorf("refresh: schedule %q: %w", s.cfg.RefreshCron, err)
	}
	c.Start()
	s.cron = c
	s.log.Info("refresh scheduled", "spec", s.cfg.RefreshCron)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	if s.cron != nil {
		if entries := s.cron.Entries(); len(entries) > 0 {
			st.Next = entries[0].Next
		}
	}
	return st
}

// cronLogger routes the cron library's logging through the app logger.
type cronLogger struct{ l appLog.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) { c.l.Debug("cron: "+msg, kv...) }

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error("cron: "+msg, err, kv...)
}
