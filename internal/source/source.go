// Package source loads the intervals each band renders. A band names its
// provider in config: "static" for intervals inlined in the YAML, "mysql"
// for the database store, or the id of an ICS subscription.
package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"missiontl/internal/config"
	appLog "missiontl/internal/log"
	"missiontl/internal/model"
	"missiontl/internal/resource"
)

var ErrUnknownSource = errors.New("source: unknown source")

// Window is the data range a load covers, in Unix seconds.
type Window struct {
	Start, End int64
}

// Provider loads the intervals of one band.
type Provider interface {
	Intervals(ctx context.Context, bc config.BandConfig, w Window) ([]*model.DrawableInterval, error)
}

// Registry picks a provider per band by its source name.
type Registry struct {
	providers map[string]Provider
	log       appLog.Logger
}

func NewRegistry() *Registry {
	return &Registry{providers: map[string]Provider{}, log: appLog.With("component", "source")}
}

// Register binds name to p, replacing any earlier binding.
func (r *Registry) Register(name string, p Provider) {
	r.providers[name] = p
}

// Provider returns the provider bound to name.
func (r *Registry) Provider(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return p, nil
}

// LoadAll loads every band of cfg that names a source. A band whose load
// fails is logged and left out of the result so the timeline keeps its
// previous data; the first error is returned alongside.
func (r *Registry) LoadAll(ctx context.Context, cfg *config.Config, w Window) (map[string][]*model.DrawableInterval, error) {
	out := map[string][]*model.DrawableInterval{}
	var first error
	for _, bc := range cfg.Bands {
		if bc.Source == "" {
			continue
		}
		start := time.Now()
		list, err := r.load(ctx, bc, w)
		if err != nil {
			r.log.Error("band load failed", err, "band", bc.ID, "source", bc.Source)
			if first == nil {
				first = fmt.Errorf("source: band %s: %w", bc.ID, err)
			}
			continue
		}
		r.log.Debug("band loaded", "band", bc.ID, "source", bc.Source, "intervals", len(list), "took", time.Since(start))
		out[bc.ID] = list
	}
	return out, first
}

func (r *Registry) load(ctx context.Context, bc config.BandConfig, w Window) ([]*model.DrawableInterval, error) {
	p, err := r.Provider(bc.Source)
	if err != nil {
		return nil, err
	}
	list, err := p.Intervals(ctx, bc, w)
	if err != nil {
		return nil, err
	}
	kept := list[:0]
	for _, iv := range list {
		if err := iv.Normalize(); err != nil {
			r.log.Error("interval dropped", err, "band", bc.ID)
			continue
		}
		kept = append(kept, iv)
	}
	return kept, nil
}

// Static serves the intervals and reservations inlined in the band config.
type Static struct{}

func (Static) Intervals(_ context.Context, bc config.BandConfig, w Window) ([]*model.DrawableInterval, error) {
	out := make([]*model.DrawableInterval, 0, len(bc.Intervals))
	for _, iv := range bc.Intervals {
		out = append(out, iv.Clone())
	}
	if len(bc.Reservations) > 0 {
		out = append(out, Fold(bc.Resource, w, bc.Reservations)...)
	}
	return out, nil
}

// Fold aggregates reservations into one constant-value interval per unit of
// the resource profile. Units outside the configured limits are flagged as
// conflicted. Unit intervals take local ids so they never collide with the
// band's own intervals.
func Fold(rc config.ResourceConfig, w Window, rs []resource.Reservation) []*model.DrawableInterval {
	opts := resource.Options{MinLimit: math.Inf(-1), MaxLimit: math.Inf(1)}
	if rc.MinLimit != nil {
		opts.MinLimit = *rc.MinLimit
	}
	if rc.MaxLimit != nil {
		opts.MaxLimit = *rc.MaxLimit
	}
	if rc.DefaultValue != nil {
		opts.DefaultValue, opts.HasDefault = *rc.DefaultValue, true
	} else {
		opts.HasDefault = true
	}
	tl := resource.New(w.Start, w.End, opts)
	tl.AddReservations(rs)

	units := tl.Units()
	out := make([]*model.DrawableInterval, 0, len(units))
	for _, u := range units {
		iv := model.New(model.NextLocalID(), u.Start, u.End, "")
		iv.StartValue, iv.EndValue = u.Value, u.Value
		iv.IsConflicted = u.Value < opts.MinLimit || u.Value > opts.MaxLimit
		out = append(out, iv)
	}
	return out
}
