package source

import (
	"context"
	"fmt"
	"time"

	"missiontl/internal/config"
	"missiontl/internal/ics"
	"missiontl/internal/model"
)

// ICS serves the occurrences of an ICS subscription. It is registered once
// per subscription id.
type ICS struct {
	fetcher *ics.Fetcher
	sources map[string]ics.Source
}

func NewICS(fetcher *ics.Fetcher, subs []config.ICSConfig) *ICS {
	p := &ICS{fetcher: fetcher, sources: make(map[string]ics.Source, len(subs))}
	for _, s := range subs {
		p.sources[s.ID] = ics.Source{ID: s.ID, URL: s.URL}
	}
	return p
}

// Register binds every subscription id to p.
func (p *ICS) Register(r *Registry) {
	for id := range p.sources {
		r.Register(id, p)
	}
}

func (p *ICS) Intervals(ctx context.Context, bc config.BandConfig, w Window) ([]*model.DrawableInterval, error) {
	src, ok := p.sources[bc.Source]
	if !ok {
		return nil, fmt.Errorf("%w: ics %q", ErrUnknownSource, bc.Source)
	}
	feed, err := p.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	evs, err := ics.Parse(src, feed.Body)
	if err != nil {
		return nil, err
	}
	res, err := ics.Expand(evs, ics.Window{Start: time.Unix(w.Start, 0).UTC(), End: time.Unix(w.End, 0).UTC()})
	if err != nil {
		return nil, err
	}
	return res.Intervals, nil
}
