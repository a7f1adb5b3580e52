// Package events publishes timeline interaction events. Every event is a
// JSON envelope; the AMQP publisher routes it as timeline.<kind> on a topic
// exchange.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	appLog "missiontl/internal/log"
)

type Kind string

const (
	KindClick      Kind = "click"
	KindRightClick Kind = "rightclick"
	KindDblClick   Kind = "dblclick"
	KindDragStart  Kind = "drag-start"
	KindDragStop   Kind = "drag-stop"
	KindDrop       Kind = "drop"
	KindViewUpdate Kind = "view-update"
	KindRefresh    Kind = "refresh"
)

// Event is one structured interaction.
type Event struct {
	Kind Kind   `json:"kind"`
	Band string `json:"band,omitempty"`
	// SourceBand is the band a dropped interval was dragged from.
	SourceBand string `json:"source_band,omitempty"`
	IntervalID *int64 `json:"interval_id,omitempty"`
	Time       int64  `json:"time,omitempty"`
	// Start and End are the drop range or the new view window.
	Start      int64     `json:"start,omitempty"`
	End        int64     `json:"end,omitempty"`
	Background bool      `json:"background,omitempty"`
	At         time.Time `json:"at"`
}

// RoutingKey is the topic an event is published under.
func (e Event) RoutingKey() string { return "timeline." + string(e.Kind) }

// Envelope is the wire form of an event.
type Envelope struct {
	Version int   `json:"version"`
	Event   Event `json:"event"`
}

func Marshal(e Event) ([]byte, error) {
	return json.Marshal(Envelope{Version: 1, Event: e})
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events through the application logger.
type LogPublisher struct {
	log appLog.Logger
}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{log: appLog.With("component", "events")}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	body, err := Marshal(e)
	if err != nil {
		return err
	}
	p.log.Info("event", "key", e.RoutingKey(), "body", string(body))
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Memory keeps published events in order. Used by tests and by the pointer
// replay endpoint.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func (m *Memory) Publish(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *Memory) Close() error { return nil }

// Events returns a copy of everything published so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Multi fans an event out to every publisher and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, p := range m {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
