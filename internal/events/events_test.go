package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestRoutingKey(t *testing.T) {
	if got := (Event{Kind: KindDragStop}).RoutingKey(); got != "timeline.drag-stop" {
		t.Fatalf("RoutingKey = %q", got)
	}
}

func TestMarshalEnvelope(t *testing.T) {
	id := int64(7)
	body, err := Marshal(Event{Kind: KindDrop, Band: "ops", SourceBand: "plan", IntervalID: &id, Start: 10, End: 20})
	if err != nil {
		t.Fatal(err)
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatal(err)
	}
	if env.Version != 1 || env.Event.Kind != KindDrop || *env.Event.IntervalID != 7 || env.Event.SourceBand != "plan" {
		t.Fatalf("envelope = %+v", env)
	}
}

type failing struct{ err error }

func (f failing) Publish(context.Context, Event) error { return f.err }
func (f failing) Close() error                          { return nil }

func TestMultiPublishesToAll(t *testing.T) {
	boom := errors.New("boom")
	mem := &Memory{}
	m := Multi{failing{boom}, mem}
	if err := m.Publish(context.Background(), Event{Kind: KindClick}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if got := mem.Events(); len(got) != 1 || got[0].Kind != KindClick {
		t.Fatalf("memory = %v", got)
	}
}
