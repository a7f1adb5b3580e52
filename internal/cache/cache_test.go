package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(0, 0)
	m := NewMemory()
	m.now = func() time.Time { return now }

	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("empty get err = %v", err)
	}
	m.Set(ctx, "k", []byte("v"), time.Minute)
	if got, err := m.Get(ctx, "k"); err != nil || string(got) != "v" {
		t.Fatalf("get = %q, %v", got, err)
	}
	now = now.Add(time.Minute)
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatal("entry outlived its ttl")
	}
	m.Set(ctx, "other", nil, time.Minute)
	if _, ok := m.entries["k"]; ok {
		t.Fatal("expired entry not swept")
	}
}

func TestMemoryInvalidatePrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := RenderKey("svg", 0, 100, 1)
	b := RenderKey("png", 0, 100, 1)
	m.Set(ctx, a, []byte("a"), time.Hour)
	m.Set(ctx, b, []byte("b"), time.Hour)
	m.Invalidate(ctx, "render:svg:")
	if _, err := m.Get(ctx, a); !errors.Is(err, ErrMiss) {
		t.Fatal("svg entry survived")
	}
	if _, err := m.Get(ctx, b); err != nil {
		t.Fatal("png entry removed")
	}
}

func TestRenderKeyIncludesGeneration(t *testing.T) {
	if RenderKey("svg", 1, 2, 3) == RenderKey("svg", 1, 2, 4) {
		t.Fatal("generation not part of the key")
	}
}
