package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	if err := m.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := m.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("get: %q %v", got, err)
	}

	if err := m.Delete(ctx, "k", "absent"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }

	if err := m.Set(ctx, "k", "v", 10*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := m.Get(ctx, "k"); err != nil {
		t.Fatalf("should still be live: %v", err)
	}

	now = now.Add(11 * time.Second)
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected expiry miss, got %v", err)
	}
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }

	_ = m.Set(ctx, "k", "v", 0)
	now = now.Add(1000 * time.Hour)
	if got, err := m.Get(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("zero ttl entry should persist: %q %v", got, err)
	}
}

func TestNoopAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c Cache = Noop{}
	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("noop must always miss, got %v", err)
	}
}
