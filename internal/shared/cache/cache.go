// Package cache is a small TTL key-value abstraction for derived figures.
// Absence of a cache degrades to recomputation, never to wrong answers, so
// every implementation is allowed to lose keys at any time.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache stores string values under string keys with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Noop is an always-miss Cache for environments without one.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string) (string, error) { return "", ErrMiss }

func (Noop) Set(ctx context.Context, key, value string, ttl time.Duration) error { return nil }

func (Noop) Delete(ctx context.Context, keys ...string) error { return nil }

var _ Cache = Noop{}
