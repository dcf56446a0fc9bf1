// Package ratelimit throttles write operations per actor.
package ratelimit

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

// ErrLimited is returned when a key has exhausted its allowance.
var ErrLimited = errors.New("rate limit exceeded")

// Limiter decides whether one more event for key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	// Name labels the limiter in metrics.
	Name() string
}

// Memory is an in-process token bucket per key.
type Memory struct {
	rps      rate.Limit
	burst    int
	limiters sync.Map // map[string]*rate.Limiter
}

// NewMemory creates a limiter allowing rps events per second with the given burst.
func NewMemory(rps float64, burst int) *Memory {
	if burst < 1 {
		burst = 1
	}
	return &Memory{rps: rate.Limit(rps), burst: burst}
}

func (m *Memory) Name() string { return "memory" }

// Allow consumes one token from the bucket of key.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	v, ok := m.limiters.Load(key)
	if !ok {
		v, _ = m.limiters.LoadOrStore(key, rate.NewLimiter(m.rps, m.burst))
	}
	return v.(*rate.Limiter).Allow(), nil
}
