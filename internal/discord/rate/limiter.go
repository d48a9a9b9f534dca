// Package rate paces outgoing Discord requests.
package rate

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Limiter enforces delays between Discord API requests with random jitter.
// A nil Limiter or one with a zero interval never waits.
type Limiter struct {
	mu          sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
	maxJitter   time.Duration
}

// New creates a rate limiter with base interval and jitter.
// For example, baseInterval=1s and jitter=200ms will result in delays between 800ms-1200ms.
// Jitter larger than the interval is clamped to it.
func New(baseInterval, jitter time.Duration) *Limiter {
	if baseInterval < 0 {
		baseInterval = 0
	}

	jitter = min(max(jitter, 0), baseInterval)

	return &Limiter{
		lastRequest: time.Now().Add(-baseInterval),
		minInterval: baseInterval,
		maxJitter:   jitter,
	}
}

// WaitForNextSlot blocks until enough time has passed since the last request.
func (r *Limiter) WaitForNextSlot(ctx context.Context) error {
	if r == nil || r.minInterval == 0 {
		return ctx.Err()
	}

	r.mu.Lock()
	elapsed := time.Since(r.lastRequest)
	targetDelay := r.minInterval

	if r.maxJitter > 0 {
		targetDelay += rand.N(r.maxJitter*2) - r.maxJitter //nolint:gosec // pacing only
	}

	waitDuration := targetDelay - elapsed
	r.mu.Unlock()

	if waitDuration > 0 {
		timer := time.NewTimer(waitDuration)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	r.lastRequest = time.Now()
	r.mu.Unlock()

	return nil
}
