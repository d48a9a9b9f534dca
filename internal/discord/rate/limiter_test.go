package rate_test

import (
	"context"
	"testing"
	"time"

	"github.com/robalyx/affiliates/internal/discord/rate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Disabled(t *testing.T) {
	t.Parallel()

	var nilLimiter *rate.Limiter

	for _, l := range []*rate.Limiter{nilLimiter, rate.New(0, time.Second)} {
		start := time.Now()
		for range 5 {
			require.NoError(t, l.WaitForNextSlot(t.Context()))
		}
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	}
}

func TestLimiter_SpacesRequests(t *testing.T) {
	t.Parallel()

	l := rate.New(40*time.Millisecond, 0)

	start := time.Now()
	for range 3 {
		require.NoError(t, l.WaitForNextSlot(t.Context()))
	}

	// The first slot is free, the next two wait a full interval each.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiter_ContextCancelled(t *testing.T) {
	t.Parallel()

	l := rate.New(time.Hour, 0)
	require.NoError(t, l.WaitForNextSlot(t.Context()))

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()

	err := l.WaitForNextSlot(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
