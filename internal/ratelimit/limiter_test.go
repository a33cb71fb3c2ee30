package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterStartsEmpty(t *testing.T) {
	// 600 per minute = one permit every 100ms; the bucket starts drained,
	// so the very first Wait has to sit out roughly one interval
	lim := New(600)
	start := time.Now()
	require.NoError(t, lim.Wait(context.Background()))
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterAccumulatesWhileIdle(t *testing.T) {
	lim := New(6000) // one permit every 10ms
	time.Sleep(120 * time.Millisecond)

	// the idle period banked permits; spending a few must be near-instant
	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, lim.Wait(context.Background()))
	}
	require.Less(t, time.Since(start), 50*time.Millisecond,
		"banked permits should be spendable without delay")
}

func TestLimiterPacesSustainedLoad(t *testing.T) {
	lim := New(1200) // one permit every 50ms
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, lim.Wait(context.Background()))
	}
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond,
		"three permits from an empty bucket need at least two full intervals")
}

func TestLimiterHonorsContext(t *testing.T) {
	lim := New(0.001)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.Error(t, lim.Wait(ctx))
}
