package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/komsit37/mf/pkg/mf/clock"
)

func TestLimiterRollingWindow(t *testing.T) {
	fake := clock.NewFake(time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC))
	l := New(300, time.Minute, WithClock(fake), WithPacer(0))

	ctx := context.Background()
	var admitted []time.Time
	for i := 0; i < 950; i++ {
		require.NoError(t, l.Wait(ctx))
		admitted = append(admitted, fake.Now())
		// workers issue a request roughly every 50ms
		fake.Advance(50 * time.Millisecond)
	}

	assert.Equal(t, int64(950), l.Total())
	for i := 0; i+300 < len(admitted); i++ {
		gap := admitted[i+300].Sub(admitted[i])
		if gap < time.Minute {
			t.Fatalf("calls %d and %d are %v apart; more than 300 calls in one minute", i, i+300, gap)
		}
	}
}

func TestLimiterConcurrentWorkers(t *testing.T) {
	fake := clock.NewFake(time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC))
	l := New(20, time.Minute, WithClock(fake), WithPacer(0))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				assert.NoError(t, l.Wait(context.Background()))
				assert.LessOrEqual(t, l.InWindow(), 20)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(80), l.Total())
}

func TestLimiterCancelled(t *testing.T) {
	l := New(1, time.Hour, WithPacer(0))
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}

func TestLimiterDefaults(t *testing.T) {
	l := New(0, 0)
	assert.Equal(t, DefaultMax, l.max)
	assert.Equal(t, DefaultWindow, l.window)
	require.NotNil(t, l.pacer)
	assert.Equal(t, DefaultBurst, l.pacer.Burst())
}
