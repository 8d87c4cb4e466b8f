// Package ratelimit enforces the upstream API quota across all workers of a scan.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/komsit37/mf/pkg/mf/clock"
)

const (
	// DefaultMax is the FMP starter-plan quota per window.
	DefaultMax = 300
	// DefaultWindow is the quota window.
	DefaultWindow = time.Minute
	// DefaultBurst is how many requests the pacer lets through back to back.
	DefaultBurst = 10
)

// Limiter is a shared, mutex-protected sliding-window log. No rolling window of
// length Window ever admits more than Max calls. An optional token-bucket pacer
// spreads calls evenly so a pool does not drain the quota in the first second.
type Limiter struct {
	max    int
	window time.Duration
	clock  clock.Clock
	pacer  *rate.Limiter

	mu    sync.Mutex
	calls []time.Time
	total int64
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock injects a clock.
func WithClock(c clock.Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// WithPacer sets the pacer burst. Zero disables pacing; the window cap still holds.
func WithPacer(burst int) Option {
	return func(l *Limiter) {
		if burst <= 0 {
			l.pacer = nil
			return
		}
		l.pacer = rate.NewLimiter(rate.Every(l.window/time.Duration(l.max)), burst)
	}
}

// New creates a limiter admitting at most max calls per window.
func New(max int, window time.Duration, opts ...Option) *Limiter {
	if max <= 0 {
		max = DefaultMax
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		max:    max,
		window: window,
		clock:  clock.Real{},
		calls:  make([]time.Time, 0, max),
	}
	WithPacer(DefaultBurst)(l)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Wait blocks until a call may be issued or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.pacer != nil {
		if err := l.pacer.Wait(ctx); err != nil {
			return err
		}
	}
	for {
		l.mu.Lock()
		now := l.clock.Now()
		l.pruneLocked(now)
		if len(l.calls) < l.max {
			l.calls = append(l.calls, now)
			l.total++
			l.mu.Unlock()
			return nil
		}
		wait := l.calls[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(wait):
		}
	}
}

// InWindow reports how many calls the current window holds.
func (l *Limiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(l.clock.Now())
	return len(l.calls)
}

// Total is the number of calls admitted since creation.
func (l *Limiter) Total() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

func (l *Limiter) pruneLocked(now time.Time) {
	i := 0
	for i < len(l.calls) && now.Sub(l.calls[i]) >= l.window {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}
