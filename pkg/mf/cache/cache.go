// Package cache amortises fundamentals fetches across runs with a TTL cache.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/singleflight"

	"github.com/komsit37/mf/pkg/mf/clock"
	"github.com/komsit37/mf/pkg/mf/types"
)

// DefaultTTL is how long a fetched record stays fresh.
const DefaultTTL = 7 * 24 * time.Hour

// DefaultFetchTimeout bounds one shared fetch, limiter waits and retries included.
const DefaultFetchTimeout = 5 * time.Minute

// Fetcher fetches a company record from the network.
type Fetcher interface {
	Company(ctx context.Context, ticker string, period types.Period) (types.CompanyRecord, error)
}

// Service decorates a Fetcher with a persistent TTL cache. Concurrent misses
// for the same key share a single fetch.
type Service struct {
	next         Fetcher
	store        Store
	ttl          time.Duration
	fetchTimeout time.Duration
	period       types.Period
	clock        clock.Clock
	logger       arbor.ILogger

	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a Service.
type Option func(*Service)

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithFetchTimeout bounds a shared fetch, which outlives any single caller.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

func WithPeriod(p types.Period) Option {
	return func(s *Service) { s.period = p }
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l arbor.ILogger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(next Fetcher, store Store, opts ...Option) *Service {
	s := &Service{
		next:         next,
		store:        store,
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
		period:       types.PeriodTTM,
		clock:        clock.Real{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = arbor.NewLogger()
	}
	return s
}

// Key is the storage key for a ticker and reporting period.
func Key(ticker string, p types.Period) string {
	return fmt.Sprintf("%s|%s", strings.ToUpper(strings.TrimSpace(ticker)), p)
}

// GetOrFetch returns the cached record when younger than the TTL, otherwise
// fetches, stores and returns a fresh one. Failed fetches and profile-only
// records are not cached.
//
// Callers for the same key share one fetch. It runs detached from any
// caller's cancellation, bounded by the fetch timeout; a cancelled caller
// stops waiting without failing the others.
func (s *Service) GetOrFetch(ctx context.Context, ticker string) (types.CompanyRecord, error) {
	k := Key(ticker, s.period)
	if rec, ok := s.fresh(ctx, k); ok {
		s.hits.Add(1)
		return rec, nil
	}

	ch := s.group.DoChan(k, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		// another caller may have filled the entry while we waited
		if rec, ok := s.fresh(fctx, k); ok {
			s.hits.Add(1)
			return rec, nil
		}
		s.misses.Add(1)
		rec, err := s.next.Company(fctx, ticker, s.period)
		if err != nil {
			return types.CompanyRecord{}, err
		}
		if rec.ProfileOnly {
			return rec, nil
		}
		entry := types.CacheEntry{Key: k, Record: rec, FetchedAt: s.clock.Now()}
		if err := s.store.Put(fctx, entry); err != nil {
			s.logger.Warn().Err(err).Str("key", k).Msg("Failed to persist cache entry")
		}
		return rec, nil
	})

	select {
	case <-ctx.Done():
		return types.CompanyRecord{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return types.CompanyRecord{}, res.Err
		}
		return res.Val.(types.CompanyRecord), nil
	}
}

func (s *Service) fresh(ctx context.Context, k string) (types.CompanyRecord, bool) {
	ent, ok, err := s.store.Get(ctx, k)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", k).Msg("Cache read failed, refetching")
		return types.CompanyRecord{}, false
	}
	if !ok || ent.Record.ProfileOnly || s.stale(ent) {
		return types.CompanyRecord{}, false
	}
	return ent.Record, true
}

func (s *Service) stale(ent types.CacheEntry) bool {
	return s.clock.Now().Sub(ent.FetchedAt) >= s.ttl
}

// Stats summarises the store and this service's hit rate.
type Stats struct {
	Entries int
	Fresh   int
	Stale   int
	Oldest  time.Time
	Newest  time.Time
	Hits    int64
	Misses  int64
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	entries, err := s.store.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Entries: len(entries), Hits: s.hits.Load(), Misses: s.misses.Load()}
	for _, e := range entries {
		if s.stale(e) {
			st.Stale++
		} else {
			st.Fresh++
		}
		if st.Oldest.IsZero() || e.FetchedAt.Before(st.Oldest) {
			st.Oldest = e.FetchedAt
		}
		if e.FetchedAt.After(st.Newest) {
			st.Newest = e.FetchedAt
		}
	}
	return st, nil
}

// Purge deletes stale entries and returns how many were removed.
func (s *Service) Purge(ctx context.Context) (int, error) {
	return s.deleteWhere(ctx, s.stale)
}

// Clear deletes every entry.
func (s *Service) Clear(ctx context.Context) (int, error) {
	return s.deleteWhere(ctx, func(types.CacheEntry) bool { return true })
}

func (s *Service) deleteWhere(ctx context.Context, match func(types.CacheEntry) bool) (int, error) {
	entries, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !match(e) {
			continue
		}
		if err := s.store.Delete(ctx, e.Key); err != nil {
			return n, err
		}
		n++
	}
	s.logger.Info().Int("count", n).Msg("Deleted cache entries")
	return n, nil
}
