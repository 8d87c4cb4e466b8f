package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/komsit37/mf/pkg/mf/filter"
	"github.com/komsit37/mf/pkg/mf/health"
	"github.com/komsit37/mf/pkg/mf/metrics"
	"github.com/komsit37/mf/pkg/mf/rank"
	"github.com/komsit37/mf/pkg/mf/source"
	"github.com/komsit37/mf/pkg/mf/types"
)

// DefaultWorkers is the fetch pool size.
const DefaultWorkers = 5

// Fetcher returns a record for one ticker. *cache.Service implements it.
type Fetcher interface {
	GetOrFetch(ctx context.Context, ticker string) (types.CompanyRecord, error)
}

// HealthChecker vets ranked candidates. *health.Checker implements it.
type HealthChecker interface {
	Check(ctx context.Context, ticker string) health.Result
}

// ProgressFunc is called after each ticker resolves.
type ProgressFunc func(done, total int, ticker string)

type Runner struct {
	Source  source.Source
	Fetcher Fetcher
	Calc    metrics.Calculator
	Sectors filter.Sectors
	// Health is optional; nil skips health checks.
	Health HealthChecker
	Logger arbor.ILogger
}

type ExecuteOptions struct {
	Top          int
	MinMarketCap float64
	Limit        int
	Random       bool
	// Rand drives --random; nil seeds from the global source.
	Rand    *rand.Rand
	Workers int
	// Match restricts the universe; nil keeps everything.
	Match    filter.Filter
	Progress ProgressFunc
}

// Outcome is the per-ticker result of a fetch: a record or an error.
type Outcome struct {
	Record types.CompanyRecord
	Err    error
}

// Scan loads the universe, fetches every ticker on a bounded pool, waits for
// all of them, then filters, computes and ranks. Per-ticker problems become
// Failures in the report; only a universe or context error aborts.
func (r *Runner) Scan(ctx context.Context, opts ExecuteOptions) (*types.Report, error) {
	logger := r.Logger
	if logger == nil {
		logger = arbor.NewLogger()
	}
	rep := &types.Report{ID: uuid.NewString(), StartedAt: time.Now()}

	all, err := r.Source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	match := filter.All
	if opts.Match != nil {
		match = opts.Match
	}
	matched := make([]string, 0, len(all))
	for _, t := range all {
		if match.Match(t) {
			matched = append(matched, t)
		}
	}
	tickers := source.Select(matched, opts.Random, opts.Rand, opts.Limit)
	rep.Universe = len(tickers)

	logger.Info().Str("scan_id", rep.ID).Int("universe", len(tickers)).Int("listed", len(all)).Msg("Scan started")

	outcomes := FetchAll(ctx, r.Fetcher, tickers, opts.Workers, opts.Progress)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan aborted: %w", err)
	}

	var cands []rank.Candidate
	for _, t := range tickers {
		out := outcomes[t]
		rec := out.Record
		switch {
		case out.Err != nil:
			rep.Failures = append(rep.Failures, types.Failure{Ticker: t, Kind: types.FailFetch, Reason: out.Err.Error()})
			continue
		case r.Sectors.Excluded(rec.Sector):
			rep.Failures = append(rep.Failures, types.Failure{Ticker: t, Kind: types.FailExcluded, Reason: rec.Sector})
			continue
		case rec.MarketCap < opts.MinMarketCap:
			rep.Failures = append(rep.Failures, types.Failure{Ticker: t, Kind: types.FailBelowMinMcap, Reason: fmt.Sprintf("market cap %.0f", rec.MarketCap)})
			continue
		}
		m, err := r.Calc.Compute(rec)
		if err != nil {
			reason := err.Error()
			var ue *metrics.UndefinedError
			if errors.As(err, &ue) {
				reason = ue.Reason
			}
			rep.Failures = append(rep.Failures, types.Failure{Ticker: t, Kind: types.FailUndefined, Reason: reason})
			continue
		}
		cands = append(cands, rank.Candidate{Record: rec, Metrics: m})
	}
	rep.Ranked = len(cands)

	ranked := rank.Rank(cands, 0)
	rep.Results = r.top(ctx, ranked, opts.Top, rep, logger)
	rep.FinishedAt = time.Now()

	logger.Info().
		Str("scan_id", rep.ID).
		Int("ranked", rep.Ranked).
		Int("fetch_failed", rep.Count(types.FailFetch)).
		Int("undefined", rep.Count(types.FailUndefined)).
		Int("excluded", rep.Count(types.FailExcluded)).
		Str("elapsed", rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond).String()).
		Msg("Scan finished")
	return rep, nil
}

// top cuts the ranking to k, running health checks on the top k when
// configured and dropping the candidates that fail them.
func (r *Runner) top(ctx context.Context, ranked []types.RankedResult, k int, rep *types.Report, logger arbor.ILogger) []types.RankedResult {
	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	if r.Health == nil {
		return ranked
	}
	kept := make([]types.RankedResult, 0, len(ranked))
	for _, res := range ranked {
		hr := r.Health.Check(ctx, res.Record.Ticker)
		if !hr.Passed() {
			rep.Failures = append(rep.Failures, types.Failure{Ticker: res.Record.Ticker, Kind: types.FailUnhealthy, Reason: describe(hr)})
			continue
		}
		kept = append(kept, res)
	}
	for i := range kept {
		kept[i].Position = i + 1
	}
	logger.Info().Int("passed", len(kept)).Int("checked", len(ranked)).Msg("Health checks done")
	return kept
}

func describe(hr health.Result) string {
	reason := ""
	if hr.DebtRevenue != nil && !*hr.DebtRevenue {
		reason = "debt/equity not falling with rising revenue"
	}
	if hr.CashflowQuality != nil && !*hr.CashflowQuality {
		if reason != "" {
			reason += "; "
		}
		reason += "operating cash flow below net income"
	}
	return reason
}

// FetchAll resolves every ticker on at most workers goroutines and returns
// only after all of them finished. Errors are wrapped in *types.FetchError.
func FetchAll(ctx context.Context, f Fetcher, tickers []string, workers int, progress ProgressFunc) map[string]Outcome {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	results := make([]Outcome, len(tickers))
	var done atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, t := range tickers {
		i, t := i, t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Outcome{Err: &types.FetchError{Ticker: t, Err: err}}
			} else if rec, err := f.GetOrFetch(ctx, t); err != nil {
				results[i] = Outcome{Err: &types.FetchError{Ticker: t, Err: err}}
			} else {
				results[i] = Outcome{Record: rec}
			}
			n := done.Add(1)
			if progress != nil {
				progress(int(n), len(tickers), t)
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Outcome, len(tickers))
	for i, t := range tickers {
		out[t] = results[i]
	}
	return out
}
