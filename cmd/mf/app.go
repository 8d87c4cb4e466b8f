package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/komsit37/mf/pkg/mf/cache"
	"github.com/komsit37/mf/pkg/mf/config"
	"github.com/komsit37/mf/pkg/mf/filter"
	"github.com/komsit37/mf/pkg/mf/fmp"
	"github.com/komsit37/mf/pkg/mf/health"
	"github.com/komsit37/mf/pkg/mf/logging"
	"github.com/komsit37/mf/pkg/mf/metrics"
	"github.com/komsit37/mf/pkg/mf/pipeline"
	"github.com/komsit37/mf/pkg/mf/ratelimit"
	"github.com/komsit37/mf/pkg/mf/source"
	"github.com/komsit37/mf/pkg/mf/types"
)

// app holds the wired services shared by the commands.
type app struct {
	cfg     *config.Config
	logger  arbor.ILogger
	limiter *ratelimit.Limiter
	client  *fmp.Client
	store   cache.Store
	cache   *cache.Service
	sectors filter.Sectors
}

// newLogger builds the logger; a non-empty fallback replaces the default
// level when none was set by flag, env or config file.
func newLogger(cmd *cobra.Command, cfg *config.Config, fallback string) arbor.ILogger {
	level := cfg.LogLevel
	explicit := cmd.Flags().Changed(config.KeyLogLevel) ||
		os.Getenv(config.EnvPrefix+"_LOG_LEVEL") != "" ||
		v.InConfig(config.KeyLogLevel)
	if fallback != "" && !explicit {
		level = fallback
	}
	return logging.New(logging.Options{Level: level, File: cfg.LogFile})
}

func newApp(cfg *config.Config, logger arbor.ILogger) (*app, error) {
	var store cache.Store
	if cfg.NoCache {
		store = cache.NewMemoryStore()
	} else {
		bs, err := cache.OpenBadger(cfg.CacheDir, logger)
		if err != nil {
			return nil, err
		}
		store = bs
	}

	sectors := filter.NewSectors(cfg.ExcludedSectors)
	limiter := ratelimit.New(cfg.RateLimit, time.Minute)
	client := fmp.NewClient(cfg.APIKey,
		fmp.WithBaseURL(cfg.BaseURL),
		fmp.WithTimeout(cfg.Timeout),
		fmp.WithLogger(logger),
		fmp.WithLimiter(limiter),
		// excluded companies never rank, so their statements are not worth a call
		fmp.WithSkipStatements(func(r types.CompanyRecord) bool { return sectors.Excluded(r.Sector) }),
	)
	svc := cache.NewService(client, store,
		cache.WithTTL(cfg.CacheTTL),
		cache.WithPeriod(cfg.Period),
		cache.WithLogger(logger),
	)
	return &app{cfg: cfg, logger: logger, limiter: limiter, client: client, store: store, cache: svc, sectors: sectors}, nil
}

// runner builds the scan pipeline and its default options from config.
func (a *app) runner() (*pipeline.Runner, pipeline.ExecuteOptions, error) {
	cfg := a.cfg
	match, err := filter.Parse(cfg.Match)
	if err != nil {
		return nil, pipeline.ExecuteOptions{}, err
	}

	r := &pipeline.Runner{
		Source:  a.universe(),
		Fetcher: a.cache,
		Calc: metrics.Calculator{
			MaxEarningsYield:   cfg.MaxEarningsYield,
			MaxReturnOnCapital: cfg.MaxReturnOnCapital,
			MinCapital:         cfg.MinCapital,
		},
		Sectors: a.sectors,
		Logger:  a.logger,
	}
	checks := health.Checks{DebtRevenue: cfg.CheckDebtRevenue, CashflowQuality: cfg.CheckCashflow}
	if checks.Enabled() {
		r.Health = health.NewChecker(a.client, checks, a.logger)
	}

	opts := pipeline.ExecuteOptions{
		Top:          cfg.Top,
		MinMarketCap: cfg.MinMarketCap,
		Limit:        cfg.Limit,
		Random:       cfg.Random,
		Workers:      cfg.Workers,
		Match:        match,
	}
	return r, opts, nil
}

// universe picks the ticker source: --tickers as a YAML path or a comma
// list, otherwise the FMP screener.
func (a *app) universe() source.Source {
	cfg := a.cfg
	if cfg.Tickers != "" {
		if _, err := os.Stat(cfg.Tickers); err == nil {
			return source.YAML{Path: cfg.Tickers}
		}
		return source.ParseStatic(cfg.Tickers)
	}
	return source.Screener{
		Client:       a.client,
		Exchanges:    cfg.Exchanges,
		MinMarketCap: cfg.MinMarketCap,
		Countries:    cfg.Countries,
		Logger:       a.logger,
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to close cache")
	}
	a.logger.Debug().Int64("api_calls", a.limiter.Total()).Msg("Rate limiter totals")
}
