// Package server is the browser dashboard: a scan form, the ranked table,
// a JSON endpoint and CSV export, with optional scheduled rescans.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/singleflight"

	"github.com/komsit37/mf/pkg/mf/pipeline"
	"github.com/komsit37/mf/pkg/mf/types"
)

// Scanner runs one scan. *pipeline.Runner implements it.
type Scanner interface {
	Scan(ctx context.Context, opts pipeline.ExecuteOptions) (*types.Report, error)
}

type Config struct {
	Addr string
	// Defaults seed every scan; query parameters override Top, MinMarketCap,
	// Limit and Random.
	Defaults pipeline.ExecuteOptions
	// Schedule is a cron expression for background rescans; empty disables.
	Schedule string
	// ScanTimeout bounds every scan, scheduled or requested.
	ScanTimeout time.Duration
}

// Server manages the HTTP server, routes and the latest report.
type Server struct {
	scanner Scanner
	cfg     Config
	logger  arbor.ILogger
	router  *http.ServeMux
	server  *http.Server
	cron    *cron.Cron

	flight singleflight.Group

	mu        sync.RWMutex
	latest    *types.Report
	latestKey string
}

func New(scanner Scanner, cfg Config, logger arbor.ILogger) *Server {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 30 * time.Minute
	}
	s := &Server{scanner: scanner, cfg: cfg, logger: logger}
	s.router = s.setupRoutes()
	s.server = &http.Server{
		Addr:        cfg.Addr,
		Handler:     s.withMiddleware(s.router),
		ReadTimeout: 15 * time.Second,
		// scans can take minutes on a cold cache
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start runs the scheduler (if configured) and blocks serving HTTP.
func (s *Server) Start() error {
	if s.cfg.Schedule != "" {
		if err := s.startSchedule(); err != nil {
			return err
		}
	}
	s.logger.Info().Str("address", s.cfg.Addr).Msg("Dashboard starting")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops the scheduler and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info().Msg("Dashboard stopped")
	return nil
}

func (s *Server) startSchedule() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.refresh); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", s.cfg.Schedule).Msg("Scheduled rescans enabled")
	return nil
}

// refresh runs the default scan and keeps it as the latest report.
func (s *Server) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ScanTimeout)
	defer cancel()
	if _, err := s.report(ctx, s.cfg.Defaults, true); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled scan failed")
	}
}

// Latest returns the most recent report, or nil.
func (s *Server) Latest() *types.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// report returns the latest report for opts unless fresh is set, otherwise
// runs a scan. Concurrent requests for the same options share one scan.
func (s *Server) report(ctx context.Context, opts pipeline.ExecuteOptions, fresh bool) (*types.Report, error) {
	key := optionsKey(opts)
	if !fresh {
		s.mu.RLock()
		rep, k := s.latest, s.latestKey
		s.mu.RUnlock()
		if rep != nil && k == key {
			return rep, nil
		}
	}
	// the shared scan outlives the request that started it; each caller
	// stops waiting on its own cancellation
	ch := s.flight.DoChan(key, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ScanTimeout)
		defer cancel()
		rep, err := s.scanner.Scan(sctx, opts)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.latest, s.latestKey = rep, key
		s.mu.Unlock()
		s.logger.Info().Str("scan_id", rep.ID).Int("results", len(rep.Results)).Msg(rep.Summary())
		return rep, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*types.Report), nil
	}
}

func optionsKey(o pipeline.ExecuteOptions) string {
	return fmt.Sprintf("top=%d&min=%g&limit=%d&random=%t", o.Top, o.MinMarketCap, o.Limit, o.Random)
}
