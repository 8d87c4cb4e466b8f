// Package enrich decorates ranked results with live quotes.
package enrich

import (
	"context"
	"fmt"
	"time"

	yfgo "github.com/komsit37/yf-go"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/komsit37/mf/pkg/mf/types"
)

// QuoteService fetches a quote for a symbol.
type QuoteService interface {
	Get(ctx context.Context, sym string) (types.Quote, error)
}

// YFService implements QuoteService using yf-go.
type YFService struct {
	client  *yfgo.Client
	timeout time.Duration
}

func NewYFService(timeout time.Duration) *YFService {
	return &YFService{client: yfgo.NewClient(), timeout: timeout}
}

func (s *YFService) Get(ctx context.Context, sym string) (types.Quote, error) {
	if sym == "" {
		return types.Quote{}, nil
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.client.QuoteSummaryTyped(cctx, sym, []yfgo.QuoteSummaryModule{yfgo.ModulePrice})
	if err != nil {
		return types.Quote{}, err
	}
	if res.Price == nil {
		return types.Quote{}, fmt.Errorf("no price for %s", sym)
	}

	var q types.Quote
	// Price
	p := res.Price.RegularMarketPrice
	if p.Fmt != "" {
		q.Price = p.Fmt
	} else if p.Raw != nil {
		q.Price = fmt.Sprintf("%.2f", *p.Raw)
	}
	// Change percent
	cp := res.Price.RegularMarketChangePercent
	if cp.Fmt != "" {
		q.ChgFmt = cp.Fmt
	}
	if cp.Raw != nil {
		q.ChgRaw = *cp.Raw
		if q.ChgFmt == "" {
			q.ChgFmt = fmt.Sprintf("%.2f%%", q.ChgRaw)
		}
	}
	// Name
	if res.Price.ShortName != "" {
		q.Name = res.Price.ShortName
	} else if res.Price.LongName != "" {
		q.Name = res.Price.LongName
	}
	return q, nil
}

// Quotes attaches a quote to every result. Failures leave Quote nil and are
// only logged; quotes never affect ranking.
func Quotes(ctx context.Context, svc QuoteService, results []types.RankedResult, workers int, logger arbor.ILogger) {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = arbor.NewLogger()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range results {
		i := i
		g.Go(func() error {
			sym := results[i].Record.Ticker
			q, err := svc.Get(gctx, sym)
			if err != nil {
				logger.Debug().Err(err).Str("ticker", sym).Msg("Quote unavailable")
				return nil
			}
			results[i].Quote = &q
			return nil
		})
	}
	_ = g.Wait()
}
