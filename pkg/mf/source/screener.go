package source

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/ternarybob/arbor"

	"github.com/komsit37/mf/pkg/mf/fmp"
)

// Tier1Countries is the --tier1 market set.
var Tier1Countries = []string{"US", "SG", "GB", "CA"}

// ScreenerClient lists stocks per exchange. *fmp.Client implements it.
type ScreenerClient interface {
	Screener(ctx context.Context, exchange string) ([]fmp.ScreenerRow, error)
}

// Screener discovers the universe from the FMP stock screener.
type Screener struct {
	Client       ScreenerClient
	Exchanges    []string
	MinMarketCap float64
	// Countries restricts company domicile; empty means all.
	Countries []string
	Logger    arbor.ILogger
}

// Load queries every exchange. An exchange that fails is logged and skipped;
// the load fails only when every exchange fails.
func (s Screener) Load(ctx context.Context) ([]string, error) {
	logger := s.Logger
	if logger == nil {
		logger = arbor.NewLogger()
	}
	countries := map[string]struct{}{}
	for _, c := range s.Countries {
		countries[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}

	var (
		out     []string
		lastErr error
		failed  int
	)
	for _, ex := range s.Exchanges {
		rows, err := s.Client.Screener(ctx, ex)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			lastErr = err
			logger.Warn().Err(err).Str("exchange", ex).Msg("Failed to list symbols")
			continue
		}
		kept := 0
		for _, r := range rows {
			if !Eligible(r, s.MinMarketCap, countries) {
				continue
			}
			out = append(out, r.Symbol)
			kept++
		}
		logger.Info().Str("exchange", ex).Int("listed", len(rows)).Int("kept", kept).Msg("Listed symbols")
	}
	if len(s.Exchanges) > 0 && failed == len(s.Exchanges) {
		return nil, fmt.Errorf("all exchanges failed: %w", lastErr)
	}
	return out, nil
}

// Eligible keeps plain common stocks: alphabetic symbols of at most five
// letters, no warrants, units or preferreds, above the market-cap floor and,
// when countries is non-empty, domiciled in one of them.
func Eligible(r fmp.ScreenerRow, minMcap float64, countries map[string]struct{}) bool {
	sym := r.Symbol
	if sym == "" || len(sym) > 5 || strings.Contains(sym, "-") {
		return false
	}
	for _, ch := range sym {
		if !unicode.IsLetter(ch) {
			return false
		}
	}
	for _, suffix := range []string{"WT", "WS", "PR"} {
		if strings.HasSuffix(sym, suffix) {
			return false
		}
	}
	if r.MarketCap < minMcap {
		return false
	}
	if len(countries) > 0 {
		if _, ok := countries[strings.ToUpper(r.Country)]; !ok {
			return false
		}
	}
	return true
}
