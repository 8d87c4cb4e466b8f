package types

import (
	"fmt"
	"time"
)

// Period selects which statements feed EBIT.
type Period string

const (
	PeriodTTM    Period = "ttm"
	PeriodAnnual Period = "annual"
)

// ParsePeriod accepts "ttm" or "annual"; empty means TTM.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodTTM:
		return PeriodTTM, nil
	case PeriodAnnual:
		return PeriodAnnual, nil
	}
	return "", fmt.Errorf("unknown period %q (want ttm or annual)", s)
}

// CompanyRecord is the raw fundamentals snapshot for one ticker.
type CompanyRecord struct {
	Ticker             string  `json:"ticker"`
	Name               string  `json:"name"`
	Exchange           string  `json:"exchange"`
	Country            string  `json:"country"`
	Sector             string  `json:"sector"`
	Industry           string  `json:"industry"`
	MarketCap          float64 `json:"market_cap"`
	EBIT               float64 `json:"ebit"`
	TotalDebt          float64 `json:"total_debt"`
	Cash               float64 `json:"cash"`
	CurrentAssets      float64 `json:"current_assets"`
	CurrentLiabilities float64 `json:"current_liabilities"`
	NetFixedAssets     float64 `json:"net_fixed_assets"`
	SharesOutstanding  float64 `json:"shares_outstanding"`
	Period             Period  `json:"period"`
	// ProfileOnly marks a record whose statements were skipped (excluded
	// sector). Its financial fields are zero and it is never cached.
	ProfileOnly bool `json:"profile_only,omitempty"`
}

// DerivedMetrics are computed from a CompanyRecord.
type DerivedMetrics struct {
	EnterpriseValue   float64 `json:"enterprise_value"`
	NetWorkingCapital float64 `json:"net_working_capital"`
	Capital           float64 `json:"capital"`
	EarningsYield     float64 `json:"earnings_yield"`
	ReturnOnCapital   float64 `json:"return_on_capital"`
}

// RankedResult is one row of the screener output.
type RankedResult struct {
	Record   CompanyRecord  `json:"record"`
	Metrics  DerivedMetrics `json:"metrics"`
	EYRank   int            `json:"ey_rank"`
	ROCRank  int            `json:"roc_rank"`
	Score    int            `json:"score"`
	Position int            `json:"position"`
	Quote    *Quote         `json:"quote,omitempty"`
}

// CacheEntry is a persisted fetch result.
type CacheEntry struct {
	Key       string
	Record    CompanyRecord
	FetchedAt time.Time
}

// Quote contains formatted and raw change values for rendering.
type Quote struct {
	Price  string  `json:"price"`
	ChgFmt string  `json:"chg_fmt"`
	ChgRaw float64 `json:"chg_raw"`
	Name   string  `json:"name"`
}

// FailureKind classifies why a ticker is missing from the ranking.
type FailureKind string

const (
	FailFetch        FailureKind = "fetch"
	FailUndefined    FailureKind = "undefined"
	FailExcluded     FailureKind = "excluded"
	FailBelowMinMcap FailureKind = "below_min_mcap"
	FailUnhealthy    FailureKind = "unhealthy"
)

// Failure records a ticker dropped from a scan.
type Failure struct {
	Ticker string      `json:"ticker"`
	Kind   FailureKind `json:"kind"`
	Reason string      `json:"reason"`
}

// FetchError is a per-ticker fetch failure. It never aborts a scan.
type FetchError struct {
	Ticker string
	Err    error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.Ticker, e.Err) }

func (e *FetchError) Unwrap() error { return e.Err }

// Report is the outcome of one scan.
type Report struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Universe   int            `json:"universe"`
	Ranked     int            `json:"ranked"`
	Results    []RankedResult `json:"results"`
	Failures   []Failure      `json:"failures"`
}

// Count returns the number of failures of the given kind.
func (r *Report) Count(kind FailureKind) int {
	n := 0
	for _, f := range r.Failures {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Summary is the one-line aggregate shown to users.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d of %d tickers failed to fetch; %d undefined metrics, %d excluded sectors, %d below min market cap, %d unhealthy; %d ranked",
		r.Count(FailFetch), r.Universe,
		r.Count(FailUndefined), r.Count(FailExcluded), r.Count(FailBelowMinMcap), r.Count(FailUnhealthy),
		r.Ranked)
}
