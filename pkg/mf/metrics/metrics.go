// Package metrics derives Magic Formula ratios from a company record.
package metrics

import (
	"errors"
	"fmt"
	"math"

	"github.com/komsit37/mf/pkg/mf/types"
)

// ErrUndefined marks a ratio whose denominator is not positive.
var ErrUndefined = errors.New("undefined metric")

// UndefinedError explains why a ticker cannot be ranked.
type UndefinedError struct {
	Ticker string
	Reason string
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Ticker, e.Reason)
}

func (e *UndefinedError) Is(target error) bool { return target == ErrUndefined }

// Calculator computes DerivedMetrics. The zero value applies no sanity bounds.
type Calculator struct {
	// MaxEarningsYield excludes companies above it (likely data errors). 0 disables.
	MaxEarningsYield float64
	// MaxReturnOnCapital caps ROC. 0 disables.
	MaxReturnOnCapital float64
	// MinCapital excludes companies with a smaller capital base. 0 disables.
	MinCapital float64
}

// Compute is pure: no I/O, no side effects.
func (c Calculator) Compute(r types.CompanyRecord) (types.DerivedMetrics, error) {
	m := types.DerivedMetrics{
		EnterpriseValue:   r.MarketCap + r.TotalDebt - r.Cash,
		NetWorkingCapital: r.CurrentAssets - r.CurrentLiabilities,
	}
	m.Capital = m.NetWorkingCapital + r.NetFixedAssets

	if !(m.EnterpriseValue > 0) {
		return m, &UndefinedError{Ticker: r.Ticker, Reason: fmt.Sprintf("enterprise value %.0f is not positive", m.EnterpriseValue)}
	}
	if !(m.Capital > 0) {
		return m, &UndefinedError{Ticker: r.Ticker, Reason: fmt.Sprintf("capital %.0f is not positive", m.Capital)}
	}

	m.EarningsYield = r.EBIT / m.EnterpriseValue
	m.ReturnOnCapital = r.EBIT / m.Capital
	if !finite(m.EarningsYield) || !finite(m.ReturnOnCapital) {
		return m, &UndefinedError{Ticker: r.Ticker, Reason: "non-finite ratio"}
	}

	if c.MinCapital > 0 && m.Capital < c.MinCapital {
		return m, &UndefinedError{Ticker: r.Ticker, Reason: fmt.Sprintf("capital %.0f below minimum %.0f", m.Capital, c.MinCapital)}
	}
	if c.MaxEarningsYield > 0 && m.EarningsYield > c.MaxEarningsYield {
		return m, &UndefinedError{Ticker: r.Ticker, Reason: fmt.Sprintf("earnings yield %.2f above %.2f", m.EarningsYield, c.MaxEarningsYield)}
	}
	if c.MaxReturnOnCapital > 0 && m.ReturnOnCapital > c.MaxReturnOnCapital {
		m.ReturnOnCapital = c.MaxReturnOnCapital
	}
	return m, nil
}

// Compute applies the plain formula without sanity bounds.
func Compute(r types.CompanyRecord) (types.DerivedMetrics, error) {
	return Calculator{}.Compute(r)
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
