// Package health runs optional balance-sheet quality checks on ranked candidates.
package health

import (
	"context"
	"math"

	"github.com/ternarybob/arbor"

	"github.com/komsit37/mf/pkg/mf/fmp"
)

// StatementClient fetches historical statements. *fmp.Client implements it.
type StatementClient interface {
	IncomeStatements(ctx context.Context, ticker string, annual bool, n int) ([]fmp.IncomeStatement, error)
	BalanceSheets(ctx context.Context, ticker string, n int) ([]fmp.BalanceSheet, error)
	CashFlows(ctx context.Context, ticker string, n int) ([]fmp.CashFlowStatement, error)
}

// Checks selects which checks run.
type Checks struct {
	// DebtRevenue requires debt/equity falling while revenue grows.
	DebtRevenue         bool
	DebtRevenueQuarters int
	// CashflowQuality requires operating cash flow above net income every quarter.
	CashflowQuality  bool
	CashflowQuarters int
}

func (c Checks) Enabled() bool { return c.DebtRevenue || c.CashflowQuality }

// Result holds per-check verdicts; nil means not run or insufficient data.
type Result struct {
	Ticker          string
	DebtRevenue     *bool
	CashflowQuality *bool
}

// Passed is false only when a check ran and failed.
func (r Result) Passed() bool {
	return (r.DebtRevenue == nil || *r.DebtRevenue) && (r.CashflowQuality == nil || *r.CashflowQuality)
}

type Checker struct {
	client StatementClient
	checks Checks
	logger arbor.ILogger
}

func NewChecker(client StatementClient, checks Checks, logger arbor.ILogger) *Checker {
	if checks.DebtRevenueQuarters <= 0 {
		checks.DebtRevenueQuarters = 6
	}
	if checks.CashflowQuarters <= 0 {
		checks.CashflowQuarters = 8
	}
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Checker{client: client, checks: checks, logger: logger}
}

// Check runs the enabled checks. Fetch errors make a verdict unknown, not failed.
func (c *Checker) Check(ctx context.Context, ticker string) Result {
	res := Result{Ticker: ticker}
	if c.checks.DebtRevenue {
		res.DebtRevenue = c.debtRevenue(ctx, ticker)
	}
	if c.checks.CashflowQuality {
		res.CashflowQuality = c.cashflow(ctx, ticker)
	}
	return res
}

func (c *Checker) debtRevenue(ctx context.Context, ticker string) *bool {
	n := c.checks.DebtRevenueQuarters
	bs, err := c.client.BalanceSheets(ctx, ticker, n)
	if err != nil {
		c.logger.Debug().Err(err).Str("ticker", ticker).Msg("Debt/revenue check skipped")
		return nil
	}
	inc, err := c.client.IncomeStatements(ctx, ticker, false, n)
	if err != nil {
		c.logger.Debug().Err(err).Str("ticker", ticker).Msg("Debt/revenue check skipped")
		return nil
	}
	if len(bs) < 3 || len(inc) < 3 {
		return nil
	}
	v := DebtRevenueTrend(bs, inc)
	return &v
}

func (c *Checker) cashflow(ctx context.Context, ticker string) *bool {
	cf, err := c.client.CashFlows(ctx, ticker, c.checks.CashflowQuarters)
	if err != nil {
		c.logger.Debug().Err(err).Str("ticker", ticker).Msg("Cash flow check skipped")
		return nil
	}
	if len(cf) < 4 {
		return nil
	}
	v := CashExceedsIncome(cf)
	return &v
}

// DebtRevenueTrend takes newest-first statements and reports whether
// debt/equity never rises and revenue never falls, oldest to newest.
func DebtRevenueTrend(bs []fmp.BalanceSheet, inc []fmp.IncomeStatement) bool {
	de := make([]float64, 0, len(bs))
	for i := len(bs) - 1; i >= 0; i-- {
		equity := val(bs[i].TotalStockholdersEquity)
		if equity > 0 {
			de = append(de, val(bs[i].TotalDebt)/equity)
		} else {
			de = append(de, math.Inf(1))
		}
	}
	for i := 0; i+1 < len(de); i++ {
		if de[i] < de[i+1] {
			return false
		}
	}
	for i := len(inc) - 1; i > 0; i-- {
		if val(inc[i].Revenue) > val(inc[i-1].Revenue) {
			return false
		}
	}
	return true
}

// CashExceedsIncome reports whether operating cash flow beat net income in every quarter.
func CashExceedsIncome(cf []fmp.CashFlowStatement) bool {
	for _, q := range cf {
		if !(val(q.OperatingCashFlow) > val(q.NetIncome)) {
			return false
		}
	}
	return true
}

func val(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
