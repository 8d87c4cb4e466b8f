package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/komsit37/mf/pkg/mf/fmp"
)

func f(v float64) *float64 { return &v }

// statements are newest first, as FMP returns them
type fakeStatements struct {
	inc []fmp.IncomeStatement
	bs  []fmp.BalanceSheet
	cf  []fmp.CashFlowStatement
	err error
}

func (s fakeStatements) IncomeStatements(context.Context, string, bool, int) ([]fmp.IncomeStatement, error) {
	return s.inc, s.err
}

func (s fakeStatements) BalanceSheets(context.Context, string, int) ([]fmp.BalanceSheet, error) {
	return s.bs, s.err
}

func (s fakeStatements) CashFlows(context.Context, string, int) ([]fmp.CashFlowStatement, error) {
	return s.cf, s.err
}

func improving() fakeStatements {
	return fakeStatements{
		inc: []fmp.IncomeStatement{{Revenue: f(300)}, {Revenue: f(200)}, {Revenue: f(100)}},
		bs: []fmp.BalanceSheet{
			{TotalDebt: f(10), TotalStockholdersEquity: f(100)},
			{TotalDebt: f(20), TotalStockholdersEquity: f(100)},
			{TotalDebt: f(30), TotalStockholdersEquity: f(100)},
		},
		cf: []fmp.CashFlowStatement{
			{OperatingCashFlow: f(5), NetIncome: f(4)},
			{OperatingCashFlow: f(5), NetIncome: f(4)},
			{OperatingCashFlow: f(5), NetIncome: f(4)},
			{OperatingCashFlow: f(5), NetIncome: f(4)},
		},
	}
}

func TestCheckPasses(t *testing.T) {
	c := NewChecker(improving(), Checks{DebtRevenue: true, CashflowQuality: true}, nil)
	res := c.Check(context.Background(), "ACME")
	require.NotNil(t, res.DebtRevenue)
	require.NotNil(t, res.CashflowQuality)
	assert.True(t, *res.DebtRevenue)
	assert.True(t, *res.CashflowQuality)
	assert.True(t, res.Passed())
}

func TestCheckFails(t *testing.T) {
	s := improving()
	s.inc[0].Revenue = f(50) // latest quarter shrinks
	s.cf[2].OperatingCashFlow = f(1)

	res := NewChecker(s, Checks{DebtRevenue: true, CashflowQuality: true}, nil).Check(context.Background(), "ACME")
	assert.False(t, *res.DebtRevenue)
	assert.False(t, *res.CashflowQuality)
	assert.False(t, res.Passed())
}

func TestCheckUnknownPasses(t *testing.T) {
	res := NewChecker(fakeStatements{err: errors.New("down")}, Checks{DebtRevenue: true, CashflowQuality: true}, nil).
		Check(context.Background(), "ACME")
	assert.Nil(t, res.DebtRevenue)
	assert.Nil(t, res.CashflowQuality)
	assert.True(t, res.Passed())

	short := improving()
	short.cf = short.cf[:2]
	res = NewChecker(short, Checks{CashflowQuality: true}, nil).Check(context.Background(), "ACME")
	assert.Nil(t, res.CashflowQuality)
	assert.Nil(t, res.DebtRevenue)
}

func TestDebtRevenueTrendNegativeEquity(t *testing.T) {
	bs := []fmp.BalanceSheet{
		{TotalDebt: f(10), TotalStockholdersEquity: f(-5)}, // newest: D/E infinite
		{TotalDebt: f(10), TotalStockholdersEquity: f(100)},
	}
	inc := []fmp.IncomeStatement{{Revenue: f(2)}, {Revenue: f(1)}}
	assert.False(t, DebtRevenueTrend(bs, inc))
}
