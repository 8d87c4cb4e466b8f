package metrics

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/komsit37/mf/pkg/mf/types"
)

func record() types.CompanyRecord {
	return types.CompanyRecord{
		Ticker:             "ACME",
		MarketCap:          1000,
		TotalDebt:          200,
		Cash:               200,
		EBIT:               100,
		CurrentAssets:      300,
		CurrentLiabilities: 100,
		NetFixedAssets:     300,
	}
}

func TestCompute(t *testing.T) {
	m, err := Compute(record())
	require.NoError(t, err)
	assert.Equal(t, 1000.0, m.EnterpriseValue)
	assert.Equal(t, 200.0, m.NetWorkingCapital)
	assert.Equal(t, 500.0, m.Capital)
	assert.InDelta(t, 0.1, m.EarningsYield, 1e-12)
	assert.InDelta(t, 0.2, m.ReturnOnCapital, 1e-12)
}

func TestComputeNegativeWorkingCapitalAllowed(t *testing.T) {
	r := record()
	r.CurrentLiabilities = 400 // NWC = -100, capital = 200
	m, err := Compute(r)
	require.NoError(t, err)
	assert.Equal(t, -100.0, m.NetWorkingCapital)
	assert.InDelta(t, 0.5, m.ReturnOnCapital, 1e-12)
}

func TestComputeUndefined(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.CompanyRecord)
	}{
		{"zero enterprise value", func(r *types.CompanyRecord) { r.Cash = 1200 }},
		{"negative enterprise value", func(r *types.CompanyRecord) { r.Cash = 5000 }},
		{"zero capital", func(r *types.CompanyRecord) { r.CurrentLiabilities = 600 }},
		{"negative capital", func(r *types.CompanyRecord) { r.NetFixedAssets = -1000 }},
		{"NaN market cap", func(r *types.CompanyRecord) { r.MarketCap = math.NaN() }},
		{"infinite EBIT", func(r *types.CompanyRecord) { r.EBIT = math.Inf(1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := record()
			tt.mutate(&r)
			_, err := Compute(r)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUndefined))
			var ue *UndefinedError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, "ACME", ue.Ticker)
		})
	}
}

func TestCalculatorBounds(t *testing.T) {
	c := Calculator{MaxEarningsYield: 0.5, MaxReturnOnCapital: 1.0, MinCapital: 100}

	r := record()
	r.EBIT = 900 // EY 0.9
	_, err := c.Compute(r)
	assert.ErrorIs(t, err, ErrUndefined)

	r = record()
	r.EBIT = 400
	r.MarketCap = 10000 // EY ~0.04, ROC 0.8
	r.NetFixedAssets = 100
	r.CurrentAssets = 200
	r.CurrentLiabilities = 100 // capital 200, ROC 2.0 capped
	m, err := c.Compute(r)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.ReturnOnCapital)

	r = record()
	r.NetFixedAssets = -150 // capital 50
	_, err = c.Compute(r)
	assert.ErrorIs(t, err, ErrUndefined)
}

// Any record with positive EV and capital yields finite ratios.
func TestComputeFiniteProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		r := types.CompanyRecord{
			Ticker:             "X",
			MarketCap:          rng.Float64() * 1e12,
			TotalDebt:          rng.Float64() * 1e11,
			Cash:               rng.Float64() * 1e11,
			EBIT:               (rng.Float64() - 0.3) * 1e10,
			CurrentAssets:      rng.Float64() * 1e11,
			CurrentLiabilities: rng.Float64() * 1e11,
			NetFixedAssets:     rng.Float64() * 1e11,
		}
		m, err := Compute(r)
		ev := r.MarketCap + r.TotalDebt - r.Cash
		capital := r.CurrentAssets - r.CurrentLiabilities + r.NetFixedAssets
		if ev > 0 && capital > 0 {
			require.NoError(t, err)
			assert.True(t, finite(m.EarningsYield))
			assert.True(t, finite(m.ReturnOnCapital))
		} else {
			assert.ErrorIs(t, err, ErrUndefined)
		}
	}
}
