package fmp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/komsit37/mf/pkg/mf/types"
)

const (
	profileJSON = `[{"symbol":"ACME","companyName":"Acme Corp","exchangeShortName":"NASDAQ","country":"US","sector":"Industrials","industry":"Machinery","mktCap":1000}]`
	quarterJSON = `[{"operatingIncome":10,"weightedAverageShsOut":50},{"operatingIncome":20},{"operatingIncome":30},{"operatingIncome":40}]`
	annualJSON  = `[{"operatingIncome":123,"weightedAverageShsOut":50}]`
	balanceJSON = `[{"totalCurrentAssets":300,"totalCurrentLiabilities":100,"propertyPlantEquipmentNet":200,"cashAndShortTermInvestments":50,"totalDebt":150}]`
)

func newTestServer(t *testing.T, routes map[string]string) (*httptest.Server, *int64) {
	t.Helper()
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		if r.URL.Query().Get("apikey") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		key := r.URL.Path
		if p := r.URL.Query().Get("period"); p != "" {
			key += "?" + p
		}
		body, ok := routes[key]
		if !ok {
			body, ok = routes[r.URL.Path]
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestCompanyTTM(t *testing.T) {
	srv, hits := newTestServer(t, map[string]string{
		"/profile/ACME":                 profileJSON,
		"/income-statement/ACME":        quarterJSON,
		"/balance-sheet-statement/ACME": balanceJSON,
	})
	c := NewClient("test-key", WithBaseURL(srv.URL))

	rec, err := c.Company(context.Background(), "ACME", types.PeriodTTM)
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", rec.Name)
	assert.Equal(t, "NASDAQ", rec.Exchange)
	assert.Equal(t, 1000.0, rec.MarketCap)
	assert.Equal(t, 100.0, rec.EBIT)
	assert.Equal(t, 300.0, rec.CurrentAssets)
	assert.Equal(t, 100.0, rec.CurrentLiabilities)
	assert.Equal(t, 200.0, rec.NetFixedAssets)
	assert.Equal(t, 50.0, rec.Cash)
	assert.Equal(t, 150.0, rec.TotalDebt)
	assert.Equal(t, 50.0, rec.SharesOutstanding)
	assert.Equal(t, types.PeriodTTM, rec.Period)
	assert.Equal(t, int64(3), atomic.LoadInt64(hits))
}

func TestCompanyAnnual(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{
		"/profile/ACME":                 profileJSON,
		"/income-statement/ACME?annual": annualJSON,
		"/balance-sheet-statement/ACME": balanceJSON,
	})
	c := NewClient("test-key", WithBaseURL(srv.URL))

	rec, err := c.Company(context.Background(), "ACME", types.PeriodAnnual)
	require.NoError(t, err)
	assert.Equal(t, 123.0, rec.EBIT)
}

func TestCompanyMissingFields(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{
		"/profile/ACME":                 `[{"symbol":"ACME","marketCap":1000}]`,
		"/income-statement/ACME":        `[]`,
		"/balance-sheet-statement/ACME": `[{"totalCurrentAssets":1,"totalCurrentLiabilities":1,"shortTermDebt":5}]`,
	})
	c := NewClient("test-key", WithBaseURL(srv.URL))

	_, err := c.Company(context.Background(), "ACME", types.PeriodTTM)
	var mf *MissingFieldsError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, []string{"ebit", "ppe", "cash"}, mf.Fields)
}

func TestCompanySkipStatements(t *testing.T) {
	srv, hits := newTestServer(t, map[string]string{
		"/profile/BANK": `[{"symbol":"BANK","companyName":"Big Bank","sector":"Financial Services","mktCap":5000}]`,
	})
	c := NewClient("test-key", WithBaseURL(srv.URL), WithSkipStatements(func(r types.CompanyRecord) bool {
		return r.Sector == "Financial Services"
	}))

	rec, err := c.Company(context.Background(), "BANK", types.PeriodTTM)
	require.NoError(t, err)
	assert.Equal(t, "Financial Services", rec.Sector)
	assert.Equal(t, 5000.0, rec.MarketCap)
	assert.True(t, rec.ProfileOnly)
	assert.Equal(t, int64(1), atomic.LoadInt64(hits))
}

func TestProfileEmpty(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{"/profile/NONE": `[]`})
	c := NewClient("test-key", WithBaseURL(srv.URL))

	_, err := c.Profile(context.Background(), "NONE")
	assert.ErrorIs(t, err, ErrNoProfile)
}

func TestAPIError(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	c := NewClient("wrong-key", WithBaseURL(srv.URL))

	_, err := c.Profile(context.Background(), "ACME")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "/profile/ACME", apiErr.Endpoint)
}

func TestMalformedPayload(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{"/profile/ACME": `{not json`})
	c := NewClient("test-key", WithBaseURL(srv.URL))

	_, err := c.Profile(context.Background(), "ACME")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestRetryOn429(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(profileJSON))
	}))
	defer srv.Close()

	waiter := &countingWaiter{}
	c := NewClient("test-key", WithBaseURL(srv.URL), WithRetries(3, time.Millisecond), WithLimiter(waiter))
	prof, err := c.Profile(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", prof.CompanyName)
	assert.Equal(t, int64(3), atomic.LoadInt64(&calls))
	// every attempt, retries included, is charged to the shared limiter
	assert.Equal(t, int64(3), atomic.LoadInt64(&waiter.n))
}

func TestRateLimitExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithRetries(2, time.Millisecond))
	_, err := c.Profile(context.Background(), "ACME")
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 2*time.Millisecond, rl.RetryAfter)
}

func TestScreener(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Encode()
		w.Write([]byte(`[{"symbol":"AAA","marketCap":1e9,"country":"US"},{"symbol":"BBB","marketCap":2e9,"country":"CA"}]`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	rows, err := c.Screener(context.Background(), "NASDAQ")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2e9, rows[1].MarketCap)
	assert.Contains(t, got, "exchange=NASDAQ")
	assert.Contains(t, got, "isEtf=false")
	assert.Contains(t, got, "isActivelyTrading=true")
}

func TestEBIT(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name   string
		inc    []IncomeStatement
		period types.Period
		want   *float64
	}{
		{"no statements", nil, types.PeriodTTM, nil},
		{"four quarters", []IncomeStatement{{OperatingIncome: f(1)}, {OperatingIncome: f(2)}, {OperatingIncome: f(3)}, {OperatingIncome: f(4)}}, types.PeriodTTM, f(10)},
		{"two quarters annualised", []IncomeStatement{{OperatingIncome: f(5)}, {OperatingIncome: f(5)}}, types.PeriodTTM, f(20)},
		{"extra quarters ignored", []IncomeStatement{{OperatingIncome: f(1)}, {OperatingIncome: f(1)}, {OperatingIncome: f(1)}, {OperatingIncome: f(1)}, {OperatingIncome: f(100)}}, types.PeriodTTM, f(4)},
		{"annual latest", []IncomeStatement{{OperatingIncome: f(7)}, {OperatingIncome: f(9)}}, types.PeriodAnnual, f(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EBIT(tt.inc, tt.period)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

type countingWaiter struct{ n int64 }

func (w *countingWaiter) Wait(context.Context) error {
	atomic.AddInt64(&w.n, 1)
	return nil
}
