package fmp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/komsit37/mf/pkg/mf/types"
)

const (
	// DefaultBaseURL is the base URL for the FMP v3 API.
	DefaultBaseURL = "https://financialmodelingprep.com/api/v3"

	// DefaultTimeout bounds every HTTP call.
	DefaultTimeout = 30 * time.Second

	// DefaultRetries is how many times a 429 is retried.
	DefaultRetries = 3

	// DefaultBackoff is multiplied by the attempt number between 429 retries.
	DefaultBackoff = 800 * time.Millisecond

	userAgent = "mf/1.0"
)

// ErrNoProfile is returned when FMP knows nothing about a ticker.
var ErrNoProfile = errors.New("no profile")

// Waiter gates outbound requests. *ratelimit.Limiter implements it.
type Waiter interface {
	Wait(ctx context.Context) error
}

type noWait struct{}

func (noWait) Wait(context.Context) error { return nil }

// Client is an FMP API client. It is safe for concurrent use; all requests of
// all goroutines pass through the same Waiter.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    Waiter
	retries    int
	backoff    time.Duration
	skip       func(types.CompanyRecord) bool
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithLimiter shares a rate limiter between this client and its callers.
func WithLimiter(l Waiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithRetries sets the 429 retry policy.
func WithRetries(retries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.retries = retries
		c.backoff = backoff
	}
}

// WithSkipStatements makes Company return a profile-only record, without
// fetching statements, for companies the predicate rejects (e.g. banks).
func WithSkipStatements(skip func(types.CompanyRecord) bool) ClientOption {
	return func(c *Client) {
		c.skip = skip
	}
}

// NewClient creates a new FMP API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: noWait{},
		retries: DefaultRetries,
		backoff: DefaultBackoff,
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = arbor.NewLogger()
	}
	if c.retries < 1 {
		c.retries = 1
	}

	return c
}

// get performs a GET request, retrying on 429 with linear backoff.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)

		c.logger.Debug().Str("path", path).Int("attempt", attempt+1).Msg("FMP API request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			wait := c.backoff * time.Duration(attempt+1)
			lastErr = &RateLimitError{RetryAfter: wait, Endpoint: path}
			c.logger.Warn().Str("path", path).Str("backoff", wait.String()).Msg("FMP rate limited, backing off")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		err = decode(resp, path, result)
		resp.Body.Close()
		return err
	}
	return lastErr
}

func decode(resp *http.Response, path string, result interface{}) error {
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// Profile retrieves the company profile.
func (c *Client) Profile(ctx context.Context, ticker string) (*Profile, error) {
	var result []Profile
	if err := c.get(ctx, "/profile/"+ticker, nil, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, ErrNoProfile
	}
	return &result[0], nil
}

// IncomeStatements retrieves the latest n statements; annual or quarterly.
func (c *Client) IncomeStatements(ctx context.Context, ticker string, annual bool, n int) ([]IncomeStatement, error) {
	var result []IncomeStatement
	if err := c.get(ctx, "/income-statement/"+ticker, periodParams(annual, n), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// BalanceSheets retrieves the latest n quarterly balance sheets.
func (c *Client) BalanceSheets(ctx context.Context, ticker string, n int) ([]BalanceSheet, error) {
	var result []BalanceSheet
	if err := c.get(ctx, "/balance-sheet-statement/"+ticker, periodParams(false, n), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CashFlows retrieves the latest n quarterly cash-flow statements.
func (c *Client) CashFlows(ctx context.Context, ticker string, n int) ([]CashFlowStatement, error) {
	var result []CashFlowStatement
	if err := c.get(ctx, "/cash-flow-statement/"+ticker, periodParams(false, n), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Screener lists actively traded common stocks on an exchange.
func (c *Client) Screener(ctx context.Context, exchange string) ([]ScreenerRow, error) {
	params := url.Values{}
	params.Set("exchange", exchange)
	params.Set("isEtf", "false")
	params.Set("isFund", "false")
	params.Set("isActivelyTrading", "true")
	params.Set("limit", "10000")

	var result []ScreenerRow
	if err := c.get(ctx, "/stock-screener", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func periodParams(annual bool, n int) url.Values {
	params := url.Values{}
	if annual {
		params.Set("period", "annual")
	} else {
		params.Set("period", "quarter")
	}
	params.Set("limit", strconv.Itoa(n))
	return params
}

// Company fetches profile and statements and assembles a CompanyRecord.
func (c *Client) Company(ctx context.Context, ticker string, period types.Period) (types.CompanyRecord, error) {
	prof, err := c.Profile(ctx, ticker)
	if err != nil {
		return types.CompanyRecord{}, err
	}
	rec := types.CompanyRecord{
		Ticker:   ticker,
		Name:     firstNonEmpty(prof.CompanyName, prof.Symbol, ticker),
		Exchange: prof.ExchangeShortName,
		Country:  prof.Country,
		Sector:   prof.Sector,
		Industry: prof.Industry,
		Period:   period,
	}
	mcap := firstValue(prof.MktCap, prof.MarketCap)
	if mcap != nil {
		rec.MarketCap = *mcap
	}
	if c.skip != nil && c.skip(rec) {
		rec.ProfileOnly = true
		return rec, nil
	}

	annual := period == types.PeriodAnnual
	n := 4
	if annual {
		n = 1
	}
	inc, err := c.IncomeStatements(ctx, ticker, annual, n)
	if err != nil {
		return types.CompanyRecord{}, err
	}
	bal, err := c.BalanceSheets(ctx, ticker, 1)
	if err != nil {
		return types.CompanyRecord{}, err
	}

	return assemble(rec, mcap, inc, bal)
}

// assemble fills statement-derived fields, reporting every missing one.
func assemble(rec types.CompanyRecord, mcap *float64, inc []IncomeStatement, bal []BalanceSheet) (types.CompanyRecord, error) {
	var missing []string
	need := func(name string, v *float64) float64 {
		if v == nil {
			missing = append(missing, name)
			return 0
		}
		return *v
	}

	var b BalanceSheet
	if len(bal) > 0 {
		b = bal[0]
	}

	ebit := EBIT(inc, rec.Period)
	rec.EBIT = need("ebit", ebit)
	rec.CurrentAssets = need("tca", b.TotalCurrentAssets)
	rec.CurrentLiabilities = need("tcl", b.TotalCurrentLiabilities)
	rec.NetFixedAssets = need("ppe", b.PropertyPlantEquipmentNet)
	rec.Cash = need("cash", firstValue(b.CashAndShortTermInvestments, b.CashAndCashEquivalents))
	rec.TotalDebt = need("debt", firstValue(b.TotalDebt, b.ShortTermDebt, b.LongTermDebt))
	need("mcap", mcap)
	if len(inc) > 0 && inc[0].WeightedAverageShsOut != nil {
		rec.SharesOutstanding = *inc[0].WeightedAverageShsOut
	}

	if len(missing) > 0 {
		return types.CompanyRecord{}, &MissingFieldsError{Ticker: rec.Ticker, Fields: missing}
	}
	return rec, nil
}

// EBIT uses operating income as the proxy. TTM sums the last four quarters and
// annualises when fewer are reported; annual takes the latest statement.
func EBIT(inc []IncomeStatement, period types.Period) *float64 {
	if len(inc) == 0 {
		return nil
	}
	if period == types.PeriodAnnual {
		return inc[0].OperatingIncome
	}
	quarters := inc
	if len(quarters) > 4 {
		quarters = quarters[:4]
	}
	var sum float64
	for _, q := range quarters {
		if q.OperatingIncome != nil {
			sum += *q.OperatingIncome
		}
	}
	if len(quarters) < 4 {
		sum *= 4 / float64(len(quarters))
	}
	return &sum
}

func firstValue(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
