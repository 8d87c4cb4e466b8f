// Package fmp is a client for the Financial Modeling Prep fundamentals API.
package fmp

import (
	"fmt"
	"strings"
	"time"
)

// Profile is one element of /profile/{ticker}.
type Profile struct {
	Symbol            string   `json:"symbol"`
	CompanyName       string   `json:"companyName"`
	ExchangeShortName string   `json:"exchangeShortName"`
	Country           string   `json:"country"`
	Sector            string   `json:"sector"`
	Industry          string   `json:"industry"`
	MktCap            *float64 `json:"mktCap"`
	MarketCap         *float64 `json:"marketCap"`
	IsEtf             bool     `json:"isEtf"`
	IsFund            bool     `json:"isFund"`
}

// IncomeStatement holds the income-statement fields the screener reads.
type IncomeStatement struct {
	Date                  string   `json:"date"`
	Period                string   `json:"period"`
	Revenue               *float64 `json:"revenue"`
	OperatingIncome       *float64 `json:"operatingIncome"`
	NetIncome             *float64 `json:"netIncome"`
	WeightedAverageShsOut *float64 `json:"weightedAverageShsOut"`
}

// BalanceSheet holds the balance-sheet fields the screener reads.
type BalanceSheet struct {
	Date                        string   `json:"date"`
	TotalCurrentAssets          *float64 `json:"totalCurrentAssets"`
	TotalCurrentLiabilities     *float64 `json:"totalCurrentLiabilities"`
	PropertyPlantEquipmentNet   *float64 `json:"propertyPlantEquipmentNet"`
	CashAndShortTermInvestments *float64 `json:"cashAndShortTermInvestments"`
	CashAndCashEquivalents      *float64 `json:"cashAndCashEquivalents"`
	TotalDebt                   *float64 `json:"totalDebt"`
	ShortTermDebt               *float64 `json:"shortTermDebt"`
	LongTermDebt                *float64 `json:"longTermDebt"`
	TotalStockholdersEquity     *float64 `json:"totalStockholdersEquity"`
}

// CashFlowStatement holds the cash-flow fields used by health checks.
type CashFlowStatement struct {
	Date              string   `json:"date"`
	OperatingCashFlow *float64 `json:"operatingCashFlow"`
	NetIncome         *float64 `json:"netIncome"`
}

// ScreenerRow is one element of /stock-screener.
type ScreenerRow struct {
	Symbol            string  `json:"symbol"`
	CompanyName       string  `json:"companyName"`
	MarketCap         float64 `json:"marketCap"`
	Country           string  `json:"country"`
	ExchangeShortName string  `json:"exchangeShortName"`
	Sector            string  `json:"sector"`
}

// APIError is a non-success response from FMP.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("FMP API error: %s (status: %d, endpoint: %s)", strings.TrimSpace(e.Message), e.StatusCode, e.Endpoint)
}

// RateLimitError is returned when FMP keeps answering 429 after all retries.
type RateLimitError struct {
	RetryAfter time.Duration
	Endpoint   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("FMP rate limit exceeded on %s, retry after %v", e.Endpoint, e.RetryAfter)
}

// MissingFieldsError reports required fundamentals absent from the payload.
type MissingFieldsError struct {
	Ticker string
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("%s: missing %s", e.Ticker, strings.Join(e.Fields, ", "))
}
