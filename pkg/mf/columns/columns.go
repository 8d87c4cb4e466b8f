package columns

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/komsit37/mf/pkg/mf/types"
)

// Def describes one output column. Value is the human form shown in tables
// and the dashboard; Raw is the machine form written to CSV.
type Def struct {
	Header string
	// Numeric columns are right-aligned in tables.
	Numeric bool
	Value   func(r types.RankedResult) string
	Raw     func(r types.RankedResult) string
}

// Registry maps column keys to definitions. Keys double as CSV headers.
var Registry = map[string]Def{}

func init() {
	Registry["position"] = integer("#", func(r types.RankedResult) int { return r.Position })
	Registry["ticker"] = textCol("TICKER", func(r types.RankedResult) string { return r.Record.Ticker })
	// name: prefer the fundamentals name; fallback to quote name
	Registry["name"] = textCol("NAME", func(r types.RankedResult) string {
		if r.Record.Name != "" {
			return r.Record.Name
		}
		if r.Quote != nil {
			return r.Quote.Name
		}
		return ""
	})
	Registry["exchange"] = textCol("EXCHANGE", func(r types.RankedResult) string { return r.Record.Exchange })
	Registry["country"] = textCol("COUNTRY", func(r types.RankedResult) string { return r.Record.Country })
	Registry["sector"] = textCol("SECTOR", func(r types.RankedResult) string { return r.Record.Sector })
	Registry["industry"] = textCol("INDUSTRY", func(r types.RankedResult) string { return r.Record.Industry })

	Registry["market_cap"] = money("MKT CAP", func(r types.RankedResult) float64 { return r.Record.MarketCap })
	Registry["enterprise_value"] = money("EV", func(r types.RankedResult) float64 { return r.Metrics.EnterpriseValue })
	Registry["ebit"] = money("EBIT", func(r types.RankedResult) float64 { return r.Record.EBIT })
	Registry["net_working_capital"] = money("NWC", func(r types.RankedResult) float64 { return r.Metrics.NetWorkingCapital })
	Registry["net_fixed_assets"] = money("PPE NET", func(r types.RankedResult) float64 { return r.Record.NetFixedAssets })
	Registry["capital"] = money("CAPITAL", func(r types.RankedResult) float64 { return r.Metrics.Capital })
	Registry["cash"] = money("CASH", func(r types.RankedResult) float64 { return r.Record.Cash })
	Registry["total_debt"] = money("DEBT", func(r types.RankedResult) float64 { return r.Record.TotalDebt })

	Registry["earnings_yield"] = percent("EY", func(r types.RankedResult) float64 { return r.Metrics.EarningsYield })
	Registry["return_on_capital"] = percent("ROC", func(r types.RankedResult) float64 { return r.Metrics.ReturnOnCapital })
	Registry["ey_rank"] = integer("EY RANK", func(r types.RankedResult) int { return r.EYRank })
	Registry["roc_rank"] = integer("ROC RANK", func(r types.RankedResult) int { return r.ROCRank })
	Registry["combined_score"] = integer("SCORE", func(r types.RankedResult) int { return r.Score })

	// price and chg% come from the optional live quote
	Registry["price"] = Def{Header: "PRICE", Numeric: true, Value: quotePrice, Raw: quotePrice}
	Registry["chg%"] = Def{Header: "CHG%", Numeric: true, Value: quoteChg, Raw: func(r types.RankedResult) string {
		if r.Quote == nil {
			return ""
		}
		return strconv.FormatFloat(r.Quote.ChgRaw, 'f', -1, 64)
	}}
}

func textCol(header string, f func(types.RankedResult) string) Def {
	return Def{Header: header, Value: f, Raw: f}
}

func integer(header string, f func(types.RankedResult) int) Def {
	v := func(r types.RankedResult) string { return strconv.Itoa(f(r)) }
	return Def{Header: header, Numeric: true, Value: v, Raw: v}
}

func money(header string, f func(types.RankedResult) float64) Def {
	return Def{
		Header:  header,
		Numeric: true,
		Value:   func(r types.RankedResult) string { return FormatMoney(f(r)) },
		Raw:     func(r types.RankedResult) string { return formatRaw(f(r)) },
	}
}

func percent(header string, f func(types.RankedResult) float64) Def {
	return Def{
		Header:  header,
		Numeric: true,
		Value:   func(r types.RankedResult) string { return FormatPercent(f(r)) },
		Raw:     func(r types.RankedResult) string { return formatRaw(f(r)) },
	}
}

func quotePrice(r types.RankedResult) string {
	if r.Quote == nil {
		return ""
	}
	return r.Quote.Price
}

func quoteChg(r types.RankedResult) string {
	if r.Quote == nil {
		return ""
	}
	return r.Quote.ChgFmt
}

// Compute determines the final column order. Explicit columns are honored
// exactly (deduped, first occurrence wins); otherwise the default set is
// used, followed by the price set when quotes were fetched.
func Compute(explicit []string, quotes bool) []string {
	if len(explicit) > 0 {
		seen := map[string]struct{}{}
		out := make([]string, 0, len(explicit))
		for _, k := range explicit {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
		return out
	}
	keys := append([]string(nil), Sets["default"]...)
	if quotes {
		keys = insertAfter(keys, indexOf(keys, "name"), "price")
		keys = insertAfter(keys, indexOf(keys, "price"), "chg%")
	}
	return keys
}

// Validate returns an error naming the first column key not in Registry.
func Validate(cols []string) error {
	for _, c := range cols {
		if _, ok := Registry[c]; !ok {
			return fmt.Errorf("unknown column %q", c)
		}
	}
	return nil
}

// Value renders the human form of col for r; unknown columns render empty.
func Value(col string, r types.RankedResult) string {
	if d, ok := Registry[col]; ok {
		return d.Value(r)
	}
	return ""
}

// Raw renders the machine form of col for r; unknown columns render empty.
func Raw(col string, r types.RankedResult) string {
	if d, ok := Registry[col]; ok {
		return d.Raw(r)
	}
	return ""
}

// Header returns the display header for col.
func Header(col string) string {
	if d, ok := Registry[col]; ok {
		return d.Header
	}
	return strings.ToUpper(col)
}

func indexOf(s []string, v string) int {
	for i, e := range s {
		if e == v {
			return i
		}
	}
	return -1
}

func insertAfter(s []string, idx int, v string) []string {
	if idx < 0 || idx >= len(s) {
		return append(s, v)
	}
	s = append(s, "")
	copy(s[idx+2:], s[idx+1:])
	s[idx+1] = v
	return s
}

// FormatMoney abbreviates large amounts: $1.23T, $45.6B, $789.0M, $12,345.
func FormatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v >= 1e12:
		return fmt.Sprintf("%s$%.2fT", sign, v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("%s$%.2fB", sign, v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%s$%.1fM", sign, v/1e6)
	}
	return sign + "$" + formatFloatComma(v, 0)
}

// FormatPercent renders a ratio as a percentage with two decimals.
func FormatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return formatFloatComma(v*100, 2) + "%"
}

func formatRaw(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatFloatComma formats a float with a fixed number of decimals and comma separators.
func formatFloatComma(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	intPart, fracPart := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, fracPart = s[:dot], s[dot:]
	}
	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign, intPart = "-", intPart[1:]
	}
	n := len(intPart)
	if n <= 3 {
		return sign + intPart + fracPart
	}
	out := make([]byte, 0, n+n/3)
	rem := n % 3
	if rem == 0 {
		rem = 3
	}
	out = append(out, intPart[:rem]...)
	for i := rem; i < n; i += 3 {
		out = append(out, ',')
		out = append(out, intPart[i:i+3]...)
	}
	return sign + string(out) + fracPart
}
