// Package filter decides which tickers and sectors take part in a scan.
package filter

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Filter matches a ticker symbol.
type Filter interface {
	Match(ticker string) bool
}

// Func adapts a plain function to Filter.
type Func func(ticker string) bool

func (f Func) Match(ticker string) bool { return f(ticker) }

// All matches every ticker.
var All Filter = Func(func(string) bool { return true })

// Parse compiles a --match expression.
//
//	AAPL,MSFT       exact symbols
//	MS*,GOO?,AAPL   globs mixed with exact symbols
//	/^A[A-Z]{2}$/   regular expression, case-insensitive
//	oo              a lone bare term matches as a substring
//	MS*,!MSCI       a ! prefix excludes; only exclusions keeps everything else
func Parse(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return All, nil
	}
	if len(expr) > 2 && expr[0] == '/' && expr[len(expr)-1] == '/' {
		re, err := regexp.Compile("(?i)" + expr[1:len(expr)-1])
		if err != nil {
			return nil, fmt.Errorf("ticker regex %q: %w", expr, err)
		}
		return Func(re.MatchString), nil
	}

	parts := strings.Split(expr, ",")
	var m terms
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		neg := strings.HasPrefix(p, "!")
		p = strings.TrimSpace(strings.TrimPrefix(p, "!"))
		if p == "" {
			continue
		}
		t := term{pattern: p}
		switch {
		case strings.ContainsAny(p, "*?["):
			if _, err := path.Match(p, p); err != nil {
				return nil, fmt.Errorf("ticker glob %q: %w", p, err)
			}
			t.glob = true
		case len(parts) == 1 && !neg:
			t.substr = true
		}
		if neg {
			m.exclude = append(m.exclude, t)
		} else {
			m.include = append(m.include, t)
		}
	}
	return m, nil
}

type term struct {
	pattern string
	glob    bool
	substr  bool
}

func (t term) match(ticker string) bool {
	switch {
	case t.glob:
		ok, _ := path.Match(t.pattern, ticker)
		return ok
	case t.substr:
		return strings.Contains(ticker, t.pattern)
	}
	return ticker == t.pattern
}

type terms struct {
	include []term
	exclude []term
}

func (m terms) Match(ticker string) bool {
	ticker = strings.ToUpper(ticker)
	for _, t := range m.exclude {
		if t.match(ticker) {
			return false
		}
	}
	if len(m.include) == 0 {
		return true
	}
	for _, t := range m.include {
		if t.match(ticker) {
			return true
		}
	}
	return false
}
