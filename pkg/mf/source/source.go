package source

import (
	"context"
	"math/rand"
	"strings"
)

// Source loads the ticker universe to scan.
type Source interface {
	Load(ctx context.Context) ([]string, error)
}

// Static is a fixed ticker list, e.g. from a comma-separated flag.
type Static []string

// ParseStatic splits "AAPL, msft" into upper-case symbols.
func ParseStatic(s string) Static {
	var out Static
	for _, p := range strings.Split(s, ",") {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s Static) Load(context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}

// Select dedups tickers keeping first occurrence, optionally shuffles with rng,
// then truncates to limit (limit <= 0 keeps all).
func Select(tickers []string, shuffle bool, rng *rand.Rand, limit int) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if shuffle {
		if rng == nil {
			rng = rand.New(rand.NewSource(rand.Int63()))
		}
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
