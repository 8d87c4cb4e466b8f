package columns

import (
	"sort"
	"strings"
)

// Sets defines named column groups that expand into lists of columns.
// - "csv": the export artifact, in file order
// - "default": the terminal table when no columns are given
// - "price": live quote columns
// - "balance": the inputs behind EV and capital
var Sets = map[string][]string{
	"csv": {
		"ticker",
		"name",
		"exchange",
		"country",
		"market_cap",
		"enterprise_value",
		"ebit",
		"earnings_yield",
		"return_on_capital",
		"ey_rank",
		"roc_rank",
		"combined_score",
	},
	"default": {
		"position",
		"ticker",
		"name",
		"sector",
		"market_cap",
		"earnings_yield",
		"return_on_capital",
		"ey_rank",
		"roc_rank",
		"combined_score",
	},
	"price": {"price", "chg%"},
	"balance": {
		"enterprise_value",
		"ebit",
		"net_working_capital",
		"net_fixed_assets",
		"capital",
		"cash",
		"total_debt",
	},
}

// ExpandSets returns the union of columns for the given set names.
// It preserves the order of the sets and the order of columns within each set,
// and de-duplicates columns while keeping the first occurrence.
func ExpandSets(setNames []string) ([]string, error) {
	out := make([]string, 0, 16)
	seen := map[string]struct{}{}
	for _, name := range setNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cols, ok := Sets[name]
		if !ok {
			return nil, &UnknownSetError{Name: name, Available: availableSets()}
		}
		for _, c := range cols {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out, nil
}

// UnknownSetError reports an unknown column set name.
type UnknownSetError struct {
	Name      string
	Available []string
}

func (e *UnknownSetError) Error() string {
	return "unknown column set: " + e.Name + "; available: " + strings.Join(e.Available, ", ")
}

func availableSets() []string {
	keys := make([]string, 0, len(Sets))
	for k := range Sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
