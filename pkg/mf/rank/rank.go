// Package rank orders companies by the Magic Formula.
package rank

import (
	"sort"

	"github.com/komsit37/mf/pkg/mf/types"
)

// Candidate is a company that survived filtering and metric computation.
type Candidate struct {
	Record  types.CompanyRecord
	Metrics types.DerivedMetrics
}

// Rank assigns EY and ROC ranks 1..N (higher ratio first, ties by ticker),
// scores each candidate with their sum and returns the top k by ascending
// score, ties by ticker. k <= 0 returns everything.
func Rank(cands []Candidate, k int) []types.RankedResult {
	n := len(cands)
	out := make([]types.RankedResult, n)
	for i, c := range cands {
		out[i] = types.RankedResult{Record: c.Record, Metrics: c.Metrics}
	}

	idx := make([]int, n)
	assign := func(value func(*types.RankedResult) float64, set func(*types.RankedResult, int)) {
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			ra, rb := &out[idx[a]], &out[idx[b]]
			va, vb := value(ra), value(rb)
			if va != vb {
				return va > vb
			}
			return ra.Record.Ticker < rb.Record.Ticker
		})
		for pos, i := range idx {
			set(&out[i], pos+1)
		}
	}
	assign(func(r *types.RankedResult) float64 { return r.Metrics.EarningsYield },
		func(r *types.RankedResult, v int) { r.EYRank = v })
	assign(func(r *types.RankedResult) float64 { return r.Metrics.ReturnOnCapital },
		func(r *types.RankedResult, v int) { r.ROCRank = v })

	for i := range out {
		out[i].Score = out[i].EYRank + out[i].ROCRank
	}
	sort.SliceStable(out, func(a, b int) bool { return Less(out[a], out[b]) })
	for i := range out {
		out[i].Position = i + 1
	}

	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out
}

// Less is the final ordering: lower score first, then ticker.
func Less(a, b types.RankedResult) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Record.Ticker < b.Record.Ticker
}
