package rank

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/komsit37/mf/pkg/mf/types"
)

func cand(ticker string, ey, roc float64) Candidate {
	return Candidate{
		Record:  types.CompanyRecord{Ticker: ticker},
		Metrics: types.DerivedMetrics{EarningsYield: ey, ReturnOnCapital: roc},
	}
}

func tickers(rs []types.RankedResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Record.Ticker
	}
	return out
}

func TestRankMirroredTie(t *testing.T) {
	// EY ranks 1..5 and ROC ranks 5..1: every score is 6.
	cands := []Candidate{
		cand("EEE", 0.10, 0.50),
		cand("CCC", 0.30, 0.30),
		cand("AAA", 0.50, 0.10),
		cand("DDD", 0.20, 0.40),
		cand("BBB", 0.40, 0.20),
	}
	got := Rank(cands, 0)

	require.Len(t, got, 5)
	assert.Equal(t, []string{"AAA", "BBB", "CCC", "DDD", "EEE"}, tickers(got))
	for i, r := range got {
		assert.Equal(t, 6, r.Score)
		assert.Equal(t, i+1, r.EYRank)
		assert.Equal(t, 5-i, r.ROCRank)
		assert.Equal(t, i+1, r.Position)
	}
}

func TestRankOrdersByScore(t *testing.T) {
	cands := []Candidate{
		cand("CHEAP", 0.20, 0.10), // EY 1, ROC 3 -> 4
		cand("BEST", 0.15, 0.60),  // EY 2, ROC 1 -> 3
		cand("MEH", 0.05, 0.30),   // EY 3, ROC 2 -> 5
	}
	got := Rank(cands, 2)

	require.Len(t, got, 2)
	assert.Equal(t, []string{"BEST", "CHEAP"}, tickers(got))
	assert.Equal(t, 3, got[0].Score)
	assert.Equal(t, 4, got[1].Score)
}

func TestRankEqualMetricsBrokenByTicker(t *testing.T) {
	got := Rank([]Candidate{cand("ZZZ", 0.1, 0.1), cand("AAA", 0.1, 0.1)}, 0)
	assert.Equal(t, []string{"AAA", "ZZZ"}, tickers(got))
	assert.Equal(t, 1, got[0].EYRank)
	assert.Equal(t, 2, got[1].EYRank)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil, 10))
}

func TestRankProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(60)
		cands := make([]Candidate, n)
		for i := range cands {
			// coarse values force plenty of ties
			cands[i] = cand(fmt.Sprintf("T%03d", i), float64(rng.Intn(5))/10, float64(rng.Intn(5))/10)
		}
		rng.Shuffle(n, func(i, j int) { cands[i], cands[j] = cands[j], cands[i] })

		got := Rank(cands, 0)
		require.Len(t, got, n)

		eySeen := map[int]bool{}
		rocSeen := map[int]bool{}
		for i, r := range got {
			assert.Equal(t, r.EYRank+r.ROCRank, r.Score)
			eySeen[r.EYRank] = true
			rocSeen[r.ROCRank] = true
			if i > 0 {
				prev := got[i-1]
				assert.True(t, Less(prev, r), "%v must precede %v", prev.Record.Ticker, r.Record.Ticker)
			}
		}
		assert.Len(t, eySeen, n)
		assert.Len(t, rocSeen, n)

		// input order never changes the outcome
		shuffled := append([]Candidate(nil), cands...)
		rng.Shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, got, Rank(shuffled, 0))

		// independently computed EY rank
		byEY := append([]Candidate(nil), cands...)
		sort.Slice(byEY, func(i, j int) bool {
			if byEY[i].Metrics.EarningsYield != byEY[j].Metrics.EarningsYield {
				return byEY[i].Metrics.EarningsYield > byEY[j].Metrics.EarningsYield
			}
			return byEY[i].Record.Ticker < byEY[j].Record.Ticker
		})
		want := map[string]int{}
		for i, c := range byEY {
			want[c.Record.Ticker] = i + 1
		}
		for _, r := range got {
			assert.Equal(t, want[r.Record.Ticker], r.EYRank)
		}
	}
}
