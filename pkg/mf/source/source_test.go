package source

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/komsit37/mf/pkg/mf/fmp"
)

type fakeScreener map[string][]fmp.ScreenerRow

func (f fakeScreener) Screener(_ context.Context, ex string) ([]fmp.ScreenerRow, error) {
	rows, ok := f[ex]
	if !ok {
		return nil, errors.New("unknown exchange")
	}
	return rows, nil
}

func TestEligible(t *testing.T) {
	us := map[string]struct{}{"US": {}}
	tests := []struct {
		name string
		row  fmp.ScreenerRow
		want bool
	}{
		{"plain", fmp.ScreenerRow{Symbol: "AAPL", MarketCap: 1e9, Country: "US"}, true},
		{"too long", fmp.ScreenerRow{Symbol: "ABCDEF", MarketCap: 1e9, Country: "US"}, false},
		{"class share", fmp.ScreenerRow{Symbol: "BRK-B", MarketCap: 1e9, Country: "US"}, false},
		{"digits", fmp.ScreenerRow{Symbol: "A1", MarketCap: 1e9, Country: "US"}, false},
		{"warrant", fmp.ScreenerRow{Symbol: "ABCWS", MarketCap: 1e9, Country: "US"}, false},
		{"preferred", fmp.ScreenerRow{Symbol: "ABCPR", MarketCap: 1e9, Country: "US"}, false},
		{"micro cap", fmp.ScreenerRow{Symbol: "TINY", MarketCap: 1e6, Country: "US"}, false},
		{"foreign", fmp.ScreenerRow{Symbol: "SHOP", MarketCap: 1e9, Country: "CA"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Eligible(tt.row, 5e7, us))
		})
	}
	assert.True(t, Eligible(fmp.ScreenerRow{Symbol: "SHOP", MarketCap: 1e9, Country: "CA"}, 5e7, nil))
}

func TestScreenerLoad(t *testing.T) {
	s := Screener{
		Client: fakeScreener{
			"NASDAQ": {{Symbol: "AAPL", MarketCap: 3e12, Country: "US"}, {Symbol: "TINY", MarketCap: 1}},
			"NYSE":   {{Symbol: "KO", MarketCap: 2e11, Country: "US"}},
		},
		Exchanges:    []string{"NASDAQ", "BOGUS", "NYSE"},
		MinMarketCap: 5e7,
	}
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "KO"}, got)
}

func TestScreenerAllExchangesFail(t *testing.T) {
	s := Screener{Client: fakeScreener{}, Exchanges: []string{"X", "Y"}}
	_, err := s.Load(context.Background())
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	in := []string{"aapl", "MSFT", "AAPL", " ", "GOOG", "KO"}
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOG", "KO"}, Select(in, false, nil, 0))
	assert.Equal(t, []string{"AAPL", "MSFT"}, Select(in, false, nil, 2))

	a := Select(in, true, rand.New(rand.NewSource(3)), 0)
	b := Select(in, true, rand.New(rand.NewSource(3)), 0)
	assert.Equal(t, a, b)
	assert.ElementsMatch(t, []string{"AAPL", "MSFT", "GOOG", "KO"}, a)
	assert.Len(t, Select(in, true, nil, 3), 3)
}

func TestParseStatic(t *testing.T) {
	got, err := ParseStatic(" aapl,,MSFT ").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
}

func TestYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "core.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
watchlist:
  - sym: AAPL
    note: anything
  - name: Tech
    watchlist:
      - sym: MSFT
      - GOOG
`), 0o644))

	got, err := YAML{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOG"}, got)
}

func TestYAMLDirAndListForm(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("- sym: KO\n- PEP\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "a.yaml"), []byte("watchlist:\n  - sym: XOM\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	got, err := YAML{Path: dir}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"KO", "PEP", "XOM"}, got)
}

func TestYAMLInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("columns: [a]\n"), 0o644))
	_, err := YAML{Path: path}.Load(context.Background())
	assert.ErrorContains(t, err, "missing 'watchlist'")
}
