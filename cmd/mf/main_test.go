package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColumns(t *testing.T) {
	cols, err := parseColumns("")
	require.NoError(t, err)
	assert.Nil(t, cols)

	cols, err = parseColumns("ticker, price, ticker,ebit")
	require.NoError(t, err)
	assert.Equal(t, []string{"ticker", "price", "chg%", "ebit"}, cols)

	_, err = parseColumns("ticker,bogus")
	assert.ErrorContains(t, err, "bogus")
}

func TestColumnsOverride(t *testing.T) {
	t.Setenv("COLUMNS", "120")
	assert.Equal(t, 120, columnsOverride())
	t.Setenv("COLUMNS", "wide")
	assert.Equal(t, 0, columnsOverride())
	t.Setenv("COLUMNS", "-3")
	assert.Equal(t, 0, columnsOverride())
}
