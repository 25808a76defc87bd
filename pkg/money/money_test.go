package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	d, err := Parse(" 19.999 ")
	require.NoError(t, err)
	require.Equal(t, "20.00", Format(d))

	_, err = Parse("")
	require.Error(t, err)

	_, err = Parse("ten")
	require.Error(t, err)
}

func TestTimes(t *testing.T) {
	require.Equal(t, "59.97", Format(Times(decimal.RequireFromString("19.99"), 3)))
	require.True(t, Times(decimal.RequireFromString("0.10"), 3).Equal(decimal.RequireFromString("0.30")))
}
