package enums

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestWalletTransactionTypeAllowsAmount(t *testing.T) {
	neg := decimal.RequireFromString("-10.00")
	pos := decimal.RequireFromString("10.00")

	require.True(t, WalletTransactionPurchase.AllowsAmount(neg))
	require.False(t, WalletTransactionPurchase.AllowsAmount(pos))
	require.True(t, WalletTransactionTopup.AllowsAmount(pos))
	require.False(t, WalletTransactionTopup.AllowsAmount(neg))
	require.True(t, WalletTransactionRefund.AllowsAmount(pos))
	require.True(t, WalletTransactionAdjustment.AllowsAmount(neg))
	require.True(t, WalletTransactionAdjustment.AllowsAmount(pos))
	require.False(t, WalletTransactionAdjustment.AllowsAmount(decimal.Zero))
	require.False(t, WalletTransactionType("BONUS").AllowsAmount(pos))
}

func TestParseRoundTrips(t *testing.T) {
	role, err := ParseUserRole(" Admin ")
	require.NoError(t, err)
	require.Equal(t, UserRoleAdmin, role)

	_, err = ParseUserRole("vendor")
	require.Error(t, err)

	status, err := ParseTopupStatus("PENDING")
	require.NoError(t, err)
	require.Equal(t, TopupStatusPending, status)

	_, err = ParseTopupDecision("maybe")
	require.Error(t, err)

	pt, err := ParseProductType("MANUAL")
	require.NoError(t, err)
	require.Equal(t, ProductTypeManual, pt)
}

func TestCurrency(t *testing.T) {
	c, err := ParseCurrency(" usd ")
	require.NoError(t, err)
	require.Equal(t, CurrencyUSD, c)
	require.Equal(t, int32(2), c.MinorUnits())

	_, err = ParseCurrency("EUR")
	require.Error(t, err)
	require.Zero(t, Currency("EUR").MinorUnits())
}
