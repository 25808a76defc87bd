package enums

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// WalletTransactionType classifies ledger rows.
type WalletTransactionType string

const (
	WalletTransactionTopup      WalletTransactionType = "TOPUP"
	WalletTransactionPurchase   WalletTransactionType = "PURCHASE"
	WalletTransactionAdjustment WalletTransactionType = "ADJUSTMENT"
	WalletTransactionRefund     WalletTransactionType = "REFUND"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionTopup,
	WalletTransactionPurchase,
	WalletTransactionAdjustment,
	WalletTransactionRefund,
}

// String implements fmt.Stringer.
func (t WalletTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value matches a known ledger row type.
func (t WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// AllowsAmount reports whether the signed amount is legal for the row type.
func (t WalletTransactionType) AllowsAmount(amount decimal.Decimal) bool {
	if amount.IsZero() {
		return false
	}
	switch t {
	case WalletTransactionPurchase:
		return amount.IsNegative()
	case WalletTransactionTopup, WalletTransactionRefund:
		return amount.IsPositive()
	case WalletTransactionAdjustment:
		return true
	}
	return false
}

// ParseWalletTransactionType converts raw input into WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}
