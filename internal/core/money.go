// Package core holds the wallet domain model: raw and display transaction
// records, balances, the fixed mapping tables, and the formatting rules
// the UI relies on.
package core

import "github.com/shopspring/decimal"

// BalanceDisplay is the UI-ready form of a Balance.
type BalanceDisplay struct {
	Currency  string          `json:"currency"`
	Amount    decimal.Decimal `json:"amount"`
	Formatted string          `json:"formatted"`
}

// FormatAmount renders the display amount string: "+" prefix for top-ups
// only, two decimals, currency code. Withdrawals carry no explicit minus;
// the raw amount's own sign shows through as-is.
func FormatAmount(amount decimal.Decimal, typ TransactionType, currency string) string {
	prefix := ""
	if typ == TypeTopUp {
		prefix = "+"
	}
	return prefix + amount.StringFixed(2) + " " + currency
}

// FormatBalance converts a raw balance to its display form using the
// available balance.
func FormatBalance(b Balance) BalanceDisplay {
	currency := CurrencyCode(b.CurrencyID)
	return BalanceDisplay{
		Currency:  currency,
		Amount:    b.AvailableBalance,
		Formatted: b.AvailableBalance.StringFixed(2) + " " + currency,
	}
}
