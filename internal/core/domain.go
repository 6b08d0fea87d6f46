package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeTopUp      TransactionType = "top-up"
	TypeWithdrawal TransactionType = "withdrawal"

	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"

	DisplayIn  DisplayType = "in"
	DisplayOut DisplayType = "out"
	// DisplayFee exists in the display model but no raw type maps to it.
	DisplayFee DisplayType = "fee"

	DisplaySuccessful DisplayStatus = "successful"
	DisplayPending    DisplayStatus = "pending"
	DisplayFailed     DisplayStatus = "failed"
)

type (
	// TransactionType is the raw transaction type as the API reports it.
	TransactionType string

	// TransactionStatus is the raw transaction status as the API reports it.
	TransactionStatus string

	// DisplayType is the direction shown in the UI.
	DisplayType string

	// DisplayStatus is the status shown in the UI.
	DisplayStatus string

	// Balance is a wallet balance record as returned by the API.
	Balance struct {
		ID               int64           `json:"id"`
		UserID           string          `json:"user_id"`
		CurrencyID       int             `json:"currency_id"`
		AvailableBalance decimal.Decimal `json:"available_balance"`
		CurrentBalance   decimal.Decimal `json:"current_balance"`
		ReservedBalance  decimal.Decimal `json:"reserved_balance"`
		ReferenceNumber  string          `json:"reference_number"`
	}

	// Transaction is the raw record from the network or the offline cache.
	Transaction struct {
		WalletID   int64             `json:"wallet_id"`
		Type       TransactionType   `json:"type"`
		Status     TransactionStatus `json:"status"`
		Reason     string            `json:"reason"`
		Amount     decimal.Decimal   `json:"amount"`
		CurrencyID int               `json:"currency_id"`
		CreatedAt  string            `json:"created_at"`
	}

	// DisplayTransaction is the UI-ready record derived from a Transaction.
	// Immutable once computed.
	DisplayTransaction struct {
		ID              string          `json:"id"`
		Type            DisplayType     `json:"type"`
		Status          DisplayStatus   `json:"status"`
		Amount          decimal.Decimal `json:"amount"`
		Currency        string          `json:"currency"`
		FormattedAmount string          `json:"formattedAmount"`
		Description     string          `json:"description"`
		Timestamp       string          `json:"timestamp"`
		Date            string          `json:"date"`
		Category        string          `json:"category"`
		Reference       string          `json:"reference"`
	}

	// MonthGroup is a bucket of display transactions sharing a calendar month.
	// Start carries the first of the month so ordering never depends on
	// re-parsing the formatted label.
	MonthGroup struct {
		Month        string               `json:"month"`
		MonthKey     string               `json:"monthKey"`
		Start        time.Time            `json:"-"`
		Transactions []DisplayTransaction `json:"transactions"`
	}

	// Filters narrows a transaction listing. Status and Category hold the
	// UI-facing labels; mapping to raw values happens at the query edge.
	Filters struct {
		DateFrom *time.Time
		DateTo   *time.Time
		Status   []string
		Category []string
	}

	// TransactionPage is one page of a transaction listing.
	TransactionPage struct {
		Transactions []Transaction `json:"transactions"`
		HasMore      bool          `json:"hasMore"`
		Total        int           `json:"total"`
	}
)

var (
	ErrNoCachedData = errors.New("no cached data available")
	ErrNotLoggedIn  = errors.New("not logged in")
)

// CreatedTime parses the record's ISO-8601 timestamp. Unparseable
// timestamps sort as the zero time.
func (t Transaction) CreatedTime() time.Time {
	return ParseTimestamp(t.CreatedAt)
}

// SyntheticID derives the display id from wallet, timestamp and amount.
// Two records sharing all three fields collide; the API is assumed to
// never produce that within a single wallet.
func (t Transaction) SyntheticID() string {
	return fmt.Sprintf("tx_%d_%s_%s", t.WalletID, t.CreatedAt, t.Amount)
}

// Reference returns the wallet-level reference shown in the UI. It is
// shared by every transaction of the same wallet.
func (t Transaction) Reference() string {
	return fmt.Sprintf("WAL%d", t.WalletID)
}

// IsEmpty reports whether the filter set restricts anything at all.
func (f Filters) IsEmpty() bool {
	return f.DateFrom == nil && f.DateTo == nil && len(f.Status) == 0 && len(f.Category) == 0
}
