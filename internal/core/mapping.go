package core

import (
	"strconv"
	"strings"
	"time"
)

// DefaultCurrency is used when a record carries an unknown currency id.
const DefaultCurrency = "EUR"

var currencyByID = map[int]string{
	1: "EUR",
	2: "USD",
	3: "GBP",
}

var displayStatusByRaw = map[TransactionStatus]DisplayStatus{
	StatusCompleted: DisplaySuccessful,
	StatusPending:   DisplayPending,
	StatusFailed:    DisplayFailed,
}

// typeByCategoryLabel maps the capitalized filter labels the UI presents
// to the raw transaction types the API stores.
var typeByCategoryLabel = map[string]TransactionType{
	"Top-up":     TypeTopUp,
	"Withdrawal": TypeWithdrawal,
}

// CurrencyCode resolves a numeric currency id to its ISO code, falling
// back to EUR for ids outside the fixed table.
func CurrencyCode(id int) string {
	if code, ok := currencyByID[id]; ok {
		return code
	}
	return DefaultCurrency
}

// MapStatus converts a raw status to its display form. Unrecognized
// statuses map to failed, never to an optimistic state.
func MapStatus(s TransactionStatus) DisplayStatus {
	if ds, ok := displayStatusByRaw[s]; ok {
		return ds
	}
	return DisplayFailed
}

// MapCategories converts UI category labels to raw transaction types.
// Labels outside the table are dropped, so filtering on them matches
// nothing.
func MapCategories(labels []string) []TransactionType {
	types := make([]TransactionType, 0, len(labels))
	for _, label := range labels {
		if t, ok := typeByCategoryLabel[label]; ok {
			types = append(types, t)
		}
	}
	return types
}

// timestampLayouts covers the forms the API has been seen to emit.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601-ish timestamp string, returning the
// zero time when nothing matches.
func ParseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// FormatDisplayDate renders a timestamp as dd/mm/yyyy for row display.
// The raw string is passed through when it cannot be parsed.
func FormatDisplayDate(timestamp string) string {
	ts := ParseTimestamp(timestamp)
	if ts.IsZero() {
		return timestamp
	}
	return ts.Format("02/01/2006")
}

// MonthLabel renders the short month label used as a section header,
// e.g. "Jan 2024".
func MonthLabel(ts time.Time) string {
	return ts.Format("Jan 2006")
}

// MonthStart truncates a timestamp to the first instant of its calendar
// month in UTC. Used as the group sort key.
func MonthStart(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthKey builds the stable key for a month bucket from its label and
// size, matching the section-list key format the UI expects.
func MonthKey(label string, count int) string {
	return "month_" + strings.ReplaceAll(label, " ", "_") + "_" + strconv.Itoa(count)
}
