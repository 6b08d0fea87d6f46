// Package normalize converts raw wallet transactions into display records
// and groups them into month buckets for sectioned list rendering. Both
// steps are pure and memoized behind bounded LRU caches owned by the
// instance, so repeated renders of the same window cost one computation.
package normalize

import (
	"fmt"

	"walletdata/internal/cache"
	"walletdata/internal/core"
)

// DefaultMemoSize bounds the memo caches when no explicit size is given.
// The offline store caps the persisted window at 50 records, so a few
// hundred entries comfortably covers live paging on top of that.
const DefaultMemoSize = 256

// fallbackDescription stands in for records with an empty reason.
const fallbackDescription = "Transaction"

// Normalizer derives display transactions from raw records.
type Normalizer struct {
	memo *cache.LRU[core.DisplayTransaction]
}

// NewNormalizer creates a normalizer with a memo cache of the given
// capacity. Sizes below 1 fall back to DefaultMemoSize.
func NewNormalizer(memoSize int) *Normalizer {
	if memoSize < 1 {
		memoSize = DefaultMemoSize
	}
	return &Normalizer{memo: cache.NewLRU[core.DisplayTransaction](memoSize, 0)}
}

// memoKey includes type and status on top of the id-bearing fields: a
// resubmitted record with a corrected status must miss the cache.
func memoKey(t core.Transaction) string {
	return fmt.Sprintf("%d_%s_%s_%s_%s", t.WalletID, t.CreatedAt, t.Amount, t.Type, t.Status)
}

// Normalize converts a raw transaction into its display form. Pure and
// deterministic; identical inputs return the memoized prior result.
func (n *Normalizer) Normalize(t core.Transaction) core.DisplayTransaction {
	key := memoKey(t)
	if d, ok := n.memo.Get(key); ok {
		return d
	}

	currency := core.CurrencyCode(t.CurrencyID)

	displayType := core.DisplayOut
	if t.Type == core.TypeTopUp {
		displayType = core.DisplayIn
	}

	description := t.Reason
	if description == "" {
		description = fallbackDescription
	}

	d := core.DisplayTransaction{
		ID:              t.SyntheticID(),
		Type:            displayType,
		Status:          core.MapStatus(t.Status),
		Amount:          t.Amount.Abs(),
		Currency:        currency,
		FormattedAmount: core.FormatAmount(t.Amount, t.Type, currency),
		Description:     description,
		Timestamp:       t.CreatedAt,
		Date:            core.FormatDisplayDate(t.CreatedAt),
		Category:        string(t.Type),
		Reference:       t.Reference(),
	}

	n.memo.Set(key, d)
	return d
}

// NormalizeAll converts a sequence of raw transactions, preserving order.
func (n *Normalizer) NormalizeAll(ts []core.Transaction) []core.DisplayTransaction {
	out := make([]core.DisplayTransaction, len(ts))
	for i, t := range ts {
		out[i] = n.Normalize(t)
	}
	return out
}

// Reset drops the memo cache. Called on logout and manual cache clears.
func (n *Normalizer) Reset() {
	n.memo.Purge()
}

// MemoSize reports the current number of memoized records.
func (n *Normalizer) MemoSize() int {
	return n.memo.Size()
}
