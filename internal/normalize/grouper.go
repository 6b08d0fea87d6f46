package normalize

import (
	"sort"
	"strings"
	"time"

	"walletdata/internal/cache"
	"walletdata/internal/core"
)

// Grouper buckets display transactions by calendar month.
type Grouper struct {
	memo *cache.LRU[[]core.MonthGroup]
}

// NewGrouper creates a grouper with a memo cache of the given capacity.
func NewGrouper(memoSize int) *Grouper {
	if memoSize < 1 {
		memoSize = DefaultMemoSize
	}
	return &Grouper{memo: cache.NewLRU[[]core.MonthGroup](memoSize, 0)}
}

// Group partitions transactions into month buckets ordered newest month
// first, newest transaction first within a bucket. Groups carry the first
// of their month as an explicit sort key, so ordering never round-trips
// through the formatted label. The result is memoized on the joined id
// sequence, which is sound because display records are immutable per id.
// Each call returns a fresh outer slice, so callers may reorder it; the
// groups and their transaction slices are shared with the memo and must
// be treated as read-only.
func (g *Grouper) Group(txs []core.DisplayTransaction) []core.MonthGroup {
	ids := make([]string, len(txs))
	for i, t := range txs {
		ids[i] = t.ID
	}
	key := strings.Join(ids, ",")

	if groups, ok := g.memo.Get(key); ok {
		return append([]core.MonthGroup(nil), groups...)
	}

	type bucket struct {
		start time.Time
		txs   []core.DisplayTransaction
	}
	buckets := make(map[time.Time]*bucket)

	for _, t := range txs {
		start := core.MonthStart(core.ParseTimestamp(t.Timestamp))
		b, ok := buckets[start]
		if !ok {
			b = &bucket{start: start}
			buckets[start] = b
		}
		b.txs = append(b.txs, t)
	}

	groups := make([]core.MonthGroup, 0, len(buckets))
	for _, b := range buckets {
		sort.SliceStable(b.txs, func(i, j int) bool {
			return core.ParseTimestamp(b.txs[i].Timestamp).After(core.ParseTimestamp(b.txs[j].Timestamp))
		})
		label := core.MonthLabel(b.start)
		groups = append(groups, core.MonthGroup{
			Month:        label,
			MonthKey:     core.MonthKey(label, len(b.txs)),
			Start:        b.start,
			Transactions: b.txs,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Start.After(groups[j].Start)
	})

	g.memo.Set(key, groups)
	return append([]core.MonthGroup(nil), groups...)
}

// Reset drops the memo cache.
func (g *Grouper) Reset() {
	g.memo.Purge()
}

// MemoSize reports the current number of memoized groupings.
func (g *Grouper) MemoSize() int {
	return g.memo.Size()
}
