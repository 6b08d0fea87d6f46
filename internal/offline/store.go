// Package offline persists the latest known balances and a capped window
// of raw transactions to durable key-value storage, serving them back as
// a fallback when live fetches fail. A single shared timestamp governs
// expiry for both blobs; writing either resets the clock for both.
//
// Every operation here is best-effort: storage failures are logged and
// swallowed, never surfaced, so a cache problem can never break the
// primary data flow. Callers see a miss, not an error.
package offline

import (
	"context"
	"encoding/json"
	"net"
	"sort"
	"strconv"
	"time"

	"walletdata/internal/core"
	"walletdata/internal/log"
)

// Storage keys. The value layout under each key is a JSON blob except
// lastUpdated, which is epoch milliseconds as a decimal string.
const (
	keyBalances     = "offline_balances"
	keyTransactions = "offline_transactions"
	keyLastUpdated  = "offline_last_updated"
)

const (
	// DefaultTTL expires the whole cache 24 hours after the last write.
	DefaultTTL = 24 * time.Hour

	// DefaultMaxTransactions caps the persisted transaction window.
	DefaultMaxTransactions = 50
)

// Snapshot is the combined all-or-nothing view of the cache.
type Snapshot struct {
	Balances     []core.Balance     `json:"balances"`
	Transactions []core.Transaction `json:"transactions"`
	LastUpdated  int64              `json:"lastUpdated"`
}

// Config holds store tuning knobs. Zero values fall back to defaults.
type Config struct {
	TTL             time.Duration
	MaxTransactions int
	Logger          *log.Logger

	// Now and Online are injectable for tests.
	Now    func() time.Time
	Online func() bool
}

// Store is the offline cache over a KV backend.
type Store struct {
	kv     KV
	ttl    time.Duration
	maxTxs int
	logger *log.Logger
	now    func() time.Time
	online func() bool
}

// NewStore creates an offline cache store on top of the given KV backend.
func NewStore(kv KV, cfg Config) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxTransactions <= 0 {
		cfg.MaxTransactions = DefaultMaxTransactions
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentOffline)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Online == nil {
		cfg.Online = defaultOnlineProbe
	}
	return &Store{
		kv:     kv,
		ttl:    cfg.TTL,
		maxTxs: cfg.MaxTransactions,
		logger: cfg.Logger,
		now:    cfg.Now,
		online: cfg.Online,
	}
}

// SaveBalances overwrites the balances blob and refreshes the shared
// timestamp. Failures are logged and swallowed.
func (s *Store) SaveBalances(ctx context.Context, balances []core.Balance) {
	blob, err := json.Marshal(balances)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode balances for cache", log.FieldError, err)
		return
	}
	if err := s.kv.Set(ctx, keyBalances, blob); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save balances to cache", log.FieldError, err)
		return
	}
	s.touch(ctx)
}

// SaveTransactions sorts the input newest-first, truncates to the cap,
// overwrites the transactions blob and refreshes the shared timestamp.
// Failures are logged and swallowed.
func (s *Store) SaveTransactions(ctx context.Context, txs []core.Transaction) {
	window := make([]core.Transaction, len(txs))
	copy(window, txs)
	sort.SliceStable(window, func(i, j int) bool {
		return window[i].CreatedTime().After(window[j].CreatedTime())
	})
	if len(window) > s.maxTxs {
		window = window[:s.maxTxs]
	}

	blob, err := json.Marshal(window)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode transactions for cache", log.FieldError, err)
		return
	}
	if err := s.kv.Set(ctx, keyTransactions, blob); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save transactions to cache", log.FieldError, err)
		return
	}
	s.touch(ctx)

	s.logger.DebugContext(ctx, "Cached transaction window",
		log.FieldCount, len(window))
}

// CachedBalances returns the cached balances, or nil when the cache is
// absent, expired or unreadable.
func (s *Store) CachedBalances(ctx context.Context) []core.Balance {
	if !s.valid(ctx) {
		return nil
	}
	var balances []core.Balance
	if !s.readJSON(ctx, keyBalances, &balances) {
		return nil
	}
	return balances
}

// CachedTransactions returns the cached transaction window, or nil when
// the cache is absent, expired or unreadable.
func (s *Store) CachedTransactions(ctx context.Context) []core.Transaction {
	if !s.valid(ctx) {
		return nil
	}
	var txs []core.Transaction
	if !s.readJSON(ctx, keyTransactions, &txs) {
		return nil
	}
	return txs
}

// CachedData returns the combined snapshot only when BOTH balances and
// transactions are present and valid; a partial cache reads as absent.
func (s *Store) CachedData(ctx context.Context) *Snapshot {
	balances := s.CachedBalances(ctx)
	txs := s.CachedTransactions(ctx)
	if balances == nil || txs == nil {
		return nil
	}
	return &Snapshot{
		Balances:     balances,
		Transactions: txs,
		LastUpdated:  s.lastUpdated(ctx),
	}
}

// Clear removes all three keys. Best-effort: partial failure is logged,
// not rolled back.
func (s *Store) Clear(ctx context.Context) {
	if err := s.kv.Remove(ctx, keyBalances, keyTransactions, keyLastUpdated); err != nil {
		s.logger.ErrorContext(ctx, "Failed to clear offline cache", log.FieldError, err)
		return
	}
	s.logger.InfoContext(ctx, "Offline cache cleared", log.FieldOperation, log.OpClear)
}

// Seed pre-warms the cache with both blobs, used right after login so the
// user can go offline immediately.
func (s *Store) Seed(ctx context.Context, balances []core.Balance, txs []core.Transaction) {
	s.SaveBalances(ctx, balances)
	s.SaveTransactions(ctx, txs)
}

// Online reports the current network reachability signal. Advisory only;
// it never gates reads or writes.
func (s *Store) Online() bool {
	return s.online()
}

// valid reports whether the shared timestamp exists and is fresh.
func (s *Store) valid(ctx context.Context) bool {
	last := s.lastUpdated(ctx)
	if last == 0 {
		return false
	}
	age := s.now().Sub(time.UnixMilli(last))
	if age >= s.ttl {
		s.logger.DebugContext(ctx, "Offline cache expired", log.FieldCacheAge, age.String())
		return false
	}
	return true
}

func (s *Store) lastUpdated(ctx context.Context) int64 {
	blob, ok, err := s.kv.Get(ctx, keyLastUpdated)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read cache timestamp", log.FieldError, err)
		return 0
	}
	if !ok {
		return 0
	}
	ms, err := strconv.ParseInt(string(blob), 10, 64)
	if err != nil {
		s.logger.WarnContext(ctx, "Corrupt cache timestamp", log.FieldError, err)
		return 0
	}
	return ms
}

func (s *Store) touch(ctx context.Context) {
	ms := strconv.FormatInt(s.now().UnixMilli(), 10)
	if err := s.kv.Set(ctx, keyLastUpdated, []byte(ms)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to refresh cache timestamp", log.FieldError, err)
	}
}

// readJSON loads and decodes a blob, treating I/O failure and corrupt
// JSON alike as a miss.
func (s *Store) readJSON(ctx context.Context, key string, out any) bool {
	blob, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read cache blob",
			log.FieldCacheKey, key, log.FieldError, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(blob, out); err != nil {
		s.logger.WarnContext(ctx, "Corrupt cache blob treated as absent",
			log.FieldCacheKey, key, log.FieldError, err)
		return false
	}
	return true
}

// defaultOnlineProbe checks for any usable non-loopback interface
// address, mirroring the platform reachability hint the UI consumes.
func defaultOnlineProbe() bool {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return false
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return true
		}
	}
	return false
}
