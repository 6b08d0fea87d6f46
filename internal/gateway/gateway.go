// Package gateway orchestrates wallet data fetching: live API calls with
// bounded retry, write-through into the offline cache on success, and a
// locally filtered, paginated fallback over cached records when the
// network is down.
package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"walletdata/internal/api"
	"walletdata/internal/core"
	"walletdata/internal/log"
	"walletdata/internal/normalize"
	"walletdata/internal/offline"
)

// WalletAPI is the live data source port, implemented by api.Client.
type WalletAPI interface {
	Balances(ctx context.Context) ([]core.Balance, error)
	Transactions(ctx context.Context, page, limit int, filters core.Filters) (core.TransactionPage, error)
}

// Config holds gateway tuning knobs.
type Config struct {
	// MaxAttempts bounds live fetch attempts per call. Auth failures
	// are never retried.
	MaxAttempts int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration

	// MemoSize bounds the normalization memo caches.
	MemoSize int

	Logger *log.Logger
}

// Gateway is the single entry point the UI layer fetches wallet data
// through.
type Gateway struct {
	api         WalletAPI
	store       *offline.Store
	normalizer  *normalize.Normalizer
	grouper     *normalize.Grouper
	maxAttempts int
	retryDelay  time.Duration
	logger      *log.Logger
}

// New creates a gateway over the given live API and offline store.
func New(walletAPI WalletAPI, store *offline.Store, cfg Config) *Gateway {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentGateway)
	}
	return &Gateway{
		api:         walletAPI,
		store:       store,
		normalizer:  normalize.NewNormalizer(cfg.MemoSize),
		grouper:     normalize.NewGrouper(cfg.MemoSize),
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		logger:      cfg.Logger,
	}
}

// Balances returns live balances, persisting them to the offline cache
// on success. When the live fetch fails, valid cached balances are
// served instead; with no usable cache the original error propagates.
func (g *Gateway) Balances(ctx context.Context) ([]core.Balance, error) {
	logger := g.logger.With(log.FieldRequestID, uuid.NewString())

	balances, err := retry(ctx, g.maxAttempts, g.retryDelay, logger, func() ([]core.Balance, error) {
		return g.api.Balances(ctx)
	})
	if err == nil {
		g.store.SaveBalances(ctx, balances)
		return balances, nil
	}

	if cached := g.store.CachedBalances(ctx); cached != nil {
		logger.WarnContext(ctx, "Live balance fetch failed, serving cached balances",
			log.FieldOperation, log.OpFallback, log.FieldError, err)
		return cached, nil
	}
	return nil, err
}

// Transactions returns one live page, persisting the first page into the
// offline cache. On failure it reproduces filtering and pagination
// locally over the cached window; with no usable cache the original
// error propagates.
//
// The offline path applies status filters against RAW stored values
// (case-sensitive) and maps category labels through the fixed table;
// date-range filters are accepted but not applied offline.
func (g *Gateway) Transactions(ctx context.Context, page, limit int, filters core.Filters) (core.TransactionPage, error) {
	logger := g.logger.With(log.FieldRequestID, uuid.NewString(),
		log.FieldPage, page, log.FieldLimit, limit)

	live, err := retry(ctx, g.maxAttempts, g.retryDelay, logger, func() (core.TransactionPage, error) {
		return g.api.Transactions(ctx, page, limit, filters)
	})
	if err == nil {
		if page == 1 {
			g.store.SaveTransactions(ctx, live.Transactions)
		}
		return live, nil
	}

	cached := g.store.CachedTransactions(ctx)
	if cached == nil {
		return core.TransactionPage{}, err
	}

	logger.WarnContext(ctx, "Live transaction fetch failed, serving cached window",
		log.FieldOperation, log.OpFallback, log.FieldError, err)
	return filterAndPaginate(cached, page, limit, filters), nil
}

// TransactionGroups fetches one page and returns it normalized and
// grouped by month, ready for sectioned rendering.
func (g *Gateway) TransactionGroups(ctx context.Context, page, limit int, filters core.Filters) ([]core.MonthGroup, bool, error) {
	pageResult, err := g.Transactions(ctx, page, limit, filters)
	if err != nil {
		return nil, false, err
	}
	display := g.normalizer.NormalizeAll(pageResult.Transactions)
	return g.grouper.Group(display), pageResult.HasMore, nil
}

// Display converts raw transactions through the memoized normalizer.
func (g *Gateway) Display(txs []core.Transaction) []core.DisplayTransaction {
	return g.normalizer.NormalizeAll(txs)
}

// Seed pre-warms the offline cache by fetching balances and the first
// transaction page concurrently. The two fetches are independent: a
// failure in one does not cancel the other, and whatever succeeded is
// persisted. The first error, if any, is returned.
func (g *Gateway) Seed(ctx context.Context, limit int) error {
	logger := g.logger.With(log.FieldRequestID, uuid.NewString())

	var eg errgroup.Group
	eg.Go(func() error {
		balances, err := g.api.Balances(ctx)
		if err != nil {
			return err
		}
		g.store.SaveBalances(ctx, balances)
		return nil
	})
	eg.Go(func() error {
		page, err := g.api.Transactions(ctx, 1, limit, core.Filters{})
		if err != nil {
			return err
		}
		g.store.SaveTransactions(ctx, page.Transactions)
		return nil
	})

	if err := eg.Wait(); err != nil {
		logger.WarnContext(ctx, "Cache seeding incomplete",
			log.FieldOperation, log.OpSeed, log.FieldError, err)
		return err
	}
	logger.InfoContext(ctx, "Offline cache seeded", log.FieldOperation, log.OpSeed)
	return nil
}

// ClearCache wipes the offline blobs and both memo caches. Used on
// logout, manual cache clears and filter resets.
func (g *Gateway) ClearCache(ctx context.Context) {
	g.store.Clear(ctx)
	g.normalizer.Reset()
	g.grouper.Reset()
}

// Online reports the advisory reachability signal.
func (g *Gateway) Online() bool {
	return g.store.Online()
}

// filterAndPaginate reproduces the server's listing semantics over the
// cached window, minus date-range filtering. Pages below 1 yield an
// empty slice.
func filterAndPaginate(cached []core.Transaction, page, limit int, filters core.Filters) core.TransactionPage {
	filtered := cached

	if len(filters.Status) > 0 {
		wanted := make(map[string]struct{}, len(filters.Status))
		for _, s := range filters.Status {
			wanted[s] = struct{}{}
		}
		kept := make([]core.Transaction, 0, len(filtered))
		for _, t := range filtered {
			if _, ok := wanted[string(t.Status)]; ok {
				kept = append(kept, t)
			}
		}
		filtered = kept
	}

	if len(filters.Category) > 0 {
		wanted := make(map[core.TransactionType]struct{})
		for _, typ := range core.MapCategories(filters.Category) {
			wanted[typ] = struct{}{}
		}
		kept := make([]core.Transaction, 0, len(filtered))
		for _, t := range filtered {
			if _, ok := wanted[t.Type]; ok {
				kept = append(kept, t)
			}
		}
		filtered = kept
	}

	start := (page - 1) * limit
	end := start + limit
	if start < 0 {
		start = 0
	}
	if start > len(filtered) {
		start = len(filtered)
	}
	clampedEnd := end
	if clampedEnd > len(filtered) {
		clampedEnd = len(filtered)
	}
	if clampedEnd < start {
		clampedEnd = start
	}

	return core.TransactionPage{
		Transactions: filtered[start:clampedEnd],
		HasMore:      end < len(filtered),
		Total:        len(filtered),
	}
}

// retry runs fn up to maxAttempts times, backing off between attempts.
// Auth failures return immediately: retrying them cannot succeed.
func retry[T any](ctx context.Context, maxAttempts int, delay time.Duration, logger *log.Logger, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if api.IsAuthError(err) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		logger.DebugContext(ctx, "Fetch attempt failed, retrying",
			log.FieldAttempt, attempt, log.FieldError, err)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}
