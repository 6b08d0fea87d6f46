package gateway

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"walletdata/internal/api"
	"walletdata/internal/core"
	"walletdata/internal/offline"
	"walletdata/internal/offline/memory"
)

type fakeAPI struct {
	balancesFn   func() ([]core.Balance, error)
	txFn         func(page, limit int, filters core.Filters) (core.TransactionPage, error)
	balanceCalls int
	txCalls      int
}

func (f *fakeAPI) Balances(context.Context) ([]core.Balance, error) {
	f.balanceCalls++
	if f.balancesFn == nil {
		return nil, errors.New("no balances stub")
	}
	return f.balancesFn()
}

func (f *fakeAPI) Transactions(_ context.Context, page, limit int, filters core.Filters) (core.TransactionPage, error) {
	f.txCalls++
	if f.txFn == nil {
		return core.TransactionPage{}, errors.New("no transactions stub")
	}
	return f.txFn(page, limit, filters)
}

func newTestGateway(walletAPI WalletAPI) (*Gateway, *memory.KV) {
	kv := memory.New()
	store := offline.NewStore(kv, offline.Config{})
	gw := New(walletAPI, store, Config{RetryDelay: time.Millisecond})
	return gw, kv
}

func rawTx(created string, typ core.TransactionType, status core.TransactionStatus) core.Transaction {
	return core.Transaction{
		WalletID:   1,
		Type:       typ,
		Status:     status,
		Amount:     decimal.NewFromInt(10),
		CurrencyID: 1,
		CreatedAt:  created,
	}
}

func cachedWindow() []core.Transaction {
	return []core.Transaction{
		rawTx("2024-01-05T00:00:00Z", core.TypeTopUp, core.StatusPending),
		rawTx("2024-01-04T00:00:00Z", core.TypeTopUp, core.StatusCompleted),
		rawTx("2024-01-03T00:00:00Z", core.TypeWithdrawal, core.StatusFailed),
		rawTx("2024-01-02T00:00:00Z", core.TypeWithdrawal, core.StatusCompleted),
		rawTx("2024-01-01T00:00:00Z", core.TypeTopUp, core.StatusCompleted),
	}
}

func TestBalancesPersistOnSuccess(t *testing.T) {
	ctx := context.Background()
	walletAPI := &fakeAPI{balancesFn: func() ([]core.Balance, error) {
		return []core.Balance{{ID: 1, CurrencyID: 1}}, nil
	}}
	gw, kv := newTestGateway(walletAPI)

	balances, err := gw.Balances(ctx)
	if err != nil || len(balances) != 1 {
		t.Fatalf("Balances = %v, %v", balances, err)
	}
	// balances blob + shared timestamp
	if kv.Len() != 2 {
		t.Errorf("kv keys = %d, want 2", kv.Len())
	}
}

func TestBalancesFallBackToCache(t *testing.T) {
	ctx := context.Background()
	walletAPI := &fakeAPI{balancesFn: func() ([]core.Balance, error) {
		return []core.Balance{{ID: 7, CurrencyID: 2}}, nil
	}}
	gw, _ := newTestGateway(walletAPI)

	if _, err := gw.Balances(ctx); err != nil {
		t.Fatal(err)
	}

	walletAPI.balancesFn = func() ([]core.Balance, error) {
		return nil, errors.New("network down")
	}
	balances, err := gw.Balances(ctx)
	if err != nil {
		t.Fatalf("expected cached fallback, got %v", err)
	}
	if len(balances) != 1 || balances[0].ID != 7 {
		t.Errorf("cached balances = %+v", balances)
	}
}

func TestBalancesNoCachePropagatesError(t *testing.T) {
	ctx := context.Background()
	netErr := errors.New("network down")
	walletAPI := &fakeAPI{balancesFn: func() ([]core.Balance, error) { return nil, netErr }}
	gw, _ := newTestGateway(walletAPI)

	if _, err := gw.Balances(ctx); !errors.Is(err, netErr) {
		t.Errorf("err = %v, want original network error", err)
	}
}

func TestTransactionsSaveOnlyFirstPage(t *testing.T) {
	ctx := context.Background()
	walletAPI := &fakeAPI{txFn: func(page, limit int, _ core.Filters) (core.TransactionPage, error) {
		return core.TransactionPage{Transactions: cachedWindow(), HasMore: false}, nil
	}}
	gw, kv := newTestGateway(walletAPI)

	if _, err := gw.Transactions(ctx, 2, 20, core.Filters{}); err != nil {
		t.Fatal(err)
	}
	if kv.Len() != 0 {
		t.Errorf("page 2 fetch persisted %d keys, want 0", kv.Len())
	}

	if _, err := gw.Transactions(ctx, 1, 20, core.Filters{}); err != nil {
		t.Fatal(err)
	}
	if kv.Len() != 2 {
		t.Errorf("page 1 fetch persisted %d keys, want 2", kv.Len())
	}
}

func seedCache(t *testing.T, gw *Gateway, walletAPI *fakeAPI) {
	t.Helper()
	ctx := context.Background()
	walletAPI.txFn = func(page, limit int, _ core.Filters) (core.TransactionPage, error) {
		return core.TransactionPage{Transactions: cachedWindow()}, nil
	}
	if _, err := gw.Transactions(ctx, 1, 20, core.Filters{}); err != nil {
		t.Fatal(err)
	}
	walletAPI.txFn = func(int, int, core.Filters) (core.TransactionPage, error) {
		return core.TransactionPage{}, errors.New("network down")
	}
}

func TestOfflineFallbackServesCachedWindow(t *testing.T) {
	ctx := context.Background()
	walletAPI := &fakeAPI{}
	gw, _ := newTestGateway(walletAPI)
	seedCache(t, gw, walletAPI)

	page, err := gw.Transactions(ctx, 1, 20, core.Filters{})
	if err != nil {
		t.Fatalf("expected fallback, got %v", err)
	}
	if len(page.Transactions) != 5 || page.HasMore {
		t.Errorf("page = %d transactions, hasMore=%v", len(page.Transactions), page.HasMore)
	}
}

func TestOfflineStatusFilterIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	walletAPI := &fakeAPI{}
	gw, _ := newTestGateway(walletAPI)
	seedCache(t, gw, walletAPI)

	// The UI presents "Pending" capitalized; stored raw values are
	// lowercase, so the offline comparison finds nothing.
	page, err := gw.Transactions(ctx, 1, 20, core.Filters{Status: []string{"Pending"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Transactions) != 0 {
		t.Errorf("capitalized status matched %d records, want 0", len(page.Transactions))
	}

	page, err = gw.Transactions(ctx, 1, 20, core.Filters{Status: []string{"pending"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Transactions) != 1 {
		t.Errorf("raw status matched %d records, want 1", len(page.Transactions))
	}
}

func TestOfflineCategoryFilter(t *testing.T) {
	ctx := context.Background()
	walletAPI := &fakeAPI{}
	gw, _ := newTestGateway(walletAPI)
	seedCache(t, gw, walletAPI)

	page, err := gw.Transactions(ctx, 1, 20, core.Filters{Category: []string{"Withdrawal"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Transactions) != 2 {
		t.Fatalf("withdrawals = %d, want 2", len(page.Transactions))
	}
	for _, tx := range page.Transactions {
		if tx.Type != core.TypeWithdrawal {
			t.Errorf("unexpected type %q", tx.Type)
		}
	}

	// Labels outside the mapping table match nothing.
	page, err = gw.Transactions(ctx, 1, 20, core.Filters{Category: []string{"Fee"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Transactions) != 0 {
		t.Errorf("unmapped category matched %d records", len(page.Transactions))
	}
}

func TestOfflinePagination(t *testing.T) {
	ctx := context.Background()
	walletAPI := &fakeAPI{}
	gw, _ := newTestGateway(walletAPI)
	seedCache(t, gw, walletAPI)

	page, err := gw.Transactions(ctx, 2, 2, core.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Transactions) != 2 || !page.HasMore {
		t.Errorf("page 2: %d transactions, hasMore=%v", len(page.Transactions), page.HasMore)
	}
	if page.Transactions[0].CreatedAt != "2024-01-03T00:00:00Z" {
		t.Errorf("page 2 starts at %q", page.Transactions[0].CreatedAt)
	}

	page, err = gw.Transactions(ctx, 3, 2, core.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Transactions) != 1 || page.HasMore {
		t.Errorf("page 3: %d transactions, hasMore=%v", len(page.Transactions), page.HasMore)
	}

	// Past the end: empty page, no error.
	page, err = gw.Transactions(ctx, 9, 2, core.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Transactions) != 0 || page.HasMore {
		t.Errorf("page 9: %d transactions, hasMore=%v", len(page.Transactions), page.HasMore)
	}
}

func TestOfflinePaginationPageBelowOne(t *testing.T) {
	ctx := context.Background()
	walletAPI := &fakeAPI{}
	gw, _ := newTestGateway(walletAPI)
	seedCache(t, gw, walletAPI)

	// Pages below 1 produce a negative start index; the offline path
	// returns an empty page instead of slicing out of range.
	for _, pageNum := range []int{0, -1} {
		page, err := gw.Transactions(ctx, pageNum, 20, core.Filters{})
		if err != nil {
			t.Fatalf("page %d: %v", pageNum, err)
		}
		if len(page.Transactions) != 0 {
			t.Errorf("page %d: %d transactions, want 0", pageNum, len(page.Transactions))
		}
		if page.Total != 5 {
			t.Errorf("page %d: total = %d, want 5", pageNum, page.Total)
		}
	}
}

func TestOfflineIgnoresDateRangeFilters(t *testing.T) {
	ctx := context.Background()
	walletAPI := &fakeAPI{}
	gw, _ := newTestGateway(walletAPI)
	seedCache(t, gw, walletAPI)

	// A range excluding every cached record still returns the full
	// window: date filters only apply on the live path.
	from := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC)
	page, err := gw.Transactions(ctx, 1, 20, core.Filters{DateFrom: &from, DateTo: &to})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Transactions) != 5 {
		t.Errorf("date-filtered offline page = %d transactions, want 5", len(page.Transactions))
	}
}

func TestTransactionsNoCachePropagatesError(t *testing.T) {
	ctx := context.Background()
	netErr := errors.New("network down")
	walletAPI := &fakeAPI{txFn: func(int, int, core.Filters) (core.TransactionPage, error) {
		return core.TransactionPage{}, netErr
	}}
	gw, _ := newTestGateway(walletAPI)

	if _, err := gw.Transactions(ctx, 1, 20, core.Filters{}); !errors.Is(err, netErr) {
		t.Errorf("err = %v, want original network error", err)
	}
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	ctx := context.Background()
	walletAPI := &fakeAPI{}
	walletAPI.balancesFn = func() ([]core.Balance, error) {
		if walletAPI.balanceCalls < 3 {
			return nil, errors.New("flaky")
		}
		return []core.Balance{{ID: 1}}, nil
	}
	gw, _ := newTestGateway(walletAPI)

	balances, err := gw.Balances(ctx)
	if err != nil {
		t.Fatalf("Balances = %v", err)
	}
	if len(balances) != 1 || walletAPI.balanceCalls != 3 {
		t.Errorf("calls = %d, balances = %v", walletAPI.balanceCalls, balances)
	}
}

func TestAuthErrorsAreNotRetried(t *testing.T) {
	ctx := context.Background()
	walletAPI := &fakeAPI{balancesFn: func() ([]core.Balance, error) {
		return nil, &api.Error{Status: http.StatusUnauthorized, Message: "token expired"}
	}}
	gw, _ := newTestGateway(walletAPI)

	_, err := gw.Balances(ctx)
	if !api.IsAuthError(err) {
		t.Fatalf("err = %v", err)
	}
	if walletAPI.balanceCalls != 1 {
		t.Errorf("auth failure retried: %d calls", walletAPI.balanceCalls)
	}
}

func TestSeedPersistsBothBlobs(t *testing.T) {
	ctx := context.Background()
	walletAPI := &fakeAPI{
		balancesFn: func() ([]core.Balance, error) { return []core.Balance{{ID: 1}}, nil },
		txFn: func(page, limit int, _ core.Filters) (core.TransactionPage, error) {
			if page != 1 {
				t.Errorf("seed fetched page %d", page)
			}
			return core.TransactionPage{Transactions: cachedWindow()}, nil
		},
	}
	gw, kv := newTestGateway(walletAPI)

	if err := gw.Seed(ctx, 20); err != nil {
		t.Fatalf("Seed = %v", err)
	}
	if kv.Len() != 3 {
		t.Errorf("kv keys = %d, want 3", kv.Len())
	}
}

func TestSeedPartialFailureStillPersistsTheOther(t *testing.T) {
	ctx := context.Background()
	walletAPI := &fakeAPI{
		balancesFn: func() ([]core.Balance, error) { return nil, errors.New("balances down") },
		txFn: func(int, int, core.Filters) (core.TransactionPage, error) {
			return core.TransactionPage{Transactions: cachedWindow()}, nil
		},
	}
	gw, _ := newTestGateway(walletAPI)

	if err := gw.Seed(ctx, 20); err == nil {
		t.Fatal("expected seed error")
	}
	// The transaction fetch was independent and its result persisted.
	if txs := gw.store.CachedTransactions(ctx); len(txs) != 5 {
		t.Errorf("cached transactions = %d, want 5", len(txs))
	}
}

func TestTransactionGroups(t *testing.T) {
	ctx := context.Background()
	walletAPI := &fakeAPI{txFn: func(int, int, core.Filters) (core.TransactionPage, error) {
		return core.TransactionPage{
			Transactions: []core.Transaction{
				rawTx("2024-02-01T00:00:00Z", core.TypeTopUp, core.StatusCompleted),
				rawTx("2024-01-15T00:00:00Z", core.TypeWithdrawal, core.StatusCompleted),
			},
			HasMore: true,
		}, nil
	}}
	gw, _ := newTestGateway(walletAPI)

	groups, hasMore, err := gw.TransactionGroups(ctx, 1, 20, core.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if !hasMore || len(groups) != 2 {
		t.Fatalf("groups = %d, hasMore = %v", len(groups), hasMore)
	}
	if groups[0].Month != "Feb 2024" || groups[1].Month != "Jan 2024" {
		t.Errorf("group order: %q, %q", groups[0].Month, groups[1].Month)
	}
}

func TestClearCacheDropsBlobsAndMemo(t *testing.T) {
	ctx := context.Background()
	walletAPI := &fakeAPI{}
	gw, kv := newTestGateway(walletAPI)
	seedCache(t, gw, walletAPI)

	gw.Display(cachedWindow())
	if gw.normalizer.MemoSize() == 0 {
		t.Fatal("expected warm memo cache")
	}

	gw.ClearCache(ctx)
	if kv.Len() != 0 {
		t.Errorf("kv keys after clear = %d", kv.Len())
	}
	if gw.normalizer.MemoSize() != 0 || gw.grouper.MemoSize() != 0 {
		t.Error("memo caches not reset")
	}
}
