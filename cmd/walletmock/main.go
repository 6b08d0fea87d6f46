// Command walletmock serves a local wallet API fixture so the client and
// cache can be exercised without a real backend. It speaks the same wire
// shapes as the production API: data envelopes, bearer auth with a
// short-lived HS256 token, paginated transaction listing with filters.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"walletdata/internal/core"
	applog "walletdata/internal/log"
)

const tokenLifetime = 30 * time.Minute

type server struct {
	logger   *applog.Logger
	secret   []byte
	email    string
	password string

	balances     []core.Balance
	transactions []core.Transaction
	payoutSeq    atomic.Int64
}

func main() {
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentMock})
	applog.SetDefault(logger)

	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "8090"
	}

	s := &server{
		logger:       logger,
		secret:       []byte(envOr("MOCK_JWT_SECRET", "walletmock-dev-secret")),
		email:        envOr("MOCK_EMAIL", "demo@wallet.local"),
		password:     envOr("MOCK_PASSWORD", "demo"),
		balances:     fixtureBalances(),
		transactions: fixtureTransactions(),
	}
	s.payoutSeq.Store(9000)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/auth/login", s.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/balances", s.handleBalances)
		r.Get("/transactions", s.handleTransactions)
		r.Post("/payouts", s.handleCreatePayout)
	})

	srv := &http.Server{
		Addr:           ":" + port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting mock wallet API", "port", port, applog.FieldOperation, applog.OpStartup)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "malformed login request")
		return
	}
	if creds.Email != s.email || creds.Password != s.password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	claims := jwt.MapClaims{
		"sub": creds.Email,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(tokenLifetime).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token signing failed")
		return
	}

	s.logger.Info("Login accepted", applog.FieldOperation, applog.OpLogin, "email", creds.Email)
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (s *server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return s.secret, nil
		})
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *server) handleBalances(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"data": s.balances})
}

func (s *server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := intParam(q.Get("page"), 1)
	perPage := intParam(q.Get("per_page"), 20)
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	statuses := toSet(q["status"])
	types := toSet(q["type"])

	var dateFrom, dateTo time.Time
	if v := q.Get("date_from"); v != "" {
		dateFrom, _ = time.Parse("2006-01-02", v)
	}
	if v := q.Get("date_to"); v != "" {
		// date_to is exclusive on the wire.
		dateTo, _ = time.Parse("2006-01-02", v)
	}

	filtered := make([]core.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		if len(statuses) > 0 && !statuses[string(tx.Status)] {
			continue
		}
		if len(types) > 0 && !types[string(tx.Type)] {
			continue
		}
		created := tx.CreatedTime()
		if !dateFrom.IsZero() && created.Before(dateFrom) {
			continue
		}
		if !dateTo.IsZero() && !created.Before(dateTo) {
			continue
		}
		filtered = append(filtered, tx)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedTime().After(filtered[j].CreatedTime())
	})

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"items":    filtered[start:end],
			"has_more": end < len(filtered),
			"total":    len(filtered),
		},
	})
}

func (s *server) handleCreatePayout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletID   int64           `json:"wallet_id"`
		Provider   string          `json:"provider"`
		Amount     decimal.Decimal `json:"amount"`
		CurrencyID int             `json:"currency_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payout request")
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		writeError(w, http.StatusUnprocessableEntity, "payout amount must be positive")
		return
	}

	// Handlers run concurrently; the sequence must stay race-free.
	id := s.payoutSeq.Add(1)

	s.logger.Info("Payout accepted", "wallet_id", req.WalletID, "provider", req.Provider)
	writeJSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{"id": id, "status": "pending"},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func fixtureBalances() []core.Balance {
	return []core.Balance{
		{
			ID:               1,
			UserID:           "user-demo",
			CurrencyID:       1,
			AvailableBalance: decimal.RequireFromString("1250.75"),
			CurrentBalance:   decimal.RequireFromString("1300.75"),
			ReservedBalance:  decimal.RequireFromString("50.00"),
			ReferenceNumber:  "BAL-0001",
		},
		{
			ID:               2,
			UserID:           "user-demo",
			CurrencyID:       2,
			AvailableBalance: decimal.RequireFromString("310.20"),
			CurrentBalance:   decimal.RequireFromString("310.20"),
			ReservedBalance:  decimal.Zero,
			ReferenceNumber:  "BAL-0002",
		},
	}
}

func fixtureTransactions() []core.Transaction {
	mk := func(days int, typ core.TransactionType, status core.TransactionStatus, amount, reason string) core.Transaction {
		return core.Transaction{
			WalletID:   1,
			Type:       typ,
			Status:     status,
			Reason:     reason,
			Amount:     decimal.RequireFromString(amount),
			CurrencyID: 1,
			CreatedAt:  time.Now().AddDate(0, 0, -days).UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	txs := []core.Transaction{
		mk(0, core.TypeTopUp, core.StatusCompleted, "50.00", "card top-up"),
		mk(1, core.TypeWithdrawal, core.StatusCompleted, "-12.40", "coffee subscription"),
		mk(3, core.TypeWithdrawal, core.StatusPending, "-80.00", "rent share"),
		mk(7, core.TypeTopUp, core.StatusCompleted, "200.00", "salary advance"),
		mk(12, core.TypeWithdrawal, core.StatusFailed, "-33.10", "declined purchase"),
		mk(20, core.TypeTopUp, core.StatusCompleted, "15.50", "refund"),
		mk(35, core.TypeWithdrawal, core.StatusCompleted, "-64.99", "groceries"),
		mk(41, core.TypeTopUp, core.StatusCompleted, "120.00", "transfer in"),
		mk(70, core.TypeWithdrawal, core.StatusCompleted, "-18.75", "books"),
		mk(95, core.TypeTopUp, core.StatusPending, "500.00", "bank transfer"),
	}
	return txs
}
