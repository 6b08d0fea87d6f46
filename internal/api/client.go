// Package api is the REST client for the wallet backend: login, balance
// and transaction listing, and payout creation. Bearer tokens come from
// a TokenStore and are held in a short-lived in-process cache so the
// store is not hit on every request.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"walletdata/internal/cache"
	"walletdata/internal/core"
	"walletdata/internal/log"
)

const (
	// DefaultTokenTTL bounds how long a token is reused before the
	// store is consulted again.
	DefaultTokenTTL = 5 * time.Minute

	tokenCacheKey = "access_token"
)

// Config holds client construction parameters.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	TokenTTL   time.Duration
	Tokens     TokenStore
	Logger     *log.Logger
	HTTPClient *http.Client
}

// Client talks to the wallet API.
type Client struct {
	baseURL    string
	http       *http.Client
	tokens     TokenStore
	tokenCache *cache.LRU[string]
	logger     *log.Logger
}

// New creates an API client. Tokens must be non-nil.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentAPI)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		http:       httpClient,
		tokens:     cfg.Tokens,
		tokenCache: cache.NewLRU[string](1, cfg.TokenTTL),
		logger:     cfg.Logger,
	}
}

// loginResponse accepts the token either at the top level or wrapped in
// the usual data envelope.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	Data        struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

// Login authenticates with email/password, stores the returned access
// token and primes the token cache.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}

	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp, false); err != nil {
		return "", err
	}

	token := resp.AccessToken
	if token == "" {
		token = resp.Data.AccessToken
	}
	if token == "" {
		return "", &Error{Status: http.StatusOK, Message: "login response carried no access token"}
	}

	if err := c.SaveToken(ctx, token); err != nil {
		return "", err
	}
	c.logger.InfoContext(ctx, "Logged in", log.FieldOperation, log.OpLogin)
	return token, nil
}

// Balances fetches the wallet balances.
func (c *Client) Balances(ctx context.Context) ([]core.Balance, error) {
	var resp struct {
		Data []core.Balance `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/balances", nil, &resp, true); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []core.Balance{}, nil
	}
	return resp.Data, nil
}

// Transactions fetches one page of the transaction listing. Filters are
// translated to query parameters: statuses are lowercased for the
// server, category labels map to raw types (unknown labels pass through
// lowercased), and the date range is sent as date_from inclusive plus
// date_to as the exclusive next day.
func (c *Client) Transactions(ctx context.Context, page, limit int, filters core.Filters) (core.TransactionPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(limit))

	if filters.DateFrom != nil {
		params.Add("date_from", filters.DateFrom.Format("2006-01-02"))
	}
	if filters.DateTo != nil {
		params.Add("date_to", filters.DateTo.AddDate(0, 0, 1).Format("2006-01-02"))
	}
	for _, status := range filters.Status {
		params.Add("status", strings.ToLower(status))
	}
	for _, category := range filters.Category {
		switch category {
		case "Top-up":
			params.Add("type", string(core.TypeTopUp))
		case "Withdrawal":
			params.Add("type", string(core.TypeWithdrawal))
		default:
			params.Add("type", strings.ToLower(category))
		}
	}

	var resp struct {
		Data struct {
			Items   []core.Transaction `json:"items"`
			HasMore bool               `json:"has_more"`
			Total   int                `json:"total"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/transactions?"+params.Encode(), nil, &resp, true); err != nil {
		return core.TransactionPage{}, err
	}

	items := resp.Data.Items
	if items == nil {
		items = []core.Transaction{}
	}
	return core.TransactionPage{
		Transactions: items,
		HasMore:      resp.Data.HasMore,
		Total:        resp.Data.Total,
	}, nil
}

// PayoutRequest describes a fund transfer out of a wallet.
type PayoutRequest struct {
	WalletID   int64           `json:"wallet_id"`
	Provider   string          `json:"provider"`
	Amount     decimal.Decimal `json:"amount"`
	CurrencyID int             `json:"currency_id"`
	BankID     string          `json:"bank_id,omitempty"`
}

// Payout is the server's view of a created payout.
type Payout struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// CreatePayout submits a payout request.
func (c *Client) CreatePayout(ctx context.Context, req PayoutRequest) (Payout, error) {
	var resp struct {
		Data Payout `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/payouts", req, &resp, true); err != nil {
		return Payout{}, err
	}
	return resp.Data, nil
}

// SaveToken persists the token and primes the in-process cache.
func (c *Client) SaveToken(ctx context.Context, token string) error {
	if err := c.tokens.Save(ctx, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	c.tokenCache.Set(tokenCacheKey, token)
	return nil
}

// StoredToken returns the persisted token, bypassing the cache.
func (c *Client) StoredToken(ctx context.Context) (string, error) {
	return c.tokens.Token(ctx)
}

// Logout removes the stored token and drops the cache.
func (c *Client) Logout(ctx context.Context) error {
	c.tokenCache.Purge()
	if err := c.tokens.Delete(ctx); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	c.logger.InfoContext(ctx, "Logged out", log.FieldOperation, log.OpLogout)
	return nil
}

// accessToken returns the bearer token, consulting the short-lived cache
// before the store. Tokens that are parseable JWTs with an expiry in the
// past are discarded early instead of being sent to the server.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if token, ok := c.tokenCache.Get(tokenCacheKey); ok {
		return token, nil
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if token == "" {
		return "", nil
	}

	if expired(token) {
		c.logger.DebugContext(ctx, "Stored token expired, discarding")
		return "", nil
	}

	c.tokenCache.Set(tokenCacheKey, token)
	return token, nil
}

// expired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are assumed live.
func expired(token string) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if authed {
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		var errBody struct {
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil {
			apiErr.Message = errBody.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
