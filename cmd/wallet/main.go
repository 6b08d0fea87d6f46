package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"walletdata/internal/api"
	"walletdata/internal/backend"
	"walletdata/internal/config"
	"walletdata/internal/core"
	"walletdata/internal/gateway"
	applog "walletdata/internal/log"
	"walletdata/internal/offline"
)

func main() {
	// .env is optional; real env always wins.
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentApp})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.RequestTimeout)
	defer cancel()

	factory := backend.NewFactory(logger)
	result, err := factory.CreateKV(ctx, backend.Config{
		Type:   backend.Type(cfg.CacheBackend),
		DBPath: cfg.CacheDBPath,
	})
	if err != nil {
		logger.Error("Failed to initialize cache backend", applog.FieldError, err)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	store := offline.NewStore(result.KV, offline.Config{
		TTL:             cfg.CacheTTL,
		MaxTransactions: cfg.MaxCachedTransactions,
		Logger:          logger.WithComponent(applog.ComponentOffline),
	})

	client := api.New(api.Config{
		BaseURL:  cfg.APIBaseURL,
		Timeout:  cfg.RequestTimeout,
		TokenTTL: cfg.TokenCacheTTL,
		Tokens:   api.NewFileTokenStore(cfg.TokenFile),
		Logger:   logger.WithComponent(applog.ComponentAPI),
	})

	gw := gateway.New(client, store, gateway.Config{
		MaxAttempts: cfg.MaxRetries,
		MemoSize:    cfg.MemoCacheSize,
		Logger:      logger.WithComponent(applog.ComponentGateway),
	})

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "login":
		err = runLogin(ctx, client, gw, cfg.PageSize)
	case "balances":
		err = runBalances(ctx, gw)
	case "transactions":
		err = runTransactions(ctx, gw, cfg.PageSize, os.Args[2:])
	case "seed":
		err = gw.Seed(ctx, cfg.PageSize)
	case "clear":
		gw.ClearCache(ctx)
	case "logout":
		gw.ClearCache(ctx)
		err = client.Logout(ctx)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("Command failed", applog.FieldError, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: wallet <command>

commands:
  login                 authenticate with WALLET_EMAIL/WALLET_PASSWORD and seed the cache
  balances              print wallet balances (cached when offline)
  transactions [args]   print month-grouped transactions; args: page=N status=S category=C
  seed                  pre-warm the offline cache
  clear                 wipe the offline cache
  logout                wipe the cache and the stored token`)
}

func runLogin(ctx context.Context, client *api.Client, gw *gateway.Gateway, pageSize int) error {
	email := os.Getenv("WALLET_EMAIL")
	password := os.Getenv("WALLET_PASSWORD")
	if email == "" || password == "" {
		return fmt.Errorf("WALLET_EMAIL and WALLET_PASSWORD must be set")
	}

	if _, err := client.Login(ctx, email, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	// Pre-warm the cache so the user can go offline right away.
	if err := gw.Seed(ctx, pageSize); err != nil {
		slog.WarnContext(ctx, "Cache seeding failed after login", applog.FieldError, err)
	}
	fmt.Println("logged in")
	return nil
}

func runBalances(ctx context.Context, gw *gateway.Gateway) error {
	balances, err := gw.Balances(ctx)
	if err != nil {
		return fmt.Errorf("fetch balances: %w", err)
	}
	for _, b := range balances {
		display := core.FormatBalance(b)
		fmt.Printf("%-8s %s\n", display.Currency, display.Formatted)
	}
	return nil
}

func runTransactions(ctx context.Context, gw *gateway.Gateway, pageSize int, args []string) error {
	page := 1
	var filters core.Filters

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("malformed argument %q, want key=value", arg)
		}
		switch key {
		case "page":
			if _, err := fmt.Sscanf(value, "%d", &page); err != nil {
				return fmt.Errorf("invalid page %q", value)
			}
		case "status":
			filters.Status = append(filters.Status, value)
		case "category":
			filters.Category = append(filters.Category, value)
		case "from":
			ts, err := time.Parse("2006-01-02", value)
			if err != nil {
				return fmt.Errorf("invalid from date %q", value)
			}
			filters.DateFrom = &ts
		case "to":
			ts, err := time.Parse("2006-01-02", value)
			if err != nil {
				return fmt.Errorf("invalid to date %q", value)
			}
			filters.DateTo = &ts
		default:
			return fmt.Errorf("unknown argument %q", key)
		}
	}

	groups, hasMore, err := gw.TransactionGroups(ctx, page, pageSize, filters)
	if err != nil {
		return fmt.Errorf("fetch transactions: %w", err)
	}

	for _, group := range groups {
		fmt.Printf("\n%s\n", group.Month)
		for _, tx := range group.Transactions {
			fmt.Printf("  %s  %-10s %-12s %s  %s\n",
				tx.Date, tx.Status, tx.FormattedAmount, tx.Reference, tx.Description)
		}
	}
	if hasMore {
		fmt.Printf("\nmore available: page=%d\n", page+1)
	}
	return nil
}
