package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Wallet API
	APIBaseURL     string
	RequestTimeout time.Duration
	MaxRetries     int

	// Offline cache
	CacheBackend          string
	CacheDBPath           string
	CacheTTL              time.Duration
	MaxCachedTransactions int

	// Normalization memo caches
	MemoCacheSize int

	// Auth token
	TokenFile     string
	TokenCacheTTL time.Duration

	// Listing
	PageSize int

	// Mock server
	MockPort string
}

func Load() *Config {
	return &Config{
		APIBaseURL:     getEnv("WALLET_API_URL", "http://localhost:8090"),
		RequestTimeout: getEnvDuration("WALLET_REQUEST_TIMEOUT", 15*time.Second),
		MaxRetries:     getEnvInt("WALLET_MAX_RETRIES", 3),

		CacheBackend:          getEnv("CACHE_BACKEND", "sqlite"),
		CacheDBPath:           getEnv("CACHE_DB_PATH", "./data/wallet-cache.db"),
		CacheTTL:              getEnvDuration("CACHE_TTL", 24*time.Hour),
		MaxCachedTransactions: getEnvInt("CACHE_MAX_TRANSACTIONS", 50),

		MemoCacheSize: getEnvInt("MEMO_CACHE_SIZE", 256),

		TokenFile:     getEnv("WALLET_TOKEN_FILE", "./data/token"),
		TokenCacheTTL: getEnvDuration("TOKEN_CACHE_TTL", 5*time.Minute),

		PageSize: getEnvInt("WALLET_PAGE_SIZE", 20),

		MockPort: getEnv("MOCK_PORT", "8090"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if parsed, err := url.Parse(c.APIBaseURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errs = append(errs, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
	}

	validBackends := []string{"sqlite", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.CacheBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errs = append(errs, fmt.Sprintf("invalid cache backend '%s': must be one of %v", c.CacheBackend, validBackends))
	}

	if c.CacheBackend == "sqlite" {
		if c.CacheDBPath == "" {
			errs = append(errs, "cache database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.CacheDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errs = append(errs, fmt.Sprintf("cannot create cache database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.CacheTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %v: must be at least 1 minute", c.CacheTTL))
	} else if c.CacheTTL > 7*24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %v: must be at most 7 days", c.CacheTTL))
	}

	if c.MaxCachedTransactions < 1 {
		errs = append(errs, fmt.Sprintf("invalid cached transaction cap %d: must be at least 1", c.MaxCachedTransactions))
	} else if c.MaxCachedTransactions > 1000 {
		errs = append(errs, fmt.Sprintf("invalid cached transaction cap %d: must be at most 1000", c.MaxCachedTransactions))
	}

	if c.MemoCacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid memo cache size %d: must be at least 1", c.MemoCacheSize))
	}

	if c.PageSize < 1 || c.PageSize > 100 {
		errs = append(errs, fmt.Sprintf("invalid page size %d: must be between 1 and 100", c.PageSize))
	}

	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		errs = append(errs, fmt.Sprintf("invalid max retries %d: must be between 0 and 10", c.MaxRetries))
	}

	if c.RequestTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid request timeout %v: must be at least 1 second", c.RequestTimeout))
	}

	if port, err := strconv.Atoi(c.MockPort); err != nil {
		errs = append(errs, fmt.Sprintf("invalid mock port '%s': must be a number", c.MockPort))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid mock port %d: must be between 1 and 65535", port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
