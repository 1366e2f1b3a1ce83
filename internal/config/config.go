// Package config defines the top-level configuration for the oddsdesk
// gateway and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ODDSDESK_* environment variables.
type Config struct {
	Wallet   WalletConfig   `toml:"wallet"`
	Engine   EngineConfig   `toml:"engine"`
	Chain    ChainConfig    `toml:"chain"`
	Order    OrderConfig    `toml:"order"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Refresh  RefreshConfig  `toml:"refresh"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// WalletConfig holds signing-key credentials and the session file location.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	Address          string `toml:"address"`
	SessionPath      string `toml:"session_path"`
}

// EngineConfig holds the matching-engine API endpoint.
type EngineConfig struct {
	BaseURL        string   `toml:"base_url"`
	RequestTimeout duration `toml:"request_timeout"`
}

// ChainConfig holds the chain API endpoint and contract coordinates.
type ChainConfig struct {
	APIURL           string `toml:"api_url"`
	Network          string `toml:"network"` // mainnet, testnet, devnet
	Deployer         string `toml:"deployer"`
	MarketContract   string `toml:"market_contract"`
	ExchangeContract string `toml:"exchange_contract"`
	OracleContract   string `toml:"oracle_contract"`
}

// OrderConfig holds order construction parameters.
type OrderConfig struct {
	// ExpirationHeight is the block height stamped on new orders.
	// TODO: derive from the chain tip via the chain API's /v2/info once the
	// engine accepts relative expirations; until then this sentinel mirrors
	// the deployed contract's far-future default.
	ExpirationHeight uint64 `toml:"expiration_height"`
	// RateLimit is the per-maker order submissions allowed per window.
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// RefreshConfig holds the polling cadence per resource. Volatile resources
// refresh faster; markets metadata slowest.
type RefreshConfig struct {
	MarketsInterval   duration `toml:"markets_interval"`
	OrderbookInterval duration `toml:"orderbook_interval"`
	TradesInterval    duration `toml:"trades_interval"`
	StatsInterval     duration `toml:"stats_interval"`
	// WatchMarkets limits polling to the given market ids. Empty means all
	// markets returned by the engine's list endpoint.
	WatchMarkets []string `toml:"watch_markets"`
}

// ArchiveConfig holds cold-storage archival parameters.
type ArchiveConfig struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimit bounds requests per client IP per window. 0 disables.
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			BaseURL:        "http://localhost:3001",
			RequestTimeout: duration{30 * time.Second},
		},
		Chain: ChainConfig{
			APIURL:           "http://localhost:3999",
			Network:          "devnet",
			Deployer:         "",
			MarketContract:   "prediction-market",
			ExchangeContract: "market-exchange",
			OracleContract:   "optimistic-oracle",
		},
		Order: OrderConfig{
			ExpirationHeight: 4_102_444_800,
			RateLimit:        10,
			RateLimitWindow:  duration{time.Second},
		},
		Wallet: WalletConfig{
			SessionPath: "session.json",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "oddsdesk",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "oddsdesk-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Refresh: RefreshConfig{
			MarketsInterval:   duration{30 * time.Second},
			OrderbookInterval: duration{4 * time.Second},
			TradesInterval:    duration{5 * time.Second},
			StatsInterval:     duration{15 * time.Second},
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:       120,
			RateLimitWindow: duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"order.placed", "order.rejected", "tx.confirmed", "tx.failed"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":   true,
	"monitor": true,
	"archive": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validNetworks enumerates the accepted chain network selectors.
var validNetworks = map[string]bool{
	"mainnet": true,
	"testnet": true,
	"devnet":  true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, monitor, archive, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet — trading modes need a key source.
	needsWallet := c.Mode == "serve" || c.Mode == "full"
	if needsWallet {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode "+c.Mode)
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
		if c.Wallet.Address == "" {
			errs = append(errs, "wallet: address must be set for mode "+c.Mode)
		}
		if c.Wallet.SessionPath == "" {
			errs = append(errs, "wallet: session_path must not be empty")
		}
	}

	// Engine
	if c.Engine.BaseURL == "" {
		errs = append(errs, "engine: base_url must not be empty")
	}
	if c.Engine.RequestTimeout.Duration <= 0 {
		errs = append(errs, "engine: request_timeout must be positive")
	}

	// Chain
	if c.Chain.APIURL == "" {
		errs = append(errs, "chain: api_url must not be empty")
	}
	if !validNetworks[strings.ToLower(c.Chain.Network)] {
		errs = append(errs, fmt.Sprintf("chain: unknown network %q (valid: mainnet, testnet, devnet)", c.Chain.Network))
	}
	if c.Chain.MarketContract == "" || c.Chain.ExchangeContract == "" || c.Chain.OracleContract == "" {
		errs = append(errs, "chain: market_contract, exchange_contract, and oracle_contract must not be empty")
	}

	// Order
	if c.Order.ExpirationHeight == 0 {
		errs = append(errs, "order: expiration_height must be set")
	}
	if c.Order.RateLimit < 1 {
		errs = append(errs, "order: rate_limit must be >= 1")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 — only required when archival is on.
	if c.Archive.Enabled || c.Mode == "archive" {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archival is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archival is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	// Refresh
	if c.Refresh.OrderbookInterval.Duration <= 0 || c.Refresh.TradesInterval.Duration <= 0 ||
		c.Refresh.StatsInterval.Duration <= 0 || c.Refresh.MarketsInterval.Duration <= 0 {
		errs = append(errs, "refresh: all intervals must be positive")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
