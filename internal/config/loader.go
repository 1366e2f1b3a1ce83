package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ODDSDESK_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ODDSDESK_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "ODDSDESK_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "ODDSDESK_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "ODDSDESK_WALLET_KEY_PASSWORD")
	setStr(&cfg.Wallet.Address, "ODDSDESK_WALLET_ADDRESS")
	setStr(&cfg.Wallet.SessionPath, "ODDSDESK_WALLET_SESSION_PATH")

	// ── Engine ──
	setStr(&cfg.Engine.BaseURL, "ODDSDESK_ENGINE_BASE_URL")
	setDuration(&cfg.Engine.RequestTimeout, "ODDSDESK_ENGINE_REQUEST_TIMEOUT")

	// ── Chain ──
	setStr(&cfg.Chain.APIURL, "ODDSDESK_CHAIN_API_URL")
	setStr(&cfg.Chain.Network, "ODDSDESK_CHAIN_NETWORK")
	setStr(&cfg.Chain.Deployer, "ODDSDESK_CHAIN_DEPLOYER")
	setStr(&cfg.Chain.MarketContract, "ODDSDESK_CHAIN_MARKET_CONTRACT")
	setStr(&cfg.Chain.ExchangeContract, "ODDSDESK_CHAIN_EXCHANGE_CONTRACT")
	setStr(&cfg.Chain.OracleContract, "ODDSDESK_CHAIN_ORACLE_CONTRACT")

	// ── Order ──
	setUint64(&cfg.Order.ExpirationHeight, "ODDSDESK_ORDER_EXPIRATION_HEIGHT")
	setInt(&cfg.Order.RateLimit, "ODDSDESK_ORDER_RATE_LIMIT")
	setDuration(&cfg.Order.RateLimitWindow, "ODDSDESK_ORDER_RATE_LIMIT_WINDOW")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ODDSDESK_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ODDSDESK_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ODDSDESK_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ODDSDESK_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ODDSDESK_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ODDSDESK_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ODDSDESK_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ODDSDESK_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ODDSDESK_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ODDSDESK_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ODDSDESK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ODDSDESK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ODDSDESK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ODDSDESK_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ODDSDESK_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ODDSDESK_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "ODDSDESK_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ODDSDESK_S3_REGION")
	setStr(&cfg.S3.Bucket, "ODDSDESK_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ODDSDESK_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ODDSDESK_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ODDSDESK_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ODDSDESK_S3_FORCE_PATH_STYLE")

	// ── Refresh ──
	setDuration(&cfg.Refresh.MarketsInterval, "ODDSDESK_REFRESH_MARKETS_INTERVAL")
	setDuration(&cfg.Refresh.OrderbookInterval, "ODDSDESK_REFRESH_ORDERBOOK_INTERVAL")
	setDuration(&cfg.Refresh.TradesInterval, "ODDSDESK_REFRESH_TRADES_INTERVAL")
	setDuration(&cfg.Refresh.StatsInterval, "ODDSDESK_REFRESH_STATS_INTERVAL")
	setStringSlice(&cfg.Refresh.WatchMarkets, "ODDSDESK_REFRESH_WATCH_MARKETS")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "ODDSDESK_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "ODDSDESK_ARCHIVE_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ODDSDESK_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ODDSDESK_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ODDSDESK_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ODDSDESK_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ODDSDESK_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ODDSDESK_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ODDSDESK_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ODDSDESK_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ODDSDESK_MODE")
	setStr(&cfg.LogLevel, "ODDSDESK_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
