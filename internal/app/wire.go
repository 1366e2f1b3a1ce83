package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/oddsdesk/oddsdesk/internal/blob/s3"
	"github.com/oddsdesk/oddsdesk/internal/cache/redis"
	"github.com/oddsdesk/oddsdesk/internal/config"
	"github.com/oddsdesk/oddsdesk/internal/domain"
	"github.com/oddsdesk/oddsdesk/internal/notify"
	"github.com/oddsdesk/oddsdesk/internal/platform/chain"
	"github.com/oddsdesk/oddsdesk/internal/platform/engine"
	"github.com/oddsdesk/oddsdesk/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Upstream clients
	Engine *engine.Client
	Chain  *chain.Client

	// Stores
	MarketStore domain.MarketStore
	OrderStore  domain.OrderStore
	TradeStore  domain.TradeStore
	AuditStore  domain.AuditStore

	// Caches
	MarketCache domain.MarketCache
	BookCache   domain.OrderbookCache
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	SignalBus   domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	Archiver   domain.Archiver

	// Notifications
	Notifier notify.Notifier

	// Raw clients, kept for health checks.
	Postgres *postgres.Client
	Redis    *redis.Client
	Blob     *s3blob.Client
}

// needsS3 reports whether the configuration requires object storage.
func needsS3(cfg *config.Config) bool {
	return cfg.Mode == "archive" || cfg.Archive.Enabled
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them with a cleanup function to be called on
// shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Upstream clients ---
	deps.Engine = engine.New(cfg.Engine.BaseURL, cfg.Engine.RequestTimeout.Duration)
	deps.Chain = chain.New(cfg.Chain.APIURL, cfg.Chain.Network, cfg.Engine.RequestTimeout.Duration)

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Postgres = pgClient
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.OrderStore = postgres.NewOrderStore(pool)
	deps.TradeStore = postgres.NewTradeStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Redis = redisClient
	deps.MarketCache = redis.NewMarketCache(redisClient)
	deps.BookCache = redis.NewOrderbookCache(redisClient)
	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Blob = s3Client
		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.TradeStore, deps.OrderStore, deps.AuditStore)
	}

	// --- Notifications ---
	var targets []notify.Notifier
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		targets = append(targets, notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		targets = append(targets, notify.NewDiscord(cfg.Notify.DiscordWebhookURL))
	}
	if len(targets) > 0 {
		deps.Notifier = notify.NewFanout(targets, cfg.Notify.Events, logger)
	} else {
		deps.Notifier = notify.Noop{}
	}

	return deps, cleanup, nil
}

// storeMirror adapts the postgres stores to the refresher's persistence sink.
type storeMirror struct {
	markets domain.MarketStore
	trades  domain.TradeStore
}

func (m storeMirror) UpsertMarkets(ctx context.Context, markets []domain.Market) error {
	return m.markets.UpsertBatch(ctx, markets)
}

func (m storeMirror) InsertTrades(ctx context.Context, trades []domain.Trade) error {
	return m.trades.InsertBatch(ctx, trades)
}

func (m storeMirror) LastTradeTimestamp(ctx context.Context, marketID string) (time.Time, error) {
	return m.trades.GetLastTimestamp(ctx, marketID)
}
