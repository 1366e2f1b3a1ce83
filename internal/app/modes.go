package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oddsdesk/oddsdesk/internal/crypto"
	"github.com/oddsdesk/oddsdesk/internal/domain"
	"github.com/oddsdesk/oddsdesk/internal/reconcile"
	"github.com/oddsdesk/oddsdesk/internal/refresh"
	"github.com/oddsdesk/oddsdesk/internal/server"
	"github.com/oddsdesk/oddsdesk/internal/server/handler"
	"github.com/oddsdesk/oddsdesk/internal/server/ws"
	"github.com/oddsdesk/oddsdesk/internal/service"
	"github.com/oddsdesk/oddsdesk/internal/wallet"
)

// ServeMode runs the full trading gateway: polling refresher, wallet, order
// pipeline, and the HTTP + WebSocket API.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	refresher := a.buildRefresher(deps)
	g.Go(func() error {
		return refresher.Run(ctx)
	})

	wlt, err := a.buildWallet(deps)
	if err != nil {
		return fmt.Errorf("serve mode: %w", err)
	}

	a.startHTTPServer(ctx, g, deps, refresher, wlt)

	return g.Wait()
}

// MonitorMode runs the refresher and a read-only API: market data, orderbook,
// and oracle lookups. No wallet is loaded and no orders can be placed.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	refresher := a.buildRefresher(deps)
	g.Go(func() error {
		return refresher.Run(ctx)
	})

	a.startHTTPServer(ctx, g, deps, refresher, nil)

	return g.Wait()
}

// ArchiveMode runs only the cold-storage export loop.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	g, ctx := errgroup.WithContext(ctx)
	if err := a.startArchiveLoop(ctx, g, deps); err != nil {
		return fmt.Errorf("archive mode: %w", err)
	}
	return g.Wait()
}

// FullMode runs everything: serve mode plus the archive loop.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	refresher := a.buildRefresher(deps)
	g.Go(func() error {
		return refresher.Run(ctx)
	})

	wlt, err := a.buildWallet(deps)
	if err != nil {
		return fmt.Errorf("full mode: %w", err)
	}

	if a.cfg.Archive.Enabled {
		if err := a.startArchiveLoop(ctx, g, deps); err != nil {
			return fmt.Errorf("full mode: %w", err)
		}
	}

	a.startHTTPServer(ctx, g, deps, refresher, wlt)

	return g.Wait()
}

// buildRefresher wires the polling refresher against the engine client, the
// Redis caches, and the postgres mirror.
func (a *App) buildRefresher(deps *Dependencies) *refresh.Refresher {
	return refresh.New(
		deps.Engine,
		deps.MarketCache,
		deps.BookCache,
		deps.PriceCache,
		deps.SignalBus,
		storeMirror{markets: deps.MarketStore, trades: deps.TradeStore},
		refresh.Intervals{
			Markets:   a.cfg.Refresh.MarketsInterval.Duration,
			Orderbook: a.cfg.Refresh.OrderbookInterval.Duration,
			Trades:    a.cfg.Refresh.TradesInterval.Duration,
			Stats:     a.cfg.Refresh.StatsInterval.Duration,
		},
		a.cfg.Refresh.WatchMarkets,
		a.logger,
	)
}

// buildWallet loads the signing key, constructs the wallet, and restores any
// persisted session.
func (a *App) buildWallet(deps *Dependencies) (*wallet.Wallet, error) {
	privHex, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    a.cfg.Wallet.PrivateKey,
		EncryptedKeyPath: a.cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      a.cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("build wallet: load key: %w", err)
	}

	signer, err := crypto.NewSigner(privHex)
	if err != nil {
		return nil, fmt.Errorf("build wallet: %w", err)
	}

	store := wallet.NewFileSessionStore(a.cfg.Wallet.SessionPath)
	wlt := wallet.New(a.cfg.Wallet.Address, signer, store, deps.Chain, a.logger)
	if err := wlt.Restore(); err != nil {
		a.logger.Warn("wallet session restore failed", "error", err)
	}
	return wlt, nil
}

// startHTTPServer builds the services and handlers for the configured
// feature set and adds the server goroutines to the errgroup. wlt is nil in
// monitor mode; trading, portfolio, and wallet endpoints are then skipped.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, refresher *refresh.Refresher, wlt *wallet.Wallet) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "HTTP server disabled")
		return
	}

	marketSvc := service.NewMarketService(
		deps.Engine, deps.MarketCache, deps.BookCache, deps.PriceCache,
		deps.TradeStore, refresher, a.logger,
	)

	handlers := server.Handlers{
		Health:    a.buildHealthHandler(deps),
		Markets:   handler.NewMarketHandler(marketSvc, a.logger),
		Orderbook: handler.NewOrderbookHandler(marketSvc, a.logger),
	}

	if wlt != nil {
		reconciler := reconcile.New(wlt, a.cfg.Chain.Deployer, a.cfg.Chain.MarketContract, a.logger)

		orderSvc := service.NewOrderService(
			deps.Engine, wlt, reconciler, deps.MarketCache, deps.BookCache,
			deps.OrderStore, deps.AuditStore, deps.RateLimiter, refresher,
			deps.Notifier, service.OrderConfig{
				ExpirationHeight: a.cfg.Order.ExpirationHeight,
				RateLimit:        a.cfg.Order.RateLimit,
				RateLimitWindow:  a.cfg.Order.RateLimitWindow.Duration,
			}, a.logger,
		)
		portfolioSvc := service.NewPortfolioService(
			wlt, reconciler, marketSvc, deps.Chain, deps.AuditStore,
			deps.Notifier, service.PortfolioConfig{
				Deployer:       a.cfg.Chain.Deployer,
				MarketContract: a.cfg.Chain.MarketContract,
			}, a.logger,
		)
		oracleSvc := service.NewOracleService(deps.Engine, wlt, deps.Chain, deps.Notifier,
			service.OracleConfig{
				Deployer:       a.cfg.Chain.Deployer,
				OracleContract: a.cfg.Chain.OracleContract,
			}, a.logger)

		handlers.Orders = handler.NewOrderHandler(orderSvc, a.logger)
		handlers.Portfolio = handler.NewPortfolioHandler(portfolioSvc, a.logger)
		handlers.Oracle = handler.NewOracleHandler(oracleSvc, a.logger)
		handlers.Wallet = handler.NewWalletHandler(wlt, a.logger)
	} else {
		// Read-only oracle access: dispute lists and votes by explicit
		// address work without a wallet; my-vote and cast-vote report not
		// connected.
		oracleSvc := service.NewOracleService(deps.Engine, noWallet{}, deps.Chain, deps.Notifier,
			service.OracleConfig{
				Deployer:       a.cfg.Chain.Deployer,
				OracleContract: a.cfg.Chain.OracleContract,
			}, a.logger)
		handlers.Oracle = handler.NewOracleHandler(oracleSvc, a.logger)
	}

	hub := ws.NewHub(deps.SignalBus, Version, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// buildHealthHandler wires the dependency pingers that are present.
func (a *App) buildHealthHandler(deps *Dependencies) *handler.HealthHandler {
	checks := map[string]handler.Pinger{
		"postgres": deps.Postgres,
		"redis":    deps.Redis,
	}
	if deps.Blob != nil {
		checks["s3"] = pingFunc(deps.Blob.Health)
	}
	return handler.NewHealthHandler(Version, checks)
}

// startArchiveLoop exports mirrored trades and terminal orders older than
// the retention window to object storage, once at startup and then daily.
func (a *App) startArchiveLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	if deps.Archiver == nil {
		return fmt.Errorf("archive loop requires blob storage")
	}
	retention := a.cfg.Archive.RetentionDays

	runOnce := func() {
		cutoff := time.Now().UTC().AddDate(0, 0, -retention)
		trades, err := deps.Archiver.ArchiveTrades(ctx, cutoff)
		if err != nil {
			a.logger.ErrorContext(ctx, "trade archival failed", slog.String("error", err.Error()))
		}
		orders, err := deps.Archiver.ArchiveOrders(ctx, cutoff)
		if err != nil {
			a.logger.ErrorContext(ctx, "order archival failed", slog.String("error", err.Error()))
		}
		a.logger.InfoContext(ctx, "archive cycle complete",
			slog.Int64("trades", trades),
			slog.Int64("orders", orders),
			slog.Time("cutoff", cutoff),
		)
	}

	g.Go(func() error {
		runOnce()
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				runOnce()
			}
		}
	})
	return nil
}

// pingFunc adapts a bare health function to the handler.Pinger interface.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// noWallet satisfies the wallet surfaces with a permanent not-connected
// state, for read-only deployments.
type noWallet struct{}

func (noWallet) Address() (string, error) { return "", domain.ErrNotConnected }

func (noWallet) CallContract(context.Context, wallet.ContractCall) (string, error) {
	return "", domain.ErrNotConnected
}
