package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oddsdesk/oddsdesk/internal/domain"
	"github.com/oddsdesk/oddsdesk/internal/refresh"
)

// MarketEngine is the engine surface the market service needs.
type MarketEngine interface {
	ListMarkets(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error)
	GetMarket(ctx context.Context, id string) (domain.Market, error)
	GetStats(ctx context.Context, marketID string) (domain.MarketStats, error)
	GetPriceHistory(ctx context.Context, marketID, resolution string, since time.Time) ([]domain.PricePoint, error)
	GetOrderbook(ctx context.Context, marketID string) (domain.OrderbookSnapshot, error)
	GetTrades(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error)
	CreateMarket(ctx context.Context, market domain.Market) (domain.Market, error)
}

// MarketService serves market data cache-first, falling through to the
// engine on a miss. Reads never write back to the cache; that stays the
// refresher's job so there is a single cache writer per key.
type MarketService struct {
	engine  MarketEngine
	markets domain.MarketCache
	books   domain.OrderbookCache
	prices  domain.PriceCache
	trades  domain.TradeStore // may be nil
	invalid Invalidator
	logger  *slog.Logger
}

// NewMarketService wires a MarketService. trades may be nil when the desk
// runs without Postgres.
func NewMarketService(eng MarketEngine, markets domain.MarketCache, books domain.OrderbookCache, prices domain.PriceCache, trades domain.TradeStore, invalid Invalidator, logger *slog.Logger) *MarketService {
	return &MarketService{
		engine:  eng,
		markets: markets,
		books:   books,
		prices:  prices,
		trades:  trades,
		invalid: invalid,
		logger:  logger.With("component", "markets"),
	}
}

// List returns all markets, cache-first.
func (s *MarketService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	cached, err := s.markets.List(ctx)
	if err == nil && len(cached) > 0 {
		return cached, nil
	}
	if err != nil {
		s.logger.Warn("market cache read failed, falling back to engine", "error", err)
	}
	return s.engine.ListMarkets(ctx, opts)
}

// Get returns one market, cache-first.
func (s *MarketService) Get(ctx context.Context, id string) (domain.Market, error) {
	market, err := s.markets.Get(ctx, id)
	if err == nil {
		return market, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("market cache read failed, falling back to engine", "market_id", id, "error", err)
	}
	return s.engine.GetMarket(ctx, id)
}

// Orderbook returns the current book for a market, cache-first.
func (s *MarketService) Orderbook(ctx context.Context, marketID string) (domain.OrderbookSnapshot, error) {
	snap, err := s.books.GetSnapshot(ctx, marketID)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("orderbook cache read failed, falling back to engine", "market_id", marketID, "error", err)
	}
	return s.engine.GetOrderbook(ctx, marketID)
}

// Trades returns recent trades, preferring the local mirror.
func (s *MarketService) Trades(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error) {
	if s.trades != nil {
		trades, err := s.trades.ListByMarket(ctx, marketID, opts)
		if err == nil && len(trades) > 0 {
			return trades, nil
		}
		if err != nil {
			s.logger.Warn("trade mirror read failed, falling back to engine", "market_id", marketID, "error", err)
		}
	}
	return s.engine.GetTrades(ctx, marketID, opts)
}

// Stats returns the engine's rolling statistics for one market.
func (s *MarketService) Stats(ctx context.Context, marketID string) (domain.MarketStats, error) {
	return s.engine.GetStats(ctx, marketID)
}

// PriceHistory returns the price series for a market.
func (s *MarketService) PriceHistory(ctx context.Context, marketID, resolution string, since time.Time) ([]domain.PricePoint, error) {
	return s.engine.GetPriceHistory(ctx, marketID, resolution, since)
}

// Prices returns the latest cached YES/NO prices for a market.
func (s *MarketService) Prices(ctx context.Context, marketID string) (yes, no float64, ts time.Time, err error) {
	return s.prices.GetPrices(ctx, marketID)
}

// Create registers a new market with the engine, then refreshes the list.
func (s *MarketService) Create(ctx context.Context, market domain.Market) (domain.Market, error) {
	created, err := s.engine.CreateMarket(ctx, market)
	if err != nil {
		return domain.Market{}, fmt.Errorf("markets: create: %w", err)
	}
	s.invalid.Invalidate(ctx, refresh.ResourceMarkets, "")
	s.logger.Info("market created", "market_id", created.ID, "question", created.Question)
	return created, nil
}
