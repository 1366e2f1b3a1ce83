package domain

import (
	"context"
	"time"
)

// MarketCache provides fast market metadata lookups.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	SetBatch(ctx context.Context, markets []Market) error
	Get(ctx context.Context, id string) (Market, error)
	List(ctx context.Context) ([]Market, error)
	Invalidate(ctx context.Context, id string) error
}

// OrderbookCache stores the latest orderbook snapshot per market.
type OrderbookCache interface {
	SetSnapshot(ctx context.Context, marketID string, snap OrderbookSnapshot) error
	GetSnapshot(ctx context.Context, marketID string) (OrderbookSnapshot, error)
	// UpsertLevel applies the optimistic in-place level update used after a
	// smart-order placement, preserving side sort order.
	UpsertLevel(ctx context.Context, marketID string, side OrderSide, priceMicro, sizeMicro int64) error
	Invalidate(ctx context.Context, marketID string) error
}

// PriceCache stores the latest YES/NO prices per market.
type PriceCache interface {
	SetPrices(ctx context.Context, marketID string, yes, no float64, ts time.Time) error
	GetPrices(ctx context.Context, marketID string) (yes, no float64, ts time.Time, err error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus provides pub/sub fan-out for cache updates and order events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
