package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

const (
	orderbookKeyPrefix = "orderbook:"
	orderbookTTL       = 30 * time.Second
)

// OrderbookCache stores the latest snapshot per market as a single JSON
// value. The TTL is short: the refresher overwrites it every few seconds and
// anything older than that is better refetched than served.
type OrderbookCache struct {
	client *Client
}

var _ domain.OrderbookCache = (*OrderbookCache)(nil)

// NewOrderbookCache creates an OrderbookCache on the shared client.
func NewOrderbookCache(client *Client) *OrderbookCache {
	return &OrderbookCache{client: client}
}

// SetSnapshot replaces the cached snapshot for a market.
func (c *OrderbookCache) SetSnapshot(ctx context.Context, marketID string, snap domain.OrderbookSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis/orderbook: marshal %s: %w", marketID, err)
	}
	if err := c.client.rdb.Set(ctx, orderbookKeyPrefix+marketID, data, orderbookTTL).Err(); err != nil {
		return fmt.Errorf("redis/orderbook: set %s: %w", marketID, err)
	}
	return nil
}

// GetSnapshot returns the cached snapshot, or domain.ErrNotFound on a miss.
func (c *OrderbookCache) GetSnapshot(ctx context.Context, marketID string) (domain.OrderbookSnapshot, error) {
	data, err := c.client.rdb.Get(ctx, orderbookKeyPrefix+marketID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.OrderbookSnapshot{}, fmt.Errorf("%w: orderbook %s not cached", domain.ErrNotFound, marketID)
	}
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis/orderbook: get %s: %w", marketID, err)
	}

	var snap domain.OrderbookSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis/orderbook: unmarshal %s: %w", marketID, err)
	}
	return snap, nil
}

// UpsertLevel applies an optimistic level update to the cached snapshot,
// preserving side sort order. A cache miss is a no-op: there is nothing to
// patch and the next refresh will write the authoritative book anyway.
//
// Read-modify-write without a lock is acceptable here because the value is
// advisory and short-lived; the refresher's next SetSnapshot wins.
func (c *OrderbookCache) UpsertLevel(ctx context.Context, marketID string, side domain.OrderSide, priceMicro, sizeMicro int64) error {
	snap, err := c.GetSnapshot(ctx, marketID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if side == domain.OrderSideBuy {
		snap.Bids = domain.UpsertLevel(snap.Bids, side, priceMicro, sizeMicro)
	} else {
		snap.Asks = domain.UpsertLevel(snap.Asks, side, priceMicro, sizeMicro)
	}
	snap.UpdatedAt = time.Now().UTC()

	return c.SetSnapshot(ctx, marketID, snap)
}

// Invalidate removes the cached snapshot for a market.
func (c *OrderbookCache) Invalidate(ctx context.Context, marketID string) error {
	if err := c.client.rdb.Del(ctx, orderbookKeyPrefix+marketID).Err(); err != nil {
		return fmt.Errorf("redis/orderbook: invalidate %s: %w", marketID, err)
	}
	return nil
}
