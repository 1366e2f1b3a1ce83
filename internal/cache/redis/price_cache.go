package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

const (
	priceKeyPrefix = "price:"
	priceTTL       = 2 * time.Minute
)

// PriceCache stores the latest YES/NO prices per market in a hash.
type PriceCache struct {
	client *Client
}

var _ domain.PriceCache = (*PriceCache)(nil)

// NewPriceCache creates a PriceCache on the shared client.
func NewPriceCache(client *Client) *PriceCache {
	return &PriceCache{client: client}
}

// SetPrices stores the latest prices for a market.
func (c *PriceCache) SetPrices(ctx context.Context, marketID string, yes, no float64, ts time.Time) error {
	key := priceKeyPrefix + marketID
	pipe := c.client.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"yes": strconv.FormatFloat(yes, 'f', -1, 64),
		"no":  strconv.FormatFloat(no, 'f', -1, 64),
		"ts":  strconv.FormatInt(ts.UnixMilli(), 10),
	})
	pipe.Expire(ctx, key, priceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis/price: set %s: %w", marketID, err)
	}
	return nil
}

// GetPrices returns the latest prices, or domain.ErrNotFound on a miss.
func (c *PriceCache) GetPrices(ctx context.Context, marketID string) (yes, no float64, ts time.Time, err error) {
	values, err := c.client.rdb.HGetAll(ctx, priceKeyPrefix+marketID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, time.Time{}, fmt.Errorf("redis/price: get %s: %w", marketID, err)
	}
	if len(values) == 0 {
		return 0, 0, time.Time{}, fmt.Errorf("%w: prices for %s not cached", domain.ErrNotFound, marketID)
	}

	yes, err = strconv.ParseFloat(values["yes"], 64)
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("redis/price: parse yes price: %w", err)
	}
	no, err = strconv.ParseFloat(values["no"], 64)
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("redis/price: parse no price: %w", err)
	}
	millis, err := strconv.ParseInt(values["ts"], 10, 64)
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("redis/price: parse timestamp: %w", err)
	}

	return yes, no, time.UnixMilli(millis).UTC(), nil
}
