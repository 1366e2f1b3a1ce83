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
	marketKeyPrefix = "market:"
	marketIndexKey  = "markets:all"
	marketTTL       = 5 * time.Minute
)

// MarketCache caches market metadata as JSON values plus a set index for
// listing. Entries expire so a dead refresher cannot serve stale markets
// forever.
type MarketCache struct {
	client *Client
}

var _ domain.MarketCache = (*MarketCache)(nil)

// NewMarketCache creates a MarketCache on the shared client.
func NewMarketCache(client *Client) *MarketCache {
	return &MarketCache{client: client}
}

// Set stores one market and registers it in the listing index.
func (c *MarketCache) Set(ctx context.Context, market domain.Market) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("redis/market: marshal %s: %w", market.ID, err)
	}

	pipe := c.client.rdb.TxPipeline()
	pipe.Set(ctx, marketKeyPrefix+market.ID, data, marketTTL)
	pipe.SAdd(ctx, marketIndexKey, market.ID)
	pipe.Expire(ctx, marketIndexKey, marketTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis/market: set %s: %w", market.ID, err)
	}
	return nil
}

// SetBatch stores markets in a single pipeline round trip.
func (c *MarketCache) SetBatch(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	pipe := c.client.rdb.TxPipeline()
	ids := make([]any, 0, len(markets))
	for _, m := range markets {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("redis/market: marshal %s: %w", m.ID, err)
		}
		pipe.Set(ctx, marketKeyPrefix+m.ID, data, marketTTL)
		ids = append(ids, m.ID)
	}
	pipe.SAdd(ctx, marketIndexKey, ids...)
	pipe.Expire(ctx, marketIndexKey, marketTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis/market: set batch: %w", err)
	}
	return nil
}

// Get returns one market, or domain.ErrNotFound on a cache miss.
func (c *MarketCache) Get(ctx context.Context, id string) (domain.Market, error) {
	data, err := c.client.rdb.Get(ctx, marketKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Market{}, fmt.Errorf("%w: market %s not cached", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Market{}, fmt.Errorf("redis/market: get %s: %w", id, err)
	}

	var market domain.Market
	if err := json.Unmarshal(data, &market); err != nil {
		return domain.Market{}, fmt.Errorf("redis/market: unmarshal %s: %w", id, err)
	}
	return market, nil
}

// List returns every cached market. Ids indexed but already expired are
// skipped rather than treated as errors.
func (c *MarketCache) List(ctx context.Context) ([]domain.Market, error) {
	ids, err := c.client.rdb.SMembers(ctx, marketIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis/market: list index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, marketKeyPrefix+id)
	}
	values, err := c.client.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis/market: mget: %w", err)
	}

	markets := make([]domain.Market, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var market domain.Market
		if err := json.Unmarshal([]byte(s), &market); err != nil {
			continue
		}
		markets = append(markets, market)
	}
	return markets, nil
}

// Invalidate removes one market from the cache and the index.
func (c *MarketCache) Invalidate(ctx context.Context, id string) error {
	pipe := c.client.rdb.TxPipeline()
	pipe.Del(ctx, marketKeyPrefix+id)
	pipe.SRem(ctx, marketIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis/market: invalidate %s: %w", id, err)
	}
	return nil
}
