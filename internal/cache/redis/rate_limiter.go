package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

const rateKeyPrefix = "rate:"

// RateLimiter is a fixed-window counter limiter shared across desk instances.
type RateLimiter struct {
	client *Client
}

var _ domain.RateLimiter = (*RateLimiter)(nil)

// NewRateLimiter creates a RateLimiter on the shared client.
func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow increments the counter for key's current window and reports whether
// the caller is within limit. The first hit in a window sets the expiry.
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("%s%s:%d", rateKeyPrefix, key, time.Now().Unix()/int64(window.Seconds()))

	pipe := l.client.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis/rate: incr %s: %w", key, err)
	}

	return incr.Val() <= int64(limit), nil
}
