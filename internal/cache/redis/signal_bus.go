package redis

import (
	"context"
	"fmt"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// SignalBus fans out cache-update and order-event signals over Redis pub/sub
// so every desk instance invalidates and pushes together.
type SignalBus struct {
	client *Client
}

var _ domain.SignalBus = (*SignalBus)(nil)

// NewSignalBus creates a SignalBus on the shared client.
func NewSignalBus(client *Client) *SignalBus {
	return &SignalBus{client: client}
}

// Publish sends payload to every subscriber of channel.
func (b *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis/signal: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns a channel of payloads published to channel. The channel
// closes when ctx is cancelled.
func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	sub := b.client.rdb.Subscribe(ctx, channel)

	// Force the subscription to be established before returning so callers
	// never miss messages published right after Subscribe.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis/signal: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
