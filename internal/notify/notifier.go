// Package notify pushes desk events (fills, rejections, confirmed
// settlements) to external channels.
package notify

import (
	"context"
	"log/slog"
	"strings"
)

// Event classifies a notification for per-channel filtering.
type Event string

const (
	EventOrderPlaced   Event = "order.placed"
	EventOrderRejected Event = "order.rejected"
	EventOrderCancel   Event = "order.cancelled"
	EventTxConfirmed   Event = "tx.confirmed"
	EventTxFailed      Event = "tx.failed"
	EventDisputeRaised Event = "dispute.raised"
)

// Notifier delivers one message for an event. Implementations must be safe
// for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, event Event, message string) error
}

// Fanout delivers to every configured notifier, filtered by the enabled
// event list. Delivery failures are logged, never propagated: a dead webhook
// must not fail an order placement.
type Fanout struct {
	targets []Notifier
	enabled map[Event]bool // nil means all events
	logger  *slog.Logger
}

var _ Notifier = (*Fanout)(nil)

// NewFanout creates a Fanout. events is the enabled event-name list; empty
// enables everything.
func NewFanout(targets []Notifier, events []string, logger *slog.Logger) *Fanout {
	var enabled map[Event]bool
	if len(events) > 0 {
		enabled = make(map[Event]bool, len(events))
		for _, e := range events {
			enabled[Event(strings.TrimSpace(e))] = true
		}
	}
	return &Fanout{
		targets: targets,
		enabled: enabled,
		logger:  logger.With("component", "notify"),
	}
}

// Notify fans the message out. Always returns nil.
func (f *Fanout) Notify(ctx context.Context, event Event, message string) error {
	if f.enabled != nil && !f.enabled[event] {
		return nil
	}
	for _, t := range f.targets {
		if err := t.Notify(ctx, event, message); err != nil {
			f.logger.Warn("notification delivery failed", "event", string(event), "error", err)
		}
	}
	return nil
}

// Noop is a Notifier that discards everything. Used when no channels are
// configured.
type Noop struct{}

var _ Notifier = Noop{}

// Notify discards the message.
func (Noop) Notify(context.Context, Event, string) error { return nil }
