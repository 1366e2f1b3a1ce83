package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// TxGetter returns the current receipt for a transaction id.
type TxGetter interface {
	GetTransaction(ctx context.Context, txID string) (domain.TxReceipt, error)
}

// ConfirmOpts controls the confirmation poll.
type ConfirmOpts struct {
	// Interval between status polls. Defaults to 3s.
	Interval time.Duration
	// Deadline is the maximum total wait before giving up with
	// ErrConfirmTimeout. Defaults to 10 minutes. A timed-out transaction may
	// still confirm later; timeout only means we stopped watching.
	Deadline time.Duration
}

func (o ConfirmOpts) withDefaults() ConfirmOpts {
	if o.Interval <= 0 {
		o.Interval = 3 * time.Second
	}
	if o.Deadline <= 0 {
		o.Deadline = 10 * time.Minute
	}
	return o
}

// ConfirmTransaction polls the chain until txID reaches a terminal status or
// the deadline passes.
//
// Outcomes:
//   - success: the receipt is returned with a nil error.
//   - abort or dropped: the receipt is returned with ErrTxAborted.
//   - deadline exceeded: ErrConfirmTimeout.
//   - ctx cancelled: ErrContextDone.
//
// Receipts that are still pending and transient poll errors both just wait
// for the next tick; the deadline is the only thing that stops retrying.
func ConfirmTransaction(ctx context.Context, getter TxGetter, txID string, opts ConfirmOpts, logger *slog.Logger) (domain.TxReceipt, error) {
	opts = opts.withDefaults()
	log := logger.With("component", "reconcile", "tx_id", txID)

	ctx, cancel := context.WithTimeout(ctx, opts.Deadline)
	defer cancel()

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		receipt, err := getter.GetTransaction(ctx, txID)
		switch {
		case err == nil && receipt.Status.Terminal():
			if receipt.Status == domain.TxStatusSuccess {
				log.Info("transaction confirmed", "block_height", receipt.BlockHeight)
				return receipt, nil
			}
			log.Warn("transaction failed", "status", receipt.Status, "result", receipt.Result)
			return receipt, fmt.Errorf("%w: status %s", domain.ErrTxAborted, receipt.Status)
		case err == nil:
			log.Debug("transaction pending", "status", receipt.Status)
		case errors.Is(err, domain.ErrNotFound):
			// Not yet in the mempool view; keep polling.
			log.Debug("transaction not yet visible")
		default:
			log.Warn("transaction poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return domain.TxReceipt{}, fmt.Errorf("%w: %s still unconfirmed after %s", domain.ErrConfirmTimeout, txID, opts.Deadline)
			}
			return domain.TxReceipt{}, fmt.Errorf("reconcile: confirm %s: %w", txID, domain.ErrContextDone)
		case <-ticker.C:
		}
	}
}
