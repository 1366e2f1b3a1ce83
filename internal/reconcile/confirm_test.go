package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// scriptedGetter returns one receipt per call, repeating the last entry once
// the script is exhausted.
type scriptedGetter struct {
	script []func() (domain.TxReceipt, error)
	calls  int
}

func (g *scriptedGetter) GetTransaction(context.Context, string) (domain.TxReceipt, error) {
	i := g.calls
	if i >= len(g.script) {
		i = len(g.script) - 1
	}
	g.calls++
	return g.script[i]()
}

func fastOpts() ConfirmOpts {
	return ConfirmOpts{Interval: time.Millisecond, Deadline: time.Second}
}

func TestConfirmTransactionSuccessAfterPending(t *testing.T) {
	getter := &scriptedGetter{script: []func() (domain.TxReceipt, error){
		func() (domain.TxReceipt, error) { return domain.TxReceipt{}, domain.ErrNotFound },
		func() (domain.TxReceipt, error) {
			return domain.TxReceipt{TxID: "0xabc", Status: domain.TxStatusPending}, nil
		},
		func() (domain.TxReceipt, error) {
			return domain.TxReceipt{TxID: "0xabc", Status: domain.TxStatusSuccess, BlockHeight: 1234}, nil
		},
	}}

	receipt, err := ConfirmTransaction(context.Background(), getter, "0xabc", fastOpts(), discard())
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusSuccess, receipt.Status)
	require.Equal(t, uint64(1234), receipt.BlockHeight)
	require.Equal(t, 3, getter.calls)
}

func TestConfirmTransactionAbort(t *testing.T) {
	getter := &scriptedGetter{script: []func() (domain.TxReceipt, error){
		func() (domain.TxReceipt, error) {
			return domain.TxReceipt{TxID: "0xabc", Status: domain.TxStatusAbortByResponse, Result: "(err u401)"}, nil
		},
	}}

	receipt, err := ConfirmTransaction(context.Background(), getter, "0xabc", fastOpts(), discard())
	require.ErrorIs(t, err, domain.ErrTxAborted)
	require.Equal(t, domain.TxStatusAbortByResponse, receipt.Status)
}

func TestConfirmTransactionDroppedIsAborted(t *testing.T) {
	getter := &scriptedGetter{script: []func() (domain.TxReceipt, error){
		func() (domain.TxReceipt, error) {
			return domain.TxReceipt{TxID: "0xabc", Status: domain.TxStatusDropped}, nil
		},
	}}

	_, err := ConfirmTransaction(context.Background(), getter, "0xabc", fastOpts(), discard())
	require.ErrorIs(t, err, domain.ErrTxAborted)
}

func TestConfirmTransactionDeadline(t *testing.T) {
	getter := &scriptedGetter{script: []func() (domain.TxReceipt, error){
		func() (domain.TxReceipt, error) {
			return domain.TxReceipt{TxID: "0xabc", Status: domain.TxStatusPending}, nil
		},
	}}

	opts := ConfirmOpts{Interval: time.Millisecond, Deadline: 20 * time.Millisecond}
	_, err := ConfirmTransaction(context.Background(), getter, "0xabc", opts, discard())
	require.ErrorIs(t, err, domain.ErrConfirmTimeout)
	require.NotErrorIs(t, err, domain.ErrTxAborted)
}

func TestConfirmTransactionCancelled(t *testing.T) {
	getter := &scriptedGetter{script: []func() (domain.TxReceipt, error){
		func() (domain.TxReceipt, error) {
			return domain.TxReceipt{TxID: "0xabc", Status: domain.TxStatusPending}, nil
		},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ConfirmTransaction(ctx, getter, "0xabc", fastOpts(), discard())
	require.ErrorIs(t, err, domain.ErrContextDone)
}
