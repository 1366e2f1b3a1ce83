package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oddsdesk/oddsdesk/internal/domain"
	"github.com/oddsdesk/oddsdesk/internal/notify"
	"github.com/oddsdesk/oddsdesk/internal/wallet"
)

type stubOracleEngine struct {
	votes map[string]domain.Vote
}

func (e *stubOracleEngine) ListDisputes(context.Context, domain.ListOpts) ([]domain.Dispute, error) {
	return []domain.Dispute{{QuestionID: "q-1", Status: domain.DisputeStatusVoting}}, nil
}

func (e *stubOracleEngine) GetVote(_ context.Context, questionID, voter string) (domain.Vote, error) {
	v, ok := e.votes[questionID+"/"+voter]
	if !ok {
		return domain.Vote{}, domain.ErrNotFound
	}
	return v, nil
}

type stubOracleWallet struct {
	addr  string
	calls []wallet.ContractCall
	err   error
}

func (w *stubOracleWallet) Address() (string, error) {
	if w.err != nil {
		return "", w.err
	}
	return w.addr, nil
}

func (w *stubOracleWallet) CallContract(_ context.Context, call wallet.ContractCall) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	w.calls = append(w.calls, call)
	return "0xvote1", nil
}

type stubTxGetter struct{ receipt domain.TxReceipt }

func (g stubTxGetter) GetTransaction(context.Context, string) (domain.TxReceipt, error) {
	return g.receipt, nil
}

func newOracleService(w *stubOracleWallet, receipt domain.TxReceipt) *OracleService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOracleService(&stubOracleEngine{votes: map[string]domain.Vote{}}, w,
		stubTxGetter{receipt: receipt}, notify.Noop{}, OracleConfig{
			Deployer:        "SP1DEPLOYER",
			OracleContract:  "optimistic-oracle",
			ConfirmInterval: time.Millisecond,
			ConfirmDeadline: time.Second,
		}, logger)
}

func TestCastVoteBroadcastsAndConfirms(t *testing.T) {
	w := &stubOracleWallet{addr: testMaker}
	svc := newOracleService(w, domain.TxReceipt{TxID: "0xvote1", Status: domain.TxStatusSuccess})

	receipt, err := svc.CastVote(context.Background(), "q-1", 1)
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusSuccess, receipt.Status)

	require.Len(t, w.calls, 1)
	call := w.calls[0]
	require.Equal(t, "SP1DEPLOYER", call.ContractAddr)
	require.Equal(t, "optimistic-oracle", call.ContractName)
	require.Equal(t, "cast-vote", call.Function)
	require.Equal(t, []string{"q-1", "1"}, call.Args)
}

func TestCastVoteAbortReturnsReceipt(t *testing.T) {
	w := &stubOracleWallet{addr: testMaker}
	svc := newOracleService(w, domain.TxReceipt{TxID: "0xvote1", Status: domain.TxStatusAbortByResponse})

	receipt, err := svc.CastVote(context.Background(), "q-1", 0)
	require.ErrorIs(t, err, domain.ErrTxAborted)
	require.Equal(t, domain.TxStatusAbortByResponse, receipt.Status)
}

func TestCastVoteTimeoutReportsPendingTx(t *testing.T) {
	w := &stubOracleWallet{addr: testMaker}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewOracleService(&stubOracleEngine{}, w,
		stubTxGetter{receipt: domain.TxReceipt{TxID: "0xvote1", Status: domain.TxStatusPending}},
		notify.Noop{}, OracleConfig{
			Deployer:        "SP1DEPLOYER",
			OracleContract:  "optimistic-oracle",
			ConfirmInterval: time.Millisecond,
			ConfirmDeadline: 20 * time.Millisecond,
		}, logger)

	receipt, err := svc.CastVote(context.Background(), "q-1", 1)
	require.ErrorIs(t, err, domain.ErrConfirmTimeout)
	require.Equal(t, "0xvote1", receipt.TxID)
	require.Equal(t, domain.TxStatusPending, receipt.Status)
}

func TestCastVoteValidation(t *testing.T) {
	w := &stubOracleWallet{addr: testMaker}
	svc := newOracleService(w, domain.TxReceipt{TxID: "0xvote1", Status: domain.TxStatusSuccess})

	_, err := svc.CastVote(context.Background(), "", 1)
	require.Error(t, err)

	_, err = svc.CastVote(context.Background(), "q-1", 2)
	require.Error(t, err)

	_, err = svc.CastVote(context.Background(), "q-1", -1)
	require.Error(t, err)

	require.Empty(t, w.calls, "nothing may be broadcast")
}

func TestCastVoteRequiresWallet(t *testing.T) {
	w := &stubOracleWallet{err: domain.ErrNotConnected}
	svc := newOracleService(w, domain.TxReceipt{})

	_, err := svc.CastVote(context.Background(), "q-1", 1)
	require.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestMyVoteResolvesConnectedAddress(t *testing.T) {
	eng := &stubOracleEngine{votes: map[string]domain.Vote{
		"q-1/" + testMaker: {QuestionID: "q-1", Voter: testMaker, Choice: 1},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewOracleService(eng, &stubOracleWallet{addr: testMaker}, stubTxGetter{},
		notify.Noop{}, OracleConfig{}, logger)

	vote, err := svc.MyVote(context.Background(), "q-1")
	require.NoError(t, err)
	require.Equal(t, testMaker, vote.Voter)

	_, err = svc.MyVote(context.Background(), "q-2")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
