package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/oddsdesk/oddsdesk/internal/domain"
	"github.com/oddsdesk/oddsdesk/internal/notify"
	"github.com/oddsdesk/oddsdesk/internal/reconcile"
	"github.com/oddsdesk/oddsdesk/internal/wallet"
)

// OracleEngine is the engine surface the oracle service needs.
type OracleEngine interface {
	ListDisputes(ctx context.Context, opts domain.ListOpts) ([]domain.Dispute, error)
	GetVote(ctx context.Context, questionID, voter string) (domain.Vote, error)
}

// OracleWallet is the wallet surface the oracle service needs.
type OracleWallet interface {
	Address() (string, error)
	CallContract(ctx context.Context, call wallet.ContractCall) (string, error)
}

// OracleConfig names the oracle contract and confirmation tunables.
type OracleConfig struct {
	Deployer        string
	OracleContract  string
	ConfirmInterval time.Duration
	ConfirmDeadline time.Duration
}

// OracleService surfaces the optimistic oracle's dispute state and casts
// votes on disputed questions through the wallet.
type OracleService struct {
	engine   OracleEngine
	wallet   OracleWallet
	txs      reconcile.TxGetter
	notifier notify.Notifier
	cfg      OracleConfig
	logger   *slog.Logger
}

// NewOracleService wires an OracleService.
func NewOracleService(eng OracleEngine, w OracleWallet, txs reconcile.TxGetter, notifier notify.Notifier, cfg OracleConfig, logger *slog.Logger) *OracleService {
	return &OracleService{
		engine:   eng,
		wallet:   w,
		txs:      txs,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With("component", "oracle"),
	}
}

// Disputes returns open and voting disputes.
func (s *OracleService) Disputes(ctx context.Context, opts domain.ListOpts) ([]domain.Dispute, error) {
	return s.engine.ListDisputes(ctx, opts)
}

// MyVote returns the connected address's vote on a disputed question.
// domain.ErrNotFound means the address has not voted.
func (s *OracleService) MyVote(ctx context.Context, questionID string) (domain.Vote, error) {
	addr, err := s.wallet.Address()
	if err != nil {
		return domain.Vote{}, fmt.Errorf("oracle: my vote: %w", err)
	}
	return s.engine.GetVote(ctx, questionID, addr)
}

// Vote returns any address's vote on a disputed question.
func (s *OracleService) Vote(ctx context.Context, questionID, voter string) (domain.Vote, error) {
	return s.engine.GetVote(ctx, questionID, voter)
}

// CastVote broadcasts a vote on a disputed question and blocks until the
// transaction reaches a terminal state or the confirmation deadline passes.
// choice is the outcome index voted for (0 = YES, 1 = NO).
func (s *OracleService) CastVote(ctx context.Context, questionID string, choice int) (domain.TxReceipt, error) {
	if questionID == "" {
		return domain.TxReceipt{}, fmt.Errorf("oracle: cast vote: question id is required")
	}
	if choice != 0 && choice != 1 {
		return domain.TxReceipt{}, fmt.Errorf("oracle: cast vote: choice must be 0 or 1, got %d", choice)
	}

	txID, err := s.wallet.CallContract(ctx, wallet.ContractCall{
		ContractAddr: s.cfg.Deployer,
		ContractName: s.cfg.OracleContract,
		Function:     "cast-vote",
		Args:         []string{questionID, strconv.Itoa(choice)},
	})
	if err != nil {
		return domain.TxReceipt{}, fmt.Errorf("oracle: cast vote: %w", err)
	}

	receipt, err := reconcile.ConfirmTransaction(ctx, s.txs, txID, reconcile.ConfirmOpts{
		Interval: s.cfg.ConfirmInterval,
		Deadline: s.cfg.ConfirmDeadline,
	}, s.logger)
	switch {
	case err == nil:
		s.logger.Info("vote cast", "question_id", questionID, "choice", choice, "tx_id", txID)
		_ = s.notifier.Notify(ctx, notify.EventTxConfirmed,
			fmt.Sprintf("vote %d on question %s confirmed (%s)", choice, questionID, txID))
		return receipt, nil
	case errors.Is(err, domain.ErrTxAborted):
		_ = s.notifier.Notify(ctx, notify.EventTxFailed,
			fmt.Sprintf("vote on question %s aborted: %s", questionID, receipt.Status))
		return receipt, err
	default:
		// Timeout or cancellation: the tx may still land, so report the id.
		s.logger.Warn("vote confirmation incomplete", "question_id", questionID, "tx_id", txID, "error", err)
		return domain.TxReceipt{TxID: txID, Status: domain.TxStatusPending}, err
	}
}
