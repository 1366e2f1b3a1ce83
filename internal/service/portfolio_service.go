package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/oddsdesk/oddsdesk/internal/domain"
	"github.com/oddsdesk/oddsdesk/internal/notify"
	"github.com/oddsdesk/oddsdesk/internal/reconcile"
	"github.com/oddsdesk/oddsdesk/internal/wallet"
)

// PortfolioWallet is the wallet surface the portfolio service needs.
type PortfolioWallet interface {
	Address() (string, error)
	CallContract(ctx context.Context, call wallet.ContractCall) (string, error)
}

// BalanceChecker reads position balances and derives merge checks.
type BalanceChecker interface {
	PositionBalance(ctx context.Context, address, positionID string) (domain.BalanceLookup, error)
	CheckMergeable(ctx context.Context, address string, market domain.Market) (domain.MergeCheck, error)
}

// MarketGetter resolves market metadata for position lookups.
type MarketGetter interface {
	Get(ctx context.Context, id string) (domain.Market, error)
}

// PortfolioConfig names the settlement contract and confirmation tunables.
type PortfolioConfig struct {
	Deployer        string
	MarketContract  string
	ConfirmInterval time.Duration
	ConfirmDeadline time.Duration
}

// MarketPosition is one market's position summary for the connected address.
// Amounts are stringified so arbitrary-precision values survive JSON.
type MarketPosition struct {
	MarketID  string               `json:"marketId"`
	Question  string               `json:"question"`
	Yes       domain.BalanceLookup `json:"-"`
	No        domain.BalanceLookup `json:"-"`
	YesAmount string               `json:"yesAmount"`
	NoAmount  string               `json:"noAmount"`
	YesKnown  bool                 `json:"yesKnown"`
	NoKnown   bool                 `json:"noKnown"`
	Mergeable string               `json:"mergeable"`
	Resolved  bool                 `json:"resolved"`
}

// PortfolioService reads positions and drives split, merge, and redeem
// settlement transactions through the wallet.
type PortfolioService struct {
	wallet   PortfolioWallet
	balances BalanceChecker
	markets  MarketGetter
	txs      reconcile.TxGetter
	audit    domain.AuditStore // may be nil
	notifier notify.Notifier
	cfg      PortfolioConfig
	logger   *slog.Logger
}

// NewPortfolioService wires a PortfolioService.
func NewPortfolioService(w PortfolioWallet, balances BalanceChecker, markets MarketGetter, txs reconcile.TxGetter, audit domain.AuditStore, notifier notify.Notifier, cfg PortfolioConfig, logger *slog.Logger) *PortfolioService {
	return &PortfolioService{
		wallet:   w,
		balances: balances,
		markets:  markets,
		txs:      txs,
		audit:    audit,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With("component", "portfolio"),
	}
}

// Position returns the connected address's position in one market, including
// how many matched pairs could be merged back into collateral.
func (s *PortfolioService) Position(ctx context.Context, marketID string) (MarketPosition, error) {
	addr, err := s.wallet.Address()
	if err != nil {
		return MarketPosition{}, fmt.Errorf("portfolio: position: %w", err)
	}
	market, err := s.markets.Get(ctx, marketID)
	if err != nil {
		return MarketPosition{}, fmt.Errorf("portfolio: position: %w", err)
	}

	check, err := s.balances.CheckMergeable(ctx, addr, market)
	if err != nil {
		return MarketPosition{}, fmt.Errorf("portfolio: position: %w", err)
	}

	return MarketPosition{
		MarketID:  market.ID,
		Question:  market.Question,
		Yes:       domain.BalanceLookup{Amount: check.YesBalance, Known: check.YesKnown},
		No:        domain.BalanceLookup{Amount: check.NoBalance, Known: check.NoKnown},
		YesAmount: check.YesBalance.String(),
		NoAmount:  check.NoBalance.String(),
		YesKnown:  check.YesKnown,
		NoKnown:   check.NoKnown,
		Mergeable: check.Mergeable.String(),
		Resolved:  market.Resolved,
	}, nil
}

// Split locks amount atomic units of collateral into matched YES/NO pairs
// and waits for on-chain confirmation.
func (s *PortfolioService) Split(ctx context.Context, marketID string, amount *big.Int) (domain.TxReceipt, error) {
	return s.settle(ctx, marketID, "split-position", amount, notify.EventTxConfirmed)
}

// Merge burns amount matched YES/NO pairs back into collateral and waits for
// on-chain confirmation.
func (s *PortfolioService) Merge(ctx context.Context, marketID string, amount *big.Int) (domain.TxReceipt, error) {
	addr, err := s.wallet.Address()
	if err != nil {
		return domain.TxReceipt{}, fmt.Errorf("portfolio: merge: %w", err)
	}
	market, err := s.markets.Get(ctx, marketID)
	if err != nil {
		return domain.TxReceipt{}, fmt.Errorf("portfolio: merge: %w", err)
	}

	check, err := s.balances.CheckMergeable(ctx, addr, market)
	if err != nil {
		return domain.TxReceipt{}, fmt.Errorf("portfolio: merge: %w", err)
	}
	if check.Mergeable.Cmp(amount) < 0 {
		return domain.TxReceipt{}, fmt.Errorf("portfolio: merge: only %s pairs mergeable, requested %s",
			check.Mergeable, amount)
	}

	return s.settle(ctx, marketID, "merge-position", amount, notify.EventTxConfirmed)
}

// Redeem converts winning-outcome tokens into collateral after resolution.
func (s *PortfolioService) Redeem(ctx context.Context, marketID string, amount *big.Int) (domain.TxReceipt, error) {
	market, err := s.markets.Get(ctx, marketID)
	if err != nil {
		return domain.TxReceipt{}, fmt.Errorf("portfolio: redeem: %w", err)
	}
	if !market.Resolved {
		return domain.TxReceipt{}, fmt.Errorf("portfolio: redeem: market %s is not resolved", marketID)
	}
	return s.settle(ctx, marketID, "redeem-position", amount, notify.EventTxConfirmed)
}

// settle broadcasts one settlement contract call and blocks until the
// transaction reaches a terminal state or the confirmation deadline passes.
func (s *PortfolioService) settle(ctx context.Context, marketID, function string, amount *big.Int, okEvent notify.Event) (domain.TxReceipt, error) {
	if amount == nil || amount.Sign() <= 0 {
		return domain.TxReceipt{}, fmt.Errorf("portfolio: %s: amount must be positive", function)
	}

	market, err := s.markets.Get(ctx, marketID)
	if err != nil {
		return domain.TxReceipt{}, fmt.Errorf("portfolio: %s: %w", function, err)
	}

	txID, err := s.wallet.CallContract(ctx, wallet.ContractCall{
		ContractAddr: s.cfg.Deployer,
		ContractName: s.cfg.MarketContract,
		Function:     function,
		Args:         []string{market.ConditionID, amount.String()},
	})
	if err != nil {
		return domain.TxReceipt{}, err
	}

	s.audited(ctx, "settle."+function, map[string]any{
		"market_id": marketID, "amount": amount.String(), "tx_id": txID,
	})

	receipt, err := reconcile.ConfirmTransaction(ctx, s.txs, txID, reconcile.ConfirmOpts{
		Interval: s.cfg.ConfirmInterval,
		Deadline: s.cfg.ConfirmDeadline,
	}, s.logger)
	switch {
	case err == nil:
		_ = s.notifier.Notify(ctx, okEvent,
			fmt.Sprintf("%s of %s on %s confirmed (%s)", function, amount, market.Question, txID))
		return receipt, nil
	case errors.Is(err, domain.ErrTxAborted):
		_ = s.notifier.Notify(ctx, notify.EventTxFailed,
			fmt.Sprintf("%s on %s aborted: %s", function, market.Question, receipt.Status))
		return receipt, err
	default:
		// Timeout or cancellation: the tx may still land, so report the id.
		s.logger.Warn("settlement confirmation incomplete", "function", function, "tx_id", txID, "error", err)
		return domain.TxReceipt{TxID: txID, Status: domain.TxStatusPending}, err
	}
}

func (s *PortfolioService) audited(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.Warn("audit write failed", "event", event, "error", err)
	}
}
