// Package reconcile checks on-chain position balances against what an order
// or merge needs, so the desk can tell the user to split collateral before
// the engine or the settlement contract rejects them.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// ContractReader performs read-only contract calls as a given sender.
type ContractReader interface {
	ReadContract(ctx context.Context, contractAddr, contractName, function string, args []string) (string, error)
}

// Reconciler reads position-token balances from the market contract and
// derives split/merge requirements.
type Reconciler struct {
	reader         ContractReader
	deployer       string
	marketContract string
	logger         *slog.Logger
}

// New creates a Reconciler reading balances from deployer.marketContract.
func New(reader ContractReader, deployer, marketContract string, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		reader:         reader,
		deployer:       deployer,
		marketContract: marketContract,
		logger:         logger.With("component", "reconcile"),
	}
}

// PositionBalance reads the balance of one position token for an address.
// A failed read returns a lookup with Known=false and a nil error: callers
// decide whether "unknown" blocks them, and the UI can render zero without
// claiming the balance actually is zero.
func (r *Reconciler) PositionBalance(ctx context.Context, address, positionID string) (domain.BalanceLookup, error) {
	if err := ctx.Err(); err != nil {
		return domain.ZeroBalance(), fmt.Errorf("reconcile: balance read: %w", domain.ErrContextDone)
	}

	result, err := r.reader.ReadContract(ctx, r.deployer, r.marketContract, "get-balance",
		[]string{positionID, address})
	if err != nil {
		r.logger.Warn("position balance read failed",
			"address", address,
			"position_id", positionID,
			"error", err)
		return domain.ZeroBalance(), nil
	}

	amount, err := parseUintResult(result)
	if err != nil {
		r.logger.Warn("position balance unparseable",
			"position_id", positionID,
			"result", result,
			"error", err)
		return domain.ZeroBalance(), nil
	}

	return domain.BalanceLookup{Amount: amount, Known: true}, nil
}

// CheckNeedsSplit reports whether placing an order of sizeTokens (display
// units) requires splitting collateral first.
//
// The token that matters depends on direction: a SELL gives away the order's
// own outcome token, while a BUY gives away the opposite outcome token. The
// required amount is sizeTokens converted to atomic units.
func (r *Reconciler) CheckNeedsSplit(ctx context.Context, address string, market domain.Market, side domain.OrderSide, outcome domain.Outcome, sizeTokens decimal.Decimal) (domain.SplitCheck, error) {
	positionID := giveTokenFor(market, side, outcome)

	required := sizeTokens.Mul(decimal.NewFromInt(domain.AtomicFactor)).BigInt()

	lookup, err := r.PositionBalance(ctx, address, positionID)
	if err != nil {
		return domain.SplitCheck{}, err
	}

	// An unreadable balance is treated as zero: better to prompt an
	// unnecessary split than to submit an order the chain will bounce.
	current := lookup.Amount

	return domain.SplitCheck{
		NeedsSplit: current.Cmp(required) < 0,
		PositionID: positionID,
		Current:    current,
		Required:   required,
	}, nil
}

// CheckMergeable reports how many matched YES/NO pairs the address can merge
// back into collateral for this market: min(yes, no), with unreadable
// balances counted as zero and flagged through YesKnown/NoKnown.
func (r *Reconciler) CheckMergeable(ctx context.Context, address string, market domain.Market) (domain.MergeCheck, error) {
	yes, err := r.PositionBalance(ctx, address, market.YesPositionID)
	if err != nil {
		return domain.MergeCheck{}, err
	}
	no, err := r.PositionBalance(ctx, address, market.NoPositionID)
	if err != nil {
		return domain.MergeCheck{}, err
	}

	mergeable := new(big.Int).Set(yes.Amount)
	if no.Amount.Cmp(mergeable) < 0 {
		mergeable.Set(no.Amount)
	}

	return domain.MergeCheck{
		Mergeable:  mergeable,
		YesBalance: yes.Amount,
		NoBalance:  no.Amount,
		YesKnown:   yes.Known,
		NoKnown:    no.Known,
	}, nil
}

// giveTokenFor returns the position id the maker gives away for an order.
func giveTokenFor(market domain.Market, side domain.OrderSide, outcome domain.Outcome) string {
	same := outcome == domain.OutcomeYes
	if side == domain.OrderSideBuy {
		same = !same
	}
	if same {
		return market.YesPositionID
	}
	return market.NoPositionID
}

// parseUintResult parses the contract's unsigned-integer return value. The
// node reports it either as a decimal string with a "u" prefix ("u12345") or
// as bare decimal.
func parseUintResult(result string) (*big.Int, error) {
	s := strings.TrimSpace(result)
	s = strings.TrimPrefix(s, "(ok ")
	s = strings.TrimSuffix(s, ")")
	s = strings.TrimPrefix(s, "u")

	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("reconcile: %q is not an unsigned integer", result)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("reconcile: %q is negative", result)
	}
	return n, nil
}
