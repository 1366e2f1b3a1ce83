// Package service composes the platform clients, caches, stores, and wallet
// into the desk's trading operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oddsdesk/oddsdesk/internal/crypto"
	"github.com/oddsdesk/oddsdesk/internal/domain"
	"github.com/oddsdesk/oddsdesk/internal/notify"
	"github.com/oddsdesk/oddsdesk/internal/platform/engine"
	"github.com/oddsdesk/oddsdesk/internal/refresh"
)

// WalletSigner is the wallet surface the order service needs.
type WalletSigner interface {
	Address() (string, error)
	SignDigest(digestHex string) (signature, publicKey string, err error)
}

// SplitChecker verifies the maker holds enough of the give token.
type SplitChecker interface {
	CheckNeedsSplit(ctx context.Context, address string, market domain.Market, side domain.OrderSide, outcome domain.Outcome, sizeTokens decimal.Decimal) (domain.SplitCheck, error)
}

// Invalidator kicks the refresher after local writes.
type Invalidator interface {
	Invalidate(ctx context.Context, resource refresh.Resource, key string)
}

// OrderEngine is the engine surface the order service needs.
type OrderEngine interface {
	GetMarket(ctx context.Context, id string) (domain.Market, error)
	PlaceOrder(ctx context.Context, in engine.SubmitOrderInput) (domain.OrderResult, error)
	PlaceSmartOrder(ctx context.Context, in engine.SubmitOrderInput) (domain.OrderResult, error)
	PreviewSmartOrder(ctx context.Context, marketID string, side domain.OrderSide, outcome domain.Outcome, priceMicro, sizeMicro int64) (domain.ExecutionPlan, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// OrderConfig carries the order-pipeline tunables.
type OrderConfig struct {
	// ExpirationHeight is the block height stamped into every signed order.
	ExpirationHeight uint64
	// RateLimit and RateLimitWindow bound order submissions per maker.
	RateLimit       int
	RateLimitWindow time.Duration
}

// OrderService owns the validate, sign, submit, persist pipeline.
type OrderService struct {
	engine   OrderEngine
	wallet   WalletSigner
	splits   SplitChecker
	markets  domain.MarketCache
	books    domain.OrderbookCache
	orders   domain.OrderStore // may be nil
	audit    domain.AuditStore // may be nil
	limiter  domain.RateLimiter
	invalid  Invalidator
	notifier notify.Notifier
	cfg      OrderConfig
	logger   *slog.Logger
}

// NewOrderService wires an OrderService. orders and audit may be nil when the
// desk runs without Postgres.
func NewOrderService(eng OrderEngine, wallet WalletSigner, splits SplitChecker, markets domain.MarketCache, books domain.OrderbookCache, orders domain.OrderStore, audit domain.AuditStore, limiter domain.RateLimiter, invalid Invalidator, notifier notify.Notifier, cfg OrderConfig, logger *slog.Logger) *OrderService {
	return &OrderService{
		engine:   eng,
		wallet:   wallet,
		splits:   splits,
		markets:  markets,
		books:    books,
		orders:   orders,
		audit:    audit,
		limiter:  limiter,
		invalid:  invalid,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With("component", "orders"),
	}
}

// PlaceOrderInput is a user-facing order request in display units.
type PlaceOrderInput struct {
	MarketID string
	Side     domain.OrderSide
	Outcome  domain.Outcome
	Price    decimal.Decimal // probability in (0, 1)
	Size     decimal.Decimal // tokens, > 0
	// Smart routes through sweep-then-rest execution instead of a plain
	// limit order.
	Smart bool
}

// maxOrderSizeTokens bounds order size so the micro-unit conversion cannot
// overflow int64.
var maxOrderSizeTokens = decimal.NewFromInt(1_000_000_000_000)

func (in PlaceOrderInput) validate() error {
	if in.MarketID == "" {
		return fmt.Errorf("%w: market id is required", domain.ErrInvalidOrder)
	}
	if in.Side != domain.OrderSideBuy && in.Side != domain.OrderSideSell {
		return fmt.Errorf("%w: side must be BUY or SELL", domain.ErrInvalidOrder)
	}
	if in.Outcome != domain.OutcomeYes && in.Outcome != domain.OutcomeNo {
		return fmt.Errorf("%w: outcome must be yes or no", domain.ErrInvalidOrder)
	}
	if in.Price.Cmp(decimal.Zero) <= 0 || in.Price.Cmp(decimal.NewFromInt(1)) >= 0 {
		return fmt.Errorf("%w: price must be strictly between 0 and 1", domain.ErrInvalidOrder)
	}
	if in.Size.Cmp(decimal.Zero) <= 0 {
		return fmt.Errorf("%w: size must be positive", domain.ErrInvalidOrder)
	}
	if in.Size.Cmp(maxOrderSizeTokens) > 0 {
		return fmt.Errorf("%w: size exceeds %s tokens", domain.ErrInvalidOrder, maxOrderSizeTokens)
	}
	return nil
}

// PlaceOrder runs the full pipeline: validate, rate-limit, split-check,
// hash, sign, submit, persist, invalidate. A split requirement surfaces as
// ErrSplitRequired together with the check so the caller can show the
// shortfall; nothing is submitted in that case.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (domain.OrderResult, *domain.SplitCheck, error) {
	if err := in.validate(); err != nil {
		return domain.OrderResult{}, nil, err
	}

	maker, err := s.wallet.Address()
	if err != nil {
		return domain.OrderResult{}, nil, fmt.Errorf("orders: place: %w", err)
	}

	ok, err := s.limiter.Allow(ctx, "orders:"+maker, s.cfg.RateLimit, s.cfg.RateLimitWindow)
	if err != nil {
		s.logger.Warn("rate limiter unavailable, allowing order", "error", err)
	} else if !ok {
		return domain.OrderResult{}, nil, fmt.Errorf("%w: too many orders from %s", domain.ErrRateLimited, maker)
	}

	market, err := s.market(ctx, in.MarketID)
	if err != nil {
		return domain.OrderResult{}, nil, fmt.Errorf("orders: place: %w", err)
	}
	if market.Resolved {
		return domain.OrderResult{}, nil, fmt.Errorf("%w: market %s is resolved", domain.ErrInvalidOrder, market.ID)
	}

	check, err := s.splits.CheckNeedsSplit(ctx, maker, market, in.Side, in.Outcome, in.Size)
	if err != nil {
		return domain.OrderResult{}, nil, fmt.Errorf("orders: split check: %w", err)
	}
	if check.NeedsSplit {
		return domain.OrderResult{}, &check, fmt.Errorf("%w: need %s more of position %s",
			domain.ErrSplitRequired, check.Shortfall(), check.PositionID)
	}

	submit, err := s.buildSigned(market, maker, in)
	if err != nil {
		return domain.OrderResult{}, nil, err
	}

	var result domain.OrderResult
	if in.Smart {
		result, err = s.engine.PlaceSmartOrder(ctx, submit)
	} else {
		result, err = s.engine.PlaceOrder(ctx, submit)
	}
	if err != nil {
		s.audited(ctx, "order.rejected", map[string]any{"market_id": in.MarketID, "maker": maker, "error": err.Error()})
		_ = s.notifier.Notify(ctx, notify.EventOrderRejected,
			fmt.Sprintf("%s %s %s on %s rejected: %v", in.Side, in.Size, in.Outcome, in.MarketID, err))
		return result, nil, err
	}

	s.persist(ctx, market, maker, in, submit, result)

	// Optimistic book patch for a resting smart-order remainder, then kick
	// the authoritative refetch.
	if in.Smart && result.RestingMicro > 0 {
		if err := s.books.UpsertLevel(ctx, market.ID, in.Side, result.RestingPriceMicro, result.RestingMicro); err != nil {
			s.logger.Warn("optimistic book update failed", "market_id", market.ID, "error", err)
		}
	}
	s.invalid.Invalidate(ctx, refresh.ResourceOrderbook, market.ID)
	s.invalid.Invalidate(ctx, refresh.ResourceTrades, market.ID)
	s.invalid.Invalidate(ctx, refresh.ResourceStats, market.ID)

	s.audited(ctx, "order.placed", map[string]any{
		"order_id": result.OrderID, "market_id": market.ID, "maker": maker,
		"side": string(in.Side), "outcome": string(in.Outcome),
		"price": in.Price.String(), "size": in.Size.String(), "smart": in.Smart,
	})
	_ = s.notifier.Notify(ctx, notify.EventOrderPlaced,
		fmt.Sprintf("%s %s %s @ %s on %s (%s)", in.Side, in.Size, in.Outcome, in.Price, market.Question, result.Status))

	s.logger.Info("order placed",
		"order_id", result.OrderID,
		"market_id", market.ID,
		"side", string(in.Side),
		"status", string(result.Status))
	return result, nil, nil
}

// buildSigned derives the give/take legs, hashes, and signs.
//
// Every order gives sizeMicro units of one outcome token and takes the
// matching settlement amount: a SELL gives its own outcome token and takes
// price*size, a BUY gives the opposite token and takes (1-price)*size, the
// equivalent sell of the other side. The engine re-derives the digest from
// these exact fields.
func (s *OrderService) buildSigned(market domain.Market, maker string, in PlaceOrderInput) (engine.SubmitOrderInput, error) {
	factor := decimal.NewFromInt(domain.AtomicFactor)
	priceMicro := in.Price.Mul(factor).IntPart()
	sizeMicro := in.Size.Mul(factor).IntPart()

	givePos, takePos := market.YesPositionID, market.NoPositionID
	takePrice := priceMicro
	if (in.Outcome == domain.OutcomeYes) == (in.Side == domain.OrderSideBuy) {
		// Give NO either way: buying YES gives NO, selling NO gives NO.
		givePos, takePos = market.NoPositionID, market.YesPositionID
	}
	if in.Side == domain.OrderSideBuy {
		takePrice = domain.AtomicFactor - priceMicro
	}

	takeMicro := decimal.NewFromInt(sizeMicro).
		Mul(decimal.NewFromInt(takePrice)).
		DivRound(factor, 0).IntPart()

	salt := crypto.NewSalt()
	digest, err := crypto.OrderDigest(crypto.OrderFields{
		Maker:          maker,
		GivePositionID: givePos,
		TakePositionID: takePos,
		GiveAmount:     uint64(sizeMicro),
		TakeAmount:     uint64(takeMicro),
		Salt:           salt,
		Expiration:     s.cfg.ExpirationHeight,
	})
	if err != nil {
		return engine.SubmitOrderInput{}, fmt.Errorf("orders: digest: %w", err)
	}

	sig, pub, err := s.wallet.SignDigest(digest)
	if err != nil {
		return engine.SubmitOrderInput{}, fmt.Errorf("orders: sign: %w", err)
	}

	return engine.SubmitOrderInput{
		MarketID:       market.ID,
		Maker:          maker,
		Side:           in.Side,
		Outcome:        in.Outcome,
		GivePositionID: givePos,
		TakePositionID: takePos,
		GiveAmount:     uint64(sizeMicro),
		TakeAmount:     uint64(takeMicro),
		PriceMicro:     priceMicro,
		SizeMicro:      sizeMicro,
		Salt:           salt,
		Expiration:     s.cfg.ExpirationHeight,
		Signature:      sig,
		PublicKey:      pub,
	}, nil
}

// persist mirrors the submitted order locally. Mirror failures are logged,
// not returned: the engine accepted the order and that is the authoritative
// state.
func (s *OrderService) persist(ctx context.Context, market domain.Market, maker string, in PlaceOrderInput, submit engine.SubmitOrderInput, result domain.OrderResult) {
	if s.orders == nil {
		return
	}

	id := result.OrderID
	if id == "" {
		id = uuid.NewString()
	}
	order := domain.Order{
		ID:               id,
		MarketID:         market.ID,
		ConditionID:      market.ConditionID,
		PositionID:       submit.GivePositionID,
		Maker:            maker,
		Side:             in.Side,
		Outcome:          in.Outcome,
		PriceMicro:       submit.PriceMicro,
		SizeMicro:        submit.SizeMicro,
		FilledMicro:      result.FilledMicro,
		RemainingMicro:   submit.SizeMicro - result.FilledMicro,
		Status:           result.Status,
		Salt:             submit.Salt,
		ExpirationHeight: submit.Expiration,
		Signature:        submit.Signature,
		PublicKey:        submit.PublicKey,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Warn("order mirror write failed", "order_id", order.ID, "error", err)
	}
}

// PreviewSmartOrder returns the engine's advisory execution plan.
func (s *OrderService) PreviewSmartOrder(ctx context.Context, in PlaceOrderInput) (domain.ExecutionPlan, error) {
	if err := in.validate(); err != nil {
		return domain.ExecutionPlan{}, err
	}

	factor := decimal.NewFromInt(domain.AtomicFactor)
	plan, err := s.engine.PreviewSmartOrder(ctx, in.MarketID, in.Side, in.Outcome,
		in.Price.Mul(factor).IntPart(), in.Size.Mul(factor).IntPart())
	if err != nil {
		return domain.ExecutionPlan{}, fmt.Errorf("orders: preview: %w", err)
	}
	return plan, nil
}

// CancelOrder cancels a resting order and invalidates the affected book.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, marketID string) error {
	if _, err := s.wallet.Address(); err != nil {
		return fmt.Errorf("orders: cancel: %w", err)
	}

	if err := s.engine.CancelOrder(ctx, orderID); err != nil {
		return err
	}

	if s.orders != nil {
		if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("order mirror update failed", "order_id", orderID, "error", err)
		}
	}
	if marketID != "" {
		s.invalid.Invalidate(ctx, refresh.ResourceOrderbook, marketID)
	}

	s.audited(ctx, "order.cancelled", map[string]any{"order_id": orderID, "market_id": marketID})
	_ = s.notifier.Notify(ctx, notify.EventOrderCancel, fmt.Sprintf("order %s cancelled", orderID))
	s.logger.Info("order cancelled", "order_id", orderID)
	return nil
}

// ListOpen returns the connected maker's open orders from the mirror.
func (s *OrderService) ListOpen(ctx context.Context) ([]domain.Order, error) {
	maker, err := s.wallet.Address()
	if err != nil {
		return nil, fmt.Errorf("orders: list open: %w", err)
	}
	if s.orders == nil {
		return nil, nil
	}
	return s.orders.ListOpen(ctx, maker)
}

func (s *OrderService) market(ctx context.Context, id string) (domain.Market, error) {
	market, err := s.markets.Get(ctx, id)
	if err == nil {
		return market, nil
	}
	return s.engine.GetMarket(ctx, id)
}

func (s *OrderService) audited(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.Warn("audit write failed", "event", event, "error", err)
	}
}
