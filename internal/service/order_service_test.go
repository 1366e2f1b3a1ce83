package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/oddsdesk/oddsdesk/internal/domain"
	"github.com/oddsdesk/oddsdesk/internal/notify"
	"github.com/oddsdesk/oddsdesk/internal/platform/engine"
	"github.com/oddsdesk/oddsdesk/internal/refresh"
)

const testMaker = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"

var (
	testYesPos = strings.Repeat("aa", 32)
	testNoPos  = strings.Repeat("bb", 32)
)

func testMarket() domain.Market {
	return domain.Market{
		ID:            "mkt-1",
		ConditionID:   "0xcond",
		Question:      "Will it rain tomorrow?",
		YesPositionID: testYesPos,
		NoPositionID:  testNoPos,
	}
}

// --- stubs ---------------------------------------------------------------

type stubEngine struct {
	market    domain.Market
	submitted []engine.SubmitOrderInput
	smart     []engine.SubmitOrderInput
	cancelled []string
	placeErr  error
}

func (e *stubEngine) GetMarket(context.Context, string) (domain.Market, error) {
	return e.market, nil
}

func (e *stubEngine) PlaceOrder(_ context.Context, in engine.SubmitOrderInput) (domain.OrderResult, error) {
	if e.placeErr != nil {
		return domain.OrderResult{}, e.placeErr
	}
	e.submitted = append(e.submitted, in)
	return domain.OrderResult{Success: true, OrderID: "ord-1", Status: domain.OrderStatusOpen}, nil
}

func (e *stubEngine) PlaceSmartOrder(_ context.Context, in engine.SubmitOrderInput) (domain.OrderResult, error) {
	e.smart = append(e.smart, in)
	return domain.OrderResult{
		Success:           true,
		OrderID:           "ord-2",
		Status:            domain.OrderStatusPartiallyFilled,
		FilledMicro:       in.SizeMicro / 2,
		RestingMicro:      in.SizeMicro / 2,
		RestingPriceMicro: in.PriceMicro,
	}, nil
}

func (e *stubEngine) PreviewSmartOrder(_ context.Context, marketID string, side domain.OrderSide, outcome domain.Outcome, priceMicro, sizeMicro int64) (domain.ExecutionPlan, error) {
	return domain.ExecutionPlan{MarketID: marketID, Side: side, Outcome: outcome, Feasible: true, TotalSizeMicro: sizeMicro}, nil
}

func (e *stubEngine) CancelOrder(_ context.Context, orderID string) error {
	e.cancelled = append(e.cancelled, orderID)
	return nil
}

type stubWallet struct{ err error }

func (w stubWallet) Address() (string, error) {
	if w.err != nil {
		return "", w.err
	}
	return testMaker, nil
}

func (w stubWallet) SignDigest(string) (string, string, error) {
	return "deadbeef", "02pubkey", nil
}

type stubSplits struct{ check domain.SplitCheck }

func (s stubSplits) CheckNeedsSplit(context.Context, string, domain.Market, domain.OrderSide, domain.Outcome, decimal.Decimal) (domain.SplitCheck, error) {
	return s.check, nil
}

type stubMarketCache struct{ market *domain.Market }

func (c stubMarketCache) Set(context.Context, domain.Market) error        { return nil }
func (c stubMarketCache) SetBatch(context.Context, []domain.Market) error { return nil }
func (c stubMarketCache) List(context.Context) ([]domain.Market, error)   { return nil, nil }
func (c stubMarketCache) Invalidate(context.Context, string) error        { return nil }

func (c stubMarketCache) Get(context.Context, string) (domain.Market, error) {
	if c.market == nil {
		return domain.Market{}, domain.ErrNotFound
	}
	return *c.market, nil
}

type stubBooks struct{ upserts []string }

func (b *stubBooks) SetSnapshot(context.Context, string, domain.OrderbookSnapshot) error { return nil }
func (b *stubBooks) Invalidate(context.Context, string) error                            { return nil }

func (b *stubBooks) GetSnapshot(context.Context, string) (domain.OrderbookSnapshot, error) {
	return domain.OrderbookSnapshot{}, domain.ErrNotFound
}

func (b *stubBooks) UpsertLevel(_ context.Context, marketID string, _ domain.OrderSide, _, _ int64) error {
	b.upserts = append(b.upserts, marketID)
	return nil
}

type stubLimiter struct {
	allow bool
	err   error
}

func (l stubLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return l.allow, l.err
}

type stubInvalidator struct{ resources []refresh.Resource }

func (i *stubInvalidator) Invalidate(_ context.Context, resource refresh.Resource, _ string) {
	i.resources = append(i.resources, resource)
}

// --- fixtures ------------------------------------------------------------

type fixture struct {
	svc     *OrderService
	engine  *stubEngine
	books   *stubBooks
	invalid *stubInvalidator
}

func okSplit() domain.SplitCheck {
	return domain.SplitCheck{Current: big.NewInt(1 << 40), Required: big.NewInt(0)}
}

func newFixture(t *testing.T, mutate func(*fixture)) *fixture {
	t.Helper()
	f := &fixture{
		engine:  &stubEngine{market: testMarket()},
		books:   &stubBooks{},
		invalid: &stubInvalidator{},
	}
	if mutate != nil {
		mutate(f)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewOrderService(f.engine, stubWallet{}, stubSplits{check: okSplit()},
		stubMarketCache{}, f.books, nil, nil, stubLimiter{allow: true}, f.invalid,
		notify.Noop{}, OrderConfig{ExpirationHeight: 4_102_444_800, RateLimit: 10, RateLimitWindow: time.Second}, logger)
	return f
}

func placeInput() PlaceOrderInput {
	return PlaceOrderInput{
		MarketID: "mkt-1",
		Side:     domain.OrderSideBuy,
		Outcome:  domain.OutcomeYes,
		Price:    decimal.RequireFromString("0.6"),
		Size:     decimal.NewFromInt(2),
	}
}

// --- tests ---------------------------------------------------------------

func TestPlaceOrderBuyYesLegs(t *testing.T) {
	f := newFixture(t, nil)

	result, split, err := f.svc.PlaceOrder(context.Background(), placeInput())
	require.NoError(t, err)
	require.Nil(t, split)
	require.True(t, result.Success)
	require.Len(t, f.engine.submitted, 1)

	// Buying YES at 0.6 for 2 tokens gives 2 NO tokens and takes the
	// equivalent sell of NO at 0.4: 2 * 0.4 = 0.8 tokens of settlement.
	in := f.engine.submitted[0]
	require.Equal(t, testMaker, in.Maker)
	require.Equal(t, testNoPos, in.GivePositionID)
	require.Equal(t, testYesPos, in.TakePositionID)
	require.Equal(t, uint64(2_000_000), in.GiveAmount)
	require.Equal(t, uint64(800_000), in.TakeAmount)
	require.Equal(t, int64(600_000), in.PriceMicro)
	require.Equal(t, int64(2_000_000), in.SizeMicro)
	require.Equal(t, "deadbeef", in.Signature)
	require.NotEmpty(t, in.Salt)
	require.Equal(t, uint64(4_102_444_800), in.Expiration)
}

func TestPlaceOrderSellYesLegs(t *testing.T) {
	f := newFixture(t, nil)

	in := placeInput()
	in.Side = domain.OrderSideSell

	_, _, err := f.svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, f.engine.submitted, 1)

	// Selling YES at 0.6 for 2 tokens gives 2 YES and takes 1.2 settlement.
	got := f.engine.submitted[0]
	require.Equal(t, testYesPos, got.GivePositionID)
	require.Equal(t, testNoPos, got.TakePositionID)
	require.Equal(t, uint64(2_000_000), got.GiveAmount)
	require.Equal(t, uint64(1_200_000), got.TakeAmount)
}

func TestPlaceOrderInvalidatesVolatileResources(t *testing.T) {
	f := newFixture(t, nil)

	_, _, err := f.svc.PlaceOrder(context.Background(), placeInput())
	require.NoError(t, err)
	require.ElementsMatch(t,
		[]refresh.Resource{refresh.ResourceOrderbook, refresh.ResourceTrades, refresh.ResourceStats},
		f.invalid.resources)
}

func TestPlaceOrderSplitRequired(t *testing.T) {
	f := newFixture(t, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewOrderService(f.engine, stubWallet{}, stubSplits{check: domain.SplitCheck{
		NeedsSplit: true,
		PositionID: testNoPos,
		Current:    big.NewInt(500_000),
		Required:   big.NewInt(2_000_000),
	}}, stubMarketCache{}, f.books, nil, nil, stubLimiter{allow: true}, f.invalid,
		notify.Noop{}, OrderConfig{ExpirationHeight: 4_102_444_800, RateLimit: 10, RateLimitWindow: time.Second}, logger)

	_, split, err := f.svc.PlaceOrder(context.Background(), placeInput())
	require.ErrorIs(t, err, domain.ErrSplitRequired)
	require.NotNil(t, split)
	require.Equal(t, big.NewInt(1_500_000), split.Shortfall())
	require.Empty(t, f.engine.submitted, "nothing may reach the engine")
}

func TestPlaceOrderRateLimited(t *testing.T) {
	f := newFixture(t, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewOrderService(f.engine, stubWallet{}, stubSplits{check: okSplit()},
		stubMarketCache{}, f.books, nil, nil, stubLimiter{allow: false}, f.invalid,
		notify.Noop{}, OrderConfig{ExpirationHeight: 1, RateLimit: 1, RateLimitWindow: time.Second}, logger)

	_, _, err := f.svc.PlaceOrder(context.Background(), placeInput())
	require.ErrorIs(t, err, domain.ErrRateLimited)
	require.Empty(t, f.engine.submitted)
}

func TestPlaceOrderLimiterFailureFailsOpen(t *testing.T) {
	f := newFixture(t, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewOrderService(f.engine, stubWallet{}, stubSplits{check: okSplit()},
		stubMarketCache{}, f.books, nil, nil, stubLimiter{allow: false, err: errors.New("redis down")}, f.invalid,
		notify.Noop{}, OrderConfig{ExpirationHeight: 1, RateLimit: 1, RateLimitWindow: time.Second}, logger)

	_, _, err := f.svc.PlaceOrder(context.Background(), placeInput())
	require.NoError(t, err)
	require.Len(t, f.engine.submitted, 1)
}

func TestPlaceOrderRejectsResolvedMarket(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		m := testMarket()
		m.Resolved = true
		f.engine.market = m
	})

	_, _, err := f.svc.PlaceOrder(context.Background(), placeInput())
	require.ErrorIs(t, err, domain.ErrInvalidOrder)
	require.Contains(t, err.Error(), "resolved")
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name   string
		mutate func(*PlaceOrderInput)
	}{
		{"missing market", func(in *PlaceOrderInput) { in.MarketID = "" }},
		{"bad side", func(in *PlaceOrderInput) { in.Side = "HOLD" }},
		{"bad outcome", func(in *PlaceOrderInput) { in.Outcome = "maybe" }},
		{"price zero", func(in *PlaceOrderInput) { in.Price = decimal.Zero }},
		{"price one", func(in *PlaceOrderInput) { in.Price = decimal.NewFromInt(1) }},
		{"price above one", func(in *PlaceOrderInput) { in.Price = decimal.RequireFromString("1.2") }},
		{"negative price", func(in *PlaceOrderInput) { in.Price = decimal.RequireFromString("-0.1") }},
		{"size zero", func(in *PlaceOrderInput) { in.Size = decimal.Zero }},
		{"negative size", func(in *PlaceOrderInput) { in.Size = decimal.NewFromInt(-1) }},
		{"size beyond micro-unit range", func(in *PlaceOrderInput) {
			in.Size = decimal.RequireFromString("99999999999999999999")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := placeInput()
			tt.mutate(&in)
			_, _, err := f.svc.PlaceOrder(context.Background(), in)
			require.ErrorIs(t, err, domain.ErrInvalidOrder)
		})
	}
	require.Empty(t, f.engine.submitted)
}

func TestSmartOrderPatchesRestingLevel(t *testing.T) {
	f := newFixture(t, nil)

	in := placeInput()
	in.Smart = true

	result, _, err := f.svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, f.engine.smart, 1)
	require.Empty(t, f.engine.submitted)
	require.Positive(t, result.RestingMicro)
	require.Equal(t, []string{"mkt-1"}, f.books.upserts)
}

func TestCancelOrderInvalidatesBook(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.svc.CancelOrder(context.Background(), "ord-1", "mkt-1"))
	require.Equal(t, []string{"ord-1"}, f.engine.cancelled)
	require.Equal(t, []refresh.Resource{refresh.ResourceOrderbook}, f.invalid.resources)
}

func TestCancelOrderRequiresWallet(t *testing.T) {
	f := newFixture(t, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewOrderService(f.engine, stubWallet{err: domain.ErrNotConnected}, stubSplits{check: okSplit()},
		stubMarketCache{}, f.books, nil, nil, stubLimiter{allow: true}, f.invalid,
		notify.Noop{}, OrderConfig{ExpirationHeight: 1, RateLimit: 1, RateLimitWindow: time.Second}, logger)

	err := f.svc.CancelOrder(context.Background(), "ord-1", "mkt-1")
	require.ErrorIs(t, err, domain.ErrNotConnected)
	require.Empty(t, f.engine.cancelled)
}

func TestPreviewSmartOrderConvertsUnits(t *testing.T) {
	f := newFixture(t, nil)

	plan, err := f.svc.PreviewSmartOrder(context.Background(), placeInput())
	require.NoError(t, err)
	require.True(t, plan.Feasible)
	require.Equal(t, int64(2_000_000), plan.TotalSizeMicro)
}
