package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// stubReader maps position ids to contract return values. Missing ids fail
// the read.
type stubReader struct {
	balances map[string]string
	calls    []string
}

func (r *stubReader) ReadContract(_ context.Context, _, _, _ string, args []string) (string, error) {
	r.calls = append(r.calls, args[0])
	v, ok := r.balances[args[0]]
	if !ok {
		return "", errors.New("contract read failed")
	}
	return v, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMarket() domain.Market {
	return domain.Market{
		ID:            "mkt-1",
		YesPositionID: "yes-pos",
		NoPositionID:  "no-pos",
	}
}

func TestPositionBalanceParsesContractResult(t *testing.T) {
	cases := map[string]string{
		"wrapped ok": "(ok u5000000)",
		"u prefix":   "u5000000",
		"bare":       "5000000",
	}
	for name, result := range cases {
		r := &stubReader{balances: map[string]string{"yes-pos": result}}
		rec := New(r, "SP1DEPLOYER", "prediction-market", discard())

		lookup, err := rec.PositionBalance(context.Background(), "SP1MAKER", "yes-pos")
		require.NoError(t, err, name)
		require.True(t, lookup.Known, name)
		require.Equal(t, big.NewInt(5_000_000), lookup.Amount, name)
	}
}

func TestPositionBalanceFailedReadIsUnknownZero(t *testing.T) {
	rec := New(&stubReader{}, "SP1DEPLOYER", "prediction-market", discard())

	lookup, err := rec.PositionBalance(context.Background(), "SP1MAKER", "yes-pos")
	require.NoError(t, err)
	require.False(t, lookup.Known)
	require.Zero(t, lookup.Amount.Sign())
}

func TestCheckNeedsSplitChecksGiveToken(t *testing.T) {
	tests := []struct {
		name      string
		side      domain.OrderSide
		outcome   domain.Outcome
		wantToken string
	}{
		{"buy yes gives no", domain.OrderSideBuy, domain.OutcomeYes, "no-pos"},
		{"buy no gives yes", domain.OrderSideBuy, domain.OutcomeNo, "yes-pos"},
		{"sell yes gives yes", domain.OrderSideSell, domain.OutcomeYes, "yes-pos"},
		{"sell no gives no", domain.OrderSideSell, domain.OutcomeNo, "no-pos"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &stubReader{balances: map[string]string{
				"yes-pos": "u9000000",
				"no-pos":  "u9000000",
			}}
			rec := New(r, "SP1DEPLOYER", "prediction-market", discard())

			check, err := rec.CheckNeedsSplit(context.Background(), "SP1MAKER",
				testMarket(), tt.side, tt.outcome, decimal.NewFromInt(2))
			require.NoError(t, err)
			require.Equal(t, tt.wantToken, check.PositionID)
			require.Equal(t, []string{tt.wantToken}, r.calls)
		})
	}
}

func TestCheckNeedsSplitShortfall(t *testing.T) {
	// BUY YES of size 2 needs 2_000_000 atomic units of the NO token.
	r := &stubReader{balances: map[string]string{"no-pos": "u500000"}}
	rec := New(r, "SP1DEPLOYER", "prediction-market", discard())

	check, err := rec.CheckNeedsSplit(context.Background(), "SP1MAKER",
		testMarket(), domain.OrderSideBuy, domain.OutcomeYes, decimal.NewFromInt(2))
	require.NoError(t, err)
	require.True(t, check.NeedsSplit)
	require.Equal(t, big.NewInt(2_000_000), check.Required)
	require.Equal(t, big.NewInt(500_000), check.Current)
	require.Equal(t, big.NewInt(1_500_000), check.Shortfall())
}

func TestCheckNeedsSplitSufficientBalance(t *testing.T) {
	r := &stubReader{balances: map[string]string{"yes-pos": "u2000000"}}
	rec := New(r, "SP1DEPLOYER", "prediction-market", discard())

	check, err := rec.CheckNeedsSplit(context.Background(), "SP1MAKER",
		testMarket(), domain.OrderSideSell, domain.OutcomeYes, decimal.NewFromInt(2))
	require.NoError(t, err)
	require.False(t, check.NeedsSplit)
	require.Zero(t, check.Shortfall().Sign())
}

func TestCheckNeedsSplitUnreadableBalanceForcesSplit(t *testing.T) {
	rec := New(&stubReader{}, "SP1DEPLOYER", "prediction-market", discard())

	check, err := rec.CheckNeedsSplit(context.Background(), "SP1MAKER",
		testMarket(), domain.OrderSideSell, domain.OutcomeYes, decimal.NewFromInt(1))
	require.NoError(t, err)
	require.True(t, check.NeedsSplit)
	require.Zero(t, check.Current.Sign())
}

func TestCheckMergeableIsMinOfBothSides(t *testing.T) {
	r := &stubReader{balances: map[string]string{
		"yes-pos": "u5000000",
		"no-pos":  "u3000000",
	}}
	rec := New(r, "SP1DEPLOYER", "prediction-market", discard())

	check, err := rec.CheckMergeable(context.Background(), "SP1MAKER", testMarket())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(3_000_000), check.Mergeable)
	require.Equal(t, big.NewInt(5_000_000), check.YesBalance)
	require.Equal(t, big.NewInt(3_000_000), check.NoBalance)
	require.True(t, check.YesKnown)
	require.True(t, check.NoKnown)
}

func TestCheckMergeableFlagsUnreadableSide(t *testing.T) {
	r := &stubReader{balances: map[string]string{"yes-pos": "u5000000"}}
	rec := New(r, "SP1DEPLOYER", "prediction-market", discard())

	check, err := rec.CheckMergeable(context.Background(), "SP1MAKER", testMarket())
	require.NoError(t, err)
	require.Zero(t, check.Mergeable.Sign())
	require.True(t, check.YesKnown)
	require.False(t, check.NoKnown)
}
