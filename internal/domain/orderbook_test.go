package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpsertLevelInsertKeepsBidsDescending(t *testing.T) {
	var bids []BookLevel
	bids = UpsertLevel(bids, OrderSideBuy, 400_000, 1_000_000)
	bids = UpsertLevel(bids, OrderSideBuy, 600_000, 2_000_000)
	bids = UpsertLevel(bids, OrderSideBuy, 500_000, 3_000_000)

	require.Len(t, bids, 3)
	require.Equal(t, int64(600_000), bids[0].PriceMicro)
	require.Equal(t, int64(500_000), bids[1].PriceMicro)
	require.Equal(t, int64(400_000), bids[2].PriceMicro)
}

func TestUpsertLevelInsertKeepsAsksAscending(t *testing.T) {
	var asks []BookLevel
	asks = UpsertLevel(asks, OrderSideSell, 700_000, 1_000_000)
	asks = UpsertLevel(asks, OrderSideSell, 550_000, 2_000_000)

	require.Len(t, asks, 2)
	require.Equal(t, int64(550_000), asks[0].PriceMicro)
	require.Equal(t, int64(700_000), asks[1].PriceMicro)
}

func TestUpsertLevelIncrementsExistingLevel(t *testing.T) {
	levels := []BookLevel{{PriceMicro: 500_000, SizeMicro: 1_000_000, OrderCount: 1}}

	levels = UpsertLevel(levels, OrderSideBuy, 500_000, 250_000)

	require.Len(t, levels, 1)
	require.Equal(t, int64(1_250_000), levels[0].SizeMicro)
	require.Equal(t, 2, levels[0].OrderCount)
}

func TestUpsertLevelRebuildsCumulative(t *testing.T) {
	var bids []BookLevel
	bids = UpsertLevel(bids, OrderSideBuy, 600_000, 1_000_000)
	bids = UpsertLevel(bids, OrderSideBuy, 500_000, 2_000_000)
	bids = UpsertLevel(bids, OrderSideBuy, 400_000, 500_000)

	require.Equal(t, int64(1_000_000), bids[0].CumulativeMicro)
	require.Equal(t, int64(3_000_000), bids[1].CumulativeMicro)
	require.Equal(t, int64(3_500_000), bids[2].CumulativeMicro)
}

func TestBestBidBestAsk(t *testing.T) {
	snap := OrderbookSnapshot{
		Bids: []BookLevel{{PriceMicro: 450_000}, {PriceMicro: 440_000}},
		Asks: []BookLevel{{PriceMicro: 470_000}, {PriceMicro: 480_000}},
	}
	require.Equal(t, int64(450_000), snap.BestBid())
	require.Equal(t, int64(470_000), snap.BestAsk())

	empty := OrderbookSnapshot{}
	require.Zero(t, empty.BestBid())
	require.Zero(t, empty.BestAsk())
}

func TestWithCumulativeDoesNotMutateOriginal(t *testing.T) {
	snap := OrderbookSnapshot{
		Bids: []BookLevel{{PriceMicro: 450_000, SizeMicro: 100}, {PriceMicro: 440_000, SizeMicro: 200}},
		Asks: []BookLevel{{PriceMicro: 470_000, SizeMicro: 300}},
	}

	out := snap.WithCumulative()

	require.Equal(t, int64(100), out.Bids[0].CumulativeMicro)
	require.Equal(t, int64(300), out.Bids[1].CumulativeMicro)
	require.Equal(t, int64(300), out.Asks[0].CumulativeMicro)

	require.Zero(t, snap.Bids[0].CumulativeMicro)
	require.Zero(t, snap.Asks[0].CumulativeMicro)
}
