package domain

import (
	"sort"
	"time"
)

// BookLevel is a single aggregated price level in an orderbook.
// CumulativeMicro is computed client-side for depth display only.
type BookLevel struct {
	PriceMicro      int64
	SizeMicro       int64
	OrderCount      int
	CumulativeMicro int64
}

// OrderbookSnapshot is a full snapshot of bids and asks for one market.
// Bids are sorted strictly descending by price, asks strictly ascending.
type OrderbookSnapshot struct {
	MarketID  string
	Bids      []BookLevel
	Asks      []BookLevel
	UpdatedAt time.Time
}

// BestBid returns the highest bid price in micro units, or 0 when empty.
func (s OrderbookSnapshot) BestBid() int64 {
	if len(s.Bids) == 0 {
		return 0
	}
	return s.Bids[0].PriceMicro
}

// BestAsk returns the lowest ask price in micro units, or 0 when empty.
func (s OrderbookSnapshot) BestAsk() int64 {
	if len(s.Asks) == 0 {
		return 0
	}
	return s.Asks[0].PriceMicro
}

// UpsertLevel inserts or increments the level at price on the given side and
// returns the re-sorted slice. Bids stay descending, asks ascending. Used for
// the optimistic book update after a smart-order placement; the authoritative
// refetch replaces the whole snapshot shortly after.
func UpsertLevel(levels []BookLevel, side OrderSide, priceMicro, sizeMicro int64) []BookLevel {
	for i := range levels {
		if levels[i].PriceMicro == priceMicro {
			levels[i].SizeMicro += sizeMicro
			levels[i].OrderCount++
			return recompute(levels, side)
		}
	}
	levels = append(levels, BookLevel{
		PriceMicro: priceMicro,
		SizeMicro:  sizeMicro,
		OrderCount: 1,
	})
	return recompute(levels, side)
}

// recompute re-sorts the side and rebuilds running cumulative totals.
func recompute(levels []BookLevel, side OrderSide) []BookLevel {
	if side == OrderSideBuy {
		sort.Slice(levels, func(i, j int) bool {
			return levels[i].PriceMicro > levels[j].PriceMicro
		})
	} else {
		sort.Slice(levels, func(i, j int) bool {
			return levels[i].PriceMicro < levels[j].PriceMicro
		})
	}
	var cum int64
	for i := range levels {
		cum += levels[i].SizeMicro
		levels[i].CumulativeMicro = cum
	}
	return levels
}

// WithCumulative returns a copy of the snapshot with cumulative totals filled
// in on both sides, preserving the incoming order.
func (s OrderbookSnapshot) WithCumulative() OrderbookSnapshot {
	out := s
	out.Bids = append([]BookLevel(nil), s.Bids...)
	out.Asks = append([]BookLevel(nil), s.Asks...)
	var cum int64
	for i := range out.Bids {
		cum += out.Bids[i].SizeMicro
		out.Bids[i].CumulativeMicro = cum
	}
	cum = 0
	for i := range out.Asks {
		cum += out.Asks[i].SizeMicro
		out.Asks[i].CumulativeMicro = cum
	}
	return out
}
