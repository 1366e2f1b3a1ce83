package domain

import "time"

// Market is a binary prediction market as the matching engine reports it.
// YesPositionID and NoPositionID are stable for the market's lifetime;
// Resolved only ever transitions false -> true.
type Market struct {
	ID            string
	ConditionID   string
	Question      string
	Creator       string
	YesPositionID string // 32-byte hex position token identifier
	NoPositionID  string
	YesPrice      float64
	NoPrice       float64
	Volume24h     float64
	Resolved      bool
	Outcome       *int // 0 = YES, 1 = NO; nil until resolved
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MarketStats is the engine's rolling statistics for one market.
type MarketStats struct {
	MarketID   string
	LastPrice  float64
	BestBid    float64
	BestAsk    float64
	Volume24h  float64
	TradeCount int64
	OpenOrders int64
	UpdatedAt  time.Time
}

// PricePoint is a single sample in a market's price history series.
type PricePoint struct {
	Timestamp time.Time
	YesPrice  float64
	Volume    float64
}
