package domain

import "time"

// Trade is an immutable record of a single match reported by the engine.
type Trade struct {
	ID           string
	MarketID     string
	ConditionID  string
	PositionID   string
	Maker        string
	Taker        string
	MakerOrderID string
	TakerOrderID string
	Side         OrderSide // taker direction
	PriceMicro   int64
	SizeMicro    int64
	TxID         string // on-chain settlement tx, empty until anchored
	Timestamp    time.Time
}

// Price returns the float64 display price from fixed-point micro units.
func (t Trade) Price() float64 {
	return float64(t.PriceMicro) / AtomicFactor
}

// Size returns the float64 display size from fixed-point micro units.
func (t Trade) Size() float64 {
	return float64(t.SizeMicro) / AtomicFactor
}
