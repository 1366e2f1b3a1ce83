package domain

import "time"

// AtomicFactor converts display tokens to atomic units (1 token = 1e6 units).
// Prices use the same fixed-point scale.
const AtomicFactor = 1_000_000

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Outcome names the side of a binary market an order trades.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// OrderStatus tracks the order lifecycle. Transitions are owned by the
// matching engine; the desk only submits and mirrors.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusExpired         OrderStatus = "expired"
	OrderStatusFailed          OrderStatus = "failed"
)

// Order is a signed limit order against one position token of a market.
type Order struct {
	ID               string
	MarketID         string
	ConditionID      string
	PositionID       string
	Maker            string
	Side             OrderSide
	Outcome          Outcome
	PriceMicro       int64 // fixed-point: price * 1e6
	SizeMicro        int64 // fixed-point: size  * 1e6
	FilledMicro      int64
	RemainingMicro   int64
	Status           OrderStatus
	Salt             string // numeric-string nonce, unique per order
	ExpirationHeight uint64 // block height after which the order is void
	Signature        string
	PublicKey        string
	CreatedAt        time.Time
	FilledAt         *time.Time
	CancelledAt      *time.Time
}

// Price returns the float64 display price from fixed-point micro units.
func (o Order) Price() float64 {
	return float64(o.PriceMicro) / AtomicFactor
}

// Size returns the float64 display size from fixed-point micro units.
func (o Order) Size() float64 {
	return float64(o.SizeMicro) / AtomicFactor
}

// OrderResult wraps the engine's response after order submission.
type OrderResult struct {
	Success     bool
	OrderID     string
	Status      OrderStatus
	Message     string
	FilledMicro int64
	// RestingMicro and RestingPriceMicro describe the limit-order remainder
	// the engine left on the book after a smart order, if any.
	RestingMicro      int64
	RestingPriceMicro int64
}
