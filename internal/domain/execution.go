package domain

import "github.com/shopspring/decimal"

// PlanLevel is one price level a prospective smart order would consume.
type PlanLevel struct {
	PriceMicro int64
	SizeMicro  int64
	CostMicro  int64
}

// ExecutionPlan is the engine's advisory projection of how a smart order
// would fill across the current book. It is never binding.
type ExecutionPlan struct {
	MarketID       string
	Side           OrderSide
	Outcome        Outcome
	Feasible       bool
	Reason         string // rejection reason when not feasible
	Levels         []PlanLevel
	TotalSizeMicro int64
	TotalCostMicro int64
	// RestingMicro is the size that would remain as a limit order at
	// RestingPriceMicro after sweeping the plan levels.
	RestingMicro      int64
	RestingPriceMicro int64
}

// AvgPrice returns the volume-weighted average fill price as a decimal in
// display units, or zero when the plan fills nothing.
func (p ExecutionPlan) AvgPrice() decimal.Decimal {
	if p.TotalSizeMicro == 0 {
		return decimal.Zero
	}
	cost := decimal.NewFromInt(p.TotalCostMicro)
	size := decimal.NewFromInt(p.TotalSizeMicro)
	return cost.DivRound(size, 6)
}

// SlippageBps returns the basis-point slippage of the average fill price
// versus the first (best) level of the plan. Zero for empty plans.
func (p ExecutionPlan) SlippageBps() decimal.Decimal {
	if len(p.Levels) == 0 || p.Levels[0].PriceMicro == 0 {
		return decimal.Zero
	}
	best := decimal.NewFromInt(p.Levels[0].PriceMicro)
	avg := p.AvgPrice().Mul(decimal.NewFromInt(AtomicFactor))
	diff := avg.Sub(best).Abs()
	return diff.Mul(decimal.NewFromInt(10_000)).DivRound(best, 2)
}
