package domain

import "math/big"

// BalanceLookup is the tagged result of a position-balance read. Amount is
// zero when Known is false, so display code can fall back to zero without
// conflating "empty" and "read failed".
type BalanceLookup struct {
	Amount *big.Int
	Known  bool
}

// ZeroBalance returns an unknown, zero-valued lookup.
func ZeroBalance() BalanceLookup {
	return BalanceLookup{Amount: new(big.Int), Known: false}
}

// SplitCheck reports whether an order requires a collateral split first.
// NeedsSplit holds exactly when Current < Required.
type SplitCheck struct {
	NeedsSplit bool
	PositionID string // the position token that was checked
	Current    *big.Int
	Required   *big.Int
}

// Shortfall returns Required - Current, floored at zero.
func (c SplitCheck) Shortfall() *big.Int {
	d := new(big.Int).Sub(c.Required, c.Current)
	if d.Sign() < 0 {
		return new(big.Int)
	}
	return d
}

// MergeCheck reports how many matched YES/NO pairs an address can merge back
// into collateral. Mergeable = min(YesBalance, NoBalance).
type MergeCheck struct {
	Mergeable  *big.Int
	YesBalance *big.Int
	NoBalance  *big.Int
	// YesKnown/NoKnown carry through the tagged lookup results so callers can
	// tell a true zero from an unreadable balance.
	YesKnown bool
	NoKnown  bool
}
