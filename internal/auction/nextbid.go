package auction

import "github.com/firmsnap/liveshop/internal/money"

// NextBid computes the next legal bid amount in minor currency units using
// the tiered increment policy. The base is the highest bid if one exists,
// otherwise the starting bid, otherwise zero. Tier guards are strict
// less-than, so a bid crossing a boundary uses the lower tier's increment.
func NextBid(current, starting *money.Money) int64 {
	var effective int64
	switch {
	case current != nil:
		effective = current.Amount
	case starting != nil:
		effective = starting.Amount
	}

	switch {
	case effective < 1000:
		return effective + 100
	case effective < 2000:
		return effective + 300
	case effective < 3000:
		return effective + 500
	case effective < 4000:
		return effective + 800
	case effective < 10000:
		return effective + 1000
	default:
		return effective + 2000
	}
}

// CustomBidFloor returns the exclusive lower bound for a custom bid:
// max(highest bid, starting bid, 0). A custom bid must be strictly above it.
func CustomBidFloor(current, starting *money.Money) int64 {
	var floor int64
	if starting != nil && starting.Amount > floor {
		floor = starting.Amount
	}
	if current != nil && current.Amount > floor {
		floor = current.Amount
	}
	return floor
}
