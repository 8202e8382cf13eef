package auction

import (
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/firmsnap/liveshop/internal/money"
)

func cents(amount int64) *money.Money {
	m := money.New(amount, "EUR")
	return &m
}

func TestNextBid_TierLadder(t *testing.T) {
	// Iterating from zero must walk the exact tier ladder.
	want := []int64{
		100, 200, 300, 400, 500, 600, 700, 800, 900, 1000,
		1300, 1600, 1900, 2200, 2700, 3200, 4000, 5000, 6000,
		7000, 8000, 9000, 10000, 12000, 14000,
	}

	current := int64(0)
	for i, expected := range want {
		next := NextBid(cents(current), nil)
		check.Equal(t, expected, next)
		if next <= current {
			t.Fatalf("ladder step %d not strictly increasing: %d -> %d", i, current, next)
		}
		current = next
	}
}

func TestNextBid_NoBidsNoStart(t *testing.T) {
	check.Equal(t, int64(100), NextBid(nil, nil))
}

func TestNextBid_CrossesTierBoundaryWithLowerIncrement(t *testing.T) {
	// 950 is below the 1000 boundary, so the +100 increment applies even
	// though the result lands in the next tier.
	check.Equal(t, int64(1050), NextBid(cents(950), cents(0)))
}

func TestNextBid_FallsBackToStartingBid(t *testing.T) {
	check.Equal(t, int64(2500+500), NextBid(nil, cents(2500)))
}

func TestNextBid_HighTier(t *testing.T) {
	check.Equal(t, int64(12000), NextBid(cents(10000), nil))
	check.Equal(t, int64(10400), NextBid(cents(9400), nil))
}

func TestCustomBidFloor(t *testing.T) {
	check.Equal(t, int64(0), CustomBidFloor(nil, nil))
	check.Equal(t, int64(500), CustomBidFloor(nil, cents(500)))
	check.Equal(t, int64(900), CustomBidFloor(cents(900), cents(500)))
	check.Equal(t, int64(500), CustomBidFloor(cents(-100), cents(500)))
}
