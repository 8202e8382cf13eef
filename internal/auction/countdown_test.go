package auction

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/peterldowns/testy/check"
)

func TestTimeLeft_FloorsTowardZero(t *testing.T) {
	start := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	endsAt := start.Add(165000 * time.Millisecond)

	// 500ms before the deadline there is still a whole second on the clock.
	check.Equal(t, int64(1), TimeLeft(endsAt, start.Add(164500*time.Millisecond)))
	check.Equal(t, int64(0), TimeLeft(endsAt, start.Add(165000*time.Millisecond)))
	check.Equal(t, int64(0), TimeLeft(endsAt, start.Add(200000*time.Millisecond)))
	check.Equal(t, int64(165), TimeLeft(endsAt, start))
}

func TestTimeLeft_ZeroDeadline(t *testing.T) {
	check.Equal(t, int64(0), TimeLeft(time.Time{}, time.Now()))
}

func TestCountdown_DerivesFromDeadlineEachTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	endsAt := clock.Now().Add(3 * time.Second)

	ticks := make(chan int64, 8)
	done := make(chan struct{})
	c := NewCountdown(clock)
	go func() {
		defer close(done)
		c.Run(context.Background(), endsAt, func(left int64) {
			ticks <- left
		})
	}()

	// Immediate tick with the starting value.
	check.Equal(t, int64(3), <-ticks)

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	check.Equal(t, int64(2), <-ticks)

	// A stalled interval does not drift the countdown: the next tick
	// re-derives from the absolute deadline.
	clock.Advance(2 * time.Second)
	check.Equal(t, int64(0), <-ticks)

	<-done
}

func TestCountdown_AlreadyExpired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	endsAt := clock.Now().Add(-time.Second)

	var got []int64
	c := NewCountdown(clock)
	c.Run(context.Background(), endsAt, func(left int64) {
		got = append(got, left)
	})

	check.Equal(t, []int64{0}, got)
}

func TestCountdown_StopHaltsTicking(t *testing.T) {
	clock := clockwork.NewFakeClock()
	endsAt := clock.Now().Add(time.Hour)

	ticks := make(chan int64, 1)
	done := make(chan struct{})
	c := NewCountdown(clock)
	go func() {
		defer close(done)
		c.Run(context.Background(), endsAt, func(left int64) {
			select {
			case ticks <- left:
			default:
			}
		})
	}()

	check.Equal(t, int64(3600), <-ticks)
	clock.BlockUntil(1)
	c.Stop()
	<-done

	c.Stop() // idempotent
}
