package auction

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TickInterval is how often the countdown re-derives the remaining time.
const TickInterval = time.Second

// Countdown ticks once per second while an auction is running, recomputing
// the remaining seconds from the absolute deadline on every tick. Deriving
// from EndsAt instead of decrementing a counter keeps the display correct
// after tab suspension or a throttled timer.
type Countdown struct {
	clock clockwork.Clock

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewCountdown returns a countdown driven by the given clock.
func NewCountdown(clock clockwork.Clock) *Countdown {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Countdown{
		clock:  clock,
		stopCh: make(chan struct{}),
	}
}

// Run ticks until the deadline passes, Stop is called, or ctx is done.
// onTick receives the derived seconds remaining; it fires immediately with
// the current value and once more with 0 when the deadline is reached.
func (c *Countdown) Run(ctx context.Context, endsAt time.Time, onTick func(secondsLeft int64)) {
	left := TimeLeft(endsAt, c.clock.Now())
	onTick(left)
	if left == 0 {
		return
	}

	ticker := c.clock.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.Chan():
			left = TimeLeft(endsAt, c.clock.Now())
			onTick(left)
			if left == 0 {
				return
			}
		}
	}
}

// Stop halts the countdown. Safe to call more than once.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

// TimeLeft is the pure countdown derivation: max(0, floor((endsAt-now)/1s)).
func TimeLeft(endsAt, now time.Time) int64 {
	if endsAt.IsZero() {
		return 0
	}
	remaining := endsAt.Sub(now) / time.Second
	if remaining < 0 {
		return 0
	}
	return int64(remaining)
}
