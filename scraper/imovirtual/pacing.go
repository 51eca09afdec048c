package imovirtual

import (
	"context"
	"math/rand"
	"time"
)

// DelayFunc produces the next inter-request delay. It is injected into the
// crawler so tests can run the state machine without real elapsed time.
type DelayFunc func(min, max time.Duration) time.Duration

// NextDelay returns a uniformly distributed duration in [min, max]
// inclusive, freshly seeded per call so consecutive pages never share a
// gap. Machine-regular request timing is exactly the signature the
// portal's bot detection looks for.
func NextDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return min + time.Duration(rng.Int63n(int64(max-min)+1))
}

// sleep blocks for d or until the context is cancelled, whichever comes
// first. Pacing intervals are one of the two suspension points of a run
// and must stay interruptible.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
