// Package backoff provides delay policies for reconnects and retries.
package backoff

import "time"

// Policy returns the delay before the given attempt. Attempts start at 1.
type Policy func(attempt int) time.Duration

// Linear waits step×attempt: 1s, 2s, 3s... for a one second step.
func Linear(step time.Duration) Policy {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return step * time.Duration(attempt)
	}
}

// Exponential starts at initial and multiplies by factor per attempt, capped at maxDelay.
func Exponential(initial, maxDelay time.Duration, factor float64) Policy {
	return func(attempt int) time.Duration {
		delay := initial
		for i := 1; i < attempt; i++ {
			delay = time.Duration(float64(delay) * factor)
			if delay >= maxDelay {
				return maxDelay
			}
		}
		return min(delay, maxDelay)
	}
}

// Constant always waits d. Tests use Constant(0).
func Constant(d time.Duration) Policy {
	return func(int) time.Duration {
		return d
	}
}
