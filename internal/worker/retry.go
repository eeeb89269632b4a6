package worker

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls the backoff between report write attempts.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        float64 // fraction of the delay randomized away, 0..1
}

// withDefaults fills zero fields. A report write is cheap to retry but
// pointless to hammer, so the defaults back off quickly to a minute.
func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.MaxRetries <= 0 {
		r.MaxRetries = 5
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = 2 * time.Second
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = time.Minute
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}
	return r
}

// NextDelay returns the delay before the given attempt (1-based):
// exponential, clamped to MaxDelay, shortened by up to Jitter.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	p := r.withDefaults()

	delay := time.Duration(float64(p.InitialDelay) * math.Pow(p.BackoffFactor, float64(attempt-1)))
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}

	if r.Jitter > 0 {
		frac := r.Jitter
		if frac > 1 {
			frac = 1
		}
		delay -= time.Duration(rand.Float64() * frac * float64(delay))
	}
	return delay
}
