package deliverer

import (
	"math"
	"math/rand"
	"time"
)

// Backoff is the exponential retry ladder transient delivery failures
// are scheduled against.
type Backoff struct {
	Base        time.Duration
	Multiplier  float64
	MaxInterval time.Duration
	MaxElapsed  time.Duration
}

// DefaultBackoff matches spec: base 30s, multiplier 2, capped at 6h
// per interval and 72h total elapsed before the recipient is marked
// unreachable.
var DefaultBackoff = Backoff{
	Base:        30 * time.Second,
	Multiplier:  2,
	MaxInterval: 6 * time.Hour,
	MaxElapsed:  72 * time.Hour,
}

// SuppressionWindow is how long further deliveries to an actor marked
// unreachable are suppressed.
const SuppressionWindow = 24 * time.Hour

// Interval returns the delay before retry attempt n (0-indexed, the
// delay after the first failure), jittered by ±25% so a burst of
// failures against the same recipient doesn't retry in lockstep.
func (b Backoff) Interval(attempt int) time.Duration {
	d := float64(b.Base) * math.Pow(b.Multiplier, float64(attempt))
	if d > float64(b.MaxInterval) {
		d = float64(b.MaxInterval)
	}
	jitter := d * 0.25
	d += (rand.Float64()*2 - 1) * jitter
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Exhausted reports whether elapsed time since the first attempt has
// passed MaxElapsed, at which point the caller should stop retrying
// and mark the recipient unreachable.
func (b Backoff) Exhausted(elapsed time.Duration) bool {
	return elapsed >= b.MaxElapsed
}
