package restretry

import (
	"math/rand"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMinBackoff is the smallest wait between attempts.
	DefaultMinBackoff = 1 * time.Second

	// DefaultMaxBackoff caps the wait between attempts, however unlucky
	// the draws get.
	DefaultMaxBackoff = 16 * time.Second
)

// DecorrelatedJitter produces successive wait intervals for a retry loop.
//
// The first interval equals Min. Every interval after that is drawn
// uniformly from [Min, min(Max, prev*3)], where prev is the interval
// returned by the previous call. Compared to plain exponential backoff this
// spreads concurrently-failing callers apart instead of letting them retry
// in lockstep.
//
// DecorrelatedJitter implements backoff.BackOff so it can be dropped into
// anything built on the cenkalti/backoff contract. It is not safe for
// concurrent use; create one per request, the same way the wrapped client
// does.
type DecorrelatedJitter struct {
	Min time.Duration
	Max time.Duration

	rnd  *rand.Rand
	prev time.Duration
}

var _ backoff.BackOff = (*DecorrelatedJitter)(nil)

// NewDecorrelatedJitter returns a generator bounded by [min, max].
// Non-positive bounds fall back to the package defaults.
func NewDecorrelatedJitter(min, max time.Duration) *DecorrelatedJitter {
	if min <= 0 {
		min = DefaultMinBackoff
	}
	if max <= 0 {
		max = DefaultMaxBackoff
	}
	if max < min {
		max = min
	}

	return &DecorrelatedJitter{
		Min: min,
		Max: max,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed replaces the generator's random source so a test can replay a
// deterministic interval sequence.
func (d *DecorrelatedJitter) Seed(seed int64) {
	d.rnd = rand.New(rand.NewSource(seed))
}

// NextBackOff implements backoff.BackOff.
func (d *DecorrelatedJitter) NextBackOff() time.Duration {
	if d.prev == 0 {
		d.prev = d.Min
		return d.prev
	}

	ceiling := d.prev * 3
	if ceiling > d.Max {
		ceiling = d.Max
	}

	next := d.Min
	if ceiling > d.Min {
		next += time.Duration(d.rnd.Int63n(int64(ceiling - d.Min + 1)))
	}

	d.prev = next

	return next
}

// Reset implements backoff.BackOff, returning the generator to its initial
// state so the next interval is Min again.
func (d *DecorrelatedJitter) Reset() {
	d.prev = 0
}
