package supervisor

import "time"

// Backoff decides how long to wait before the next connection attempt.
// It is owned by the Run loop and is not safe for concurrent use.
type Backoff struct {
	short     time.Duration
	long      time.Duration
	threshold int
	failures  int
}

// NewBackoff returns a policy that waits short after each failure and long
// once threshold consecutive attempts have failed.
func NewBackoff(short, long time.Duration, threshold int) *Backoff {
	return &Backoff{short: short, long: long, threshold: threshold}
}

// Fail records a failed attempt.
func (b *Backoff) Fail() {
	b.failures++
}

// Connected resets the failure count.
func (b *Backoff) Connected() {
	b.failures = 0
}

// Failures returns the consecutive failure count.
func (b *Backoff) Failures() int {
	return b.failures
}

// Delay returns the wait before the next attempt. It is zero until an
// attempt has failed.
func (b *Backoff) Delay() time.Duration {
	switch {
	case b.failures == 0:
		return 0
	case b.failures >= b.threshold:
		return b.long
	default:
		return b.short
	}
}
