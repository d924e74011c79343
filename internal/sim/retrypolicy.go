package sim

import (
	"time"
)

const (
	defaultAttempts     = 3
	defaultInitialRetry = 200 * time.Millisecond
	defaultMaxRetry     = 5 * time.Second
)

// RetryPolicy describes how many times and how often a failing session
// workload is retried while the process keeps its processor.
// Zero values are treated as "use driver defaults".
type RetryPolicy struct {
	// Attempts is the maximum number of tries for one session.
	Attempts int

	// Initial is the first backoff duration.
	Initial time.Duration

	// Max is the cap for backoff duration.
	Max time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: defaultAttempts,
		Initial:  defaultInitialRetry,
		Max:      defaultMaxRetry,
	}
}

// merge overrides the non-zero fields of base with those of o.
func (base RetryPolicy) merge(o *RetryPolicy) RetryPolicy {
	if o == nil {
		return base
	}
	if o.Attempts > 0 {
		base.Attempts = o.Attempts
	}
	if o.Initial > 0 {
		base.Initial = o.Initial
	}
	if o.Max > 0 {
		base.Max = o.Max
	}
	return base
}
