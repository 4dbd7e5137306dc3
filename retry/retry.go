package retry

import (
	"context"
	"time"
)

// Policy configures exponential backoff: the first retry waits BaseDelay,
// each further retry doubles it up to MaxDelay. Attempts counts every
// execution including the first one.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: 4 * time.Second,
		MaxDelay:  10 * time.Second,
	}
}

// Do runs fn until it succeeds, the attempts are exhausted, or ctx is done.
// The last error is returned unchanged so callers can match on it.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.delay(attempt - 1)):
			}
		}

		if err := fn(ctx); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

func (p Policy) delay(retryNo int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < retryNo; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
