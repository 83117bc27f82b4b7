// Package backoff retries read-oriented calls with bounded exponential delay.
// Write paths stay single-attempt; callers mark definitive answers with
// Permanent so they are returned immediately.
package backoff

import (
	"context"
	"errors"
	"time"
)

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent wraps an error so Retry stops instead of retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Policy bounds the retry loop. Sleep is injectable for tests.
type Policy struct {
	Attempts int
	Base     time.Duration
	Cap      time.Duration
	Sleep    func(time.Duration)
}

// DefaultPolicy is 3 retries, 1s base, 10s cap.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Base: time.Second, Cap: 10 * time.Second}
}

// Retry runs fn up to Attempts+1 times, doubling the delay between attempts
// up to Cap. Context cancellation and Permanent errors end the loop early,
// including a cancellation that arrives mid-delay.
func (p Policy) Retry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt >= p.Attempts {
			return err
		}

		delay := p.Base << attempt
		if p.Cap > 0 && delay > p.Cap {
			delay = p.Cap
		}
		if p.wait(ctx, delay) != nil {
			return err
		}
	}
}

func (p Policy) wait(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		p.Sleep(d)
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
