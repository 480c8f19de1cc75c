// Package poll provides the bounded poll loop used for readiness and
// convergence checks against external processes. Every loop is limited by an
// attempt count so a missing daemon can never hang the session; context
// cancellation always wins over the remaining attempts.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted reports that the condition did not hold within the attempt
// budget.
var ErrExhausted = errors.New("poll: attempts exhausted")

// Check reports whether the awaited condition holds. Returning an error
// aborts the loop immediately; (false, nil) schedules another attempt.
type Check func(ctx context.Context) (bool, error)

// Until invokes check up to attempts times with interval between attempts.
// It returns nil as soon as check reports true, the check's error if it
// fails, ctx.Err on cancellation, and ErrExhausted when the budget runs out.
func Until(ctx context.Context, attempts int, interval time.Duration, check Check) error {
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := check(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return ErrExhausted
}
