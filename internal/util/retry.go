package util

import (
	"context"
	"fmt"
	"time"
)

// maxBackoff caps the delay between attempts so a long retry chain against
// the upstream feed never sleeps more than this.
const maxBackoff = 30 * time.Second

// Retry calls fn until it succeeds or maxAttempts is exhausted, doubling the
// delay after each failure starting from baseDelay. Cancellation of ctx wins
// over a pending backoff sleep.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		if serr := sleep(ctx, backoffDelay(baseDelay, attempt)); serr != nil {
			return serr
		}
	}
	return fmt.Errorf("after %d attempts: %w", maxAttempts, err)
}

// backoffDelay returns baseDelay doubled attempt-1 times, capped at maxBackoff.
func backoffDelay(baseDelay time.Duration, attempt int) time.Duration {
	d := baseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
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
