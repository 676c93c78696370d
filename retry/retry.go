// Package retry implements the local backoff engine behind the Run durable
// primitive's retry policy (spec §4.6.3 "Run side effect"). It retries a
// thunk locally with exponential backoff bounded by MaxAttempts and
// MaxDuration; a terminal error (see errs.TerminalError) is never retried.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"restate.dev/sdk-go-core/errs"
)

// Policy configures a Run side effect's local retry behavior.
type Policy struct {
	// MaxAttempts caps the number of attempts, including the first. Zero
	// means unlimited (bounded only by MaxDuration, if set).
	MaxAttempts int
	// MaxDuration caps total elapsed time spent retrying. Zero means
	// unlimited (bounded only by MaxAttempts).
	MaxDuration time.Duration
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration
	// BackoffMultiplier is the exponential growth factor, applied after
	// each failed attempt.
	BackoffMultiplier float64
	// Jitter adds up to this fraction of the computed backoff as random
	// noise in either direction, to avoid synchronized retry storms across
	// invocations.
	Jitter float64
}

// DefaultPolicy returns the retry policy used when a Run call supplies none.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       0,
		MaxDuration:       0,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
	}
}

// limiter bounds the rate of local retry attempts across the whole process,
// so a thunk with a near-zero backoff floor cannot busy-loop a goroutine.
// Shared across invocations deliberately: it protects the host process, not
// any single invocation.
var limiter = rate.NewLimiter(rate.Limit(1000), 100)

// ExhaustedError is returned when a Run thunk never succeeds within the
// policy's bounds. The caller converts it into a terminal error carrying the
// attempt count, per spec §7 "Run failure".
type ExhaustedError struct {
	Attempts      int
	TotalDuration time.Duration
	LastErr       error
}

func (e *ExhaustedError) Error() string {
	return "retry: exhausted after " + itoa(e.Attempts) + " attempts: " + e.LastErr.Error()
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}

// Do runs fn, retrying on failure per policy until it succeeds, a terminal
// error is returned, the policy's bounds are exhausted, or ctx is
// cancelled. A *errs.TerminalError from fn is never retried and is returned
// immediately.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) error) error {
	start := time.Now()
	var lastErr error
	attempts := 0
	for {
		attempts++
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		err := fn(ctx, attempts)
		if err == nil {
			return nil
		}
		if errs.IsTerminal(err) {
			return err
		}
		lastErr = err

		if policy.MaxAttempts > 0 && attempts >= policy.MaxAttempts {
			break
		}
		elapsed := time.Since(start)
		if policy.MaxDuration > 0 && elapsed >= policy.MaxDuration {
			break
		}

		backoff := nextBackoff(policy, attempts)
		if policy.MaxDuration > 0 && elapsed+backoff > policy.MaxDuration {
			backoff = policy.MaxDuration - elapsed
			if backoff < 0 {
				break
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return &ExhaustedError{Attempts: attempts, TotalDuration: time.Since(start), LastErr: lastErr}
}

func nextBackoff(p Policy, attemptNum int) time.Duration {
	backoff := float64(p.InitialBackoff) * math.Pow(p.BackoffMultiplier, float64(attemptNum-1))
	if p.MaxBackoff > 0 && backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}
	if p.Jitter > 0 {
		j := backoff * p.Jitter * (rand.Float64()*2 - 1) //nolint:gosec // jitter, not security-sensitive
		backoff += j
	}
	if backoff < 0 {
		backoff = 0
	}
	return time.Duration(backoff)
}
