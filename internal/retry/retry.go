// Package retry wraps calls to external collaborators with bounded retry,
// exponential backoff, and transient/permanent failure classification.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/zhada/appraisal-extractor/internal/common"
)

// Policy describes how one class of external call is retried.
// Policies are plain values so each collaborator's policy can be tested on
// its own.
type Policy struct {
	MaxAttempts int           // total attempts, including the first (default 3)
	BaseDelay   time.Duration // backoff before attempt 2 (default 1s)
	Multiplier  float64       // exponential factor (default 2)
	Jitter      float64       // fraction of the delay randomized away, 0..1
	Classify    func(error) common.Class
	Unsafe      bool // operation is not idempotent; retries are refused
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2
	}
	if p.Classify == nil {
		p.Classify = common.ClassOf
	}
	return p
}

// Delay returns the backoff before the given retry (attempt is 1-based; the
// delay precedes attempt+1).
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if p.Jitter > 0 {
		d -= d * p.Jitter * rand.Float64()
	}
	return time.Duration(d)
}

// ExhaustedError reports that all attempts failed transiently.
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %d attempts exhausted: %v", e.Op, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Attempts reports how many attempts err consumed, if it records that.
func Attempts(err error) int {
	var e *ExhaustedError
	if errors.As(err, &e) {
		return e.Attempts
	}
	return 0
}

// Do runs fn under the policy. Transient failures back off and retry up to
// MaxAttempts; a Permanent failure returns immediately without consuming
// further attempts. Callers own per-attempt timeouts inside fn.
func Do(ctx context.Context, logger *slog.Logger, op string, p Policy, fn func(context.Context) error) error {
	_, err := DoValue(ctx, logger, op, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for operations that return a value.
func DoValue[T any](ctx context.Context, logger *slog.Logger, op string, p Policy, fn func(context.Context) (T, error)) (T, error) {
	v, _, err := DoValueN(ctx, logger, op, p, fn)
	return v, err
}

// DoValueN additionally reports how many attempts were consumed.
func DoValueN[T any](ctx context.Context, logger *slog.Logger, op string, p Policy, fn func(context.Context) (T, error)) (T, int, error) {
	var zero T
	if logger == nil {
		logger = slog.Default()
	}
	p = p.withDefaults()
	if p.Unsafe {
		// not safe to repeat; single attempt regardless of classification
		v, err := fn(ctx)
		return v, 1, err
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("retry.recovered", "op", op, "attempt", attempt)
			}
			return v, attempt, nil
		}
		lastErr = err

		if p.Classify(err) != common.ClassTransient {
			return zero, attempt, err
		}
		if attempt == p.MaxAttempts {
			break
		}

		delay := p.Delay(attempt)
		logger.Warn("retry.backoff",
			"op", op,
			"attempt", attempt,
			"max_attempts", p.MaxAttempts,
			"delay", delay,
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return zero, attempt, fmt.Errorf("%s: context cancelled during retry: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}
	return zero, p.MaxAttempts, &ExhaustedError{Op: op, Attempts: p.MaxAttempts, Last: lastErr}
}
