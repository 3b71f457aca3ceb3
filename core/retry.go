package core

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Retrier runs remote operations with a bounded exponential backoff:
// after failed attempt n (0-based) it waits BaseDelay * 2^n, and it never waits after the last attempt.
// Every call gets a fresh budget of MaxAttempts.
type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      Logger

	sleep func(ctx context.Context, d time.Duration) error // mockable
}

func NewRetrier(conf *Config, logger Logger) Retrier {
	return Retrier{
		MaxAttempts: conf.Retry.MaxAttempts,
		BaseDelay:   conf.Retry.BaseDelay,
		Logger:      logger,
	}
}

func (r Retrier) attempts() int {
	if r.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return r.MaxAttempts
}

func (r Retrier) logger() Logger {
	if r.Logger == nil {
		return NopLogger{}
	}
	return r.Logger
}

// Delay returns the wait that follows the failed attempt number `attempt` (0-based).
func (r Retrier) Delay(attempt int) time.Duration {
	return r.BaseDelay * time.Duration(1<<uint(attempt))
}

func (r Retrier) wait(ctx context.Context, d time.Duration) error {
	if r.sleep != nil {
		return r.sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
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

// Retry invokes fn until it succeeds, the budget is spent, fn returns a Permanent error or ctx is done.
// On exhaustion the last failure is returned to the caller.
func Retry[T any](ctx context.Context, r Retrier, op string, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	logger := r.logger()
	maxAttempts := r.attempts()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, errors.Wrap(err, op)
		}

		logger.Debug(fmt.Sprintf("%s: attempt %d/%d", op, attempt+1, maxAttempts))
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		if isPermanent(err) {
			return zero, unwrapPermanent(err)
		}
		lastErr = err
		logger.Warn(fmt.Sprintf("%s: attempt %d failed: %v", op, attempt+1, err), err)

		if attempt < maxAttempts-1 {
			if err := r.wait(ctx, r.Delay(attempt)); err != nil {
				return zero, errors.Wrap(err, op)
			}
		}
	}
	return zero, lastErr
}

// RetryDo is Retry for operations without a result.
func RetryDo(ctx context.Context, r Retrier, op string, fn func(context.Context) error) error {
	_, err := Retry(ctx, r, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
