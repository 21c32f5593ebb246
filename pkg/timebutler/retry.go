package timebutler

import (
	"context"
	"math/rand"
	"net/url"
	"time"

	"tap-timebutler/pkg/holidays"

	"github.com/sirupsen/logrus"
)

// RetryOptions configures the backoff policy.
type RetryOptions struct {
	// MaxTries counts the first attempt (default: 5).
	MaxTries int
	// BackoffInitial is the sleep before the first retry (default: 2s).
	BackoffInitial time.Duration
	// BackoffMax caps exponential backoff (default: 1m).
	BackoffMax time.Duration
	// BackoffJitterFrac applies +/- jitter to backoff sleeps (0.2 = +/-20%).
	BackoffJitterFrac float64
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxTries <= 0 {
		o.MaxTries = 5
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 2 * time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = time.Minute
	}
	if o.BackoffJitterFrac < 0 {
		o.BackoffJitterFrac = 0
	}
	return o
}

// Retrying decorates a Transport with exponential backoff on retriable failures.
// Non-retriable errors (AuthError, decode failures, cancellation) return at once.
type Retrying struct {
	next   Transport
	opts   RetryOptions
	logger *logrus.Logger
}

// WithRetry wraps next.
func WithRetry(next Transport, opts RetryOptions, logger *logrus.Logger) *Retrying {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Retrying{next: next, opts: opts.withDefaults(), logger: logger}
}

func (r *Retrying) Fetch(ctx context.Context, endpoint string, params url.Values) ([]RawRow, error) {
	return withRetry(ctx, r, "fetch "+endpoint, func() ([]RawRow, error) {
		return r.next.Fetch(ctx, endpoint, params)
	})
}

func (r *Retrying) FetchHolidays(ctx context.Context, year int) ([]holidays.PublicHoliday, error) {
	return withRetry(ctx, r, "fetch holidays", func() ([]holidays.PublicHoliday, error) {
		return r.next.FetchHolidays(ctx, year)
	})
}

func withRetry[T any](ctx context.Context, r *Retrying, op string, fn func() (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		out, err := fn()
		if err == nil {
			return out, nil
		}
		if !IsRetryable(err) || attempt+1 >= r.opts.MaxTries {
			return zero, err
		}

		sleep := r.opts.Backoff(attempt)
		r.logger.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt + 1,
			"backoff": sleep.Round(time.Millisecond).String(),
		}).Warnf("retrying after error: %v", err)

		t := time.NewTimer(sleep)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		}
	}
}

// BackoffFactor multiplies the delay after every failed attempt.
const BackoffFactor = 2

// Backoff returns the sleep before retry number n (0-based): BackoffInitial *
// BackoffFactor^n, capped at BackoffMax, then jittered by BackoffJitterFrac.
func (o RetryOptions) Backoff(n int) time.Duration {
	o = o.withDefaults()
	delay := o.BackoffInitial
	for i := 0; i < n && delay < o.BackoffMax; i++ {
		delay *= BackoffFactor
	}
	delay = min(delay, o.BackoffMax)
	if o.BackoffJitterFrac == 0 {
		return delay
	}
	spread := (rand.Float64()*2 - 1) * o.BackoffJitterFrac
	return time.Duration(float64(delay) * (1 + spread))
}
