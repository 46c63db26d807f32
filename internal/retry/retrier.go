package retry

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultInitialInterval = 1 * time.Second
	defaultMaxInterval     = 30 * time.Second
	defaultMultiplier      = 2.0
	defaultMaxRetries      = 5
	defaultJitter          = 0.1
)

// Retrier re-runs chain and attestation calls that failed with a transient
// error. Delays grow by multiplier up to maxInterval, each spread by jitter.
type Retrier struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
	maxRetries      int
	jitter          float64
	retryIf         func(error) bool
	onRetry         func(attempt int, delay time.Duration, err error)
}

type Option func(*Retrier)

// WithInitialInterval is the delay before the second attempt.
func WithInitialInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.initialInterval = d
	}
}

func WithMaxInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.maxInterval = d
	}
}

func WithMultiplier(m float64) Option {
	return func(r *Retrier) {
		r.multiplier = m
	}
}

// WithMaxRetries counts retries, so n+1 attempts are made at most.
func WithMaxRetries(n int) Option {
	return func(r *Retrier) {
		r.maxRetries = n
	}
}

// WithJitter spreads every delay by up to ±j of itself.
func WithJitter(j float64) Option {
	return func(r *Retrier) {
		r.jitter = j
	}
}

// WithRetryIf decides which errors are retried. Classify is used otherwise.
func WithRetryIf(fn func(error) bool) Option {
	return func(r *Retrier) {
		r.retryIf = fn
	}
}

// WithOnRetry is called with the failed attempt's error before sleeping.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(r *Retrier) {
		r.onRetry = fn
	}
}

func New(opts ...Option) *Retrier {
	r := &Retrier{
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		multiplier:      defaultMultiplier,
		maxRetries:      defaultMaxRetries,
		jitter:          defaultJitter,
		retryIf:         IsRetryable,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Do calls fn until it succeeds or fails terminally. Running out of retries
// returns the last error; ctx ending during a delay returns ctx.Err().
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	interval := r.initialInterval

	err := fn(ctx)
	for attempt := 1; err != nil && attempt <= r.maxRetries; attempt++ {
		if r.retryIf != nil && !r.retryIf(err) {
			return err
		}

		delay := r.spread(interval)
		if r.onRetry != nil {
			r.onRetry(attempt, delay, err)
		}

		if waitErr := sleep(ctx, delay); waitErr != nil {
			return waitErr
		}

		interval = min(time.Duration(float64(interval)*r.multiplier), r.maxInterval)
		err = fn(ctx)
	}

	return err
}

func (r *Retrier) spread(interval time.Duration) time.Duration {
	offset := (rand.Float64()*2 - 1) * r.jitter * float64(interval) //nolint:gosec
	return max(time.Duration(float64(interval)+offset), 0)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DoWithData is Do for calls that return a value.
func DoWithData[T any](ctx context.Context, r *Retrier, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = fn(ctx)
		return callErr
	})
	return result, err
}
