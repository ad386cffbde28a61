// Package retrier implements bounded exponential backoff for transient
// remote-call failures.
package retrier

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 10 * time.Second
	defaultMaxRetries      = 2
)

// Retrier retries a call with exponentially growing, jittered pauses.
type Retrier struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	maxRetries      int
}

// Option defines a function to configure the Retrier.
type Option func(*Retrier)

// WithInitialInterval sets the first retry pause.
func WithInitialInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.initialInterval = d
	}
}

// WithMaxInterval caps the retry pause.
func WithMaxInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.maxInterval = d
	}
}

// WithMaxRetries sets how many times a failed call is repeated.
func WithMaxRetries(n int) Option {
	return func(r *Retrier) {
		r.maxRetries = n
	}
}

// New creates a Retrier with default values and optional overrides.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		maxRetries:      defaultMaxRetries,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Do executes fn, repeating it after a pause while it keeps failing.
// The last error is returned once retries are exhausted.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	interval := r.initialInterval

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			// up to 20% jitter so parallel callers don't sync up
			pause := interval + time.Duration(rand.Int63n(int64(interval)/5+1))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pause):
			}

			interval *= 2
			if interval > r.maxInterval {
				interval = r.maxInterval
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
	}

	return err
}

// DoWithData executes fn with retries and returns its value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}
