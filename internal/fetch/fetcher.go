// Package fetch performs logical queries against the listing API, retrying
// rate-limited and server-side failures with bounded linear backoff.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"propsweep/internal/catalog"
	"propsweep/internal/config"
	"propsweep/internal/logging"
	"propsweep/internal/normalize"
	"propsweep/internal/transport"
)

// Options configures the retry policy and page walking.
type Options struct {
	MaxAttempts    int           // total attempts per call, including the first
	MinThrottle    time.Duration // floor on the wait between any two calls
	BackoffStep    time.Duration // linear backoff increment
	BackoffCeiling time.Duration // cap on linear backoff
	AttemptTimeout time.Duration // hard cap on one attempt; 0 = none
	MaxPages       int
	PageSize       int
}

// DefaultOptions returns the policy used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:    8,
		MinThrottle:    250 * time.Millisecond,
		BackoffStep:    2 * time.Second,
		BackoffCeiling: 30 * time.Second,
		AttemptTimeout: 45 * time.Second,
		MaxPages:       50,
		PageSize:       100,
	}
}

// OptionsFromConfig maps config sections onto Options.
func OptionsFromConfig(r config.RetryConfig, s config.SweepConfig) Options {
	return Options{
		MaxAttempts:    r.MaxAttempts,
		MinThrottle:    r.GetMinThrottle(),
		BackoffStep:    r.GetBackoffStep(),
		BackoffCeiling: r.GetBackoffCeiling(),
		AttemptTimeout: r.GetAttemptTimeout(),
		MaxPages:       s.MaxPages,
		PageSize:       s.PageSize,
	}
}

// Fetcher executes strategies through the configured transports.
type Fetcher struct {
	primary    transport.Transport
	alternate  transport.AlternateTransport
	normalizer *normalize.Normalizer
	opts       Options
	throttle   *Throttle
	sleep      Sleeper
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithSleeper replaces the sleeper used for backoff and throttling.
func WithSleeper(s Sleeper) Option {
	return func(f *Fetcher) {
		f.sleep = s
		f.throttle.sleep = s
	}
}

// WithClock replaces the clock used by the throttle.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.throttle.now = now }
}

// WithThrottle shares an existing throttle.
func WithThrottle(t *Throttle) Option {
	return func(f *Fetcher) { f.throttle = t }
}

// New creates a Fetcher. alternate may be nil.
func New(primary transport.Transport, alternate transport.AlternateTransport, n *normalize.Normalizer, opts Options, options ...Option) *Fetcher {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = DefaultOptions().PageSize
	}
	if n == nil {
		n = normalize.New(nil)
	}
	f := &Fetcher{
		primary:    primary,
		alternate:  alternate,
		normalizer: n,
		opts:       opts,
		throttle:   NewThrottle(opts.MinThrottle),
		sleep:      SleepContext,
	}
	for _, o := range options {
		o(f)
	}
	return f
}

// Throttle returns the fetcher's shared throttle.
func (f *Fetcher) Throttle() *Throttle { return f.throttle }

// Fetch runs one strategy, walking pages if the strategy paginates, and
// returns the normalized raw entities. On a mid-walk failure the entities
// gathered so far are returned alongside the error.
func (f *Fetcher) Fetch(ctx context.Context, s catalog.Strategy) ([]map[string]any, error) {
	switch s.Pagination {
	case catalog.PaginationOffset, catalog.PaginationPage, catalog.PaginationCursor:
		return f.walk(ctx, s)
	default:
		resp, err := f.Do(ctx, s)
		if err != nil {
			return nil, err
		}
		return f.normalizer.Normalize(resp.Body), nil
	}
}

// Do performs a single logical call with retries and returns the raw response.
func (f *Fetcher) Do(ctx context.Context, s catalog.Strategy) (*transport.Response, error) {
	var lastErr error
	lastStatus := 0

	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := f.throttle.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := f.attempt(ctx, s)
		if err == nil {
			if attempt > 1 {
				logging.Fetch("%s succeeded on attempt %d", s.Label, attempt)
			}
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var statusErr *transport.StatusError
		if !errors.As(err, &statusErr) || !retryableStatus(statusErr.Status) {
			return nil, terminal(s.Label, attempt, err)
		}

		lastErr = err
		lastStatus = statusErr.Status
		if attempt == f.opts.MaxAttempts {
			break
		}

		wait := f.retryWait(attempt, statusErr.RetryAfter)
		if statusErr.Status == 429 {
			f.throttle.Defer(wait)
		}
		logging.FetchWarn("%s attempt %d/%d got HTTP %d, retrying in %v", s.Label, attempt, f.opts.MaxAttempts, statusErr.Status, wait)
		if err := f.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	logging.FetchWarn("%s gave up after %d attempts: %v", s.Label, f.opts.MaxAttempts, lastErr)
	return nil, &FetchError{
		Strategy:  s.Label,
		Status:    lastStatus,
		Message:   lastErr.Error(),
		Attempts:  f.opts.MaxAttempts,
		Exhausted: true,
		Err:       lastErr,
	}
}

func (f *Fetcher) attempt(ctx context.Context, s catalog.Strategy) (*transport.Response, error) {
	if f.opts.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.AttemptTimeout)
		defer cancel()
	}

	req := s.Request()
	if s.Transport == transport.ProtocolAlternate {
		if f.alternate == nil {
			return nil, ErrNoAlternate
		}
		return f.alternate.QueryAlternate(ctx, req)
	}
	if f.primary == nil {
		return nil, errors.New("primary transport not configured")
	}
	return f.primary.Query(ctx, req)
}

// retryWait is max(server hint, linear backoff, minimum throttle).
func (f *Fetcher) retryWait(attempt int, retryAfter time.Duration) time.Duration {
	wait := Backoff(attempt, f.opts.BackoffStep, f.opts.BackoffCeiling)
	if retryAfter > wait {
		wait = retryAfter
	}
	if f.opts.MinThrottle > wait {
		wait = f.opts.MinThrottle
	}
	return wait
}

// Backoff grows linearly with attempt and is capped at ceiling.
func Backoff(attempt int, step, ceiling time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(attempt) * step
	if ceiling > 0 && d > ceiling {
		d = ceiling
	}
	return d
}

func terminal(label string, attempts int, err error) *FetchError {
	fe := &FetchError{Strategy: label, Attempts: attempts, Err: err, Message: err.Error()}

	var statusErr *transport.StatusError
	switch {
	case errors.As(err, &statusErr):
		fe.Status = statusErr.Status
		if fe.Is(ErrUnauthorized) {
			fe.Err = fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
	case errors.Is(err, context.DeadlineExceeded):
		fe.Message = "attempt timed out"
	case errors.Is(err, normalize.ErrMalformed):
		fe.Message = "malformed response: " + err.Error()
	}
	return fe
}
