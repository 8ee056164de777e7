package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propsweep/internal/catalog"
	"propsweep/internal/normalize"
	"propsweep/internal/transport"
)

// fakeClock advances only when something sleeps on it.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.waits = append(c.waits, d)
		c.now = c.now.Add(d)
	}
	return nil
}

func (c *fakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

// scripted returns the queued results in order, then repeats the last one.
type scripted struct {
	mu      sync.Mutex
	results []result
	calls   []transport.Request
}

type result struct {
	body any
	err  error
}

func (s *scripted) Query(ctx context.Context, req transport.Request) (*transport.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	r := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	return &transport.Response{Status: http.StatusOK, Body: r.body}, nil
}

func (s *scripted) QueryAlternate(ctx context.Context, req transport.Request) (*transport.Response, error) {
	return s.Query(ctx, req)
}

func rateLimited(retryAfter time.Duration) result {
	return result{err: &transport.StatusError{Status: http.StatusTooManyRequests, RetryAfter: retryAfter}}
}

func ok(ids ...string) result {
	items := make([]any, 0, len(ids))
	for _, id := range ids {
		items = append(items, map[string]any{"id": id})
	}
	return result{body: map[string]any{"data": items}}
}

func testOptions() Options {
	return Options{
		MaxAttempts:    5,
		MinThrottle:    100 * time.Millisecond,
		BackoffStep:    10 * time.Millisecond,
		BackoffCeiling: 50 * time.Millisecond,
		MaxPages:       10,
		PageSize:       2,
	}
}

func newTestFetcher(tr *scripted, opts Options) (*Fetcher, *fakeClock) {
	clock := newFakeClock()
	f := New(tr, tr, normalize.New(nil), opts, WithSleeper(clock.Sleep), WithClock(clock.Now))
	return f, clock
}

var baseline = catalog.Strategy{Label: "baseline", Transport: transport.ProtocolPrimary, Path: "/properties"}

func TestFetch_RetriesRateLimitThenSucceeds(t *testing.T) {
	tr := &scripted{results: []result{rateLimited(0), rateLimited(0), ok("1", "2")}}
	f, clock := newTestFetcher(tr, testOptions())

	items, err := f.Fetch(context.Background(), baseline)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Len(t, tr.calls, 3)

	waits := clock.Waits()
	require.NotEmpty(t, waits)
	for _, w := range waits {
		assert.GreaterOrEqual(t, w, 100*time.Millisecond, "every wait honours the minimum throttle")
	}
}

func TestFetch_RetryAfterTakesPrecedence(t *testing.T) {
	tr := &scripted{results: []result{rateLimited(3 * time.Second), ok("1")}}
	f, clock := newTestFetcher(tr, testOptions())

	_, err := f.Fetch(context.Background(), baseline)
	require.NoError(t, err)
	assert.Contains(t, clock.Waits(), 3*time.Second)
}

func TestFetch_ExhaustsAttemptCap(t *testing.T) {
	tr := &scripted{results: []result{{err: &transport.StatusError{Status: 503}}}}
	opts := testOptions()
	opts.MaxAttempts = 3
	f, _ := newTestFetcher(tr, opts)

	_, err := f.Fetch(context.Background(), baseline)
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.True(t, fe.Exhausted)
	assert.Equal(t, 3, fe.Attempts)
	assert.Equal(t, 503, fe.Status)
	assert.True(t, fe.Retryable())
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Len(t, tr.calls, 3)
}

func TestFetch_TerminalStatusNotRetried(t *testing.T) {
	tr := &scripted{results: []result{{err: &transport.StatusError{Status: 404, Body: "not found"}}}}
	f, _ := newTestFetcher(tr, testOptions())

	_, err := f.Fetch(context.Background(), baseline)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 404, fe.Status)
	assert.False(t, fe.Exhausted)
	assert.Equal(t, 1, fe.Attempts)
	assert.Len(t, tr.calls, 1)
}

func TestFetch_UnauthorizedSentinel(t *testing.T) {
	tr := &scripted{results: []result{{err: &transport.StatusError{Status: 401}}}}
	f, _ := newTestFetcher(tr, testOptions())

	_, err := f.Fetch(context.Background(), baseline)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestFetch_MalformedIsTerminal(t *testing.T) {
	tr := &scripted{results: []result{{err: fmt.Errorf("decode: %w", normalize.ErrMalformed)}}}
	f, _ := newTestFetcher(tr, testOptions())

	_, err := f.Fetch(context.Background(), baseline)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Message, "malformed")
	assert.ErrorIs(t, err, normalize.ErrMalformed)
	assert.Len(t, tr.calls, 1)
}

func TestFetch_CancelledContext(t *testing.T) {
	tr := &scripted{results: []result{ok("1")}}
	f, _ := newTestFetcher(tr, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(ctx, baseline)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, tr.calls)
}

func TestFetch_NoAlternateTransport(t *testing.T) {
	tr := &scripted{results: []result{ok("1")}}
	clock := newFakeClock()
	f := New(tr, nil, nil, testOptions(), WithSleeper(clock.Sleep), WithClock(clock.Now))

	_, err := f.Fetch(context.Background(), catalog.Strategy{Label: "gql", Transport: transport.ProtocolAlternate})
	assert.ErrorIs(t, err, ErrNoAlternate)
}

func TestBackoff_LinearAndCapped(t *testing.T) {
	step, ceiling := time.Second, 3*time.Second
	assert.Equal(t, time.Second, Backoff(1, step, ceiling))
	assert.Equal(t, 2*time.Second, Backoff(2, step, ceiling))
	assert.Equal(t, 3*time.Second, Backoff(3, step, ceiling))
	assert.Equal(t, 3*time.Second, Backoff(9, step, ceiling))
	assert.Equal(t, time.Second, Backoff(0, step, ceiling))
}

func TestThrottle_SpacesCalls(t *testing.T) {
	clock := newFakeClock()
	th := NewThrottle(200 * time.Millisecond)
	th.now = clock.Now
	th.sleep = clock.Sleep

	ctx := context.Background()
	require.NoError(t, th.Wait(ctx))
	require.NoError(t, th.Wait(ctx))
	require.NoError(t, th.Wait(ctx))

	assert.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, clock.Waits())

	th.Defer(time.Second)
	require.NoError(t, th.Wait(ctx))
	assert.Equal(t, time.Second, clock.Waits()[2])
}

// pager serves ids 1..total in pages according to offset/page/cursor params.
type pager struct {
	mu           sync.Mutex
	total        int
	ignoreOffset bool
	calls        int
}

func (p *pager) Query(ctx context.Context, req transport.Request) (*transport.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	params := map[string]string{}
	for _, prm := range req.Params {
		params[prm.Name] = prm.Value
	}
	limit, _ := strconv.Atoi(params["limit"])
	start := 0
	if v, ok := params["offset"]; ok && !p.ignoreOffset {
		start, _ = strconv.Atoi(v)
	}
	if v, ok := params["page"]; ok {
		n, _ := strconv.Atoi(v)
		start = (n - 1) * limit
	}
	if v, ok := params["cursor"]; ok {
		start, _ = strconv.Atoi(v)
	}
	items := []any{}
	for i := start; i < start+limit && i < p.total; i++ {
		items = append(items, map[string]any{"id": strconv.Itoa(i + 1)})
	}
	body := map[string]any{"data": items}
	if start+limit < p.total {
		body["next_cursor"] = strconv.Itoa(start + limit)
	}
	return &transport.Response{Status: 200, Body: body}, nil
}

func TestFetch_WalksPages(t *testing.T) {
	for _, pg := range []catalog.Pagination{catalog.PaginationOffset, catalog.PaginationPage, catalog.PaginationCursor} {
		t.Run(string(pg), func(t *testing.T) {
			p := &pager{total: 5}
			clock := newFakeClock()
			f := New(p, nil, nil, testOptions(), WithSleeper(clock.Sleep), WithClock(clock.Now))

			items, err := f.Fetch(context.Background(), catalog.Strategy{Label: "walk", Path: "/properties", Pagination: pg})
			require.NoError(t, err)
			assert.Len(t, items, 5)
		})
	}
}

func TestFetch_StopsWhenServerIgnoresOffset(t *testing.T) {
	p := &pager{total: 10, ignoreOffset: true}
	clock := newFakeClock()
	f := New(p, nil, nil, testOptions(), WithSleeper(clock.Sleep), WithClock(clock.Now))

	items, err := f.Fetch(context.Background(), catalog.Strategy{Label: "stuck", Pagination: catalog.PaginationOffset})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, p.calls, "second page repeats the first and ends the walk")
}

func TestFetch_MaxPagesBoundsWalk(t *testing.T) {
	p := &pager{total: 100}
	opts := testOptions()
	opts.MaxPages = 3
	clock := newFakeClock()
	f := New(p, nil, nil, opts, WithSleeper(clock.Sleep), WithClock(clock.Now))

	items, err := f.Fetch(context.Background(), catalog.Strategy{Label: "big", Pagination: catalog.PaginationOffset})
	require.NoError(t, err)
	assert.Len(t, items, 6)
	assert.Equal(t, 3, p.calls)
}

func TestFetch_PartialPagesOnFailure(t *testing.T) {
	tr := &scripted{results: []result{ok("1", "2"), {err: &transport.StatusError{Status: 400}}}}
	f, _ := newTestFetcher(tr, testOptions())

	items, err := f.Fetch(context.Background(), catalog.Strategy{Label: "partial", Pagination: catalog.PaginationOffset})
	require.Error(t, err)
	assert.Len(t, items, 2)
}
