package fetch

import (
	"context"
	"sync"
	"time"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the real Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
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

// Throttle spaces calls at least interval apart. One Throttle is shared by
// every worker of a run so parallel sweeps do not multiply request pressure.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
	now      func() time.Time
	sleep    Sleeper
}

// NewThrottle creates a Throttle. Zero interval disables spacing.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval, now: time.Now, sleep: SleepContext}
}

// Wait reserves the next call slot and sleeps until it arrives.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.interval <= 0 {
		return ctx.Err()
	}
	t.mu.Lock()
	now := t.now()
	slot := t.next
	if slot.Before(now) {
		slot = now
	}
	t.next = slot.Add(t.interval)
	t.mu.Unlock()

	return t.sleep(ctx, slot.Sub(now))
}

// Defer pushes the next slot out to at least d from now. Used after a
// rate-limit response so other workers back off too.
func (t *Throttle) Defer(d time.Duration) {
	if t == nil || d <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if until := t.now().Add(d); until.After(t.next) {
		t.next = until
	}
}
