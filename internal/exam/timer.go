package exam

import (
	"context"
	"sync"
	"time"
)

// RemainingUntilStart returns the time until a scheduled open, floored at
// zero.
func RemainingUntilStart(scheduledAt, now time.Time) time.Duration {
	remaining := scheduledAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Deadline computes the submission deadline from a recorded attempt start and
// a time limit. A zero limit means no deadline (untimed exam) and yields the
// zero time.
func Deadline(startedAt time.Time, limit time.Duration) time.Time {
	if limit <= 0 {
		return time.Time{}
	}
	return startedAt.Add(limit)
}

// RemainingInProgress returns the time left before the deadline, floored at
// zero. A zero deadline reports a negative sentinel meaning "no limit".
func RemainingInProgress(startedAt time.Time, limit time.Duration, now time.Time) time.Duration {
	deadline := Deadline(startedAt, limit)
	if deadline.IsZero() {
		return -1
	}
	remaining := deadline.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Countdown ticks once per interval toward a deadline and fires an expiry
// callback exactly once when the deadline is reached. It is an explicit
// resource: Start launches the ticking goroutine and Stop (or context
// cancellation) tears it down, so no callback can outlive the session that
// owns it.
type Countdown struct {
	deadline time.Time
	interval time.Duration
	now      func() time.Time
	onTick   func(remaining time.Duration)
	onExpire func()

	expireOnce sync.Once
	stopOnce   sync.Once
	cancel     context.CancelFunc
	done       chan struct{}
}

// CountdownOption customises a Countdown.
type CountdownOption func(*Countdown)

// WithInterval overrides the one second tick interval.
func WithInterval(interval time.Duration) CountdownOption {
	return func(c *Countdown) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) CountdownOption {
	return func(c *Countdown) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCountdown builds a countdown toward the given deadline. onTick may be
// nil; onExpire fires at most once, on the first tick at or past the
// deadline.
func NewCountdown(deadline time.Time, onTick func(time.Duration), onExpire func(), opts ...CountdownOption) *Countdown {
	c := &Countdown{
		deadline: deadline,
		interval: time.Second,
		now:      time.Now,
		onTick:   onTick,
		onExpire: onExpire,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins ticking until the deadline passes or the context is
// cancelled. It returns immediately; ticking happens on its own goroutine.
func (c *Countdown) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	go func() {
		defer close(c.done)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		if c.step() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.step() {
					return
				}
			}
		}
	}()
}

// step emits one tick and reports whether the countdown has expired.
func (c *Countdown) step() bool {
	remaining := c.deadline.Sub(c.now())
	if remaining < 0 {
		remaining = 0
	}
	if c.onTick != nil {
		c.onTick(remaining)
	}
	if remaining > 0 {
		return false
	}
	c.expireOnce.Do(func() {
		if c.onExpire != nil {
			c.onExpire()
		}
	})
	return true
}

// Stop tears the countdown down without firing expiry.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
	})
}

// Done is closed once the ticking goroutine has exited.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}
