package fetch

import (
	"context"
	"sync"
	"time"
)

// Limiter caps outbound requests to a fixed number of calls per trailing
// window. Every caller serializes through one lock; this is a single global
// bottleneck, not a per-host limiter.
type Limiter struct {
	mu     sync.Mutex
	calls  int
	period time.Duration
	stamps []time.Time
}

func NewLimiter(calls int, period time.Duration) *Limiter {
	if calls < 1 {
		calls = 1
	}
	return &Limiter{calls: calls, period: period}
}

// Acquire blocks until the trailing window holds fewer than the configured
// number of calls, then records this call and returns. Cancelling ctx aborts
// the wait with ctx.Err().
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()
		cutoff := now.Add(-l.period)
		live := l.stamps[:0]
		for _, t := range l.stamps {
			if t.After(cutoff) {
				live = append(live, t)
			}
		}
		l.stamps = live

		if len(l.stamps) < l.calls {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}

		// Window is full; sleep until the oldest call ages out, then retry.
		wait := l.stamps[0].Add(l.period).Sub(now)
		l.mu.Unlock()

		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
