package application

import (
	"slices"
	"time"
)

// RateBudget enforces at most Limit calls in any rolling Window. It is a
// value: Take returns the next budget instead of mutating shared timers, so a
// fake clock drives it deterministically.
//
// Remaining and ResetAt are derived from the recorded call times after each
// Take: Remaining is how many more calls fit right after the last one, and
// ResetAt is when the oldest counted call leaves the window.
type RateBudget struct {
	Limit     int
	Window    time.Duration
	Remaining int
	ResetAt   time.Time

	// calls holds the times of at most Limit most recent calls, oldest first.
	calls []time.Time
}

// NewRateBudget returns a budget of limit calls per rolling window.
func NewRateBudget(limit int, window time.Duration) RateBudget {
	if limit < 1 {
		limit = 1
	}
	return RateBudget{Limit: limit, Window: window, Remaining: limit}
}

// Take spends one call at now. It returns the updated budget and how long
// the caller must wait before issuing the call. The wait is zero while fewer
// than Limit calls fall inside the window ending at now; otherwise it lasts
// until the oldest of them expires.
func (b RateBudget) Take(now time.Time) (RateBudget, time.Duration) {
	limit := max(b.Limit, 1)

	at := now
	live := b.liveAt(now)
	if len(live) >= limit {
		at = live[len(live)-limit].Add(b.Window)
	}
	if n := len(live); n > 0 && at.Before(live[n-1]) {
		at = live[n-1]
	}

	// Clone so budgets returned by earlier Takes never share a backing array.
	calls := slices.Clone(live[max(0, len(live)-limit+1):])
	b.calls = append(calls, at)

	inWindow := b.liveAt(at)
	b.Remaining = limit - len(inWindow)
	b.ResetAt = at
	if len(inWindow) > 0 {
		b.ResetAt = inWindow[0].Add(b.Window)
	}

	return b, at.Sub(now)
}

// liveAt returns the recorded calls still inside the window ending at t.
func (b RateBudget) liveAt(t time.Time) []time.Time {
	for i, c := range b.calls {
		if c.Add(b.Window).After(t) {
			return b.calls[i:]
		}
	}
	return nil
}
