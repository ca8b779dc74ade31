package application_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/credaudit/internal/application"
)

var budgetStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestRateBudget_SpendsWithinWindow(t *testing.T) {
	b := application.NewRateBudget(3, time.Minute)
	assert.Equal(t, 3, b.Remaining)

	var wait time.Duration
	for i := range 3 {
		b, wait = b.Take(budgetStart.Add(time.Duration(i) * time.Second))
		assert.Zero(t, wait, "call %d", i)
	}
	assert.Equal(t, 0, b.Remaining)
	assert.Equal(t, budgetStart.Add(time.Minute), b.ResetAt)
}

func TestRateBudget_WaitsForOldestCallToExpire(t *testing.T) {
	b := application.NewRateBudget(2, time.Minute)

	b, _ = b.Take(budgetStart)
	b, _ = b.Take(budgetStart.Add(10 * time.Second))

	b, wait := b.Take(budgetStart.Add(20 * time.Second))
	assert.Equal(t, 40*time.Second, wait)
	assert.Equal(t, 0, b.Remaining, "the 10s call and the delayed call fill the window")
	assert.Equal(t, budgetStart.Add(70*time.Second), b.ResetAt)
}

func TestRateBudget_RefillsAfterWindowPasses(t *testing.T) {
	b := application.NewRateBudget(1, time.Minute)

	b, _ = b.Take(budgetStart)
	b, wait := b.Take(budgetStart.Add(90 * time.Second))

	assert.Zero(t, wait)
	assert.Equal(t, 0, b.Remaining)
	assert.Equal(t, budgetStart.Add(150*time.Second), b.ResetAt)
}

// Calls bunched on both sides of the minute boundary must not double the rate.
func TestRateBudget_NoBurstAcrossWindowEdge(t *testing.T) {
	b := application.NewRateBudget(8, time.Minute)

	b, _ = b.Take(budgetStart)

	granted := 0
	take := func(now time.Time) {
		var wait time.Duration
		b, wait = b.Take(now)
		if wait == 0 {
			granted++
		}
	}
	for range 7 {
		take(budgetStart.Add(59 * time.Second))
	}
	for range 8 {
		take(budgetStart.Add(60 * time.Second))
	}

	assert.Equal(t, 8, granted, "only the slot freed by the first call opens at 60s")
}

// Driving 2N back-to-back calls through the waits the budget hands out never
// puts more than N calls in any rolling window.
func TestRateBudget_RollingLimitHolds(t *testing.T) {
	const limit = 4
	b := application.NewRateBudget(limit, time.Minute)

	now := budgetStart.Add(50 * time.Second)
	var issued []time.Time
	for range 2 * limit {
		var wait time.Duration
		b, wait = b.Take(now)
		now = now.Add(wait)
		issued = append(issued, now)
		now = now.Add(time.Second)
	}

	require.Len(t, issued, 2*limit)
	for i := 0; i+limit < len(issued); i++ {
		gap := issued[i+limit].Sub(issued[i])
		assert.GreaterOrEqual(t, gap, time.Minute, "calls %d and %d", i, i+limit)
	}
}

func TestRateBudget_IsAValue(t *testing.T) {
	original := application.NewRateBudget(2, time.Minute)

	first, _ := original.Take(budgetStart)
	assert.Equal(t, 2, original.Remaining)
	assert.True(t, original.ResetAt.IsZero())

	// Two budgets derived from the same parent stay independent.
	a, _ := first.Take(budgetStart.Add(time.Second))
	_, _ = first.Take(budgetStart.Add(2 * time.Second))
	_, wait := a.Take(budgetStart.Add(3 * time.Second))
	assert.Equal(t, 57*time.Second, wait)
}

func TestRateBudget_ClampsLimit(t *testing.T) {
	assert.Equal(t, 1, application.NewRateBudget(0, time.Minute).Limit)
}
