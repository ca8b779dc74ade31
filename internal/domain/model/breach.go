package model

import (
	"sort"
	"time"
)

// Breach describes one exposure event returned by the breach-intelligence service.
type Breach struct {
	Name          string
	Title         string
	Domain        string
	Date          time.Time // Zero when the service did not report a date.
	DataTypes     []string
	Description   string
	AffectedCount int64
}

// BreachStatus discriminates the variants of BreachState.
type BreachStatus int

const (
	BreachUnchecked BreachStatus = iota
	BreachSafe
	BreachBreached
)

// String returns the lowercase name of the status.
func (s BreachStatus) String() string {
	switch s {
	case BreachSafe:
		return "safe"
	case BreachBreached:
		return "breached"
	default:
		return "unchecked"
	}
}

// BreachState is the breach-check result attached to every record of an
// identity. It is one of Unchecked, Safe{CheckedAt} or
// Breached{CheckedAt, Breaches}; use the constructors to build it.
type BreachState struct {
	Status    BreachStatus
	CheckedAt time.Time
	Breaches  []Breach
}

// UncheckedState returns the state of an identity that was never resolved.
func UncheckedState() BreachState {
	return BreachState{Status: BreachUnchecked}
}

// SafeState returns the state of an identity with no known breaches.
func SafeState(checkedAt time.Time) BreachState {
	return BreachState{Status: BreachSafe, CheckedAt: checkedAt.UTC()}
}

// BreachedState returns the state of an identity found in breaches. The
// breaches are copied and ordered newest first.
func BreachedState(checkedAt time.Time, breaches []Breach) BreachState {
	return BreachState{
		Status:    BreachBreached,
		CheckedAt: checkedAt.UTC(),
		Breaches:  SortBreachesNewestFirst(breaches),
	}
}

// Checked reports whether the identity reached a terminal state.
func (s BreachState) Checked() bool { return s.Status != BreachUnchecked }

// Breached reports whether the identity appears in at least one breach.
func (s BreachState) Breached() bool { return s.Status == BreachBreached }

// BreachCount returns the number of recorded breaches.
func (s BreachState) BreachCount() int { return len(s.Breaches) }

// SortBreachesNewestFirst returns a copy of breaches ordered by date
// descending. Unknown dates sort last; ties are ordered by name.
func SortBreachesNewestFirst(breaches []Breach) []Breach {
	out := make([]Breach, len(breaches))
	copy(out, breaches)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Name < out[j].Name
	})
	return out
}
