package model

// OutcomeKind classifies the result of one breach lookup.
type OutcomeKind int

const (
	OutcomeNotFound OutcomeKind = iota
	OutcomeFound
	OutcomeRateLimited
	OutcomeError
)

// String returns the lowercase name of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNotFound:
		return "not_found"
	case OutcomeFound:
		return "found"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "error"
	}
}

// LookupOutcome is the normalized result of looking up one identity.
// Breaches is set only for OutcomeFound; Err only for RateLimited and Error.
type LookupOutcome struct {
	Kind     OutcomeKind
	Breaches []Breach
	Err      error
}

// Resolved reports whether the outcome advances the identity out of the
// remaining set.
func (o LookupOutcome) Resolved() bool {
	return o.Kind == OutcomeNotFound || o.Kind == OutcomeFound
}
