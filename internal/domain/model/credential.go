// Package model holds the credential, breach and risk domain types.
package model

import "time"

// CompromiseFlag is the tri-state compromise marker carried by a credential.
type CompromiseFlag int

const (
	CompromiseUnknown CompromiseFlag = iota
	CompromiseCompromised
	CompromiseSafe
)

// String returns the lowercase name of the flag.
func (f CompromiseFlag) String() string {
	switch f {
	case CompromiseCompromised:
		return "compromised"
	case CompromiseSafe:
		return "safe"
	default:
		return "unknown"
	}
}

// Credential is a single stored credential record. Identity is typically an
// email address; Secret is empty when the record carries no password.
type Credential struct {
	ID            string
	Name          string
	URL           string
	Identity      string
	Secret        string
	Source        string
	Compromised   CompromiseFlag
	CreatedAt     time.Time
	LastCheckedAt time.Time // Zero when never checked.
	BreachState   BreachState
	Risk          *RiskAssessment // Nil until the first scoring pass.
}

// IdentityKey returns the normalized identity used for grouping.
func (c Credential) IdentityKey() string {
	return NormalizeIdentity(c.Identity)
}

// Eligible reports whether the credential takes part in breach checking.
func (c Credential) Eligible() bool {
	return IsEligibleIdentity(c.Identity)
}
