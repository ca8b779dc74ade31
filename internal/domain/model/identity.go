package model

import "strings"

// NormalizeIdentity lower-cases and trims an identity for comparison.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// IsEligibleIdentity reports whether identity is email-shaped, i.e. its
// normalized form contains an "@". Other identities are never looked up.
func IsEligibleIdentity(identity string) bool {
	return strings.Contains(NormalizeIdentity(identity), "@")
}

// IdentityGroup is the set of credential records sharing one normalized identity.
type IdentityGroup struct {
	Identity  string
	MemberIDs []string
	Count     int
}

// Progress summarizes breach-check state across distinct identities.
type Progress struct {
	Total     int `json:"total"`
	Checked   int `json:"checked"`
	Breached  int `json:"breached"`
	Safe      int `json:"safe"`
	Remaining int `json:"remaining"`
}
