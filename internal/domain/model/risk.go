package model

import "time"

// Severity is the label derived from a risk score.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// SeverityForScore maps a score to its label. Lower bounds are inclusive.
func SeverityForScore(score int) Severity {
	switch {
	case score >= 80:
		return SeverityCritical
	case score >= 60:
		return SeverityHigh
	case score >= 30:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// RiskAssessment is recomputed wholesale on each scoring pass.
type RiskAssessment struct {
	Score    int
	Severity Severity
	Factors  []string
	ScoredAt time.Time
}
