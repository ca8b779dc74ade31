package application

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ericfisherdev/credaudit/internal/domain/model"
)

// maxRiskScore is the upper bound of every assessment.
const maxRiskScore = 100

// Weights are the per-factor contributions to a risk score.
type Weights struct {
	Compromised int
	PerBreach   int
	BreachCap   int
	Critical    int
	Stale       int
	Weak        int
	Duplicate   int
	StaleAfter  time.Duration
}

// DefaultWeights returns the standard scoring weights.
func DefaultWeights() Weights {
	return Weights{
		Compromised: 50,
		PerBreach:   10,
		BreachCap:   50,
		Critical:    30,
		Stale:       15,
		Weak:        20,
		Duplicate:   15,
		StaleAfter:  365 * 24 * time.Hour,
	}
}

// Fixed factor descriptions. Factors are appended in evaluation order.
const (
	FactorCompromised = "Marked as compromised"
	FactorCritical    = "Critical account category"
	FactorNeverCheck  = "Never checked for breaches"
	FactorNoPassword  = "No password stored"
	FactorDuplicate   = "Password reused across accounts"
)

// Scorer computes risk assessments.
type Scorer struct {
	weights  Weights
	keywords []string
}

// NewScorer creates a Scorer. A nil keyword list uses CriticalKeywords.
func NewScorer(weights Weights, keywords []string) *Scorer {
	if keywords == nil {
		keywords = CriticalKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return &Scorer{weights: weights, keywords: lowered}
}

// Assess scores cred against the full record set, which is consulted only
// for password reuse. cred itself may be part of all.
func (s *Scorer) Assess(cred model.Credential, all []model.Credential, now time.Time) model.RiskAssessment {
	reused := false
	if cred.Secret != "" {
		for _, other := range all {
			if other.ID != cred.ID && other.Secret == cred.Secret {
				reused = true
				break
			}
		}
	}
	return s.assess(cred, reused, now)
}

// AssessAll scores every record and returns the assessments keyed by ID.
func (s *Scorer) AssessAll(records []model.Credential, now time.Time) map[string]model.RiskAssessment {
	secretCount := make(map[string]int, len(records))
	for _, r := range records {
		if r.Secret != "" {
			secretCount[r.Secret]++
		}
	}

	out := make(map[string]model.RiskAssessment, len(records))
	for _, r := range records {
		reused := r.Secret != "" && secretCount[r.Secret] > 1
		out[r.ID] = s.assess(r, reused, now)
	}
	return out
}

func (s *Scorer) assess(cred model.Credential, reused bool, now time.Time) model.RiskAssessment {
	w := s.weights
	score := 0
	factors := []string{}

	if cred.Compromised == model.CompromiseCompromised {
		score += w.Compromised
		factors = append(factors, FactorCompromised)
	}

	if cred.BreachState.Breached() {
		// The cap applies after multiplying, whatever PerBreach is.
		n := cred.BreachState.BreachCount()
		score += min(n*w.PerBreach, w.BreachCap)
		factors = append(factors, fmt.Sprintf("Found in %d known breach(es)", n))
	}

	if s.isCritical(cred) {
		score += w.Critical
		factors = append(factors, FactorCritical)
	}

	switch {
	case cred.LastCheckedAt.IsZero():
		score += w.Stale
		factors = append(factors, FactorNeverCheck)
	case now.Sub(cred.LastCheckedAt) > w.StaleAfter:
		score += w.Stale
		factors = append(factors, fmt.Sprintf("Not checked in over %d days", int(w.StaleAfter.Hours()/24)))
	}

	weakness := PasswordWeakness(cred.Secret)
	if weak := int(math.Round(float64(weakness) / 100 * float64(w.Weak))); weak > 0 {
		score += weak
		if cred.Secret == "" {
			factors = append(factors, FactorNoPassword)
		} else {
			factors = append(factors, fmt.Sprintf("Weak password (weakness %d/100)", weakness))
		}
	}

	if reused {
		score += w.Duplicate
		factors = append(factors, FactorDuplicate)
	}

	score = min(max(score, 0), maxRiskScore)
	return model.RiskAssessment{
		Score:    score,
		Severity: model.SeverityForScore(score),
		Factors:  factors,
		ScoredAt: now.UTC(),
	}
}

// isCritical matches the keyword list against the record's name and URL.
func (s *Scorer) isCritical(cred model.Credential) bool {
	text := strings.ToLower(cred.Name + " " + cred.URL)
	for _, k := range s.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
