package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/credaudit/internal/application"
	"github.com/ericfisherdev/credaudit/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	Time       string `json:"time"`
	Configured bool   `json:"configured"`
}

// RiskResponse is the JSON representation of one record's risk assessment.
// Secrets are never serialized.
type RiskResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Identity    string   `json:"identity"`
	BreachState string   `json:"breach_state"`
	Breaches    int      `json:"breaches"`
	Score       *int     `json:"score"`
	Severity    string   `json:"severity,omitempty"`
	Factors     []string `json:"factors"`
	ScoredAt    string   `json:"scored_at,omitempty"`
}

// CheckResponse is the JSON body returned by a manual batch trigger.
type CheckResponse struct {
	application.RunSummary
	NeedsResume bool `json:"needs_resume"`
}

// toRiskResponse converts a record to its JSON representation. Unscored
// records carry a null score and no factors.
func toRiskResponse(c model.Credential) RiskResponse {
	resp := RiskResponse{
		ID:          c.ID,
		Name:        c.Name,
		URL:         c.URL,
		Identity:    c.Identity,
		BreachState: c.BreachState.Status.String(),
		Breaches:    c.BreachState.BreachCount(),
		Factors:     []string{},
	}
	if c.Risk != nil {
		score := c.Risk.Score
		resp.Score = &score
		resp.Severity = string(c.Risk.Severity)
		resp.Factors = append(resp.Factors, c.Risk.Factors...)
		resp.ScoredAt = c.Risk.ScoredAt.UTC().Format(time.RFC3339)
	}
	return resp
}
