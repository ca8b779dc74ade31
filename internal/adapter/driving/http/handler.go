// Package httphandler is the HTTP driving adapter serving the status API.
package httphandler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ericfisherdev/credaudit/internal/application"
	"github.com/ericfisherdev/credaudit/internal/domain/model"
	"github.com/ericfisherdev/credaudit/internal/domain/port/driven"
	"github.com/ericfisherdev/credaudit/internal/logger"
)

// ProgressReader reports breach-check progress.
type ProgressReader interface {
	GetProgress(ctx context.Context) (model.Progress, error)
}

// RiskReader reads records with their last stored risk assessment.
type RiskReader interface {
	ListAssessed(ctx context.Context) ([]model.Credential, error)
	GetAssessed(ctx context.Context, id string) (*model.Credential, error)
}

// BatchTrigger runs a resume batch on demand.
type BatchTrigger interface {
	Trigger(ctx context.Context) (application.RunSummary, error)
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	progress ProgressReader
	risk     RiskReader
	batch    BatchTrigger
	provider *application.BreachClientProvider
	log      *logger.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	progress ProgressReader,
	risk RiskReader,
	batch BatchTrigger,
	provider *application.BreachClientProvider,
	log *logger.Logger,
) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		progress: progress,
		risk:     risk,
		batch:    batch,
		provider: provider,
		log:      log.Component("http"),
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/progress", h.GetProgress)
	mux.HandleFunc("GET /api/v1/risk", h.ListRisk)
	mux.HandleFunc("GET /api/v1/risk/{id}", h.GetRisk)
	mux.HandleFunc("POST /api/v1/check", h.TriggerCheck)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(mux)
	wrapped = loggingMiddleware(h.log, wrapped)

	return wrapped
}

// Health reports liveness and whether breach lookups are configured.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339),
		Configured: h.provider != nil && h.provider.HasClient(),
	})
}

// GetProgress returns the current breach-check progress.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.progress.GetProgress(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("failed to read progress")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

// ListRisk returns every record with its stored risk assessment.
func (h *Handler) ListRisk(w http.ResponseWriter, r *http.Request) {
	records, err := h.risk.ListAssessed(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("failed to list risk assessments")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RiskResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toRiskResponse(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRisk returns one record with its stored risk assessment.
func (h *Handler) GetRisk(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	record, err := h.risk.GetAssessed(r.Context(), id)
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Str("record_id", id).Msg("failed to read risk assessment")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}

	writeJSON(w, http.StatusOK, toRiskResponse(*record))
}

// TriggerCheck runs one resume batch and returns its summary.
func (h *Handler) TriggerCheck(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	summary, err := h.batch.Trigger(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, CheckResponse{RunSummary: summary, NeedsResume: summary.NeedsResume()})
	case errors.Is(err, driven.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, driven.ErrUnauthorized):
		log.Error().Err(err).Msg("breach service rejected the API key")
		writeError(w, http.StatusBadGateway, "breach service rejected the API key")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "batch run did not complete")
	default:
		log.Error().Err(err).Msg("manual batch run failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
