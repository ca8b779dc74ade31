package application

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/credaudit/internal/domain/model"
	"github.com/ericfisherdev/credaudit/internal/domain/port/driven"
	"github.com/ericfisherdev/credaudit/internal/logger"
)

// RiskService runs scoring passes over the whole record set.
type RiskService struct {
	store  driven.CredentialStore
	scorer *Scorer
	clock  Clock
	log    *logger.Logger
}

// NewRiskService creates a RiskService.
func NewRiskService(store driven.CredentialStore, scorer *Scorer, clock Clock, log *logger.Logger) *RiskService {
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RiskService{store: store, scorer: scorer, clock: clock, log: log.Component("risk")}
}

// ScoreAll reads every record, recomputes every assessment, writes them back
// in one transaction and returns the records with their new assessments.
func (s *RiskService) ScoreAll(ctx context.Context) ([]model.Credential, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	assessments := s.scorer.AssessAll(records, s.clock.Now())
	if err := s.store.SaveRiskAssessments(ctx, assessments); err != nil {
		return nil, fmt.Errorf("save risk assessments: %w", err)
	}

	counts := make(map[model.Severity]int, 4)
	for i := range records {
		a := assessments[records[i].ID]
		records[i].Risk = &a
		counts[a.Severity]++
	}

	s.log.Info().
		Int("records", len(records)).
		Int("critical", counts[model.SeverityCritical]).
		Int("high", counts[model.SeverityHigh]).
		Int("medium", counts[model.SeverityMedium]).
		Int("low", counts[model.SeverityLow]).
		Msg("risk scoring complete")

	return records, nil
}

// ListAssessed returns every record with whatever assessment was last stored.
func (s *RiskService) ListAssessed(ctx context.Context) ([]model.Credential, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// GetAssessed returns one record with its last stored assessment, or nil
// when no record has the given ID.
func (s *RiskService) GetAssessed(ctx context.Context, id string) (*model.Credential, error) {
	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	return record, nil
}
