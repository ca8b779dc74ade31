package application

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/credaudit/internal/domain/model"
	"github.com/ericfisherdev/credaudit/internal/domain/port/driven"
)

// ProgressService derives batch progress from persisted breach state.
type ProgressService struct {
	store driven.CredentialStore
}

// NewProgressService creates a ProgressService.
func NewProgressService(store driven.CredentialStore) *ProgressService {
	return &ProgressService{store: store}
}

// GetProgress counts distinct eligible identities by check state. Nothing
// is cached; every call reads the store.
func (s *ProgressService) GetProgress(ctx context.Context) (model.Progress, error) {
	total, err := s.store.CountIdentities(ctx)
	if err != nil {
		return model.Progress{}, fmt.Errorf("count identities: %w", err)
	}

	checked, breached, err := s.store.CountCheckedIdentities(ctx)
	if err != nil {
		return model.Progress{}, fmt.Errorf("count checked identities: %w", err)
	}

	return model.Progress{
		Total:     total,
		Checked:   checked,
		Breached:  breached,
		Safe:      checked - breached,
		Remaining: total - checked,
	}, nil
}
