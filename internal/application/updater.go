package application

import (
	"context"
	"errors"

	"github.com/ericfisherdev/credaudit/internal/domain/model"
	"github.com/ericfisherdev/credaudit/internal/domain/port/driven"
	"github.com/ericfisherdev/credaudit/internal/logger"
)

// ClassifyLookup converts a BreachClient result into a LookupOutcome.
// Only a nil error advances an identity; every failure keeps its cause.
func ClassifyLookup(breaches []model.Breach, err error) model.LookupOutcome {
	switch {
	case err == nil && len(breaches) == 0:
		return model.LookupOutcome{Kind: model.OutcomeNotFound}
	case err == nil:
		return model.LookupOutcome{Kind: model.OutcomeFound, Breaches: breaches}
	case errors.Is(err, driven.ErrRateLimited):
		return model.LookupOutcome{Kind: model.OutcomeRateLimited, Err: err}
	default:
		return model.LookupOutcome{Kind: model.OutcomeError, Err: err}
	}
}

// UpdateApplier writes one identity's lookup outcome to every record that
// shares the identity.
type UpdateApplier struct {
	store driven.CredentialStore
	clock Clock
	log   *logger.Logger
}

// NewUpdateApplier creates an UpdateApplier.
func NewUpdateApplier(store driven.CredentialStore, clock Clock, log *logger.Logger) *UpdateApplier {
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UpdateApplier{store: store, clock: clock, log: log.Component("updater")}
}

// Apply persists outcome for identity and returns how many records changed.
// RateLimited and Error outcomes write nothing so the identity stays
// pending for the next resume pass.
func (u *UpdateApplier) Apply(ctx context.Context, identity string, outcome model.LookupOutcome) (int, error) {
	var state model.BreachState
	now := u.clock.Now()

	switch outcome.Kind {
	case model.OutcomeNotFound:
		state = model.SafeState(now)
	case model.OutcomeFound:
		state = model.BreachedState(now, outcome.Breaches)
	default:
		return 0, nil
	}

	key := model.NormalizeIdentity(identity)
	n, err := u.store.ApplyBreachState(ctx, key, state)
	if err != nil {
		return 0, err
	}

	u.log.Debug().
		Str("identity", key).
		Str("state", state.Status.String()).
		Int("breaches", state.BreachCount()).
		Int("members", n).
		Msg("breach state applied")
	return n, nil
}
