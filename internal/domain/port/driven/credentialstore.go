package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/credaudit/internal/domain/model"
)

// ErrPersistence wraps failures to durably write breach-check state.
var ErrPersistence = errors.New("persist breach state")

// CredentialStore defines the driven port for credential record persistence.
type CredentialStore interface {
	// Insert stores a new record, assigning an ID when empty, and returns it.
	Insert(ctx context.Context, cred model.Credential) (model.Credential, error)
	// GetByID returns a record or nil when it does not exist.
	GetByID(ctx context.Context, id string) (*model.Credential, error)
	// ListAll returns every record ordered by ID.
	ListAll(ctx context.Context) ([]model.Credential, error)
	// ListEligible returns records whose identity looks like an email.
	ListEligible(ctx context.Context) ([]model.Credential, error)

	// ApplyBreachState writes state to every record whose normalized identity
	// equals identity in a single transaction, and returns how many records
	// were updated. Failures wrap ErrPersistence and leave no record changed.
	ApplyBreachState(ctx context.Context, identity string, state model.BreachState) (int, error)

	// CountIdentities returns the number of distinct eligible identities.
	CountIdentities(ctx context.Context) (int, error)
	// CountCheckedIdentities returns the number of distinct eligible identities
	// with a checked state, and how many of those are breached.
	CountCheckedIdentities(ctx context.Context) (checked, breached int, err error)
	// UncheckedIdentities returns the distinct eligible identities that have at
	// least one member without a checked state, in alphabetical order.
	UncheckedIdentities(ctx context.Context) ([]string, error)

	// SaveRiskAssessments replaces the risk fields of the given records,
	// keyed by record ID, in a single transaction.
	SaveRiskAssessments(ctx context.Context, assessments map[string]model.RiskAssessment) error
}
