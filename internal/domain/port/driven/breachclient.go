// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"
	"fmt"

	"github.com/ericfisherdev/credaudit/internal/domain/model"
)

var (
	// ErrNotConfigured is returned when a run needs lookups but no API key is set.
	ErrNotConfigured = errors.New("breach lookup not configured: set CREDAUDIT_HIBP_API_KEY")

	// ErrUnauthorized is returned when the breach service rejects the API key.
	ErrUnauthorized = errors.New("breach service rejected the API key")

	// ErrRateLimited is returned when the service kept answering 429 after all
	// retry attempts were spent.
	ErrRateLimited = errors.New("breach service rate limit exceeded")
)

// LookupError is a transport or protocol failure for one identity.
// StatusCode is zero when no HTTP response was received.
type LookupError struct {
	Identity   string
	StatusCode int
	Err        error
}

func (e *LookupError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("lookup %s: http %d: %v", e.Identity, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("lookup %s: %v", e.Identity, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// BreachClient defines the driven port for the external breach-intelligence service.
type BreachClient interface {
	// Lookup returns the breaches recorded for one normalized identity.
	// A nil slice with a nil error means the identity has no known breaches.
	// Rate limiting that survives the client's own retries is reported as
	// ErrRateLimited; a rejected key as ErrUnauthorized; anything else as
	// a *LookupError.
	Lookup(ctx context.Context, identity string) ([]model.Breach, error)
}
