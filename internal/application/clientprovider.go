package application

import (
	"sync"

	"github.com/ericfisherdev/credaudit/internal/domain/port/driven"
)

// BreachClientProvider enables runtime hot-swap of the breach lookup client.
// It holds a mutex-protected reference to the current driven.BreachClient so
// a rotated API key takes effect without restarting a long-running watch.
type BreachClientProvider struct {
	mu     sync.RWMutex
	client driven.BreachClient
}

// NewBreachClientProvider creates a provider with the given initial client.
// client may be nil if no API key is available at startup.
func NewBreachClientProvider(client driven.BreachClient) *BreachClientProvider {
	return &BreachClientProvider{client: client}
}

// Get returns the current client. Callers should check for nil if the
// provider was created without an API key.
func (p *BreachClientProvider) Get() driven.BreachClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Replace swaps the current client. The next caller of Get receives it.
func (p *BreachClientProvider) Replace(client driven.BreachClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
}

// HasClient returns true if a non-nil client is currently held.
func (p *BreachClientProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}
