package app

import (
	"sync"

	"github.com/fd1az/dexarb/business/venue/domain"
	"github.com/fd1az/dexarb/internal/apperror"
)

// Registry holds the configured venues, keyed by venue identifier. Providers
// and executors are registered at startup and read concurrently afterwards.
type Registry struct {
	mu        sync.RWMutex
	providers map[domain.VenueID]QuoteProvider
	executors map[domain.VenueID]SwapExecutor
	order     []domain.VenueID
}

// NewRegistry creates an empty venue registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[domain.VenueID]QuoteProvider),
		executors: make(map[domain.VenueID]SwapExecutor),
	}
}

// RegisterProvider adds a quote provider. Registration order is preserved
// for deterministic scan fan-out.
func (r *Registry) RegisterProvider(p QuoteProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	if _, exists := r.providers[id]; !exists {
		r.order = append(r.order, id)
	}
	r.providers[id] = p
}

// RegisterExecutor adds a swap executor for a venue.
func (r *Registry) RegisterExecutor(e SwapExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[e.ID()] = e
}

// Provider returns the quote provider for a venue.
func (r *Registry) Provider(id domain.VenueID) (QuoteProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	if !ok {
		return nil, apperror.New(apperror.CodeVenueNotRegistered,
			apperror.WithContext("no quote provider for venue "+id.String()))
	}
	return p, nil
}

// Executor returns the swap executor for a venue.
func (r *Registry) Executor(id domain.VenueID) (SwapExecutor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.executors[id]
	if !ok {
		return nil, apperror.New(apperror.CodeVenueNotRegistered,
			apperror.WithContext("no swap executor for venue "+id.String()))
	}
	return e, nil
}

// Providers returns all registered providers in registration order.
func (r *Registry) Providers() []QuoteProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]QuoteProvider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}

// VenueIDs returns the registered venue identifiers in registration order.
func (r *Registry) VenueIDs() []domain.VenueID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.VenueID, len(r.order))
	copy(out, r.order)
	return out
}

// Count returns the number of registered quote providers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
