package coordinate

import (
	"sync"

	"parley/internal/domain"
)

// Registry holds specialist agents in registration order. Order matters:
// dispatch is first-match, so two specialists that both accept a task are
// disambiguated by who registered first. The registry is effectively
// read-only after startup; the lock covers late registrations in tests.
type Registry struct {
	mu          sync.RWMutex
	specialists []domain.Specialist
	names       map[string]bool
}

// NewRegistry creates an empty specialist registry.
func NewRegistry() *Registry {
	return &Registry{names: map[string]bool{}}
}

// Register appends a specialist. Duplicate names are rejected.
func (r *Registry) Register(s domain.Specialist) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.names[s.Name()] {
		return domain.NewDomainError("Registry.Register", domain.ErrInvalidInput, "duplicate specialist "+s.Name())
	}
	r.names[s.Name()] = true
	r.specialists = append(r.specialists, s)
	return nil
}

// SelectFor polls every specialist's capability probe in registration order
// and returns the first affirmative.
func (r *Registry) SelectFor(task *domain.Task) (domain.Specialist, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.specialists {
		if s.CanHandle(task) {
			return s, true
		}
	}
	return nil, false
}

// Names returns specialist names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.specialists))
	for i, s := range r.specialists {
		out[i] = s.Name()
	}
	return out
}

// Len returns the number of registered specialists.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specialists)
}
