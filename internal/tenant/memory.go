package tenant

import (
	"context"
	"sync"
)

// InMemoryRepository keeps tenants in a map, for tests and demo deployments.
type InMemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]Tenant
	byCode map[string]string
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:   make(map[string]Tenant),
		byCode: make(map[string]string),
	}
}

func (r *InMemoryRepository) FindByParticipantCode(_ context.Context, code string) (*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCode[code]
	if !ok {
		return nil, nil
	}
	t := r.byID[id]
	return &t, nil
}

func (r *InMemoryRepository) FindByID(_ context.Context, id string) (*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *InMemoryRepository) Upsert(_ context.Context, t Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[t.ID] = t
	r.byCode[t.ParticipantCode] = t.ID
	return nil
}
