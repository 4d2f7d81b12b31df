// Package tenant provides tenant persistence. The in-memory implementation
// backs tests and single-process deployments.
package tenant

import (
	"context"
	"strings"
	"sync"

	"factgate/internal/tenant/models"
	id "factgate/pkg/domain"
	"factgate/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded tenant store. Name uniqueness is
// case-insensitive. All reads return copies so callers cannot mutate stored
// state without going through Update or Execute.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[id.TenantID]*models.Tenant
	nameIdx map[string]id.TenantID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[id.TenantID]*models.Tenant),
		nameIdx: make(map[string]id.TenantID),
	}
}

// CreateIfNameAvailable atomically claims the tenant id and name. Returns
// sentinel.ErrConflict for a duplicate id and sentinel.ErrAlreadyUsed for a
// duplicate name.
func (s *InMemory) CreateIfNameAvailable(ctx context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[tenant.ID]; exists {
		return sentinel.ErrConflict
	}
	nameKey := strings.ToLower(tenant.Name)
	if _, taken := s.nameIdx[nameKey]; taken {
		return sentinel.ErrAlreadyUsed
	}

	stored := *tenant
	s.byID[tenant.ID] = &stored
	s.nameIdx[nameKey] = tenant.ID
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenant, ok := s.byID[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *tenant
	return &found, nil
}

func (s *InMemory) FindByName(ctx context.Context, name string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID, ok := s.nameIdx[strings.ToLower(name)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *s.byID[tenantID]
	return &found, nil
}

func (s *InMemory) Update(ctx context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[tenant.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !strings.EqualFold(current.Name, tenant.Name) {
		delete(s.nameIdx, strings.ToLower(current.Name))
		s.nameIdx[strings.ToLower(tenant.Name)] = tenant.ID
	}
	stored := *tenant
	s.byID[tenant.ID] = &stored
	return nil
}

// Execute runs validate then mutate on the tenant while holding the store
// lock, so status transitions are atomic against concurrent writers. The
// returned tenant is a copy of the post-mutation state.
func (s *InMemory) Execute(ctx context.Context, tenantID id.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, ok := s.byID[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(tenant); err != nil {
		return nil, err
	}
	mutate(tenant)
	updated := *tenant
	return &updated, nil
}

func (s *InMemory) List(ctx context.Context) ([]*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenants := make([]*models.Tenant, 0, len(s.byID))
	for _, tenant := range s.byID {
		found := *tenant
		tenants = append(tenants, &found)
	}
	return tenants, nil
}

func (s *InMemory) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}
