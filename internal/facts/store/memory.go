// Package store persists fact rows. The in-memory table backs tests and
// single-process deployments.
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"factgate/internal/facts/models"
	"factgate/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded fact table. Scans return copies.
type InMemory struct {
	mu    sync.RWMutex
	facts map[uuid.UUID]*models.Fact
}

func NewInMemory() *InMemory {
	return &InMemory{facts: make(map[uuid.UUID]*models.Fact)}
}

func (s *InMemory) Insert(ctx context.Context, fact *models.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.facts[fact.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := *fact
	s.facts[fact.ID] = &stored
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, factID uuid.UUID) (*models.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fact, ok := s.facts[factID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *fact
	return &found, nil
}

func (s *InMemory) Delete(ctx context.Context, factID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.facts[factID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.facts, factID)
	return nil
}

// Scan calls keep for every row and returns the copies it accepted.
func (s *InMemory) Scan(ctx context.Context, keep func(*models.Fact) bool) ([]*models.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Fact
	for _, fact := range s.facts {
		if keep(fact) {
			found := *fact
			matched = append(matched, &found)
		}
	}
	return matched, nil
}

func (s *InMemory) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, fact := range s.facts {
		if string(fact.TenantID) == tenantID {
			n++
		}
	}
	return n, nil
}
