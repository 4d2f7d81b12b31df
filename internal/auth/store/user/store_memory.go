// Package user provides the credential directory: the stored identity
// profiles authentication resolves identifiers against.
package user

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"factgate/internal/auth/models"
	id "factgate/pkg/domain"
	"factgate/pkg/platform/sentinel"
)

// InMemoryStore keeps credentials in memory, indexed by both user ID and
// lowercased email. Email lookups are case-insensitive because identifiers
// arrive from login forms.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.UserID]*models.Credential
	byEmail map[string]*models.Credential
}

func New() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.UserID]*models.Credential),
		byEmail: make(map[string]*models.Credential),
	}
}

func (s *InMemoryStore) Save(_ context.Context, credential *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(credential.Email)
	if existing, ok := s.byEmail[key]; ok && existing.UserID != credential.UserID {
		return fmt.Errorf("email %s: %w", credential.Email, sentinel.ErrConflict)
	}
	copied := *credential
	s.byID[credential.UserID] = &copied
	s.byEmail[key] = &copied
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	credential, ok := s.byID[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	copied := *credential
	return &copied, nil
}

// FindByIdentifier resolves a login identifier. Usernames without an "@" are
// matched against the stored username field.
func (s *InMemoryStore) FindByIdentifier(_ context.Context, identifier string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if credential, ok := s.byEmail[strings.ToLower(identifier)]; ok {
		copied := *credential
		return &copied, nil
	}
	for _, credential := range s.byID {
		if strings.EqualFold(credential.Username, identifier) {
			copied := *credential
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("identifier %q: %w", identifier, sentinel.ErrNotFound)
}

// CountByTenant supports tenant usage reporting.
func (s *InMemoryStore) CountByTenant(_ context.Context, tenantID id.TenantID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, credential := range s.byID {
		if credential.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}
