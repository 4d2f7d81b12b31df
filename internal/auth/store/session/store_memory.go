// Package session provides the keyed session stores. All implementations
// honor the same contract: sentinel errors at the boundary, atomic
// create-if-absent, and a sweep that deletes exactly the records expired at
// the given instant and reports the count.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"factgate/internal/auth/models"
	id "factgate/pkg/domain"
	"factgate/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in a mutex-guarded map for tests and dev.
// Sessions are copied on both write and read so callers never share memory
// with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
}

func New() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[id.SessionID]*models.Session)}
}

// Create stores the session, failing if the ID is already present. The check
// and insert happen under one lock so concurrent logins for the same ID can
// never interleave into a half-written record.
func (s *InMemoryStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrConflict)
	}
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	copied := *session
	return &copied, nil
}

// Touch refreshes last-activity and marks the session active.
func (s *InMemoryStore) Touch(_ context.Context, sessionID id.SessionID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	session.LastActivity = now
	session.Status = models.SessionStatusActive
	return nil
}

// Delete removes the session. Absence is reported as ErrNotFound so logout
// can stay idempotent without treating it as a failure.
func (s *InMemoryStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	delete(s.sessions, sessionID)
	return nil
}

// DeleteExpired removes every session with expires_at < now and returns the
// exact count removed. Safe to run concurrently with live traffic.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key, session := range s.sessions {
		if session.IsExpired(now) {
			delete(s.sessions, key)
			deleted++
		}
	}
	return deleted, nil
}

// HasActiveForUser reports whether the user holds at least one unexpired
// session inside the tenant. Used by the tenant facade's liveness check.
func (s *InMemoryStore) HasActiveForUser(_ context.Context, tenantID id.TenantID, userID id.UserID, now time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.TenantID == tenantID && session.UserID == userID && !session.IsExpired(now) {
			return true, nil
		}
	}
	return false, nil
}
