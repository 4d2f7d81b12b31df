package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"factgate/internal/auth/models"
	id "factgate/pkg/domain"
	"factgate/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite

	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func (s *MemoryStoreSuite) session(ttl time.Duration) *models.Session {
	return &models.Session{
		ID:           id.SessionID(uuid.New()),
		TenantID:     id.TenantID("tenant_acme"),
		UserID:       id.UserID(uuid.New()),
		UserEmail:    "jordan@acme.example",
		Permissions:  []string{"financial_facts:read"},
		CreatedAt:    s.now,
		ExpiresAt:    s.now.Add(ttl),
		LastActivity: s.now,
		Status:       models.SessionStatusCreated,
	}
}

func (s *MemoryStoreSuite) TestCreateAndFind() {
	s.Run("round trip returns an equal copy", func() {
		session := s.session(time.Hour)
		s.Require().NoError(s.store.Create(s.ctx, session))

		found, err := s.store.FindByID(s.ctx, session.ID)
		s.Require().NoError(err)
		s.Equal(session, found)
	})

	s.Run("returned session is a copy, not shared memory", func() {
		session := s.session(time.Hour)
		s.Require().NoError(s.store.Create(s.ctx, session))

		found, err := s.store.FindByID(s.ctx, session.ID)
		s.Require().NoError(err)
		found.UserEmail = "tampered@acme.example"

		again, err := s.store.FindByID(s.ctx, session.ID)
		s.Require().NoError(err)
		s.Equal("jordan@acme.example", again.UserEmail)
	})

	s.Run("duplicate id conflicts", func() {
		session := s.session(time.Hour)
		s.Require().NoError(s.store.Create(s.ctx, session))
		err := s.store.Create(s.ctx, session)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.FindByID(s.ctx, id.SessionID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestTouch() {
	s.Run("refreshes activity and activates", func() {
		session := s.session(time.Hour)
		s.Require().NoError(s.store.Create(s.ctx, session))

		later := s.now.Add(10 * time.Minute)
		s.Require().NoError(s.store.Touch(s.ctx, session.ID, later))

		found, err := s.store.FindByID(s.ctx, session.ID)
		s.Require().NoError(err)
		s.Equal(later, found.LastActivity)
		s.Equal(models.SessionStatusActive, found.Status)
	})

	s.Run("unknown id is not found", func() {
		err := s.store.Touch(s.ctx, id.SessionID(uuid.New()), s.now)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestDelete() {
	s.Run("removes the record once", func() {
		session := s.session(time.Hour)
		s.Require().NoError(s.store.Create(s.ctx, session))

		s.Require().NoError(s.store.Delete(s.ctx, session.ID))
		s.ErrorIs(s.store.Delete(s.ctx, session.ID), sentinel.ErrNotFound)

		_, err := s.store.FindByID(s.ctx, session.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestDeleteExpired() {
	s.Run("removes exactly the expired records and counts them", func() {
		expired1 := s.session(time.Minute)
		expired2 := s.session(30 * time.Minute)
		live := s.session(2 * time.Hour)
		for _, session := range []*models.Session{expired1, expired2, live} {
			s.Require().NoError(s.store.Create(s.ctx, session))
		}

		removed, err := s.store.DeleteExpired(s.ctx, s.now.Add(time.Hour))
		s.Require().NoError(err)
		s.Equal(2, removed)

		_, err = s.store.FindByID(s.ctx, live.ID)
		s.NoError(err)
		_, err = s.store.FindByID(s.ctx, expired1.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("session expiring exactly now survives", func() {
		edge := s.session(time.Hour)
		s.Require().NoError(s.store.Create(s.ctx, edge))

		removed, err := s.store.DeleteExpired(s.ctx, s.now.Add(time.Hour))
		s.Require().NoError(err)
		s.Equal(0, removed)
	})

	s.Run("empty store sweeps zero", func() {
		removed, err := New().DeleteExpired(s.ctx, s.now)
		s.Require().NoError(err)
		s.Equal(0, removed)
	})
}

func (s *MemoryStoreSuite) TestHasActiveForUser() {
	session := s.session(time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, session))

	s.Run("live session in tenant is active", func() {
		active, err := s.store.HasActiveForUser(s.ctx, session.TenantID, session.UserID, s.now)
		s.Require().NoError(err)
		s.True(active)
	})

	s.Run("wrong tenant does not count", func() {
		active, err := s.store.HasActiveForUser(s.ctx, id.TenantID("tenant_globex"), session.UserID, s.now)
		s.Require().NoError(err)
		s.False(active)
	})

	s.Run("expired session does not count", func() {
		active, err := s.store.HasActiveForUser(s.ctx, session.TenantID, session.UserID, s.now.Add(2*time.Hour))
		s.Require().NoError(err)
		s.False(active)
	})
}
