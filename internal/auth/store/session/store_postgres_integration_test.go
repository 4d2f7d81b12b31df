//go:build integration

package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"factgate/internal/auth/models"
	"factgate/internal/auth/store/session"
	id "factgate/pkg/domain"
	"factgate/pkg/platform/sentinel"
	"factgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *session.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = session.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "sessions"))
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) session(ttl time.Duration) *models.Session {
	return &models.Session{
		ID:           id.SessionID(uuid.New()),
		TenantID:     "tenant_acme",
		UserID:       id.UserID(uuid.New()),
		UserEmail:    "jordan@acme.example",
		Permissions:  []string{"financial_facts:read", "financial_facts:write"},
		CreatedAt:    s.now,
		ExpiresAt:    s.now.Add(ttl),
		IPAddress:    "203.0.113.7",
		UserAgent:    "factgate-test/1.0",
		Device:       "Other",
		LastActivity: s.now,
		Status:       models.SessionStatusCreated,
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	created := s.session(time.Hour)
	s.Require().NoError(s.store.Create(ctx, created))

	found, err := s.store.FindByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.TenantID, found.TenantID)
	s.Equal(created.UserID, found.UserID)
	s.Equal(created.Permissions, found.Permissions)
	s.WithinDuration(created.ExpiresAt, found.ExpiresAt, time.Millisecond)
	s.Equal(models.SessionStatusCreated, found.Status)
}

func (s *PostgresStoreSuite) TestConcurrentCreateSameID() {
	ctx := context.Background()
	template := s.session(time.Hour)
	const goroutines = 20

	var wg sync.WaitGroup
	var successes, conflicts atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			copied := *template
			switch err := s.store.Create(ctx, &copied); {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestTouchAndDelete() {
	ctx := context.Background()
	created := s.session(time.Hour)
	s.Require().NoError(s.store.Create(ctx, created))

	later := s.now.Add(10 * time.Minute)
	s.Require().NoError(s.store.Touch(ctx, created.ID, later))
	found, err := s.store.FindByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(models.SessionStatusActive, found.Status)
	s.WithinDuration(later, found.LastActivity, time.Millisecond)

	s.Require().NoError(s.store.Delete(ctx, created.ID))
	s.ErrorIs(s.store.Delete(ctx, created.ID), sentinel.ErrNotFound)
	_, err = s.store.FindByID(ctx, created.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDeleteExpiredCountsExactly() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.Create(ctx, s.session(time.Minute)))
	}
	live := s.session(2 * time.Hour)
	s.Require().NoError(s.store.Create(ctx, live))

	removed, err := s.store.DeleteExpired(ctx, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(3, removed)

	_, err = s.store.FindByID(ctx, live.ID)
	s.NoError(err)
}

func (s *PostgresStoreSuite) TestHasActiveForUser() {
	ctx := context.Background()
	created := s.session(time.Hour)
	s.Require().NoError(s.store.Create(ctx, created))

	active, err := s.store.HasActiveForUser(ctx, created.TenantID, created.UserID, s.now)
	s.Require().NoError(err)
	s.True(active)

	active, err = s.store.HasActiveForUser(ctx, "tenant_globex", created.UserID, s.now)
	s.Require().NoError(err)
	s.False(active)

	active, err = s.store.HasActiveForUser(ctx, created.TenantID, created.UserID, s.now.Add(2*time.Hour))
	s.Require().NoError(err)
	s.False(active)
}
