package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks SessionStore,UserDirectory,AuditPublisher

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	accessmodels "factgate/internal/access/models"
	"factgate/internal/auth/models"
	"factgate/internal/auth/service/mocks"
	"factgate/internal/jwttoken"
	id "factgate/pkg/domain"
	dErrors "factgate/pkg/domain-errors"
	"factgate/pkg/platform/sentinel"
	"factgate/pkg/requestcontext"
	"factgate/pkg/secrets"
)

type ServiceSuite struct {
	suite.Suite
	ctrl               *gomock.Controller
	mockUsers          *mocks.MockUserDirectory
	mockSessionStore   *mocks.MockSessionStore
	mockAuditPublisher *mocks.MockAuditPublisher
	tokens             *jwttoken.Service
	service            *Service

	now          time.Time
	passwordHash string
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupSuite() {
	hash, err := secrets.Hash("s3cret-pass")
	s.Require().NoError(err)
	s.passwordHash = hash
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockUsers = mocks.NewMockUserDirectory(s.ctrl)
	s.mockSessionStore = mocks.NewMockSessionStore(s.ctrl)
	s.mockAuditPublisher = mocks.NewMockAuditPublisher(s.ctrl)
	s.tokens = jwttoken.New("unit-test-signing-key", "factgate-test")
	// Token expiry is checked against the wall clock during parsing, so the
	// injected clock is anchored to it rather than a fixed date.
	s.now = time.Now().UTC().Truncate(time.Second)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(
		s.mockUsers,
		s.mockSessionStore,
		s.tokens,
		WithLogger(logger),
		WithAuditPublisher(s.mockAuditPublisher),
		WithSessionTTL(time.Hour),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) analystCredential() *models.Credential {
	return &models.Credential{
		UserID:             id.UserID(uuid.New()),
		Email:              "analyst@acme.example.com",
		Username:           "analyst",
		PasswordHash:       s.passwordHash,
		Role:               accessmodels.RoleAnalyst,
		TenantID:           "tenant_acme",
		MaxClassification:  accessmodels.ClassificationConfidential,
		AccessibleEntities: []string{"Company_A"},
		AccessiblePeriods:  []string{"2023"},
		Permissions: []accessmodels.Permission{
			{Resource: "financial_facts", Operation: accessmodels.OperationRead},
			{Resource: "financial_facts", Operation: accessmodels.OperationWrite},
		},
	}
}

func (s *ServiceSuite) TestAuthenticate() {
	s.Run("valid credentials create a session and return a signed token", func() {
		credential := s.analystCredential()
		s.mockUsers.EXPECT().FindByIdentifier(gomock.Any(), "analyst@acme.example.com").Return(credential, nil)

		var stored *models.Session
		s.mockSessionStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, session *models.Session) error {
				stored = session
				return nil
			})
		s.mockAuditPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		result, err := s.service.Authenticate(s.ctx(), "analyst@acme.example.com", "s3cret-pass", "")
		s.Require().NoError(err)
		s.Require().True(result.Success)
		s.Empty(result.Error)
		s.NotEmpty(result.SessionToken)

		s.Require().NotNil(stored)
		s.Equal(credential.UserID, stored.UserID)
		s.Equal(id.TenantID("tenant_acme"), stored.TenantID)
		s.Equal(s.now, stored.CreatedAt)
		s.Equal(s.now.Add(time.Hour), stored.ExpiresAt)

		s.Require().NotNil(result.User)
		s.Equal(accessmodels.RoleAnalyst, result.User.Role)
		s.Equal(id.TenantID("tenant_acme"), result.User.TenantID)
		s.Equal(stored.ID, result.User.SessionID)
		s.Equal(s.now, result.User.LoginTime)

		claims, err := s.tokens.Validate(result.SessionToken)
		s.Require().NoError(err)
		s.Equal(stored.ID.String(), claims.SessionID)
	})

	s.Run("unknown identifier and wrong password fail with identical text", func() {
		credential := s.analystCredential()
		s.mockUsers.EXPECT().FindByIdentifier(gomock.Any(), "ghost@acme.example.com").Return(nil, sentinel.ErrNotFound)
		s.mockUsers.EXPECT().FindByIdentifier(gomock.Any(), "analyst@acme.example.com").Return(credential, nil)
		s.mockAuditPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		unknown, err := s.service.Authenticate(s.ctx(), "ghost@acme.example.com", "whatever", "")
		s.Require().NoError(err)
		s.False(unknown.Success)
		s.Empty(unknown.SessionToken)

		wrongPass, err := s.service.Authenticate(s.ctx(), "analyst@acme.example.com", "not-the-password", "")
		s.Require().NoError(err)
		s.False(wrongPass.Success)

		s.Equal(unknown.Error, wrongPass.Error)
		s.Equal("invalid credentials", wrongPass.Error)
	})

	s.Run("explicit tenant conflicting with directory tenant fails generically", func() {
		credential := s.analystCredential()
		s.mockUsers.EXPECT().FindByIdentifier(gomock.Any(), "analyst@acme.example.com").Return(credential, nil)
		s.mockAuditPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		result, err := s.service.Authenticate(s.ctx(), "analyst@acme.example.com", "s3cret-pass", "tenant_other")
		s.Require().NoError(err)
		s.False(result.Success)
		s.Equal("invalid credentials", result.Error)
	})

	s.Run("no directory tenant derives the tenant from the email domain", func() {
		credential := s.analystCredential()
		credential.TenantID = ""
		credential.Email = "analyst@globex.example.com"
		s.mockUsers.EXPECT().FindByIdentifier(gomock.Any(), credential.Email).Return(credential, nil)

		var stored *models.Session
		s.mockSessionStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, session *models.Session) error {
				stored = session
				return nil
			})
		s.mockAuditPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		result, err := s.service.Authenticate(s.ctx(), credential.Email, "s3cret-pass", "")
		s.Require().NoError(err)
		s.True(result.Success)
		s.Equal(id.TenantID("tenant_globex"), stored.TenantID)
		s.Equal(id.TenantID("tenant_globex"), result.User.TenantID)
	})

	s.Run("admin without a tenant stays global", func() {
		credential := s.analystCredential()
		credential.TenantID = ""
		credential.Role = accessmodels.RoleAdmin
		s.mockUsers.EXPECT().FindByIdentifier(gomock.Any(), credential.Email).Return(credential, nil)
		s.mockSessionStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.mockAuditPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		result, err := s.service.Authenticate(s.ctx(), credential.Email, "s3cret-pass", "")
		s.Require().NoError(err)
		s.True(result.Success)
		s.True(result.User.TenantID.IsGlobal())
	})

	s.Run("session store failure is an internal error, not an auth failure", func() {
		credential := s.analystCredential()
		s.mockUsers.EXPECT().FindByIdentifier(gomock.Any(), "analyst@acme.example.com").Return(credential, nil)
		s.mockSessionStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(assert.AnError)

		result, err := s.service.Authenticate(s.ctx(), "analyst@acme.example.com", "s3cret-pass", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.Nil(result)
	})

	s.Run("directory lookup failure is an internal error", func() {
		s.mockUsers.EXPECT().FindByIdentifier(gomock.Any(), "analyst@acme.example.com").Return(nil, assert.AnError)

		_, err := s.service.Authenticate(s.ctx(), "analyst@acme.example.com", "s3cret-pass", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

// issueSession builds a consistent session record plus a token signed for it.
func (s *ServiceSuite) issueSession(credential *models.Credential) (*models.Session, string) {
	session := &models.Session{
		ID:           id.SessionID(uuid.New()),
		TenantID:     credential.TenantID,
		UserID:       credential.UserID,
		UserEmail:    credential.Email,
		Permissions:  accessmodels.EncodePermissions(credential.Permissions),
		CreatedAt:    s.now.Add(-10 * time.Minute),
		ExpiresAt:    s.now.Add(50 * time.Minute),
		LastActivity: s.now.Add(-10 * time.Minute),
		Status:       models.SessionStatusActive,
	}
	token, err := s.tokens.Generate(session.ID, session.TenantID, session.UserID, session.Permissions, session.CreatedAt, session.ExpiresAt)
	s.Require().NoError(err)
	return session, token
}

func (s *ServiceSuite) TestValidateSession() {
	s.Run("valid token with live session rebuilds the user context", func() {
		credential := s.analystCredential()
		session, token := s.issueSession(credential)

		s.mockSessionStore.EXPECT().FindByID(gomock.Any(), session.ID).Return(session, nil)
		s.mockSessionStore.EXPECT().Touch(gomock.Any(), session.ID, s.now).Return(nil)
		s.mockUsers.EXPECT().FindByID(gomock.Any(), credential.UserID).Return(credential, nil)

		user, err := s.service.ValidateSession(s.ctx(), token)
		s.Require().NoError(err)
		s.Equal(credential.UserID, user.UserID)
		s.Equal(session.ID, user.SessionID)
		s.Equal(session.TenantID, user.TenantID)
		s.Equal(session.CreatedAt, user.LoginTime)
	})

	s.Run("tampered token is unauthorized without touching the store", func() {
		credential := s.analystCredential()
		_, token := s.issueSession(credential)

		_, err := s.service.ValidateSession(s.ctx(), token+"x")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("token signed with another key is unauthorized", func() {
		credential := s.analystCredential()
		session, _ := s.issueSession(credential)
		foreign := jwttoken.New("some-other-key", "factgate-test")
		token, err := foreign.Generate(session.ID, session.TenantID, session.UserID, nil, session.CreatedAt, session.ExpiresAt)
		s.Require().NoError(err)

		_, err = s.service.ValidateSession(s.ctx(), token)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("revoked session is unauthorized even with a valid signature", func() {
		credential := s.analystCredential()
		session, token := s.issueSession(credential)
		s.mockSessionStore.EXPECT().FindByID(gomock.Any(), session.ID).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.ValidateSession(s.ctx(), token)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("expired session record is removed and rejected", func() {
		credential := s.analystCredential()
		session, token := s.issueSession(credential)
		session.ExpiresAt = s.now.Add(-time.Minute)

		s.mockSessionStore.EXPECT().FindByID(gomock.Any(), session.ID).Return(session, nil)
		s.mockSessionStore.EXPECT().Delete(gomock.Any(), session.ID).Return(nil)

		_, err := s.service.ValidateSession(s.ctx(), token)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("store failure is internal, not unauthorized", func() {
		credential := s.analystCredential()
		session, token := s.issueSession(credential)
		s.mockSessionStore.EXPECT().FindByID(gomock.Any(), session.ID).Return(nil, sentinel.ErrUnavailable)

		_, err := s.service.ValidateSession(s.ctx(), token)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.False(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("activity refresh failure does not fail validation", func() {
		credential := s.analystCredential()
		session, token := s.issueSession(credential)

		s.mockSessionStore.EXPECT().FindByID(gomock.Any(), session.ID).Return(session, nil)
		s.mockSessionStore.EXPECT().Touch(gomock.Any(), session.ID, s.now).Return(assert.AnError)
		s.mockUsers.EXPECT().FindByID(gomock.Any(), credential.UserID).Return(credential, nil)

		_, err := s.service.ValidateSession(s.ctx(), token)
		s.Require().NoError(err)
	})
}

func (s *ServiceSuite) TestLogout() {
	s.Run("first logout revokes and reports true, second reports false", func() {
		credential := s.analystCredential()
		session, token := s.issueSession(credential)

		s.mockSessionStore.EXPECT().FindByID(gomock.Any(), session.ID).Return(session, nil)
		s.mockSessionStore.EXPECT().Delete(gomock.Any(), session.ID).Return(nil)
		s.mockAuditPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		revoked, err := s.service.Logout(s.ctx(), token)
		s.Require().NoError(err)
		s.True(revoked)

		s.mockSessionStore.EXPECT().FindByID(gomock.Any(), session.ID).Return(nil, sentinel.ErrNotFound)

		revoked, err = s.service.Logout(s.ctx(), token)
		s.Require().NoError(err)
		s.False(revoked)
	})

	s.Run("malformed token reports false without error", func() {
		revoked, err := s.service.Logout(s.ctx(), "not-a-token")
		s.Require().NoError(err)
		s.False(revoked)
	})

	s.Run("store failure during revocation is an internal error", func() {
		credential := s.analystCredential()
		session, token := s.issueSession(credential)

		s.mockSessionStore.EXPECT().FindByID(gomock.Any(), session.ID).Return(session, nil)
		s.mockSessionStore.EXPECT().Delete(gomock.Any(), session.ID).Return(sentinel.ErrUnavailable)

		_, err := s.service.Logout(s.ctx(), token)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestCleanupExpiredSessions() {
	s.Run("returns the exact removed count and audits a nonzero sweep", func() {
		s.mockSessionStore.EXPECT().DeleteExpired(gomock.Any(), s.now).Return(3, nil)
		s.mockAuditPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		removed, err := s.service.CleanupExpiredSessions(s.ctx())
		s.Require().NoError(err)
		s.Equal(3, removed)
	})

	s.Run("zero removals emit no audit event", func() {
		s.mockSessionStore.EXPECT().DeleteExpired(gomock.Any(), s.now).Return(0, nil)

		removed, err := s.service.CleanupExpiredSessions(s.ctx())
		s.Require().NoError(err)
		s.Zero(removed)
	})

	s.Run("store failure is an internal error", func() {
		s.mockSessionStore.EXPECT().DeleteExpired(gomock.Any(), s.now).Return(0, assert.AnError)

		_, err := s.service.CleanupExpiredSessions(s.ctx())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestHasActiveSession() {
	userID := id.UserID(uuid.New())
	s.mockSessionStore.EXPECT().HasActiveForUser(gomock.Any(), id.TenantID("tenant_acme"), userID, s.now).Return(true, nil)

	active, err := s.service.HasActiveSession(s.ctx(), "tenant_acme", userID)
	s.Require().NoError(err)
	s.True(active)
}
