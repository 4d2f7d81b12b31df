// Package service implements authentication: credential verification, session
// issuance with signed tokens, hybrid stateless+stateful validation, and the
// expired-session sweep.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	accessmodels "factgate/internal/access/models"
	"factgate/internal/auth/device"
	authmetrics "factgate/internal/auth/metrics"
	"factgate/internal/auth/models"
	"factgate/internal/jwttoken"
	id "factgate/pkg/domain"
	dErrors "factgate/pkg/domain-errors"
	"factgate/pkg/email"
	"factgate/pkg/platform/audit"
	"factgate/pkg/platform/sentinel"
	"factgate/pkg/requestcontext"
	"factgate/pkg/secrets"
)

// errInvalidCredentials is the single failure text for authentication: an
// unknown identifier and a wrong password are deliberately indistinguishable.
const errInvalidCredentials = "invalid credentials"

const (
	defaultSessionTTL   = 8 * time.Hour
	defaultStoreTimeout = 3 * time.Second
)

// SessionStore is the keyed session persistence contract. Implementations
// return sentinel errors and guarantee atomic create-if-absent.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Touch(ctx context.Context, sessionID id.SessionID, now time.Time) error
	Delete(ctx context.Context, sessionID id.SessionID) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	HasActiveForUser(ctx context.Context, tenantID id.TenantID, userID id.UserID, now time.Time) (bool, error)
}

// UserDirectory resolves login identifiers to stored credential profiles.
type UserDirectory interface {
	FindByIdentifier(ctx context.Context, identifier string) (*models.Credential, error)
	FindByID(ctx context.Context, userID id.UserID) (*models.Credential, error)
	Save(ctx context.Context, credential *models.Credential) error
}

// AuditPublisher is the sink for authentication events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service performs authentication against a user directory and manages the
// session lifecycle. One instance is constructed at process start.
type Service struct {
	users    UserDirectory
	sessions SessionStore
	tokens   *jwttoken.Service

	sessionTTL   time.Duration
	storeTimeout time.Duration

	logger  *slog.Logger
	audit   AuditPublisher
	metrics *authmetrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithMetrics(m *authmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) { s.sessionTTL = ttl }
}

// WithStoreTimeout bounds every session-store access. Callers embedding this
// core behind a UI must still treat authentication as slow I/O.
func WithStoreTimeout(timeout time.Duration) Option {
	return func(s *Service) { s.storeTimeout = timeout }
}

func New(users UserDirectory, sessions SessionStore, tokens *jwttoken.Service, opts ...Option) *Service {
	s := &Service{
		users:        users,
		sessions:     sessions,
		tokens:       tokens,
		sessionTTL:   defaultSessionTTL,
		storeTimeout: defaultStoreTimeout,
		logger:       slog.Default(),
		tracer:       otel.Tracer("factgate/auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate verifies credentials and, on success, creates a session and
// returns the signed token plus the materialized UserContext.
//
// Failures are structured results: the Error text never distinguishes an
// unknown identifier from a wrong password, and the unknown-identifier branch
// burns a bcrypt comparison so timing does not leak the difference either.
// The returned error is reserved for infrastructure faults.
func (s *Service) Authenticate(ctx context.Context, identifier, password string, tenantID id.TenantID) (*models.AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "auth.authenticate")
	defer span.End()

	now := requestcontext.Now(ctx)

	credential, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			secrets.BurnCompare(password)
			return s.authFailure(ctx, identifier, "unknown_identifier"), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "credential lookup failed")
	}

	resolvedTenant, ok := resolveTenant(credential, tenantID)
	if !ok {
		secrets.BurnCompare(password)
		return s.authFailure(ctx, identifier, "tenant_mismatch"), nil
	}

	if err := secrets.Verify(password, credential.PasswordHash); err != nil {
		return s.authFailure(ctx, identifier, "password_mismatch"), nil
	}

	session := &models.Session{
		ID:           id.SessionID(uuid.New()),
		TenantID:     resolvedTenant,
		UserID:       credential.UserID,
		UserEmail:    credential.Email,
		Permissions:  accessmodels.EncodePermissions(credential.Permissions),
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.sessionTTL),
		IPAddress:    requestcontext.ClientIP(ctx),
		UserAgent:    requestcontext.UserAgent(ctx),
		Device:       device.DisplayName(requestcontext.UserAgent(ctx)),
		LastActivity: now,
		Status:       models.SessionStatusCreated,
	}

	token, err := s.tokens.Generate(session.ID, session.TenantID, session.UserID, session.Permissions, now, session.ExpiresAt)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token signing failed")
	}

	// The token is only handed out after the session record is durably
	// stored, so a store failure can never leave a usable half-session.
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.sessions.Create(storeCtx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "session creation failed")
	}

	user := credential.UserContext(session.ID, now)
	user.TenantID = resolvedTenant

	s.logAudit(ctx, audit.Event{
		UserID:    credential.UserID,
		TenantID:  resolvedTenant,
		Action:    string(audit.EventSessionCreated),
		Success:   true,
		RefID:     session.ID.String(),
		IPAddress: session.IPAddress,
	})
	if s.metrics != nil {
		s.metrics.IncrementLogin(true)
	}

	return &models.AuthResult{Success: true, User: user, SessionToken: token}, nil
}

// resolveTenant picks the effective tenant for the login. An explicit caller
// tenant must agree with the directory; otherwise the directory wins, and a
// non-admin with no directory tenant falls back to the slug synthesized from
// the email domain. Admins stay global.
func resolveTenant(credential *models.Credential, explicit id.TenantID) (id.TenantID, bool) {
	directory := credential.TenantID
	if !explicit.IsGlobal() {
		if !directory.IsGlobal() && directory != explicit {
			return "", false
		}
		return explicit, true
	}
	if !directory.IsGlobal() {
		return directory, true
	}
	if credential.Role == accessmodels.RoleAdmin {
		return "", true
	}
	slug := email.DeriveTenantSlug(credential.Email)
	if slug == "" {
		return "", false
	}
	return id.TenantID(slug), true
}

func (s *Service) authFailure(ctx context.Context, identifier, reason string) *models.AuthResult {
	s.logAudit(ctx, audit.Event{
		Action:    string(audit.EventAuthFailed),
		Success:   false,
		Reason:    reason,
		IPAddress: requestcontext.ClientIP(ctx),
		Metadata:  map[string]string{"identifier": identifier},
	})
	if s.metrics != nil {
		s.metrics.IncrementLogin(false)
	}
	return &models.AuthResult{Success: false, Error: errInvalidCredentials}
}

// ValidateSession performs the two-step hybrid check: signature and expiry on
// the stateless claims, then a mandatory store lookup of the embedded session
// so revoked sessions fail even with a valid signature. Every authentication
// failure mode (expired, revoked, malformed, unknown) collapses to the same
// CodeUnauthorized error; infrastructure faults surface as CodeInternal.
//
// On success the session's last-activity is refreshed and the UserContext is
// rebuilt from the stored profile.
func (s *Service) ValidateSession(ctx context.Context, token string) (*accessmodels.UserContext, error) {
	ctx, span := s.tracer.Start(ctx, "auth.validate_session")
	defer span.End()
	if s.metrics != nil {
		defer s.metrics.ObserveValidate(time.Now())
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, unauthenticated()
	}
	sessionID, err := id.ParseSessionID(claims.SessionID)
	if err != nil {
		return nil, unauthenticated()
	}

	now := requestcontext.Now(ctx)
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	session, err := s.sessions.FindByID(storeCtx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, unauthenticated()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "session lookup failed")
	}

	if session.IsExpired(now) {
		// Lazy expiry: remove the record now rather than waiting for the
		// sweep. Best effort; the sweep will catch a failed delete.
		if err := s.sessions.Delete(storeCtx, sessionID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.Warn("failed to delete expired session", "error", err, "session_id", sessionID.String())
		}
		return nil, unauthenticated()
	}

	if err := s.sessions.Touch(storeCtx, sessionID, now); err != nil {
		// Activity refresh is advisory; the validation outcome stands.
		s.logger.Warn("failed to refresh session activity", "error", err, "session_id", sessionID.String())
	}

	credential, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, unauthenticated()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "profile lookup failed")
	}

	user := credential.UserContext(session.ID, session.CreatedAt)
	user.TenantID = session.TenantID
	return user, nil
}

// Logout deletes the session behind the token. Idempotent: the second call
// for the same token reports false, never an error. Malformed tokens also
// report false since there is nothing to revoke.
func (s *Service) Logout(ctx context.Context, token string) (bool, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return false, nil
	}
	sessionID, err := id.ParseSessionID(claims.SessionID)
	if err != nil {
		return false, nil
	}
	return s.LogoutSession(ctx, sessionID)
}

// LogoutSession revokes by raw session ID, for callers that hold the ID
// rather than the token.
func (s *Service) LogoutSession(ctx context.Context, sessionID id.SessionID) (bool, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	session, err := s.sessions.FindByID(storeCtx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "session lookup failed")
	}

	if err := s.sessions.Delete(storeCtx, sessionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "session deletion failed")
	}

	s.logAudit(ctx, audit.Event{
		UserID:   session.UserID,
		TenantID: session.TenantID,
		Action:   string(audit.EventSessionRevoked),
		Success:  true,
		RefID:    sessionID.String(),
	})
	return true, nil
}

// CleanupExpiredSessions sweeps the store and returns the exact number of
// sessions removed. Invoked by an external scheduler; safe to run
// concurrently with live logins and validations.
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	removed, err := s.sessions.DeleteExpired(storeCtx, now)
	if err != nil {
		return removed, dErrors.Wrap(err, dErrors.CodeInternal, "session sweep failed")
	}
	if removed > 0 {
		s.logAudit(ctx, audit.Event{
			Action:   string(audit.EventSessionsSwept),
			Success:  true,
			Metadata: map[string]string{"removed": strconv.Itoa(removed)},
		})
		if s.metrics != nil {
			s.metrics.AddSessionsSwept(removed)
		}
	}
	return removed, nil
}

// HasActiveSession reports whether the user currently holds an unexpired
// session in the tenant.
func (s *Service) HasActiveSession(ctx context.Context, tenantID id.TenantID, userID id.UserID) (bool, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.sessions.HasActiveForUser(storeCtx, tenantID, userID, requestcontext.Now(ctx))
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.Warn("audit emit failed", "error", err, "action", event.Action)
	}
}

func unauthenticated() error {
	return dErrors.New(dErrors.CodeUnauthorized, "unauthenticated")
}
