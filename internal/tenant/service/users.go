package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	accessmodels "factgate/internal/access/models"
	authmodels "factgate/internal/auth/models"
	id "factgate/pkg/domain"
	dErrors "factgate/pkg/domain-errors"
	"factgate/pkg/email"
	"factgate/pkg/platform/audit"
	"factgate/pkg/platform/sentinel"
	"factgate/pkg/requestcontext"
	"factgate/pkg/secrets"
)

// newTenantUserClassification is the ceiling granted to provisioned users.
// Raising it is an explicit administrative change to the directory record.
const newTenantUserClassification = accessmodels.ClassificationInternal

// CreateTenantUser provisions a user into an active tenant. The user starts
// as a VIEWER; anything beyond the viewer floor must arrive as explicit
// permissions, which stay the source of truth for later access checks.
func (m *Manager) CreateTenantUser(ctx context.Context, tenantID id.TenantID, userEmail, password string, permissions []accessmodels.Permission) (*authmodels.Credential, error) {
	tenant, err := m.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive() {
		return nil, dErrors.New(dErrors.CodeConflict, "tenant is inactive")
	}

	userEmail = strings.TrimSpace(strings.ToLower(userEmail))
	if userEmail == "" || !strings.Contains(userEmail, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "password is required")
	}

	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	first, last := email.DeriveNameFromEmail(userEmail)
	credential := &authmodels.Credential{
		UserID:            id.UserID(uuid.New()),
		Email:             userEmail,
		Username:          strings.ToLower(first + "." + last),
		PasswordHash:      hash,
		Role:              accessmodels.RoleViewer,
		TenantID:          tenantID,
		MaxClassification: newTenantUserClassification,
		Permissions:       append([]accessmodels.Permission(nil), permissions...),
		CreatedAt:         requestcontext.Now(ctx),
	}

	if err := m.users.Save(ctx, credential); err != nil {
		if errors.Is(err, sentinel.ErrConflict) || errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save user")
	}

	m.emitAudit(ctx, audit.Event{
		UserID:   credential.UserID,
		TenantID: tenantID,
		Action:   string(audit.EventUserCreated),
		Success:  true,
		Metadata: map[string]string{"email": userEmail},
	})
	if m.metrics != nil {
		m.metrics.IncrementTenantUserCreated()
	}
	return credential, nil
}

// LoginTenantUser authenticates by email, resolving the tenant from the
// directory rather than a caller-supplied id. Client IP and user agent ride
// the request context. Returns the session token, or an empty string when the
// credentials are bad or the resolved tenant is inactive; the error is
// reserved for infrastructure faults.
func (m *Manager) LoginTenantUser(ctx context.Context, userEmail, password string) (string, error) {
	if m.metrics != nil {
		defer m.metrics.ObserveLogin(time.Now())
	}

	if active, err := m.tenantActiveForIdentifier(ctx, userEmail); err != nil {
		return "", err
	} else if !active {
		return "", nil
	}

	result, err := m.auth.Authenticate(ctx, userEmail, password, "")
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", nil
	}
	return result.SessionToken, nil
}

// tenantActiveForIdentifier checks the tenant gate before any credential
// verification. An unknown identifier passes the gate so the failure surfaces
// through the authentication path with its uniform result.
func (m *Manager) tenantActiveForIdentifier(ctx context.Context, identifier string) (bool, error) {
	credential, err := m.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return true, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "credential lookup failed")
	}

	tenantID := credential.TenantID
	if tenantID.IsGlobal() {
		if credential.Role == accessmodels.RoleAdmin {
			return true, nil
		}
		tenantID = id.TenantID(email.DeriveTenantSlug(credential.Email))
		if tenantID.IsGlobal() {
			return false, nil
		}
	}

	tenant, err := m.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// The directory references an unregistered tenant. Treat the
			// login as allowed; the tenant gate only blocks deactivation.
			return true, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "tenant lookup failed")
	}
	return tenant.IsActive(), nil
}

// LogoutTenantUser revokes the session. Idempotent; false means the session
// was already gone.
func (m *Manager) LogoutTenantUser(ctx context.Context, sessionID id.SessionID) (bool, error) {
	return m.auth.LogoutSession(ctx, sessionID)
}

// ValidateSession reports whether the user holds a live session in the
// tenant. A liveness check only; it grants nothing.
func (m *Manager) ValidateSession(ctx context.Context, tenantID id.TenantID, userID id.UserID) (bool, error) {
	return m.auth.HasActiveSession(ctx, tenantID, userID)
}
