// Package service orchestrates the tenant lifecycle and tenant-scoped user
// management. It is the single facade used by both the HTTP transport and any
// embedding caller, so UI and API paths share identical semantics.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	authmodels "factgate/internal/auth/models"
	tenantmetrics "factgate/internal/tenant/metrics"
	"factgate/internal/tenant/models"
	id "factgate/pkg/domain"
	dErrors "factgate/pkg/domain-errors"
	"factgate/pkg/platform/audit"
	"factgate/pkg/platform/sentinel"
	"factgate/pkg/requestcontext"
)

// TenantStore persists tenant aggregates. Execute runs validate then mutate
// atomically under the store's own locking.
type TenantStore interface {
	CreateIfNameAvailable(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindByName(ctx context.Context, name string) (*models.Tenant, error)
	Execute(ctx context.Context, tenantID id.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error)
	Count(ctx context.Context) (int, error)
}

// UserDirectory is the credential directory the manager provisions into.
type UserDirectory interface {
	Save(ctx context.Context, credential *authmodels.Credential) error
	FindByIdentifier(ctx context.Context, identifier string) (*authmodels.Credential, error)
	CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
}

// Authenticator is the session-issuing authentication core the manager
// delegates logins to.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, password string, tenantID id.TenantID) (*authmodels.AuthResult, error)
	LogoutSession(ctx context.Context, sessionID id.SessionID) (bool, error)
	HasActiveSession(ctx context.Context, tenantID id.TenantID, userID id.UserID) (bool, error)
}

// UsageStore reads per-tenant consumption counters.
type UsageStore interface {
	Snapshot(ctx context.Context, tenantID id.TenantID, now time.Time) (*models.Usage, error)
}

// AuditPublisher is the sink for tenant lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Manager is the tenant facade.
type Manager struct {
	tenants TenantStore
	users   UserDirectory
	auth    Authenticator
	usage   UsageStore

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *tenantmetrics.Metrics
}

type Option func(m *Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(m *Manager) { m.auditPublisher = publisher }
}

func WithMetrics(metrics *tenantmetrics.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

func WithUsageStore(usage UsageStore) Option {
	return func(m *Manager) { m.usage = usage }
}

func New(tenants TenantStore, users UserDirectory, auth Authenticator, opts ...Option) *Manager {
	m := &Manager{
		tenants: tenants,
		users:   users,
		auth:    auth,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateTenant registers a new active tenant under the given id and display
// name. The id and name must both be unclaimed.
func (m *Manager) CreateTenant(ctx context.Context, tenantID id.TenantID, name string) (*models.Tenant, error) {
	name = strings.TrimSpace(name)

	tenant, err := models.NewTenant(tenantID, name, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := m.tenants.CreateIfNameAvailable(ctx, tenant); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "tenant id already exists")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.New(dErrors.CodeConflict, "tenant name must be unique")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tenant")
		}
	}

	m.emitAudit(ctx, audit.Event{
		TenantID: tenant.ID,
		Action:   string(audit.EventTenantCreated),
		Success:  true,
		Metadata: map[string]string{"name": tenant.Name},
	})
	if m.metrics != nil {
		m.metrics.IncrementTenantCreated()
	}
	return tenant, nil
}

// GetTenant looks up a tenant by id. Callers use this to check existence
// before creating, so an unknown id is a plain CodeNotFound.
func (m *Manager) GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if tenantID.IsGlobal() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant id is required")
	}
	tenant, err := m.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err)
	}
	return tenant, nil
}

// DeactivateTenant transitions a tenant to inactive status. Logins for the
// tenant's users fail immediately afterwards; existing sessions survive until
// expiry or logout.
func (m *Manager) DeactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if tenantID.IsGlobal() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant id is required")
	}

	now := requestcontext.Now(ctx)
	tenant, err := m.tenants.Execute(ctx, tenantID,
		func(t *models.Tenant) error {
			if err := t.CanDeactivate(); err != nil {
				return dErrors.New(dErrors.CodeConflict, "tenant is already inactive")
			}
			return nil
		},
		func(t *models.Tenant) {
			t.ApplyDeactivation(now)
		},
	)
	if err != nil {
		return nil, wrapTenantErr(err)
	}

	m.emitAudit(ctx, audit.Event{
		TenantID: tenant.ID,
		Action:   string(audit.EventTenantDeactivated),
		Success:  true,
	})
	return tenant, nil
}

// ReactivateTenant transitions a tenant back to active status.
func (m *Manager) ReactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if tenantID.IsGlobal() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant id is required")
	}

	now := requestcontext.Now(ctx)
	tenant, err := m.tenants.Execute(ctx, tenantID,
		func(t *models.Tenant) error {
			if err := t.CanReactivate(); err != nil {
				return dErrors.New(dErrors.CodeConflict, "tenant is already active")
			}
			return nil
		},
		func(t *models.Tenant) {
			t.ApplyReactivation(now)
		},
	)
	if err != nil {
		return nil, wrapTenantErr(err)
	}

	m.emitAudit(ctx, audit.Event{
		TenantID: tenant.ID,
		Action:   string(audit.EventTenantReactivated),
		Success:  true,
	})
	return tenant, nil
}

// GetTenantUsage returns the consumption snapshot for the tenant's current
// calendar buckets. Reporting only; nothing here enforces a limit.
func (m *Manager) GetTenantUsage(ctx context.Context, tenantID id.TenantID) (*models.Usage, error) {
	if _, err := m.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	if m.usage == nil {
		return &models.Usage{TenantID: tenantID}, nil
	}
	usage, err := m.usage.Snapshot(ctx, tenantID, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read tenant usage")
	}
	return usage, nil
}

func (m *Manager) emitAudit(ctx context.Context, event audit.Event) {
	if m.auditPublisher == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := m.auditPublisher.Emit(ctx, event); err != nil {
		m.logger.Warn("audit emit failed", "error", err, "action", event.Action)
	}
}

func wrapTenantErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "tenant store failure")
}
