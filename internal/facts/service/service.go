// Package service is the fact repository: the consuming side of the access
// control core. Reads are scoped by the generated row-level filter, writes
// gate through the access decision, and every attempt is audited.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	accessmodels "factgate/internal/access/models"
	accessservice "factgate/internal/access/service"
	"factgate/internal/facts/models"
	id "factgate/pkg/domain"
	dErrors "factgate/pkg/domain-errors"
	"factgate/pkg/platform/sentinel"
	"factgate/pkg/requestcontext"
)

// ResourceFacts is the resource name facts access decisions are keyed by.
const ResourceFacts = "financial_facts"

// AccessController is the access-control core the repository delegates
// filter generation and decision checks to.
type AccessController interface {
	GenerateRLSFilter(user *accessmodels.UserContext, resourceType string) accessmodels.RLSFilter
	ValidateAccessAttempt(ctx context.Context, user *accessmodels.UserContext, resource string, op accessmodels.Operation) bool
	AuditAccessAttempt(ctx context.Context, user *accessmodels.UserContext, resource string, op accessmodels.Operation, success bool, refID string, metadata map[string]string)
}

// FactStore persists fact rows.
type FactStore interface {
	Insert(ctx context.Context, fact *models.Fact) error
	FindByID(ctx context.Context, factID uuid.UUID) (*models.Fact, error)
	Delete(ctx context.Context, factID uuid.UUID) error
	Scan(ctx context.Context, keep func(*models.Fact) bool) ([]*models.Fact, error)
}

// UsageRecorder counts tenant consumption for reporting.
type UsageRecorder interface {
	RecordDocument(ctx context.Context, tenantID id.TenantID, sizeBytes int64, now time.Time) error
	RecordQuery(ctx context.Context, tenantID id.TenantID, now time.Time) error
}

// Repository serves fact reads and writes on behalf of an authenticated
// actor. It holds no per-request state.
type Repository struct {
	store  FactStore
	access AccessController
	usage  UsageRecorder
	logger *slog.Logger
}

type Option func(*Repository)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) { r.logger = logger }
}

func WithUsageRecorder(usage UsageRecorder) Option {
	return func(r *Repository) { r.usage = usage }
}

func New(store FactStore, access AccessController, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		access: access,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Query returns the facts the actor may see. The row-level filter is applied
// to every row; for an admin the filter bypasses and the full table returns.
func (r *Repository) Query(ctx context.Context, user *accessmodels.UserContext) ([]*models.Fact, error) {
	allowed := r.access.ValidateAccessAttempt(ctx, user, ResourceFacts, accessmodels.OperationRead)
	r.access.AuditAccessAttempt(ctx, user, ResourceFacts, accessmodels.OperationRead, allowed, "", nil)
	if !allowed {
		return nil, accessservice.Violation(ResourceFacts, accessmodels.OperationRead)
	}

	filter := r.access.GenerateRLSFilter(user, ResourceFacts)
	facts, err := r.store.Scan(ctx, func(fact *models.Fact) bool {
		return filter.Match(fact.Row())
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "fact scan failed")
	}

	r.recordQuery(ctx, user.TenantID)
	return facts, nil
}

// Insert writes a fact on behalf of the actor. Beyond the write decision,
// the new row must itself satisfy the actor's row-level filter, so a
// non-admin can never write outside their own tenant or entity scope.
func (r *Repository) Insert(ctx context.Context, user *accessmodels.UserContext, fact *models.Fact) (*models.Fact, error) {
	allowed := r.access.ValidateAccessAttempt(ctx, user, ResourceFacts, accessmodels.OperationWrite)
	if allowed {
		filter := r.access.GenerateRLSFilter(user, ResourceFacts)
		allowed = filter.Match(fact.Row())
	}
	refID := fact.ID.String()
	r.access.AuditAccessAttempt(ctx, user, ResourceFacts, accessmodels.OperationWrite, allowed, refID, map[string]string{
		"entity_id": fact.EntityID,
	})
	if !allowed {
		return nil, accessservice.Violation(ResourceFacts, accessmodels.OperationWrite)
	}

	stored := *fact
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.RecordedAt.IsZero() {
		stored.RecordedAt = requestcontext.Now(ctx)
	}
	if err := r.store.Insert(ctx, &stored); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "fact already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "fact insert failed")
	}

	r.recordDocument(ctx, stored.TenantID, &stored)
	return &stored, nil
}

// Delete removes a fact. The target row must satisfy the actor's row-level
// filter before the delete decision applies.
func (r *Repository) Delete(ctx context.Context, user *accessmodels.UserContext, factID uuid.UUID) error {
	fact, err := r.store.FindByID(ctx, factID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "fact not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "fact lookup failed")
	}

	allowed := r.access.ValidateAccessAttempt(ctx, user, ResourceFacts, accessmodels.OperationDelete)
	if allowed {
		filter := r.access.GenerateRLSFilter(user, ResourceFacts)
		allowed = filter.Match(fact.Row())
	}
	r.access.AuditAccessAttempt(ctx, user, ResourceFacts, accessmodels.OperationDelete, allowed, factID.String(), nil)
	if !allowed {
		return accessservice.Violation(ResourceFacts, accessmodels.OperationDelete)
	}

	if err := r.store.Delete(ctx, factID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "fact not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "fact delete failed")
	}
	return nil
}

func (r *Repository) recordQuery(ctx context.Context, tenantID id.TenantID) {
	if r.usage == nil || tenantID.IsGlobal() {
		return
	}
	if err := r.usage.RecordQuery(ctx, tenantID, requestcontext.Now(ctx)); err != nil {
		r.logger.Warn("usage query count failed", "error", err, "tenant_id", tenantID)
	}
}

func (r *Repository) recordDocument(ctx context.Context, tenantID id.TenantID, fact *models.Fact) {
	if r.usage == nil || tenantID.IsGlobal() {
		return
	}
	size := int64(0)
	if encoded, err := json.Marshal(fact); err == nil {
		size = int64(len(encoded))
	}
	if err := r.usage.RecordDocument(ctx, tenantID, size, requestcontext.Now(ctx)); err != nil {
		r.logger.Warn("usage document count failed", "error", err, "tenant_id", tenantID)
	}
}
