// Package service implements the policy engine: it derives row-level
// visibility filters from a UserContext, converts them to backend-native
// predicates, validates permission checks, and records every decision.
package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	accessmetrics "factgate/internal/access/metrics"
	"factgate/internal/access/models"
	dErrors "factgate/pkg/domain-errors"
	audit "factgate/pkg/platform/audit"
	"factgate/pkg/requestcontext"
)

// AuditPublisher is the sink for access decisions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the access-control policy engine. It holds no per-request state;
// one instance is built at process start and shared by every handler.
type Service struct {
	logger  *slog.Logger
	audit   AuditPublisher
	metrics *accessmetrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithMetrics(m *accessmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(opts ...Option) *Service {
	s := &Service{
		logger: slog.Default(),
		tracer: otel.Tracer("factgate/access"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateRLSFilter derives the visibility constraints for a user reading the
// given resource type.
//
// Dimension semantics, in order:
//   - admins bypass entirely;
//   - tenant: always constrained when the user is tenant-scoped;
//   - classification: always constrained by the user's ceiling;
//   - entities: mandatory. An empty accessible set produces an IN over zero
//     values, which matches nothing. Absence of entity grants is a denial,
//     never an implicit "see everything";
//   - periods and cost centers: constrained only when the set is non-empty.
//     Absence here means unrestricted on that axis.
func (s *Service) GenerateRLSFilter(user *models.UserContext, resourceType string) models.RLSFilter {
	if s.metrics != nil {
		s.metrics.IncrementFiltersGenerated()
	}

	if user.IsAdmin() {
		return models.RLSFilter{Bypass: true}
	}

	filter := models.RLSFilter{}
	if !user.TenantID.IsGlobal() {
		tc := models.Eq(models.FieldTenantID, user.TenantID.String())
		filter.TenantConstraint = &tc
	}

	filter.Constraints = append(filter.Constraints,
		models.Lte(models.FieldClassification, int(user.MaxClassification)),
		models.In(models.FieldEntityID, user.AccessibleEntities),
	)
	if len(user.AccessiblePeriods) > 0 {
		filter.Constraints = append(filter.Constraints,
			models.In(models.FieldPeriodKey, user.AccessiblePeriods))
	}
	if len(user.CostCenters) > 0 {
		filter.Constraints = append(filter.Constraints,
			models.In(models.FieldCostCenterCode, user.CostCenters))
	}

	_ = resourceType // every current resource shares the fact schema fields
	return filter
}

// roleFloor is the baseline grant each role carries before explicit
// permissions are layered on. The switch is exhaustive over Operation so a
// new operation fails closed until policy is written for it.
func roleFloor(role models.Role, op models.Operation) bool {
	switch op {
	case models.OperationRead:
		return true
	case models.OperationWrite:
		return role.AtLeast(models.RoleAnalyst)
	case models.OperationDelete:
		return role.AtLeast(models.RoleTenantAdmin)
	default:
		return false
	}
}

// ValidateAccessAttempt reports whether the user may perform the operation on
// the resource. It never returns an error: the caller decides whether a false
// becomes a security violation. Explicit permissions are the source of truth
// and can only widen what the role floor grants.
func (s *Service) ValidateAccessAttempt(ctx context.Context, user *models.UserContext, resource string, op models.Operation) bool {
	_, span := s.tracer.Start(ctx, "access.validate",
		trace.WithAttributes(
			attribute.String("resource", resource),
			attribute.String("operation", string(op)),
		))
	defer span.End()

	allowed := user.IsAdmin() ||
		roleFloor(user.Role, op) ||
		user.HasPermission(models.Permission{Resource: resource, Operation: op})

	span.SetAttributes(attribute.Bool("allowed", allowed))
	if s.metrics != nil {
		s.metrics.IncrementDecision(resource, string(op), allowed)
	}
	return allowed
}

// AuditAccessAttempt records an access decision. Sink failures are logged at
// WARN and swallowed: audit availability never gates the primary request.
func (s *Service) AuditAccessAttempt(ctx context.Context, user *models.UserContext, resource string, op models.Operation, success bool, refID string, metadata map[string]string) {
	if s.audit == nil {
		return
	}

	action := audit.EventAccessDenied
	decision := "denied"
	if success {
		action = audit.EventAccessGranted
		decision = "allowed"
	}

	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		UserID:    user.UserID,
		TenantID:  user.TenantID,
		Resource:  resource,
		Operation: string(op),
		Action:    string(action),
		Decision:  decision,
		Success:   success,
		RefID:     refID,
		RequestID: requestcontext.RequestID(ctx),
		IPAddress: requestcontext.ClientIP(ctx),
		Metadata:  metadata,
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.Warn("audit emit failed",
			"error", err,
			"action", event.Action,
			"user_id", user.UserID.String(),
			"resource", resource,
		)
	}
}

// Violation builds the forbidden error callers raise when
// ValidateAccessAttempt returns false. Kept here so every violation carries
// the same code and message shape.
func Violation(resource string, op models.Operation) error {
	return dErrors.New(dErrors.CodeForbidden, "operation "+string(op)+" on "+resource+" is not permitted")
}
