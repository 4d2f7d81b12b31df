package audit

import (
	"time"

	id "factgate/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and
	// forensics: auth failures, denied access, revocations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	// These can be sampled or aggregated with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is an audit record emitted from domain logic. It is write-once:
// stores expose append and list only, never update or delete.
type Event struct {
	Timestamp time.Time
	UserID    id.UserID
	TenantID  id.TenantID
	// Resource and Operation describe the access decision subject
	// ("facts"/"read"). Action names the event itself (see constants).
	Resource  string
	Operation string
	Action    string
	// Decision is "allowed" or "denied" for access events, empty otherwise.
	Decision string
	Success  bool
	Reason   string
	// RefID points at the affected record (fact ID, session ID) when one
	// exists.
	RefID     string
	RequestID string
	IPAddress string
	Metadata  map[string]string
}

// AuditEvent names a kind of audit record.
type AuditEvent string

const (
	// Auth events
	EventUserCreated     AuditEvent = "user_created"
	EventSessionCreated  AuditEvent = "session_created"
	EventSessionRevoked  AuditEvent = "session_revoked"
	EventSessionsSwept   AuditEvent = "sessions_swept"
	EventAuthFailed      AuditEvent = "auth_failed"
	EventSessionRejected AuditEvent = "session_rejected"

	// Access-control events
	EventAccessGranted AuditEvent = "access_granted"
	EventAccessDenied  AuditEvent = "access_denied"

	// Tenant events
	EventTenantCreated     AuditEvent = "tenant_created"
	EventTenantDeactivated AuditEvent = "tenant_deactivated"
	EventTenantReactivated AuditEvent = "tenant_reactivated"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventUserCreated:   CategoryCompliance,
	EventTenantCreated: CategoryCompliance,

	EventAuthFailed:        CategorySecurity,
	EventSessionRejected:   CategorySecurity,
	EventSessionRevoked:    CategorySecurity,
	EventAccessDenied:      CategorySecurity,
	EventTenantDeactivated: CategorySecurity,

	EventSessionCreated:    CategoryOperations,
	EventSessionsSwept:     CategoryOperations,
	EventAccessGranted:     CategoryOperations,
	EventTenantReactivated: CategoryOperations,
}

// Category resolves the category for an event name, defaulting to operations
// for unknown actions so nothing is silently dropped by category routing.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}
