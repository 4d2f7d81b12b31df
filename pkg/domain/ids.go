// Package domain defines the typed identifiers shared across modules.
//
// IDs are distinct types so the compiler rejects cross-type assignment
// (passing a TenantID where a UserID is expected). String forms appear only
// at serialization boundaries: tokens, audit records, HTTP payloads.
package domain

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	dErrors "factgate/pkg/domain-errors"
)

// UserID identifies a user account.
type UserID uuid.UUID

// SessionID identifies a server-side session record.
type SessionID uuid.UUID

// TenantID identifies a tenant boundary. Unlike the UUID-backed IDs, tenant
// IDs are slugs because they can be synthesized deterministically from an
// email domain when no directory entry exists (e.g. "tenant_acme-corp").
// An empty TenantID means global scope, which only admins carry.
type TenantID string

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id TenantID) String() string  { return string(id) }

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// IsGlobal reports whether the tenant ID denotes global (cross-tenant) scope.
func (id TenantID) IsGlobal() bool { return id == "" }

// ParseUserID parses and validates a user ID string.
// Rejects empty strings, malformed UUIDs, and the nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseSessionID parses and validates a session ID string.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session id")
	return SessionID(u), err
}

var tenantSlugRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,127}$`)

// ParseTenantID validates a tenant slug. The empty string is rejected here;
// callers that accept global scope handle the absent case before parsing.
func ParseTenantID(s string) (TenantID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "tenant id is required")
	}
	if !tenantSlugRe.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "tenant id must be a lowercase slug")
	}
	return TenantID(s), nil
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be nil")
	}
	return u, nil
}
