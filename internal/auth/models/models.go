// Package models holds the authentication domain records: sessions, the
// credential directory entry, and the structured authentication result.
package models

import (
	"time"

	accessmodels "factgate/internal/access/models"
	id "factgate/pkg/domain"
)

// SessionStatus tracks the session lifecycle. Expiry is detected lazily at
// validation time or by the periodic sweep; revocation removes the record, so
// the terminal states never persist.
type SessionStatus string

const (
	SessionStatusCreated SessionStatus = "created"
	SessionStatusActive  SessionStatus = "active"
)

// Session is the server-side, revocable record behind an issued token. Token
// claims alone are never sufficient: validation requires this record to still
// exist and be unexpired, which is what makes logout effective immediately.
type Session struct {
	ID           id.SessionID
	TenantID     id.TenantID
	UserID       id.UserID
	UserEmail    string
	Permissions  []string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	IPAddress    string
	UserAgent    string
	Device       string
	LastActivity time.Time
	Status       SessionStatus
}

// IsExpired reports whether the session has passed its expiry at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(now)
}

// Credential is a directory entry: the stored identity profile a UserContext
// is built from on every successful authentication or validation.
type Credential struct {
	UserID             id.UserID
	Email              string
	Username           string
	PasswordHash       string
	Role               accessmodels.Role
	TenantID           id.TenantID
	MaxClassification  accessmodels.DataClassification
	AccessibleEntities []string
	AccessiblePeriods  []string
	CostCenters        []string
	Department         string
	Permissions        []accessmodels.Permission
	CreatedAt          time.Time
}

// UserContext materializes the immutable request-scoped actor description
// from the stored profile plus the live session.
func (c *Credential) UserContext(sessionID id.SessionID, loginTime time.Time) *accessmodels.UserContext {
	user := &accessmodels.UserContext{
		UserID:             c.UserID,
		Username:           c.Username,
		Role:               c.Role,
		TenantID:           c.TenantID,
		MaxClassification:  c.MaxClassification,
		AccessibleEntities: append([]string(nil), c.AccessibleEntities...),
		AccessiblePeriods:  append([]string(nil), c.AccessiblePeriods...),
		CostCenters:        append([]string(nil), c.CostCenters...),
		Department:         c.Department,
		Permissions:        append([]accessmodels.Permission(nil), c.Permissions...),
		SessionID:          sessionID,
		LoginTime:          loginTime,
	}
	user.Normalize()
	return user
}

// AuthResult is the structured outcome of an authentication attempt.
// Failures are results, not errors, and the Error text is identical for
// unknown identifiers and wrong passwords.
type AuthResult struct {
	Success      bool
	User         *accessmodels.UserContext
	SessionToken string
	Error        string
}
