package models

import (
	"time"

	id "factgate/pkg/domain"
	pstrings "factgate/pkg/platform/strings"
)

// UserContext describes an authenticated actor for the lifetime of a request.
// It is constructed once per successful authentication or session validation
// and never mutated afterwards.
//
// An empty TenantID means global scope; only admins carry it. ADMIN implies a
// full bypass of row-level security and the full permission set regardless of
// the explicit Permissions field.
type UserContext struct {
	UserID            id.UserID
	Username          string
	Role              Role
	TenantID          id.TenantID
	MaxClassification DataClassification

	// Visibility dimensions. AccessibleEntities is mandatory for non-admins:
	// an empty set means "sees nothing", not "sees everything". Empty
	// AccessiblePeriods or CostCenters means unrestricted on that axis.
	AccessibleEntities []string
	AccessiblePeriods  []string
	CostCenters        []string

	Department  string
	Permissions []Permission

	SessionID id.SessionID
	LoginTime time.Time
}

// IsAdmin reports whether the actor bypasses RLS entirely.
func (u *UserContext) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasPermission reports whether the explicit permission set carries the
// grant. Role-derived defaults are layered on top of this inside the access
// service; admins short-circuit to true.
func (u *UserContext) HasPermission(p Permission) bool {
	if u.IsAdmin() {
		return true
	}
	for _, held := range u.Permissions {
		if held == p {
			return true
		}
	}
	return false
}

// CanSeeEntity reports whether the entity dimension admits the given entity.
func (u *UserContext) CanSeeEntity(entityID string) bool {
	return u.IsAdmin() || pstrings.Contains(u.AccessibleEntities, entityID)
}

// Normalize dedupes and sorts the set-valued fields so derived predicates are
// deterministic. Called once at construction time.
func (u *UserContext) Normalize() {
	u.AccessibleEntities = pstrings.DedupeAndSort(u.AccessibleEntities)
	u.AccessiblePeriods = pstrings.DedupeAndSort(u.AccessiblePeriods)
	u.CostCenters = pstrings.DedupeAndSort(u.CostCenters)
}
