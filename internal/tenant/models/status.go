package models

// TenantStatus is the tenant lifecycle state.
type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "active"
	TenantStatusInactive TenantStatus = "inactive"
)

// CanTransitionTo reports whether the status may move to target. The only
// legal transitions are active to inactive and back.
func (s TenantStatus) CanTransitionTo(target TenantStatus) bool {
	switch s {
	case TenantStatusActive:
		return target == TenantStatusInactive
	case TenantStatusInactive:
		return target == TenantStatusActive
	default:
		return false
	}
}

func (s TenantStatus) Valid() bool {
	return s == TenantStatusActive || s == TenantStatusInactive
}
