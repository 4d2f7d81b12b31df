// Package models defines the access-control value types: who is asking
// (UserContext) and what they may see (RLSFilter). Everything here is
// immutable after construction; string forms exist only for the token and
// audit serialization boundaries.
package models

import (
	"fmt"
	"strings"

	dErrors "factgate/pkg/domain-errors"
)

// Role is the closed set of actor roles, ordered by privilege.
type Role string

const (
	RoleViewer      Role = "VIEWER"
	RoleAnalyst     Role = "ANALYST"
	RoleManager     Role = "MANAGER"
	RoleTenantAdmin Role = "TENANT_ADMIN"
	RoleAdmin       Role = "ADMIN"
)

// rank orders roles for "ANALYST or above" style checks.
var rank = map[Role]int{
	RoleViewer:      1,
	RoleAnalyst:     2,
	RoleManager:     3,
	RoleTenantAdmin: 4,
	RoleAdmin:       5,
}

// AtLeast reports whether r carries at least the privilege of other.
func (r Role) AtLeast(other Role) bool {
	return rank[r] >= rank[other]
}

func (r Role) String() string { return string(r) }

// ParseRole accepts the serialized role names, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleViewer:
		return RoleViewer, nil
	case RoleAnalyst:
		return RoleAnalyst, nil
	case RoleManager:
		return RoleManager, nil
	case RoleTenantAdmin:
		return RoleTenantAdmin, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown role %q", s))
	}
}

// Operation is the closed set of gated data operations.
type Operation string

const (
	OperationRead   Operation = "read"
	OperationWrite  Operation = "write"
	OperationDelete Operation = "delete"
)

func (o Operation) String() string { return string(o) }

func ParseOperation(s string) (Operation, error) {
	switch Operation(strings.ToLower(strings.TrimSpace(s))) {
	case OperationRead:
		return OperationRead, nil
	case OperationWrite:
		return OperationWrite, nil
	case OperationDelete:
		return OperationDelete, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown operation %q", s))
	}
}

// Permission grants one operation on one resource type. The serialized form
// is "resource:operation" (e.g. "facts:write").
type Permission struct {
	Resource  string
	Operation Operation
}

func (p Permission) String() string {
	return p.Resource + ":" + string(p.Operation)
}

// ParsePermission decodes the "resource:operation" wire form.
func ParsePermission(s string) (Permission, error) {
	resource, op, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || resource == "" {
		return Permission{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("malformed permission %q", s))
	}
	operation, err := ParseOperation(op)
	if err != nil {
		return Permission{}, err
	}
	return Permission{Resource: resource, Operation: operation}, nil
}

// EncodePermissions renders a permission set for tokens and session records.
func EncodePermissions(perms []Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.String())
	}
	return out
}

// DecodePermissions parses a serialized permission set, skipping nothing:
// a single malformed entry fails the whole decode so a corrupted token never
// yields a partially-interpreted grant set.
func DecodePermissions(encoded []string) ([]Permission, error) {
	perms := make([]Permission, 0, len(encoded))
	for _, s := range encoded {
		p, err := ParsePermission(s)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, nil
}
