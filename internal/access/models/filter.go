package models

// Field names the generated predicates constrain. These match the fact
// storage schema shared with repository collaborators.
const (
	FieldTenantID       = "tenant_id"
	FieldClassification = "classification_level"
	FieldEntityID       = "entity_id"
	FieldPeriodKey      = "period_key"
	FieldCostCenterCode = "cost_center_code"
)

// Operator is a predicate comparison kind.
type Operator string

const (
	OpEq  Operator = "eq"
	OpIn  Operator = "in"
	OpLte Operator = "lte"
)

// Constraint is a single predicate on one dimension. EQ and LTE carry exactly
// one value; IN carries zero or more. An IN with zero values matches nothing,
// which is the deny-by-default encoding.
type Constraint struct {
	Field  string
	Op     Operator
	Values []any
}

// Eq builds an equality constraint.
func Eq(field string, value any) Constraint {
	return Constraint{Field: field, Op: OpEq, Values: []any{value}}
}

// In builds a membership constraint from a string set.
func In(field string, values []string) Constraint {
	vs := make([]any, 0, len(values))
	for _, v := range values {
		vs = append(vs, v)
	}
	return Constraint{Field: field, Op: OpIn, Values: vs}
}

// Lte builds an upper-bound constraint.
func Lte(field string, value any) Constraint {
	return Constraint{Field: field, Op: OpLte, Values: []any{value}}
}

// Matches evaluates the constraint against a single field value.
func (c Constraint) Matches(value any) bool {
	switch c.Op {
	case OpEq:
		return len(c.Values) == 1 && equal(value, c.Values[0])
	case OpIn:
		for _, candidate := range c.Values {
			if equal(value, candidate) {
				return true
			}
		}
		return false
	case OpLte:
		if len(c.Values) != 1 {
			return false
		}
		left, lok := asInt(value)
		right, rok := asInt(c.Values[0])
		return lok && rok && left <= right
	default:
		return false
	}
}

func equal(a, b any) bool {
	if ai, ok := asInt(a); ok {
		if bi, ok := asInt(b); ok {
			return ai == bi
		}
	}
	return a == b
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case DataClassification:
		return int(n), true
	default:
		return 0, false
	}
}

// RLSFilter is the abstract visibility constraint set derived from a
// UserContext. Repositories convert it to their native query form; Bypass is
// true only for admins and means "no constraints at all".
type RLSFilter struct {
	TenantConstraint *Constraint
	Constraints      []Constraint
	Bypass           bool
}

// Active returns every effective constraint, tenant first. Empty when
// bypassing.
func (f RLSFilter) Active() []Constraint {
	if f.Bypass {
		return nil
	}
	active := make([]Constraint, 0, len(f.Constraints)+1)
	if f.TenantConstraint != nil {
		active = append(active, *f.TenantConstraint)
	}
	return append(active, f.Constraints...)
}

// Match evaluates the filter against a row, the same semantics the SQL and
// document conversions render. Used by in-process repositories and by the
// property tests that pin tenant isolation and deny-by-default.
func (f RLSFilter) Match(row map[string]any) bool {
	for _, c := range f.Active() {
		if !c.Matches(row[c.Field]) {
			return false
		}
	}
	return true
}
