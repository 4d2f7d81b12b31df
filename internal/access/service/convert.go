package service

import (
	"fmt"
	"strings"

	"factgate/internal/access/models"
)

// SQLWhere renders the filter as a parameterized WHERE fragment using named
// parameters (":prefix_n" style). It returns the clause without the WHERE
// keyword and the parameter map; both are empty when the filter bypasses.
//
// An IN over zero values renders "1 = 0": SQL has no empty IN list, and the
// deny-by-default entity dimension must match nothing, not everything.
func (s *Service) SQLWhere(filter models.RLSFilter, paramPrefix string) (string, map[string]any) {
	active := filter.Active()
	if len(active) == 0 {
		return "", map[string]any{}
	}

	params := make(map[string]any)
	clauses := make([]string, 0, len(active))
	n := 0
	nextParam := func(v any) string {
		name := fmt.Sprintf("%s_%d", paramPrefix, n)
		params[name] = v
		n++
		return ":" + name
	}

	for _, c := range active {
		switch c.Op {
		case models.OpEq:
			clauses = append(clauses, fmt.Sprintf("%s = %s", c.Field, nextParam(c.Values[0])))
		case models.OpLte:
			clauses = append(clauses, fmt.Sprintf("%s <= %s", c.Field, nextParam(c.Values[0])))
		case models.OpIn:
			if len(c.Values) == 0 {
				clauses = append(clauses, "1 = 0")
				continue
			}
			placeholders := make([]string, 0, len(c.Values))
			for _, v := range c.Values {
				placeholders = append(placeholders, nextParam(v))
			}
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", c.Field, strings.Join(placeholders, ", ")))
		}
	}

	return strings.Join(clauses, " AND "), params
}

// DocumentFilter renders the filter as a document-store predicate object
// ($eq / $in / $lte), with the same semantics as the SQL rendering. An empty
// $in naturally matches nothing. Returns an empty object when bypassing.
func (s *Service) DocumentFilter(filter models.RLSFilter) map[string]any {
	doc := make(map[string]any)
	for _, c := range filter.Active() {
		switch c.Op {
		case models.OpEq:
			doc[c.Field] = map[string]any{"$eq": c.Values[0]}
		case models.OpLte:
			doc[c.Field] = map[string]any{"$lte": c.Values[0]}
		case models.OpIn:
			doc[c.Field] = map[string]any{"$in": append([]any{}, c.Values...)}
		}
	}
	return doc
}
