// Package strings provides string manipulation utilities.
package strings

import (
	"sort"
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// DedupeAndSort is DedupeAndTrim with a sorted result. Constraint values use
// it so rendered predicates are deterministic regardless of input order.
func DedupeAndSort(values []string) []string {
	result := DedupeAndTrim(values)
	sort.Strings(result)
	return result
}

// Contains reports whether values includes target. Linear scan; the sets
// here (entities, periods, cost centers, permissions) are small.
func Contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
