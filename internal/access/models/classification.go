package models

import (
	"fmt"
	"strings"

	dErrors "factgate/pkg/domain-errors"
)

// DataClassification is the ordinal sensitivity level attached to records.
// A record at level L is visible iff the reader's ceiling is >= L.
type DataClassification int

const (
	ClassificationPublic       DataClassification = 1
	ClassificationInternal     DataClassification = 2
	ClassificationConfidential DataClassification = 3
	ClassificationRestricted   DataClassification = 4
)

func (c DataClassification) String() string {
	switch c {
	case ClassificationPublic:
		return "PUBLIC"
	case ClassificationInternal:
		return "INTERNAL"
	case ClassificationConfidential:
		return "CONFIDENTIAL"
	case ClassificationRestricted:
		return "RESTRICTED"
	default:
		return fmt.Sprintf("DataClassification(%d)", int(c))
	}
}

// Valid reports whether c is one of the four defined levels.
func (c DataClassification) Valid() bool {
	return c >= ClassificationPublic && c <= ClassificationRestricted
}

// Allows reports whether a reader with ceiling c may see a record at level.
func (c DataClassification) Allows(level DataClassification) bool {
	return level <= c
}

func ParseClassification(s string) (DataClassification, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PUBLIC":
		return ClassificationPublic, nil
	case "INTERNAL":
		return ClassificationInternal, nil
	case "CONFIDENTIAL":
		return ClassificationConfidential, nil
	case "RESTRICTED":
		return ClassificationRestricted, nil
	default:
		return 0, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown classification %q", s))
	}
}
