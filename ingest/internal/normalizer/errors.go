package normalizer

import (
	"errors"
	"fmt"
)

// Failure reasons used in audit messages, metrics labels and DLQ subjects.
const (
	ReasonUnsupportedEntity = "unsupported_entity"
	ReasonMissingField      = "missing_field"
	ReasonInvalidField      = "invalid_field"
	ReasonUnknown           = "unknown"
)

// UnsupportedEntityError reports an entity type outside the canonical set.
type UnsupportedEntityError struct {
	EntityType string
}

func (e *UnsupportedEntityError) Error() string {
	return fmt.Sprintf("unsupported entity type %q", e.EntityType)
}

// MissingFieldError reports an absent or null required vendor field.
type MissingFieldError struct {
	EntityType string
	Field      string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s record is missing required field %q", e.EntityType, e.Field)
}

// InvalidFieldError reports a vendor value that cannot be coerced to its
// column's kind.
type InvalidFieldError struct {
	EntityType string
	Field      string
	Value      any
	Want       string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s field %q: cannot use %v (%T) as %s", e.EntityType, e.Field, e.Value, e.Value, e.Want)
}

// Reason classifies err for audit and dead-letter routing.
func Reason(err error) string {
	var unsupported *UnsupportedEntityError
	var missing *MissingFieldError
	var invalid *InvalidFieldError
	switch {
	case errors.As(err, &unsupported):
		return ReasonUnsupportedEntity
	case errors.As(err, &missing):
		return ReasonMissingField
	case errors.As(err, &invalid):
		return ReasonInvalidField
	default:
		return ReasonUnknown
	}
}

// IsTupleLocal reports whether err affects only the tuple that produced it.
func IsTupleLocal(err error) bool {
	return err != nil && Reason(err) != ReasonUnknown
}
