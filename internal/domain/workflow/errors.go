package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is returned when the actor's role may not perform the action
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition is returned when the target is unreachable from the current stage
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrMissingFields is returned when required fields are unset before a move
	ErrMissingFields = errors.New("missing required fields")

	// ErrInvalidState is returned when the document is not in a state that allows the action
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidClassification is returned when no lifecycle exists for the attributes
	ErrInvalidClassification = errors.New("invalid classification")

	// ErrNotFound is returned for unknown documents or scopes
	ErrNotFound = errors.New("not found")

	// ErrUnknownStage is a configuration error: a stage is missing from the registry
	ErrUnknownStage = errors.New("unknown stage")

	// ErrGuardFailed is returned when a transition exists but its guard rejects it
	ErrGuardFailed = errors.New("transition guard failed")
)

// RuleError is a locally detected business rule violation.
// Error returns the human-readable message verbatim.
type RuleError struct {
	Kind    error
	Message string
	Fields  []string
}

func (e *RuleError) Error() string {
	return e.Message
}

func (e *RuleError) Unwrap() error {
	return e.Kind
}

func newRuleError(kind error, format string, args ...interface{}) error {
	return &RuleError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Forbidden builds an ErrForbidden rule error
func Forbidden(format string, args ...interface{}) error {
	return newRuleError(ErrForbidden, format, args...)
}

// InvalidTransition builds an ErrInvalidTransition rule error
func InvalidTransition(format string, args ...interface{}) error {
	return newRuleError(ErrInvalidTransition, format, args...)
}

// InvalidState builds an ErrInvalidState rule error
func InvalidState(format string, args ...interface{}) error {
	return newRuleError(ErrInvalidState, format, args...)
}

// InvalidClassification builds an ErrInvalidClassification rule error
func InvalidClassification(format string, args ...interface{}) error {
	return newRuleError(ErrInvalidClassification, format, args...)
}

// NotFound builds an ErrNotFound rule error
func NotFound(format string, args ...interface{}) error {
	return newRuleError(ErrNotFound, format, args...)
}

// MissingFields builds an ErrMissingFields rule error naming the fields
func MissingFields(message string, fields ...string) error {
	return &RuleError{Kind: ErrMissingFields, Message: message, Fields: fields}
}

// FieldsOf returns the missing field names carried by err, if any
func FieldsOf(err error) []string {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Fields
	}
	return nil
}
