package types

import (
	"errors"
	"fmt"
	"strings"
)

// Reason is a machine readable precondition failure code with a human message.
type Reason struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// ValidationError reports missing or malformed caller input.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PreconditionFailure reports an unmet business rule together with the state the
// entity was actually found in.
type PreconditionFailure struct {
	Reasons      []Reason `json:"reasons"`
	CurrentState string   `json:"currentState,omitempty"`
}

func (e *PreconditionFailure) Error() string {
	codes := make([]string, 0, len(e.Reasons))
	for _, r := range e.Reasons {
		codes = append(codes, r.Code)
	}
	if e.CurrentState == "" {
		return "precondition failed: " + strings.Join(codes, ", ")
	}
	return fmt.Sprintf("precondition failed (state %s): %s", e.CurrentState, strings.Join(codes, ", "))
}

// Has reports whether the failure carries code.
func (e *PreconditionFailure) Has(code string) bool {
	for _, r := range e.Reasons {
		if r.Code == code {
			return true
		}
	}
	return false
}

// NewPreconditionFailure creates a PreconditionFailure.
func NewPreconditionFailure(currentState string, reasons ...Reason) error {
	return &PreconditionFailure{Reasons: reasons, CurrentState: currentState}
}

// ConflictError reports a uniqueness or double-submission violation.
type ConflictError struct {
	Entity       string `json:"entity"`
	ID           string `json:"id"`
	CurrentState string `json:"currentState,omitempty"`
	Message      string `json:"message"`
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("%s %s conflict: %s", e.Entity, e.ID, e.Message)
	if e.CurrentState != "" {
		msg += " (current state " + e.CurrentState + ")"
	}
	return msg
}

// NewConflictError creates a ConflictError.
func NewConflictError(entity, id, currentState, message string) error {
	return &ConflictError{Entity: entity, ID: id, CurrentState: currentState, Message: message}
}

// ConfigurationError reports a team or association misconfiguration that an
// administrator has to correct. It is never degraded into a softer outcome.
type ConfigurationError struct {
	Scope   string `json:"scope"`
	Message string `json:"message"`
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error [%s]: %s", e.Scope, e.Message)
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(scope, format string, args ...interface{}) error {
	return &ConfigurationError{Scope: scope, Message: fmt.Sprintf(format, args...)}
}

// TransientError wraps a side-channel failure (notification, audit delivery)
// that is logged and recovered locally.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient %s: %v", e.Op, e.Err) }

func (e *TransientError) Unwrap() error { return e.Err }

// RetryableError reports that an operation could not obtain exclusive access
// (lock wait exceeded, version conflicts exhausted) and may be retried as a whole.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string { return fmt.Sprintf("retryable %s: %v", e.Op, e.Err) }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err (or any wrapped error) is a RetryableError.
func IsRetryable(err error) bool {
	var target *RetryableError
	return errors.As(err, &target)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// AsPrecondition extracts a PreconditionFailure from err.
func AsPrecondition(err error) (*PreconditionFailure, bool) {
	var target *PreconditionFailure
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
