package engine

import (
	"errors"
	"fmt"
)

// ErrorClass separates the two failure modes the engine recognizes.
type ErrorClass string

const (
	// ErrorClassInvalid indicates a caller mistake in the supplied spec.
	// These are caught exhaustively before construction and are always
	// recoverable by correcting the input.
	ErrorClassInvalid ErrorClass = "invalid"

	// ErrorClassInternal indicates an engine defect: a state that should be
	// unreachable given a validated spec. Never user-correctable.
	ErrorClassInternal ErrorClass = "internal"
)

// EngineError is a classified error with node context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Node is the logical ID of the node involved, if applicable.
	Node string `json:"node,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("[%s] %s (node=%s)%s", e.Class, e.Message, e.Node, e.unwrapSuffix())
	}
	return fmt.Sprintf("[%s] %s%s", e.Class, e.Message, e.unwrapSuffix())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

func (e *EngineError) unwrapSuffix() string {
	if e.Err != nil {
		return ": " + e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewInvalidError creates an error for a caller mistake.
func NewInvalidError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassInvalid,
		Message: message,
		Err:     err,
	}
}

// NewInternalError creates an error for an engine invariant violation.
func NewInternalError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassInternal,
		Message: message,
		Err:     err,
	}
}

// WithNode adds node context to an error.
func (e *EngineError) WithNode(logicalID string) *EngineError {
	e.Node = logicalID
	return e
}

// WithCode adds an error code to an error.
func (e *EngineError) WithCode(code string) *EngineError {
	e.Code = code
	return e
}

// IsInvalid returns true if the error is classified as a caller mistake.
func IsInvalid(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassInvalid
	}
	return false
}

// IsInternal returns true if the error is classified as an engine defect.
func IsInternal(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassInternal
	}
	return false
}

// Common error codes.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeDuplicateNode = "DUPLICATE_NODE"
	ErrCodeDanglingEdge  = "DANGLING_EDGE"
	ErrCodeCycle         = "DEPENDENCY_CYCLE"
	ErrCodeInternal      = "INTERNAL_ERROR"
)
