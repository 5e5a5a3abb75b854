package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// ErrorTypeSessionTerminal indicates a turn was submitted to a session that cannot accept input
	ErrorTypeSessionTerminal ErrorType = "SESSION_TERMINAL"

	// ErrorTypeTransition indicates an impossible phase/index combination
	ErrorTypeTransition ErrorType = "TRANSITION"

	// ErrorTypeInterpreter indicates the interpreter capability failed or returned garbage
	ErrorTypeInterpreter ErrorType = "INTERPRETER"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// IsType reports whether err wraps an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// TypeOf returns the type of the outermost AppError in err, or ErrorTypeInternal.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewSessionNotFoundError creates a not found error for an assessment session
func NewSessionNotFoundError(sessionID string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf("session %s not found", sessionID),
	}
}

// NewSessionTerminalError creates an error for a session that no longer accepts turns
func NewSessionTerminalError(sessionID, reason string) *AppError {
	return &AppError{
		Type:    ErrorTypeSessionTerminal,
		Message: fmt.Sprintf("session %s is terminal: %s", sessionID, reason),
	}
}

// NewTransitionError creates an error for an invalid state machine transition
func NewTransitionError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeTransition,
		Message: message,
	}
}

// NewInterpreterFailure creates an interpreter failure error
func NewInterpreterFailure(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInterpreter,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}
