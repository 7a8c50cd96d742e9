package apperrors

import (
	"errors"
	"fmt"
)

// Data-access errors
var (
	// ErrNotFound is used by callers that need a point lookup miss as an error.
	// Repositories themselves report a miss as an absent value.
	ErrNotFound = errors.New("entity not found")

	ErrConstraintViolation        = errors.New("constraint violation")
	ErrOptimisticLockConflict     = errors.New("optimistic lock conflict")
	ErrLazyAssociationUnavailable = errors.New("association not loaded")
	ErrInvalidArgument            = errors.New("invalid argument")
)

// Session errors
var (
	ErrNoActiveTransaction = errors.New("no active transaction")
	ErrTransactionActive   = errors.New("transaction already active")
	ErrSessionClosed       = errors.New("session closed")
)

// ConstraintError is returned when a write breaks a uniqueness or foreign-key
// constraint. It matches ErrConstraintViolation.
type ConstraintError struct {
	Kind       string // "unique", "foreign_key" or "check"
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("%s constraint %q violated: %v", e.Kind, e.Constraint, e.Err)
	}
	return fmt.Sprintf("%s constraint violated: %v", e.Kind, e.Err)
}

func (e *ConstraintError) Is(target error) bool { return target == ErrConstraintViolation }

func (e *ConstraintError) Unwrap() error { return e.Err }

// OptimisticLockError reports a stale version token.
type OptimisticLockError struct {
	Entity  string
	ID      int64
	Version int64
}

func (e *OptimisticLockError) Error() string {
	return fmt.Sprintf("%s %d: version %d is stale", e.Entity, e.ID, e.Version)
}

func (e *OptimisticLockError) Is(target error) bool { return target == ErrOptimisticLockConflict }

// NotLoadedError is returned by association accessors when the association
// was not fetched by the query that produced the owner.
type NotLoadedError struct {
	Association string
}

func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("association %q was not loaded; fetch it explicitly", e.Association)
}

func (e *NotLoadedError) Is(target error) bool { return target == ErrLazyAssociationUnavailable }

// NewNotLoadedError creates a NotLoadedError for the named association
func NewNotLoadedError(association string) error {
	return &NotLoadedError{Association: association}
}

// InvalidArgumentError describes a malformed query parameter.
type InvalidArgumentError struct {
	Param  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Param, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// NewInvalidArgument creates an InvalidArgumentError
func NewInvalidArgument(param, format string, args ...any) error {
	return &InvalidArgumentError{Param: param, Reason: fmt.Sprintf(format, args...)}
}

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrNotFound,
		Message: message,
	}
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
