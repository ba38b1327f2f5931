package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeInput             = "INPUT_ERROR"
	ErrCodeIllegalMove       = "ILLEGAL_MOVE"
	ErrCodeEngineUnavailable = "ENGINE_UNAVAILABLE"
)

// Sentinels for errors.Is checks against coded errors.
var (
	ErrInput             = stderrors.New("input error")
	ErrIllegalMove       = stderrors.New("illegal move")
	ErrEngineUnavailable = stderrors.New("engine unavailable")
	ErrNotFound          = stderrors.New("not found")
)

var sentinelByCode = map[string]error{
	ErrCodeInput:             ErrInput,
	ErrCodeIllegalMove:       ErrIllegalMove,
	ErrCodeEngineUnavailable: ErrEngineUnavailable,
	ErrCodeNotFound:          ErrNotFound,
}

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	Code    string // Error code (e.g., "NOT_FOUND", "ILLEGAL_MOVE")
	Message string // Human-readable error message
	Status  int    // HTTP status code
	Err     error  // Wrapped underlying error (optional)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's code.
func (e *AppError) Is(target error) bool {
	if s, ok := sentinelByCode[e.Code]; ok {
		return s == target
	}
	return false
}

// As extracts an *AppError from anywhere in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  404,
	}
}

// NewValidationError creates a new VALIDATION_ERROR
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Status:  400,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  500,
		Err:     err,
	}
}

// NewBadRequestError creates a new BAD_REQUEST error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  400,
	}
}

// NewInputError reports a malformed or unsupported game record.
func NewInputError(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeInput,
		Message: fmt.Sprintf(format, args...),
		Status:  400,
	}
}

// NewIllegalMoveError reports a move that is not legal in the position it
// was played from. ply is zero-based.
func NewIllegalMoveError(ply int, move string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeIllegalMove,
		Message: fmt.Sprintf("illegal move %q at ply %d", move, ply),
		Status:  422,
		Err:     cause,
	}
}

// NewEngineUnavailableError reports that the evaluator could not be started
// or stopped responding. It is never retried.
func NewEngineUnavailableError(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeEngineUnavailable,
		Message: "evaluation engine unavailable",
		Status:  503,
		Err:     cause,
	}
}

// FromDeadline reports a context deadline breach as ENGINE_UNAVAILABLE.
// Coded errors and anything else pass through unchanged.
func FromDeadline(err error) error {
	if _, ok := As(err); ok {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewEngineUnavailableError(err)
	}
	return err
}
