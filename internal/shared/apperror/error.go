package apperror

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code       string         // Error code (e.g., INVALID_INPUT)
	Message    string         // User-friendly message
	HTTPStatus int            // HTTP status code
	Err        error          // Wrapped original error (optional)
	Details    map[string]any // Structured context for the client (optional)

	base *AppError
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements errors.Unwrap interface for errors.Is/As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches copies produced by WithDetails against their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e == t || (e.base != nil && e.base == t)
}

// New creates a new AppError without wrapping
func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        nil,
	}
}

// Wrap creates an AppError that wraps an existing error
func Wrap(err error, code, message string, httpStatus int) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// WithDetails returns a copy carrying details. The copy still satisfies
// errors.Is against the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	root := e
	if e.base != nil {
		root = e.base
	}
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		HTTPStatus: e.HTTPStatus,
		Err:        e.Err,
		Details:    details,
		base:       root,
	}
}

// WithMessage returns a copy with a more specific message, keeping errors.Is identity.
func (e *AppError) WithMessage(message string) *AppError {
	cp := e.WithDetails(e.Details)
	cp.Message = message
	return cp
}

func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
