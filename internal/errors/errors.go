package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates a missing or malformed deployment setting. Always fatal.
	ErrCodeConfiguration ErrorCode = "configuration"
	// ErrCodeToken indicates a malformed, expired, or unenhanced token.
	ErrCodeToken ErrorCode = "token"
	// ErrCodeNetwork indicates the IDP could not be reached or answered with a failure status.
	ErrCodeNetwork ErrorCode = "network"
	// ErrCodeAuthentication indicates a user-facing login failure (bad credentials, CSRF mismatch).
	ErrCodeAuthentication ErrorCode = "authentication"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeNotImplemented indicates the operation is not supported by the active provider.
	ErrCodeNotImplemented ErrorCode = "not_implemented"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the setting or input that caused the error (optional)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newf(code ErrorCode, format string, args ...any) *AppError {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &AppError{Code: code, Message: msg}
}

// Configuration creates a fatal configuration error for the named setting.
func Configuration(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeConfiguration,
		Message: message,
		Field:   field,
	}
}

// Configurationf creates a configuration error with a formatted message and no field.
func Configurationf(format string, args ...any) *AppError {
	return newf(ErrCodeConfiguration, format, args...)
}

// Tokenf creates a token error with formatted message.
func Tokenf(format string, args ...any) *AppError {
	return newf(ErrCodeToken, format, args...)
}

// Networkf creates a network error with formatted message.
func Networkf(format string, args ...any) *AppError {
	return newf(ErrCodeNetwork, format, args...)
}

// Authentication creates a user-facing authentication error.
func Authentication(message string) *AppError {
	return &AppError{
		Code:    ErrCodeAuthentication,
		Message: message,
	}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: message,
	}
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: message,
	}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// NotImplemented creates an error for operations the active provider does not support.
func NotImplemented(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNotImplemented,
		Message: message,
	}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return newf(ErrCodeInternal, format, args...)
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsConfiguration checks if an error is a Configuration error.
func IsConfiguration(err error) bool {
	return IsCode(err, ErrCodeConfiguration)
}

// IsToken checks if an error is a Token error.
func IsToken(err error) bool {
	return IsCode(err, ErrCodeToken)
}

// IsNetwork checks if an error is a Network error.
func IsNetwork(err error) bool {
	return IsCode(err, ErrCodeNetwork)
}

// IsAuthentication checks if an error is an Authentication error.
func IsAuthentication(err error) bool {
	return IsCode(err, ErrCodeAuthentication)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return IsCode(err, ErrCodeConflict)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return IsCode(err, ErrCodeValidation)
}

// IsNotImplemented checks if an error is a NotImplemented error.
func IsNotImplemented(err error) bool {
	return IsCode(err, ErrCodeNotImplemented)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// UserMessage returns the message suitable for showing to an end user.
// Causes are omitted so transport details never leak into redirects.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
