package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// Predefined error codes
const (
	CodeConfigInvalid         = "CONFIG_INVALID"
	CodeDatabaseError         = "DATABASE_ERROR"
	CodeValidationError       = "VALIDATION_ERROR"
	CodeNotFound              = "NOT_FOUND"
	CodeInternalError         = "INTERNAL_ERROR"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeDataSourceUnavailable = "DATA_SOURCE_UNAVAILABLE"
	CodeInsufficientSample    = "INSUFFICIENT_SAMPLE"
	CodeModelFitFailure       = "MODEL_FIT_FAILURE"
	CodeCacheReadFailure      = "CACHE_READ_FAILURE"
	CodeRateLimited           = "RATE_LIMITED"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

// DataSourceUnavailable reports missing or unreadable input documents.
// This is the one fatal condition in the taxonomy: it surfaces to the
// caller as a service error instead of degrading the bundle.
func DataSourceUnavailable(document string, cause error) *AppError {
	return &AppError{
		Code:    CodeDataSourceUnavailable,
		Message: fmt.Sprintf("%s document unavailable", document),
		Cause:   cause,
	}
}

// InsufficientSample reports too few points for a statistic. Callers
// recover locally by omitting the statistic or falling back.
func InsufficientSample(message string) *AppError {
	return New(CodeInsufficientSample, message)
}

// ModelFitFailure reports numerical non-convergence or a defective fit.
// The forecast chain recovers by running the fallback strategy.
func ModelFitFailure(target string, cause error) *AppError {
	return &AppError{
		Code:    CodeModelFitFailure,
		Message: fmt.Sprintf("model fit failed for %s", target),
		Cause:   cause,
	}
}

// CacheReadFailure reports a corrupt or unreadable cache slot. The read
// path recovers by treating the slot as a miss.
func CacheReadFailure(cause error) *AppError {
	return &AppError{
		Code:    CodeCacheReadFailure,
		Message: "cache slot unreadable",
		Cause:   cause,
	}
}

// RateLimited reports the compute path shedding load.
func RateLimited(message string) *AppError {
	return New(CodeRateLimited, message)
}
