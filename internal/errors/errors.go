// Package errors provides a single structured error type used at every
// package boundary in robobrain, so stage functions and adapters return one
// consistent shape instead of ad-hoc sentinel errors.
package errors

import (
	"fmt"
	"net/http"

	goerrors "github.com/go-faster/errors"
)

// ErrorType classifies an AppError for HTTP mapping and for the error
// handling table in SPEC_FULL.md §7.
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeAuth             ErrorType = "auth"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypeConflict         ErrorType = "conflict"
	ErrorTypeTimeout          ErrorType = "timeout"
	ErrorTypeRateLimit        ErrorType = "rate_limit"
	ErrorTypeDatabase         ErrorType = "database"
	ErrorTypeNetwork          ErrorType = "network"
	ErrorTypeInternal         ErrorType = "internal"
	ErrorTypeParse            ErrorType = "parse"
	ErrorTypeGuardrails       ErrorType = "guardrails"
	ErrorTypeSkillFailed      ErrorType = "skill_failed"
	ErrorTypeApprovalRejected ErrorType = "approval_rejected"
	ErrorTypeTelemetry        ErrorType = "telemetry"
	ErrorTypeWorld            ErrorType = "world"
	ErrorTypeStore            ErrorType = "store"
)

var statusCodes = map[ErrorType]int{
	ErrorTypeValidation:       http.StatusBadRequest,
	ErrorTypeAuth:             http.StatusUnauthorized,
	ErrorTypeNotFound:         http.StatusNotFound,
	ErrorTypeConflict:         http.StatusConflict,
	ErrorTypeTimeout:          http.StatusRequestTimeout,
	ErrorTypeRateLimit:        http.StatusTooManyRequests,
	ErrorTypeDatabase:         http.StatusInternalServerError,
	ErrorTypeNetwork:          http.StatusInternalServerError,
	ErrorTypeInternal:         http.StatusInternalServerError,
	ErrorTypeParse:            http.StatusUnprocessableEntity,
	ErrorTypeGuardrails:       http.StatusUnprocessableEntity,
	ErrorTypeSkillFailed:      http.StatusInternalServerError,
	ErrorTypeApprovalRejected: http.StatusForbidden,
	ErrorTypeTelemetry:        http.StatusBadGateway,
	ErrorTypeWorld:            http.StatusBadGateway,
	ErrorTypeStore:            http.StatusInternalServerError,
}

// AppError is the structured error carried across every stage and adapter
// boundary.
type AppError struct {
	Type       ErrorType
	Message    string
	Details    string
	Cause      error
	StatusCode int
}

// New creates an AppError of the given type with no cause.
func New(t ErrorType, message string) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: statusCodeFor(t),
	}
}

// Newf creates an AppError with a formatted message.
func Newf(t ErrorType, format string, args ...interface{}) *AppError {
	return New(t, fmt.Sprintf(format, args...))
}

// Wrap attaches cause to a new AppError of the given type. Cause stays
// reachable via Unwrap for errors.Is/errors.As.
func Wrap(cause error, t ErrorType, message string) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		Cause:      cause,
		StatusCode: statusCodeFor(t),
	}
}

// Wrapf attaches cause to a new AppError with a formatted message.
func Wrapf(cause error, t ErrorType, format string, args ...interface{}) *AppError {
	return &AppError{
		Type:       t,
		Message:    fmt.Sprintf(format, args...),
		Cause:      cause,
		StatusCode: statusCodeFor(t),
	}
}

func statusCodeFor(t ErrorType) int {
	if code, ok := statusCodes[t]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// WithDetails sets Details and returns the same error for chaining.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithDetailsf sets a formatted Details and returns the same error.
func (e *AppError) WithDetailsf(format string, args ...interface{}) *AppError {
	e.Details = fmt.Sprintf(format, args...)
	return e
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes Cause to errors.Is/errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError is a convenience constructor matching the common
// case of a field-level validation failure.
func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message)
}

// NewDatabaseError wraps a lower-level store error with its operation name.
func NewDatabaseError(operation string, cause error) *AppError {
	return Wrapf(cause, ErrorTypeDatabase, "database operation failed: %s", operation)
}

// NewNotFoundError reports a missing named resource.
func NewNotFoundError(resource string) *AppError {
	return Newf(ErrorTypeNotFound, "%s not found", resource)
}

// NewGuardrailsError reports one or more guardrail rejections joined into
// a single message, matching R4's GUARDRAILS_FAILED disposition.
func NewGuardrailsError(reasons []string) *AppError {
	return New(ErrorTypeGuardrails, "guardrails check failed").WithDetailsf("%v", reasons)
}

// NewAuthError reports an authentication/authorization failure.
func NewAuthError(message string) *AppError {
	return New(ErrorTypeAuth, message)
}

// NewTimeoutError reports an operation that exceeded its deadline.
func NewTimeoutError(operation string) *AppError {
	return Newf(ErrorTypeTimeout, "operation timed out: %s", operation)
}

// IsType reports whether err is an *AppError of the given type.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if goerrors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// GetType returns err's ErrorType, or ErrorTypeInternal if err is not an
// *AppError.
func GetType(err error) ErrorType {
	var appErr *AppError
	if goerrors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// GetStatusCode returns err's HTTP status code, or 500 if err is not an
// *AppError.
func GetStatusCode(err error) int {
	var appErr *AppError
	if goerrors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// ErrorMessages holds the user-facing text for error types whose internal
// Message may contain details not meant for external consumers.
var ErrorMessages = struct {
	ResourceNotFound       string
	AuthenticationFailed   string
	OperationTimeout       string
	RateLimitExceeded      string
	ConcurrentModification string
}{
	ResourceNotFound:       "The requested resource could not be found",
	AuthenticationFailed:   "Authentication failed",
	OperationTimeout:       "The operation timed out",
	RateLimitExceeded:      "Too many requests, please try again later",
	ConcurrentModification: "The resource was modified by another request",
}

// SafeErrorMessage returns text safe to surface to an external caller:
// validation messages pass through verbatim (they describe the caller's own
// bad input), everything else is mapped to a generic, type-specific string
// so internal details never leak across the API boundary.
func SafeErrorMessage(err error) string {
	var appErr *AppError
	if !goerrors.As(err, &appErr) {
		return "An unexpected error occurred"
	}
	switch appErr.Type {
	case ErrorTypeValidation:
		return appErr.Message
	case ErrorTypeNotFound:
		return ErrorMessages.ResourceNotFound
	case ErrorTypeAuth:
		return ErrorMessages.AuthenticationFailed
	case ErrorTypeTimeout:
		return ErrorMessages.OperationTimeout
	case ErrorTypeRateLimit:
		return ErrorMessages.RateLimitExceeded
	case ErrorTypeConflict:
		return ErrorMessages.ConcurrentModification
	default:
		return "An internal error occurred"
	}
}

// LogFields flattens err into a structured field map suitable for a
// logr.Logger's key-value pairs.
func LogFields(err error) map[string]interface{} {
	fields := map[string]interface{}{"error": err.Error()}
	var appErr *AppError
	if !goerrors.As(err, &appErr) {
		return fields
	}
	fields["error_type"] = string(appErr.Type)
	fields["status_code"] = appErr.StatusCode
	if appErr.Details != "" {
		fields["error_details"] = appErr.Details
	}
	if appErr.Cause != nil {
		fields["underlying_error"] = appErr.Cause.Error()
	}
	return fields
}

// Chain joins non-nil errors into a single error, preserving order. It
// returns nil if every argument is nil, and the error unchanged if exactly
// one is non-nil.
func Chain(errs ...error) error {
	var nonNil []error
	for _, e := range errs {
		if e != nil {
			nonNil = append(nonNil, e)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		msgs := make([]string, len(nonNil))
		for i, e := range nonNil {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("%s", joinArrow(msgs))
	}
}

func joinArrow(msgs []string) string {
	out := msgs[0]
	for _, m := range msgs[1:] {
		out += " -> " + m
	}
	return out
}
