// Package errors provides the application error type, error classification
// and HTTP status mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents an application error code.
type Code string

// Error codes for different error categories.
const (
	// Validation errors
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeUnknownContentType Code = "UNKNOWN_CONTENT_TYPE"

	// Resource errors
	CodeNotFound        Code = "NOT_FOUND"
	CodeSessionNotFound Code = "SESSION_NOT_FOUND"
	CodeConflict        Code = "CONFLICT"

	// Conversation state errors
	CodeTurnInFlight Code = "TURN_IN_FLIGHT"
	CodeInvalidState Code = "INVALID_STATE"

	// External service errors
	CodeExternalService  Code = "EXTERNAL_SERVICE_ERROR"
	CodeCircuitOpen      Code = "CIRCUIT_OPEN"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeQuotaExceeded    Code = "QUOTA_EXCEEDED"
	CodeTimeout          Code = "TIMEOUT"
	CodeGenerationFailed Code = "GENERATION_FAILED"

	// Internal errors
	CodeInternal Code = "INTERNAL_ERROR"
	CodeDatabase Code = "DATABASE_ERROR"
	CodeConfig   Code = "CONFIG_ERROR"
)

// Kind represents the kind of error for classification.
type Kind int

const (
	// KindUnknown is an unknown error kind.
	KindUnknown Kind = iota
	// KindUser indicates a user-caused error (bad input, unknown session, etc.).
	KindUser
	// KindSystem indicates a system error (database down, external service failure).
	KindSystem
	// KindTransient indicates a temporary error that may succeed on retry.
	KindTransient
)

// Error is the base application error type.
type Error struct {
	// Code is the machine-readable error code.
	Code Code `json:"code"`
	// Message is the human-readable error message.
	Message string `json:"message"`
	// Kind classifies the error for handling decisions.
	Kind Kind `json:"-"`
	// Op is the operation being performed (e.g., "wizard.Submit").
	Op string `json:"-"`
	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// HTTPStatus returns the appropriate HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeInvalidInput, CodeUnknownContentType:
		return http.StatusBadRequest
	case CodeNotFound, CodeSessionNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeTurnInFlight, CodeInvalidState:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeQuotaExceeded:
		return http.StatusPaymentRequired
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeCircuitOpen:
		return http.StatusServiceUnavailable
	case CodeExternalService, CodeGenerationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsRetriable returns true if the error may succeed on retry.
func (e *Error) IsRetriable() bool {
	return e.Kind == KindTransient
}

// IsUserError returns true if the error was caused by user action.
func (e *Error) IsUserError() bool {
	return e.Kind == KindUser
}

// ErrorResponse represents the JSON response for API errors.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error details in API responses.
type ErrorDetail struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// ToResponse converts an Error to an API response.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    e.Code,
			Message: e.Message,
		},
	}
}

// Constructor functions for common errors

// New creates a new Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Kind:    kindForCode(code),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, op string, code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Kind:    kindForCode(code),
		Op:      op,
		Err:     err,
	}
}

// WrapWithOp wraps an existing error preserving its code but adding operation context.
func WrapWithOp(err error, op string) *Error {
	var e *Error
	if errors.As(err, &e) {
		return &Error{
			Code:    e.Code,
			Message: e.Message,
			Kind:    e.Kind,
			Op:      op,
			Err:     e.Err,
		}
	}
	return &Error{
		Code:    CodeInternal,
		Message: err.Error(),
		Kind:    KindSystem,
		Op:      op,
		Err:     err,
	}
}

// kindForCode returns the default Kind for a given Code.
func kindForCode(code Code) Kind {
	switch code {
	case CodeValidation, CodeInvalidInput, CodeUnknownContentType:
		return KindUser
	case CodeNotFound, CodeSessionNotFound, CodeConflict, CodeTurnInFlight, CodeInvalidState:
		return KindUser
	case CodeRateLimited, CodeTimeout, CodeCircuitOpen:
		return KindTransient
	case CodeExternalService, CodeGenerationFailed:
		return KindTransient
	default:
		return KindSystem
	}
}

// Sentinel errors for common cases

var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = New(CodeNotFound, "resource not found")

	// ErrSessionNotFound indicates an unknown or expired wizard session.
	ErrSessionNotFound = New(CodeSessionNotFound, "session not found or expired")

	// ErrTurnInFlight indicates a session is still processing a previous turn.
	ErrTurnInFlight = New(CodeTurnInFlight, "a previous answer is still being processed")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = New(CodeRateLimited, "rate limit exceeded")

	// ErrQuotaExceeded indicates the content provider's quota is exhausted.
	ErrQuotaExceeded = New(CodeQuotaExceeded, "content generation quota exceeded")

	// ErrCircuitOpen indicates the circuit breaker is open.
	ErrCircuitOpen = New(CodeCircuitOpen, "service temporarily unavailable")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = New(CodeTimeout, "operation timed out")
)

// Specialized error constructors

// NotFound creates a not found error for a specific resource.
func NotFound(resource string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Kind:    KindUser,
	}
}

// ValidationFailed creates a validation error with details.
func ValidationFailed(message string) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: message,
		Kind:    KindUser,
	}
}

// InvalidInput creates an invalid input error.
func InvalidInput(message string) *Error {
	return &Error{
		Code:    CodeInvalidInput,
		Message: message,
		Kind:    KindUser,
	}
}

// InvalidState creates an error for an operation the session cannot accept now.
func InvalidState(message string, err error) *Error {
	return &Error{
		Code:    CodeInvalidState,
		Message: message,
		Kind:    KindUser,
		Err:     err,
	}
}

// UnknownContentType creates an error for an unsupported content type.
func UnknownContentType(contentType string) *Error {
	return &Error{
		Code:    CodeUnknownContentType,
		Message: fmt.Sprintf("unknown content type %q", contentType),
		Kind:    KindUser,
	}
}

// DatabaseError creates a database error with the underlying cause.
func DatabaseError(op string, err error) *Error {
	return &Error{
		Code:    CodeDatabase,
		Message: "database operation failed",
		Kind:    KindSystem,
		Op:      op,
		Err:     err,
	}
}

// GenerationError creates a content generation error for op.
func GenerationError(op string, err error) *Error {
	return &Error{
		Code:    CodeGenerationFailed,
		Message: "failed to generate content",
		Kind:    KindTransient,
		Op:      op,
		Err:     err,
	}
}

// InternalError creates a generic internal error.
func InternalError(message string, err error) *Error {
	return &Error{
		Code:    CodeInternal,
		Message: message,
		Kind:    KindSystem,
		Err:     err,
	}
}

// Helper functions

// GetCode extracts the error code from an error, returning CodeInternal for non-app errors.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsRetriable checks if an error is retriable.
func IsRetriable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.IsRetriable()
	}
	return false
}

// IsUserError checks if an error was caused by user action.
func IsUserError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.IsUserError()
	}
	return false
}
