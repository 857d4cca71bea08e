// Package errors provides structured error handling for the application
// Following enterprise patterns for error management and observability
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents an error code
type ErrorCode string

// Error codes for the chat routing pipeline and its surfaces
const (
	// Client errors (4xx)
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAccessDenied     ErrorCode = "ACCESS_DENIED"
	CodeConflict         ErrorCode = "CONFLICT"

	// Server errors (5xx)
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Pipeline conditions. Most of these degrade rather than abort:
	// once a candidate answer exists, nothing in the pipeline may
	// raise an error that discards it.
	CodeOutOfScope         ErrorCode = "OUT_OF_SCOPE"
	CodeBudgetExceeded     ErrorCode = "BUDGET_EXCEEDED"
	CodeRetrievalPartial   ErrorCode = "RETRIEVAL_PARTIAL_FAILURE"
	CodeProviderFailure    ErrorCode = "PROVIDER_FAILURE"
	CodeExtractionFailure  ErrorCode = "EXTRACTION_FAILURE"
	CodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"
	CodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	CodeSessionExpired     ErrorCode = "SESSION_EXPIRED"
	CodePlanNotFound       ErrorCode = "PLAN_NOT_FOUND"
	CodeActionNotConfirmed ErrorCode = "ACTION_NOT_CONFIRMED"
)

// AppError represents an application error with structured information
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Cause    error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the appropriate HTTP status code
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeValidationFailed, CodeActionNotConfirmed:
		return http.StatusBadRequest
	case CodeAccessDenied:
		return http.StatusForbidden
	case CodeNotFound, CodeSessionNotFound, CodePlanNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeSessionExpired:
		return http.StatusConflict
	case CodeServiceUnavailable, CodeProviderFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// New creates a new application error
func New(code ErrorCode, message, details string) *AppError {
	return &AppError{Code: code, Message: message, Details: details}
}

// NewBadRequestError creates a bad request error
func NewBadRequestError(message string) *AppError {
	return New(CodeBadRequest, message, "")
}

// NewValidationError creates a validation error
func NewValidationError(details string) *AppError {
	return New(CodeValidationFailed, "Validation failed", details)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return New(CodeInternal, message, "")
}

// NewSessionNotFoundError creates a session not found error
func NewSessionNotFoundError(sessionID string) *AppError {
	return New(
		CodeSessionNotFound,
		"Session not found",
		fmt.Sprintf("Session with ID %s does not exist", sessionID),
	).WithMetadata("session_id", sessionID)
}

// NewSessionAccessDeniedError creates an access denied error for a session
// owned by another user. Session ownership is the one precondition that
// rejects a message outright.
func NewSessionAccessDeniedError(sessionID string) *AppError {
	return New(
		CodeAccessDenied,
		"Session access denied",
		"The session belongs to another user",
	).WithMetadata("session_id", sessionID)
}

// NewProviderFailureError creates a provider failure error
func NewProviderFailureError(provider string, cause error) *AppError {
	return New(
		CodeProviderFailure,
		"Language model provider failed",
		fmt.Sprintf("Provider %s did not return a response", provider),
	).WithMetadata("provider", provider).WithCause(cause)
}

// NewExtractionFailureError creates a profile extraction failure error.
// The user-visible answer is still returned; only the profile update is skipped.
func NewExtractionFailureError(cause error) *AppError {
	return New(
		CodeExtractionFailure,
		"Profile extraction failed",
		"Structured health data could not be parsed from the model response",
	).WithCause(cause)
}

// NewPersistenceFailureError creates a persistence failure error.
// Logged and swallowed by callers that already hold a computed answer.
func NewPersistenceFailureError(operation string, cause error) *AppError {
	return New(
		CodePersistenceFailure,
		"Persistence operation failed",
		fmt.Sprintf("Failed to %s", operation),
	).WithCause(cause)
}

// NewPlanNotFoundError creates a diet plan not found error
func NewPlanNotFoundError(userID string) *AppError {
	return New(
		CodePlanNotFound,
		"Diet plan not found",
		fmt.Sprintf("No active plan for user %s", userID),
	).WithMetadata("user_id", userID)
}

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return CodeInternal
}
