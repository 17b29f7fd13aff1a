// Package errors defines the error taxonomy shared by every client component.
//
// Three kinds of failure reach the user:
//   - VALIDATION: detected locally before any request is sent
//   - REQUEST_FAILURE: the backend or the transport rejected a call
//   - NOT_FOUND_IN_LOCAL: the local cache has drifted from the backend
//
// None of them is fatal; the component that returned one stays usable.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of an error.
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "VALIDATION"
	ErrorTypeRequestFailure  ErrorType = "REQUEST_FAILURE"
	ErrorTypeNotFoundInLocal ErrorType = "NOT_FOUND_IN_LOCAL"
	ErrorTypeInternal        ErrorType = "INTERNAL"
)

// Error codes for programmatic handling.
const (
	CodeTitleRequired     = "TITLE_REQUIRED"
	CodeNameRequired      = "NAME_REQUIRED"
	CodeNoActiveTopic     = "NO_ACTIVE_TOPIC"
	CodeSelfLoop          = "EDGE_SELF_LOOP"
	CodeDuplicateEdge     = "EDGE_DUPLICATE"
	CodeMissingEndpoint   = "EDGE_MISSING_ENDPOINT"
	CodePromptRequired    = "PROMPT_REQUIRED"
	CodeNoSelection       = "NO_SELECTION"
	CodeNoEditSession     = "NO_EDIT_SESSION"
	CodeInvalidCommand    = "INVALID_COMMAND"
	CodeNodeNotFound      = "NODE_NOT_FOUND"
	CodeEdgeNotFound      = "EDGE_NOT_FOUND"
	CodeTransport         = "TRANSPORT"
	CodeBackend           = "BACKEND"
	CodeDecode            = "DECODE"
	CodeHandlerNotFound   = "HANDLER_NOT_FOUND"
	CodeInvalidAttachment = "INVALID_ATTACHMENT"
	CodeHandlerPanic      = "HANDLER_PANIC"
	CodeTopicNotFound     = "TOPIC_NOT_FOUND"
)

// AppError is the single error type surfaced by the client.
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code,omitempty"`
	Message    string    `json:"message"`
	Operation  string    `json:"operation,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Operation, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithOperation records which operation failed
func (e *AppError) WithOperation(op string) *AppError {
	e.Operation = op
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// NewValidationError creates an error for input rejected before any request.
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewRequestFailure creates an error for a failed backend call. message is
// the human readable text shown to the user; status is 0 for transport errors.
func NewRequestFailure(operation, message string, status int, cause error) *AppError {
	code := CodeBackend
	if status == 0 {
		code = CodeTransport
	}
	return &AppError{
		Type:       ErrorTypeRequestFailure,
		Code:       code,
		Message:    message,
		Operation:  operation,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewNotFoundInLocal creates an error for a lookup that missed the local cache.
func NewNotFoundInLocal(code, resource string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFoundInLocal,
		Code:    code,
		Message: fmt.Sprintf("%s not found in local state", resource),
	}
}

// NewInternalError creates an internal error
func NewInternalError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsRequestFailure checks if an error came from a failed backend call
func IsRequestFailure(err error) bool {
	return IsType(err, ErrorTypeRequestFailure)
}

// IsNotFoundInLocal checks if an error reports local state drift
func IsNotFoundInLocal(err error) bool {
	return IsType(err, ErrorTypeNotFoundInLocal)
}

// UserMessage returns the text to show for err. AppErrors show their
// message only; anything else falls back to err.Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Message
	}
	return err.Error()
}
