package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes exposed on the wire. The mapping to HTTP statuses is total:
// anything that is not one of these collapses to internal_error / 500.
const (
	CodeAuthentication  = "authentication_error"
	CodeAuthorization   = "authorization_error"
	CodeValidation      = "validation_error"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeAlreadyApproved = "already_approved"
	CodeApprovalLimit   = "approval_limit_exceeded"
	CodeInvalidState    = "invalid_state"
	CodeExternal        = "external_service_error"
	CodeInternal        = "internal_error"
)

// Error is the application error type. Services return it directly; the
// handler layer maps it to a transport response without inspecting causes.
type Error struct {
	Code    string
	Status  int
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// WithCause attaches an underlying error without changing the wire shape.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

func newError(code string, status int, message string, details map[string]any) *Error {
	if details == nil {
		details = map[string]any{}
	}
	return &Error{Code: code, Status: status, Message: message, Details: details}
}

func Authentication(message string) *Error {
	return newError(CodeAuthentication, http.StatusUnauthorized, message, nil)
}

func Authorization(message string) *Error {
	return newError(CodeAuthorization, http.StatusForbidden, message, nil)
}

func Validation(message string, details map[string]any) *Error {
	return newError(CodeValidation, http.StatusUnprocessableEntity, message, details)
}

func NotFound(message string, details map[string]any) *Error {
	return newError(CodeNotFound, http.StatusNotFound, message, details)
}

func Conflict(message string, details map[string]any) *Error {
	return newError(CodeConflict, http.StatusConflict, message, details)
}

func AlreadyApproved(message string, details map[string]any) *Error {
	return newError(CodeAlreadyApproved, http.StatusConflict, message, details)
}

func ApprovalLimit(message string, details map[string]any) *Error {
	return newError(CodeApprovalLimit, http.StatusForbidden, message, details)
}

func InvalidState(message string, details map[string]any) *Error {
	return newError(CodeInvalidState, http.StatusBadRequest, message, details)
}

// ExternalService wraps a failure talking to a named collaborator. It maps
// to 500: the caller can do nothing different, and the remote error text is
// the only useful diagnostic.
func ExternalService(service string, err error) *Error {
	e := newError(CodeExternal, http.StatusInternalServerError,
		fmt.Sprintf("%s operation failed", service),
		map[string]any{"service": service})
	return e.WithCause(err)
}

func Internal(message string) *Error {
	return newError(CodeInternal, http.StatusInternalServerError, message, nil)
}

// From normalizes any error to an *Error. Unknown errors become a generic
// internal_error so nothing internal leaks to the transport.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error")
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
