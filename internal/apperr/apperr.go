// Package apperr defines the closed set of error kinds that cross the
// service boundary. Handlers switch on Kind to pick a status code; any error
// that is not an *Error is treated as KindInternal.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindMethodNotAllowed
	KindService
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindUnauthorized:
		return "UnauthorizedError"
	case KindForbidden:
		return "ForbiddenError"
	case KindNotFound:
		return "NotFoundError"
	case KindMethodNotAllowed:
		return "MethodNotAllowedError"
	case KindService:
		return "ServiceError"
	default:
		return "InternalServerError"
	}
}

// StatusCode maps a kind to its HTTP status.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindService:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error carrying a user-facing message and suggested action.
type Error struct {
	Kind    Kind
	Message string
	Action  string

	// Feature names the capability that was missing, for KindForbidden.
	Feature string

	// Cause is kept for server-side logs only.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind and message, so callers can
// compare against prototypes with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}

func Validation(message, action string) *Error {
	if message == "" {
		message = "Validation Error."
	}
	if action == "" {
		action = "Adjust data and try again"
	}
	return &Error{Kind: KindValidation, Message: message, Action: action}
}

func Unauthorized(message, action string) *Error {
	if message == "" {
		message = "User is not authenticated."
	}
	if action == "" {
		action = "Log in and try again."
	}
	return &Error{Kind: KindUnauthorized, Message: message, Action: action}
}

// Forbidden reports that the caller lacks feature.
func Forbidden(feature string) *Error {
	return &Error{
		Kind:    KindForbidden,
		Message: "You do not have permission to execute this action.",
		Action:  "Verify if your user has the feature " + feature + ".",
		Feature: feature,
	}
}

func NotFound(message, action string) *Error {
	if message == "" {
		message = "Not found Error."
	}
	if action == "" {
		action = "Adjust data and try again"
	}
	return &Error{Kind: KindNotFound, Message: message, Action: action}
}

func MethodNotAllowed() *Error {
	return &Error{
		Kind:    KindMethodNotAllowed,
		Message: "Method not allowed for this endpoint.",
		Action:  "Verify if the requested method is valid for this endpoint.",
	}
}

// Service wraps a downstream infrastructure failure, such as mail transport.
func Service(message string, cause error) *Error {
	if message == "" {
		message = "Service Unavailable."
	}
	return &Error{Kind: KindService, Message: message, Action: "Verify service status", Cause: cause}
}

// Internal hides cause behind a generic message.
func Internal(cause error) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: "An unexpected internal error happened.",
		Action:  "Contact support",
		Cause:   cause,
	}
}

// Public is the JSON shape of an error sent to clients.
type Public struct {
	Name       string `json:"name"`
	Message    string `json:"message"`
	Action     string `json:"action"`
	StatusCode int    `json:"status_code"`
}

// ToPublic normalizes any error into the client-facing payload. Non-domain
// errors collapse into the generic internal error.
func ToPublic(err error) Public {
	appErr, ok := As(err)
	if !ok {
		appErr = Internal(err)
	}
	return Public{
		Name:       appErr.Kind.String(),
		Message:    appErr.Message,
		Action:     appErr.Action,
		StatusCode: appErr.Kind.StatusCode(),
	}
}
