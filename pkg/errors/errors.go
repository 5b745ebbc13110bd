// Package errors defines the error values that cross layer boundaries and
// how each one is presented over HTTP.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels. Repositories and services wrap these; handlers never inspect
// anything else.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrAlreadyExists   = errors.New("resource already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrServiceUnavail  = errors.New("service unavailable")
	ErrTooManyRequests = errors.New("too many requests")
	ErrUploadFailed    = errors.New("upload failed")
)

// AppError is an error with a client-facing code and message. Err carries
// the sentinel and, optionally, the underlying cause; it is never shown to
// clients.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// kind is the HTTP presentation of a bare sentinel.
type kind struct {
	sentinel error
	status   int
	code     string
	message  string
}

var kinds = []kind{
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND", "resource not found"},
	{ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS", "resource already exists"},
	{ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT", ""},
	{ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized request"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN", "forbidden"},
	{ErrTooManyRequests, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "too many requests"},
	{ErrServiceUnavail, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service temporarily unavailable, please retry"},
	{ErrUploadFailed, http.StatusInternalServerError, "UPLOAD_FAILED", "upload failed"},
}

const (
	internalCode    = "INTERNAL_ERROR"
	internalMessage = "an internal error occurred"
)

// Describe returns the status, code and message a client should see for
// err. An AppError anywhere in the chain wins; then the first matching
// sentinel; anything else is an opaque 500. Invalid input keeps err's own
// text because it describes the client's mistake.
func Describe(err error) (status int, code, message string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Code, appErr.Message
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			if k.message == "" {
				return k.status, k.code, err.Error()
			}
			return k.status, k.code, k.message
		}
	}
	return http.StatusInternalServerError, internalCode, internalMessage
}

// HTTPStatus is the status half of Describe.
func HTTPStatus(err error) int {
	status, _, _ := Describe(err)
	return status
}

func newError(status int, code, message string, sentinel, cause error) *AppError {
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &AppError{Code: code, Message: message, Status: status, Err: err}
}

// NotFound reports a missing resource by id.
func NotFound(resource, id string) *AppError {
	return NotFoundMessage(fmt.Sprintf("%s with id %s not found", resource, id))
}

func NotFoundMessage(message string) *AppError {
	return newError(http.StatusNotFound, "NOT_FOUND", message, ErrNotFound, nil)
}

// AlreadyExists reports a uniqueness conflict on field.
func AlreadyExists(resource, field, value string) *AppError {
	msg := fmt.Sprintf("%s with %s %q already exists", resource, field, value)
	return newError(http.StatusConflict, "ALREADY_EXISTS", msg, ErrAlreadyExists, nil)
}

func InvalidInput(message string) *AppError {
	return newError(http.StatusBadRequest, "INVALID_INPUT", message, ErrInvalidInput, nil)
}

func Unauthorized(message string) *AppError {
	return AuthFailure("UNAUTHORIZED", message, nil)
}

// AuthFailure is a 401 with a specific code. It matches ErrUnauthorized
// and cause under errors.Is.
func AuthFailure(code, message string, cause error) *AppError {
	return newError(http.StatusUnauthorized, code, message, ErrUnauthorized, cause)
}

func Forbidden(message string) *AppError {
	return newError(http.StatusForbidden, "FORBIDDEN", message, ErrForbidden, nil)
}

func TooManyRequests(message string) *AppError {
	return newError(http.StatusTooManyRequests, "TOO_MANY_REQUESTS", message, ErrTooManyRequests, nil)
}

// UploadFailed is a 500 for a media host that refused or lost a file.
func UploadFailed(message string, cause error) *AppError {
	return newError(http.StatusInternalServerError, "UPLOAD_FAILED", message, ErrUploadFailed, cause)
}

// Unavailable is a 503; clients may retry.
func Unavailable(cause error) *AppError {
	return newError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
		"service temporarily unavailable, please retry", ErrServiceUnavail, cause)
}

// Internal hides cause behind a generic 500.
func Internal(cause error) *AppError {
	return &AppError{Code: internalCode, Message: internalMessage, Status: http.StatusInternalServerError, Err: cause}
}
