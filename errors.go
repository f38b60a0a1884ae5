package flowstate

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeBackendFailure = "BACKEND_FAILURE"
)

// Error is the typed error returned by every store operation. NotFound and
// Conflict are application-level outcomes callers are expected to branch on;
// BackendFailure wraps an underlying infrastructure error and must never be
// collapsed into an empty result.
type Error struct {
	Code    string `json:"code"`
	Entity  string `json:"entity,omitempty"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// NewNotFound creates a NotFound error for the given entity and identifier
func NewNotFound(entity, id string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Entity:  entity,
		ID:      id,
		Message: fmt.Sprintf("%s %s not found", entity, id),
	}
}

// NewConflict creates a Conflict error for a violated uniqueness or
// transition precondition
func NewConflict(entity, id, message string) *Error {
	return &Error{
		Code:    ErrCodeConflict,
		Entity:  entity,
		ID:      id,
		Message: message,
	}
}

// NewBackendFailure wraps an infrastructure-level error from the backing store
func NewBackendFailure(op string, err error) *Error {
	return &Error{
		Code:    ErrCodeBackendFailure,
		Message: fmt.Sprintf("%s failed", op),
		Err:     err,
	}
}

func codeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsNotFound checks whether err is a NotFound store error
func IsNotFound(err error) bool {
	return codeOf(err) == ErrCodeNotFound
}

// IsConflict checks whether err is a Conflict store error
func IsConflict(err error) bool {
	return codeOf(err) == ErrCodeConflict
}

// IsBackendFailure checks whether err is a BackendFailure store error
func IsBackendFailure(err error) bool {
	return codeOf(err) == ErrCodeBackendFailure
}

// HTTPStatus maps a store error to the status code an HTTP front-end
// should respond with
func HTTPStatus(err error) int {
	switch codeOf(err) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
