package flowstate

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("run", "run_123")

	assert.Equal(t, ErrCodeNotFound, err.Code)
	assert.Equal(t, "run", err.Entity)
	assert.Equal(t, "run_123", err.ID)
	assert.Equal(t, "[NOT_FOUND] run run_123 not found", err.Error())
}

func TestNewConflict(t *testing.T) {
	err := NewConflict("step", "step-a", "step step-a already exists in run run_1")

	assert.Equal(t, ErrCodeConflict, err.Code)
	assert.Equal(t, "step", err.Entity)
	assert.Contains(t, err.Error(), "already exists")
}

func TestNewBackendFailure(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewBackendFailure("query runs", cause)

	assert.Equal(t, ErrCodeBackendFailure, err.Code)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "query runs failed")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		notFound       bool
		conflict       bool
		backendFailure bool
	}{
		{
			name:     "not found",
			err:      NewNotFound("hook", "h1"),
			notFound: true,
		},
		{
			name:     "conflict",
			err:      NewConflict("run", "run_1", "run run_1 already exists"),
			conflict: true,
		},
		{
			name:           "backend failure",
			err:            NewBackendFailure("put item", errors.New("throttled")),
			backendFailure: true,
		},
		{
			name: "plain error",
			err:  errors.New("something else"),
		},
		{
			name: "nil error",
			err:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.conflict, IsConflict(tt.err))
			assert.Equal(t, tt.backendFailure, IsBackendFailure(tt.err))
		})
	}
}

func TestErrorPredicates_Wrapped(t *testing.T) {
	// Predicates see through fmt.Errorf wrapping
	err := fmt.Errorf("handling request: %w", NewNotFound("run", "run_1"))

	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NewNotFound("run", "run_1")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(NewConflict("hook", "h1", "hook h1 already exists")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(NewBackendFailure("get item", errors.New("boom"))))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("untyped")))
}
