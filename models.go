package flowstate

import (
	"encoding/json"
	"time"
)

// RunStatus represents the current state of a workflow run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusPaused    RunStatus = "paused"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal returns true if the status is a final state
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// String returns the string representation
func (s RunStatus) String() string {
	return string(s)
}

// StepStatus represents the current state of a step within a run
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// String returns the string representation
func (s StepStatus) String() string {
	return string(s)
}

// Run represents a single workflow execution instance
type Run struct {
	RunID        string `json:"runId"`
	WorkflowName string `json:"workflowName"`
	DeploymentID string `json:"deploymentId"`

	Status RunStatus `json:"status"`

	Input            json.RawMessage `json:"input,omitempty"`
	ExecutionContext json.RawMessage `json:"executionContext,omitempty"`
	Output           json.RawMessage `json:"output,omitempty"`

	Error     *string `json:"error,omitempty"`
	ErrorCode *string `json:"errorCode,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Step tracks a single step execution within a run.
// (RunID, StepID) is unique; StepID may be caller-supplied.
type Step struct {
	RunID    string `json:"runId"`
	StepID   string `json:"stepId"`
	StepName string `json:"stepName"`

	Status  StepStatus `json:"status"`
	Attempt int        `json:"attempt"`

	Input  json.RawMessage `json:"input,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`

	Error     *string `json:"error,omitempty"`
	ErrorCode *string `json:"errorCode,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Hook is a registered callback handle scoped to a run. Hooks are immutable
// once created; the token is used for reverse lookup by external callers.
type Hook struct {
	HookID string `json:"hookId"`
	RunID  string `json:"runId"`
	Token  string `json:"token"`

	OwnerID       *string `json:"ownerId,omitempty"`
	ProjectID     *string `json:"projectId,omitempty"`
	EnvironmentID *string `json:"environmentId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Event is an append-only log entry under a run
type Event struct {
	EventID string `json:"eventId"`
	RunID   string `json:"runId"`

	EventType     string          `json:"eventType"`
	EventData     json.RawMessage `json:"eventData,omitempty"`
	CorrelationID *string         `json:"correlationId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// RunUpdate is a partial update for a run. Nil fields are left untouched.
type RunUpdate struct {
	Status           *RunStatus
	Output           json.RawMessage
	Error            *string
	ErrorCode        *string
	DeploymentID     *string
	ExecutionContext json.RawMessage
}

// IsEmpty reports whether the update carries no recognized fields
func (u RunUpdate) IsEmpty() bool {
	return u.Status == nil && u.Output == nil && u.Error == nil &&
		u.ErrorCode == nil && u.DeploymentID == nil && u.ExecutionContext == nil
}

// StepUpdate is a partial update for a step. Nil fields are left untouched.
type StepUpdate struct {
	Status    *StepStatus
	Output    json.RawMessage
	Error     *string
	ErrorCode *string
	Attempt   *int
}

// IsEmpty reports whether the update carries no recognized fields
func (u StepUpdate) IsEmpty() bool {
	return u.Status == nil && u.Output == nil && u.Error == nil &&
		u.ErrorCode == nil && u.Attempt == nil
}

// SortOrder controls the direction of range listings
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Default page sizes per entity type
const (
	DefaultRunPageSize   = 20
	DefaultStepPageSize  = 20
	DefaultHookPageSize  = 100
	DefaultEventPageSize = 100
)

// PageOptions selects a window of a listing. Cursor is the opaque value
// returned by the previous page of the same query; cursors are not portable
// across different list variants.
type PageOptions struct {
	Limit  int
	Cursor string
}

// LimitOr returns the requested limit, falling back to def when unset
func (p PageOptions) LimitOr(def int) int {
	if p.Limit > 0 {
		return p.Limit
	}
	return def
}

// Page is one window of a listing. Cursor is the last returned record's
// natural sort attribute, nil when the page is empty.
type Page[T any] struct {
	Items   []T     `json:"items"`
	Cursor  *string `json:"cursor"`
	HasMore bool    `json:"hasMore"`
}
