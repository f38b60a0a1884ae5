package flowstate

import "context"

// The store interfaces live in the root package so that both the DynamoDB
// and memory implementations in the store package can depend on the domain
// model without an import cycle.

// CreateRunParams carries the caller-supplied attributes of a new run
type CreateRunParams struct {
	WorkflowName     string
	Input            []byte
	ExecutionContext []byte
	DeploymentID     string
}

// ListRunsParams selects which listing index to use. WorkflowName takes
// priority over Status; with neither set, all runs are listed.
type ListRunsParams struct {
	WorkflowName string
	Status       RunStatus
	Page         PageOptions
}

// RunStore persists workflow runs
type RunStore interface {
	CreateRun(ctx context.Context, params CreateRunParams) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	UpdateRun(ctx context.Context, runID string, update RunUpdate) (*Run, error)
	CancelRun(ctx context.Context, runID string) (*Run, error)
	PauseRun(ctx context.Context, runID string) (*Run, error)
	ResumeRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, params ListRunsParams) (*Page[*Run], error)
}

// CreateStepParams carries the caller-supplied attributes of a new step.
// StepID is optional; one is generated when empty.
type CreateStepParams struct {
	RunID    string
	StepName string
	Input    []byte
	StepID   string
}

// StepStore persists step executions under a run
type StepStore interface {
	CreateStep(ctx context.Context, params CreateStepParams) (*Step, error)
	GetStep(ctx context.Context, runID, stepID string) (*Step, error)
	UpdateStep(ctx context.Context, runID, stepID string, update StepUpdate) (*Step, error)
	ListSteps(ctx context.Context, runID string, page PageOptions) (*Page[*Step], error)
}

// HookStore persists callback hooks. HookID is caller-supplied and globally
// unique; the token supports reverse lookup.
type HookStore interface {
	CreateHook(ctx context.Context, runID, hookID, token string) (*Hook, error)
	GetHook(ctx context.Context, hookID string) (*Hook, error)
	GetHookByToken(ctx context.Context, token string) (*Hook, error)
	DisposeHook(ctx context.Context, hookID string) (*Hook, error)
	ListHooks(ctx context.Context, runID string, page PageOptions) (*Page[*Hook], error)
}

// CreateEventParams carries the attributes of a new event. EventData and
// CorrelationID are optional.
type CreateEventParams struct {
	RunID         string
	EventType     string
	EventData     []byte
	CorrelationID string
}

// EventStore persists the append-only event log per run
type EventStore interface {
	CreateEvent(ctx context.Context, params CreateEventParams) (*Event, error)
	ListEvents(ctx context.Context, runID string, page PageOptions, order SortOrder) (*Page[*Event], error)
	ListEventsByCorrelationID(ctx context.Context, correlationID string, page PageOptions, order SortOrder) (*Page[*Event], error)
}

// Storage is the aggregate persistence interface assembling all four entity
// stores over one backend connection
type Storage interface {
	RunStore
	StepStore
	HookStore
	EventStore
}
