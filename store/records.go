package store

// Stored record shapes. Timestamps are persisted as epoch milliseconds;
// optional fields are pointers (or nilable slices) with omitempty so that a
// null value and an absent attribute are the same thing on the wire.

type runRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"entity_type"`

	GSI1PK string `dynamodbav:"GSI1PK,omitempty"`
	GSI1SK int64  `dynamodbav:"GSI1SK,omitempty"`
	GSI2PK string `dynamodbav:"GSI2PK,omitempty"`
	GSI2SK int64  `dynamodbav:"GSI2SK,omitempty"`
	GSI3PK string `dynamodbav:"GSI3PK,omitempty"`
	GSI3SK int64  `dynamodbav:"GSI3SK,omitempty"`

	RunID        string `dynamodbav:"run_id"`
	WorkflowName string `dynamodbav:"workflow_name"`
	DeploymentID string `dynamodbav:"deployment_id,omitempty"`
	Status       string `dynamodbav:"status"`

	Input            []byte `dynamodbav:"input,omitempty"`
	ExecutionContext []byte `dynamodbav:"execution_context,omitempty"`
	Output           []byte `dynamodbav:"output,omitempty"`

	Error     *string `dynamodbav:"error,omitempty"`
	ErrorCode *string `dynamodbav:"error_code,omitempty"`

	CreatedAtMs   int64  `dynamodbav:"created_at"`
	UpdatedAtMs   int64  `dynamodbav:"updated_at"`
	StartedAtMs   *int64 `dynamodbav:"started_at,omitempty"`
	CompletedAtMs *int64 `dynamodbav:"completed_at,omitempty"`
}

type stepRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"entity_type"`

	RunID    string `dynamodbav:"run_id"`
	StepID   string `dynamodbav:"step_id"`
	StepName string `dynamodbav:"step_name"`
	Status   string `dynamodbav:"status"`
	Attempt  int    `dynamodbav:"attempt"`

	Input  []byte `dynamodbav:"input,omitempty"`
	Output []byte `dynamodbav:"output,omitempty"`

	Error     *string `dynamodbav:"error,omitempty"`
	ErrorCode *string `dynamodbav:"error_code,omitempty"`

	CreatedAtMs   int64  `dynamodbav:"created_at"`
	UpdatedAtMs   int64  `dynamodbav:"updated_at"`
	StartedAtMs   *int64 `dynamodbav:"started_at,omitempty"`
	CompletedAtMs *int64 `dynamodbav:"completed_at,omitempty"`
}

type hookRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"entity_type"`

	GSI3PK string `dynamodbav:"GSI3PK,omitempty"`
	GSI3SK int64  `dynamodbav:"GSI3SK,omitempty"`
	GSI4PK string `dynamodbav:"GSI4PK,omitempty"`
	GSI5PK string `dynamodbav:"GSI5PK,omitempty"`

	HookID string `dynamodbav:"hook_id"`
	RunID  string `dynamodbav:"run_id"`
	Token  string `dynamodbav:"token"`

	OwnerID       *string `dynamodbav:"owner_id,omitempty"`
	ProjectID     *string `dynamodbav:"project_id,omitempty"`
	EnvironmentID *string `dynamodbav:"environment_id,omitempty"`

	CreatedAtMs int64 `dynamodbav:"created_at"`
}

type eventRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"entity_type"`

	GSI6PK string `dynamodbav:"GSI6PK,omitempty"`
	GSI6SK int64  `dynamodbav:"GSI6SK,omitempty"`

	EventID       string `dynamodbav:"event_id"`
	RunID         string `dynamodbav:"run_id"`
	EventType     string `dynamodbav:"event_type"`
	EventData     []byte `dynamodbav:"event_data,omitempty"`
	CorrelationID string `dynamodbav:"correlation_id,omitempty"`

	CreatedAtMs int64 `dynamodbav:"created_at"`
}
