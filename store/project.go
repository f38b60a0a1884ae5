package store

import (
	"encoding/json"
	"time"

	"github.com/sicko7947/flowstate"
)

// Projection from stored records to public entities. Epoch-millisecond
// timestamps become UTC instants; absent optionals stay nil pointers and
// are dropped from any serialized form.

func nowMs() int64 {
	return time.Now().UnixMilli()
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func msToTimePtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := msToTime(*ms)
	return &t
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func projectRun(rec *runRecord) *flowstate.Run {
	return &flowstate.Run{
		RunID:            rec.RunID,
		WorkflowName:     rec.WorkflowName,
		DeploymentID:     rec.DeploymentID,
		Status:           flowstate.RunStatus(rec.Status),
		Input:            rawJSON(rec.Input),
		ExecutionContext: rawJSON(rec.ExecutionContext),
		Output:           rawJSON(rec.Output),
		Error:            rec.Error,
		ErrorCode:        rec.ErrorCode,
		CreatedAt:        msToTime(rec.CreatedAtMs),
		UpdatedAt:        msToTime(rec.UpdatedAtMs),
		StartedAt:        msToTimePtr(rec.StartedAtMs),
		CompletedAt:      msToTimePtr(rec.CompletedAtMs),
	}
}

func projectStep(rec *stepRecord) *flowstate.Step {
	return &flowstate.Step{
		RunID:       rec.RunID,
		StepID:      rec.StepID,
		StepName:    rec.StepName,
		Status:      flowstate.StepStatus(rec.Status),
		Attempt:     rec.Attempt,
		Input:       rawJSON(rec.Input),
		Output:      rawJSON(rec.Output),
		Error:       rec.Error,
		ErrorCode:   rec.ErrorCode,
		CreatedAt:   msToTime(rec.CreatedAtMs),
		UpdatedAt:   msToTime(rec.UpdatedAtMs),
		StartedAt:   msToTimePtr(rec.StartedAtMs),
		CompletedAt: msToTimePtr(rec.CompletedAtMs),
	}
}

func projectHook(rec *hookRecord) *flowstate.Hook {
	return &flowstate.Hook{
		HookID:        rec.HookID,
		RunID:         rec.RunID,
		Token:         rec.Token,
		OwnerID:       rec.OwnerID,
		ProjectID:     rec.ProjectID,
		EnvironmentID: rec.EnvironmentID,
		CreatedAt:     msToTime(rec.CreatedAtMs),
	}
}

func projectEvent(rec *eventRecord) *flowstate.Event {
	return &flowstate.Event{
		EventID:       rec.EventID,
		RunID:         rec.RunID,
		EventType:     rec.EventType,
		EventData:     rawJSON(rec.EventData),
		CorrelationID: strPtr(rec.CorrelationID),
		CreatedAt:     msToTime(rec.CreatedAtMs),
	}
}
