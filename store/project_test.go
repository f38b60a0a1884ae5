package store

import (
	"encoding/json"
	"testing"
	"time"
)

func TestProjectRunTimestamps(t *testing.T) {
	created := int64(1700000000000)
	started := int64(1700000001000)

	rec := &runRecord{
		RunID:        "run_1",
		WorkflowName: "demo",
		Status:       "running",
		CreatedAtMs:  created,
		UpdatedAtMs:  started,
		StartedAtMs:  &started,
		// CompletedAtMs stays nil: absent in storage, absent in the entity
	}

	run := projectRun(rec)

	if !run.CreatedAt.Equal(time.UnixMilli(created).UTC()) {
		t.Errorf("CreatedAt = %v, want %v", run.CreatedAt, time.UnixMilli(created).UTC())
	}
	if run.StartedAt == nil || !run.StartedAt.Equal(time.UnixMilli(started).UTC()) {
		t.Errorf("StartedAt = %v, want %v", run.StartedAt, time.UnixMilli(started).UTC())
	}
	if run.CompletedAt != nil {
		t.Errorf("CompletedAt = %v, want nil", run.CompletedAt)
	}
}

func TestProjectRunOmitsAbsentFields(t *testing.T) {
	rec := &runRecord{
		RunID:        "run_1",
		WorkflowName: "demo",
		Status:       "pending",
		CreatedAtMs:  1700000000000,
		UpdatedAtMs:  1700000000000,
	}

	data, err := json.Marshal(projectRun(rec))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	for _, absent := range []string{"startedAt", "completedAt", "output", "error", "errorCode", "input", "executionContext"} {
		if _, ok := fields[absent]; ok {
			t.Errorf("field %s should be omitted when absent", absent)
		}
	}
	for _, present := range []string{"runId", "workflowName", "status", "createdAt", "updatedAt"} {
		if _, ok := fields[present]; !ok {
			t.Errorf("field %s should be present", present)
		}
	}
}

func TestProjectEventCorrelationID(t *testing.T) {
	withCorr := projectEvent(&eventRecord{
		EventID:       "evt_1",
		RunID:         "run_1",
		EventType:     "step.completed",
		CorrelationID: "corr-1",
		CreatedAtMs:   1700000000000,
	})
	if withCorr.CorrelationID == nil || *withCorr.CorrelationID != "corr-1" {
		t.Errorf("CorrelationID = %v, want corr-1", withCorr.CorrelationID)
	}

	withoutCorr := projectEvent(&eventRecord{
		EventID:     "evt_2",
		RunID:       "run_1",
		EventType:   "step.completed",
		CreatedAtMs: 1700000000000,
	})
	if withoutCorr.CorrelationID != nil {
		t.Errorf("CorrelationID = %v, want nil", withoutCorr.CorrelationID)
	}
}

func TestProjectStepEmptyPayloads(t *testing.T) {
	step := projectStep(&stepRecord{
		RunID:       "run_1",
		StepID:      "step_1",
		StepName:    "fetch",
		Status:      "pending",
		Attempt:     1,
		CreatedAtMs: 1700000000000,
		UpdatedAtMs: 1700000000000,
	})
	if step.Input != nil {
		t.Errorf("Input = %v, want nil", step.Input)
	}
	if step.Output != nil {
		t.Errorf("Output = %v, want nil", step.Output)
	}
}
