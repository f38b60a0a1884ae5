package flowstate

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// loggingStorage decorates a Storage with structured call logging. Each
// method logs the operation name, the addressed identifiers, the elapsed
// time, and the outcome. Wrapping is explicit per method rather than via
// reflection so the logged fields stay type-checked.
type loggingStorage struct {
	next   Storage
	logger zerolog.Logger
}

// WithLogging wraps a Storage so every call is logged through the given logger
func WithLogging(next Storage, logger zerolog.Logger) Storage {
	return &loggingStorage{next: next, logger: logger}
}

func (s *loggingStorage) logOp(op string, start time.Time, err error) *zerolog.Event {
	elapsed := time.Since(start)
	if err != nil {
		return s.logger.Error().Str("op", op).Dur("elapsed", elapsed).Err(err)
	}
	return s.logger.Debug().Str("op", op).Dur("elapsed", elapsed)
}

// Run operations

func (s *loggingStorage) CreateRun(ctx context.Context, params CreateRunParams) (*Run, error) {
	start := time.Now()
	run, err := s.next.CreateRun(ctx, params)
	ev := s.logOp("CreateRun", start, err).Str("workflow_name", params.WorkflowName)
	if run != nil {
		ev = ev.Str("run_id", run.RunID)
	}
	ev.Msg("create run")
	return run, err
}

func (s *loggingStorage) GetRun(ctx context.Context, runID string) (*Run, error) {
	start := time.Now()
	run, err := s.next.GetRun(ctx, runID)
	s.logOp("GetRun", start, err).Str("run_id", runID).Msg("get run")
	return run, err
}

func (s *loggingStorage) UpdateRun(ctx context.Context, runID string, update RunUpdate) (*Run, error) {
	start := time.Now()
	run, err := s.next.UpdateRun(ctx, runID, update)
	ev := s.logOp("UpdateRun", start, err).Str("run_id", runID)
	if update.Status != nil {
		ev = ev.Str("status", update.Status.String())
	}
	ev.Msg("update run")
	return run, err
}

func (s *loggingStorage) CancelRun(ctx context.Context, runID string) (*Run, error) {
	start := time.Now()
	run, err := s.next.CancelRun(ctx, runID)
	s.logOp("CancelRun", start, err).Str("run_id", runID).Msg("cancel run")
	return run, err
}

func (s *loggingStorage) PauseRun(ctx context.Context, runID string) (*Run, error) {
	start := time.Now()
	run, err := s.next.PauseRun(ctx, runID)
	s.logOp("PauseRun", start, err).Str("run_id", runID).Msg("pause run")
	return run, err
}

func (s *loggingStorage) ResumeRun(ctx context.Context, runID string) (*Run, error) {
	start := time.Now()
	run, err := s.next.ResumeRun(ctx, runID)
	s.logOp("ResumeRun", start, err).Str("run_id", runID).Msg("resume run")
	return run, err
}

func (s *loggingStorage) ListRuns(ctx context.Context, params ListRunsParams) (*Page[*Run], error) {
	start := time.Now()
	page, err := s.next.ListRuns(ctx, params)
	ev := s.logOp("ListRuns", start, err).
		Str("workflow_name", params.WorkflowName).
		Str("status", params.Status.String())
	if page != nil {
		ev = ev.Int("count", len(page.Items)).Bool("has_more", page.HasMore)
	}
	ev.Msg("list runs")
	return page, err
}

// Step operations

func (s *loggingStorage) CreateStep(ctx context.Context, params CreateStepParams) (*Step, error) {
	start := time.Now()
	step, err := s.next.CreateStep(ctx, params)
	ev := s.logOp("CreateStep", start, err).
		Str("run_id", params.RunID).
		Str("step_name", params.StepName)
	if step != nil {
		ev = ev.Str("step_id", step.StepID)
	}
	ev.Msg("create step")
	return step, err
}

func (s *loggingStorage) GetStep(ctx context.Context, runID, stepID string) (*Step, error) {
	start := time.Now()
	step, err := s.next.GetStep(ctx, runID, stepID)
	s.logOp("GetStep", start, err).Str("run_id", runID).Str("step_id", stepID).Msg("get step")
	return step, err
}

func (s *loggingStorage) UpdateStep(ctx context.Context, runID, stepID string, update StepUpdate) (*Step, error) {
	start := time.Now()
	step, err := s.next.UpdateStep(ctx, runID, stepID, update)
	ev := s.logOp("UpdateStep", start, err).Str("run_id", runID).Str("step_id", stepID)
	if update.Status != nil {
		ev = ev.Str("status", update.Status.String())
	}
	ev.Msg("update step")
	return step, err
}

func (s *loggingStorage) ListSteps(ctx context.Context, runID string, page PageOptions) (*Page[*Step], error) {
	start := time.Now()
	result, err := s.next.ListSteps(ctx, runID, page)
	ev := s.logOp("ListSteps", start, err).Str("run_id", runID)
	if result != nil {
		ev = ev.Int("count", len(result.Items)).Bool("has_more", result.HasMore)
	}
	ev.Msg("list steps")
	return result, err
}

// Hook operations

func (s *loggingStorage) CreateHook(ctx context.Context, runID, hookID, token string) (*Hook, error) {
	start := time.Now()
	hook, err := s.next.CreateHook(ctx, runID, hookID, token)
	s.logOp("CreateHook", start, err).Str("run_id", runID).Str("hook_id", hookID).Msg("create hook")
	return hook, err
}

func (s *loggingStorage) GetHook(ctx context.Context, hookID string) (*Hook, error) {
	start := time.Now()
	hook, err := s.next.GetHook(ctx, hookID)
	s.logOp("GetHook", start, err).Str("hook_id", hookID).Msg("get hook")
	return hook, err
}

func (s *loggingStorage) GetHookByToken(ctx context.Context, token string) (*Hook, error) {
	start := time.Now()
	hook, err := s.next.GetHookByToken(ctx, token)
	// The token itself is a bearer credential and is never logged
	ev := s.logOp("GetHookByToken", start, err)
	if hook != nil {
		ev = ev.Str("hook_id", hook.HookID)
	}
	ev.Msg("get hook by token")
	return hook, err
}

func (s *loggingStorage) DisposeHook(ctx context.Context, hookID string) (*Hook, error) {
	start := time.Now()
	hook, err := s.next.DisposeHook(ctx, hookID)
	s.logOp("DisposeHook", start, err).Str("hook_id", hookID).Msg("dispose hook")
	return hook, err
}

func (s *loggingStorage) ListHooks(ctx context.Context, runID string, page PageOptions) (*Page[*Hook], error) {
	start := time.Now()
	result, err := s.next.ListHooks(ctx, runID, page)
	ev := s.logOp("ListHooks", start, err).Str("run_id", runID)
	if result != nil {
		ev = ev.Int("count", len(result.Items)).Bool("has_more", result.HasMore)
	}
	ev.Msg("list hooks")
	return result, err
}

// Event operations

func (s *loggingStorage) CreateEvent(ctx context.Context, params CreateEventParams) (*Event, error) {
	start := time.Now()
	event, err := s.next.CreateEvent(ctx, params)
	ev := s.logOp("CreateEvent", start, err).
		Str("run_id", params.RunID).
		Str("event_type", params.EventType)
	if event != nil {
		ev = ev.Str("event_id", event.EventID)
	}
	ev.Msg("create event")
	return event, err
}

func (s *loggingStorage) ListEvents(ctx context.Context, runID string, page PageOptions, order SortOrder) (*Page[*Event], error) {
	start := time.Now()
	result, err := s.next.ListEvents(ctx, runID, page, order)
	ev := s.logOp("ListEvents", start, err).Str("run_id", runID).Str("order", string(order))
	if result != nil {
		ev = ev.Int("count", len(result.Items)).Bool("has_more", result.HasMore)
	}
	ev.Msg("list events")
	return result, err
}

func (s *loggingStorage) ListEventsByCorrelationID(ctx context.Context, correlationID string, page PageOptions, order SortOrder) (*Page[*Event], error) {
	start := time.Now()
	result, err := s.next.ListEventsByCorrelationID(ctx, correlationID, page, order)
	ev := s.logOp("ListEventsByCorrelationID", start, err).
		Str("correlation_id", correlationID).
		Str("order", string(order))
	if result != nil {
		ev = ev.Int("count", len(result.Items)).Bool("has_more", result.HasMore)
	}
	ev.Msg("list events by correlation id")
	return result, err
}
