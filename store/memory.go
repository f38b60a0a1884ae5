package store

import (
	"context"
	"sort"
	"sync"

	"github.com/sicko7947/flowstate"
)

// MemoryStorage implements flowstate.Storage in process memory. It mirrors
// the DynamoDB implementation's semantics, including the pagination contract
// and the conditional-write behavior, and is used by tests and local runs.
type MemoryStorage struct {
	mu  sync.RWMutex
	cfg flowstate.Config

	runs   map[string]*runRecord
	steps  map[string]map[string]*stepRecord // runID -> stepID
	hooks  map[string]map[string]*hookRecord // runID -> hookID
	events map[string][]*eventRecord         // runID, in append order

	runIDs   *IDGenerator
	stepIDs  *IDGenerator
	eventIDs *IDGenerator
}

// NewMemoryStorage creates an in-memory storage facade
func NewMemoryStorage(cfg flowstate.Config) flowstate.Storage {
	return &MemoryStorage{
		cfg:      cfg,
		runs:     make(map[string]*runRecord),
		steps:    make(map[string]map[string]*stepRecord),
		hooks:    make(map[string]map[string]*hookRecord),
		events:   make(map[string][]*eventRecord),
		runIDs:   NewIDGenerator(RunIDPrefix),
		stepIDs:  NewIDGenerator(StepIDPrefix),
		eventIDs: NewIDGenerator(EventIDPrefix),
	}
}

var _ flowstate.Storage = (*MemoryStorage)(nil)

// Workflow run operations

func (s *MemoryStorage) CreateRun(ctx context.Context, params flowstate.CreateRunParams) (*flowstate.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowMs()
	runID := s.runIDs.NewID()
	if _, exists := s.runs[runID]; exists {
		return nil, flowstate.NewConflict("run", runID, "run "+runID+" already exists")
	}

	rec := &runRecord{
		PK:               runPK(runID),
		SK:               runSK(),
		EntityType:       EntityTypeRun,
		RunID:            runID,
		WorkflowName:     params.WorkflowName,
		DeploymentID:     params.DeploymentID,
		Status:           string(flowstate.RunStatusPending),
		Input:            params.Input,
		ExecutionContext: params.ExecutionContext,
		CreatedAtMs:      now,
		UpdatedAtMs:      now,
	}
	s.runs[runID] = rec
	return projectRun(rec), nil
}

func (s *MemoryStorage) GetRun(ctx context.Context, runID string) (*flowstate.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.runs[runID]
	if !exists {
		return nil, flowstate.NewNotFound("run", runID)
	}
	return projectRun(rec), nil
}

// applyRunStatus mutates a run record's status and lifecycle timestamps the
// same way the DynamoDB update expression does
func applyRunStatus(rec *runRecord, status flowstate.RunStatus, now int64) {
	rec.Status = string(status)
	if status == flowstate.RunStatusRunning && rec.StartedAtMs == nil {
		started := now
		rec.StartedAtMs = &started
	}
	if status.IsTerminal() {
		completed := now
		rec.CompletedAtMs = &completed
	}
}

func (s *MemoryStorage) UpdateRun(ctx context.Context, runID string, update flowstate.RunUpdate) (*flowstate.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.runs[runID]
	if !exists {
		return nil, flowstate.NewNotFound("run", runID)
	}
	if update.IsEmpty() {
		return projectRun(rec), nil
	}

	now := nowMs()
	if update.Status != nil {
		applyRunStatus(rec, *update.Status, now)
	}
	if update.Output != nil {
		rec.Output = update.Output
	}
	if update.Error != nil {
		rec.Error = update.Error
	}
	if update.ErrorCode != nil {
		rec.ErrorCode = update.ErrorCode
	}
	if update.DeploymentID != nil {
		rec.DeploymentID = *update.DeploymentID
	}
	if update.ExecutionContext != nil {
		rec.ExecutionContext = update.ExecutionContext
	}
	rec.UpdatedAtMs = now
	return projectRun(rec), nil
}

func (s *MemoryStorage) CancelRun(ctx context.Context, runID string) (*flowstate.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.runs[runID]
	if !exists {
		return nil, flowstate.NewNotFound("run", runID)
	}
	now := nowMs()
	applyRunStatus(rec, flowstate.RunStatusCancelled, now)
	rec.UpdatedAtMs = now
	return projectRun(rec), nil
}

func (s *MemoryStorage) PauseRun(ctx context.Context, runID string) (*flowstate.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.runs[runID]
	if !exists {
		return nil, flowstate.NewNotFound("run", runID)
	}
	rec.Status = string(flowstate.RunStatusPaused)
	rec.UpdatedAtMs = nowMs()
	return projectRun(rec), nil
}

func (s *MemoryStorage) ResumeRun(ctx context.Context, runID string) (*flowstate.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A run that exists but is not paused fails the same way as a missing
	// run, matching the conditional write in the DynamoDB implementation
	rec, exists := s.runs[runID]
	if !exists || rec.Status != string(flowstate.RunStatusPaused) {
		return nil, flowstate.NewNotFound("paused run", runID)
	}
	now := nowMs()
	applyRunStatus(rec, flowstate.RunStatusRunning, now)
	rec.UpdatedAtMs = now
	return projectRun(rec), nil
}

func (s *MemoryStorage) ListRuns(ctx context.Context, params flowstate.ListRunsParams) (*flowstate.Page[*flowstate.Run], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := s.cfg.RunLimit(params.Page)

	var cursorMs int64
	if params.Page.Cursor != "" {
		ms, err := parseMsCursor(params.Page.Cursor)
		if err != nil {
			return nil, err
		}
		cursorMs = ms
	}

	var recs []*runRecord
	for _, rec := range s.runs {
		if params.WorkflowName != "" && rec.WorkflowName != params.WorkflowName {
			continue
		}
		// Status filtering applies only when workflow name is not given,
		// matching the index priority of the DynamoDB implementation
		if params.WorkflowName == "" && params.Status != "" && rec.Status != string(params.Status) {
			continue
		}
		if params.Page.Cursor != "" && rec.CreatedAtMs >= cursorMs {
			continue
		}
		recs = append(recs, rec)
	}

	// Newest first; run ids are time-ordered and break creation-time ties
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAtMs != recs[j].CreatedAtMs {
			return recs[i].CreatedAtMs > recs[j].CreatedAtMs
		}
		return recs[i].RunID > recs[j].RunID
	})

	recs, hasMore := pageWindow(recs, limit)
	page := &flowstate.Page[*flowstate.Run]{
		Items:   make([]*flowstate.Run, 0, len(recs)),
		HasMore: hasMore,
	}
	for _, rec := range recs {
		page.Items = append(page.Items, projectRun(rec))
	}
	if len(recs) > 0 {
		cursor := formatMs(recs[len(recs)-1].CreatedAtMs)
		page.Cursor = &cursor
	}
	return page, nil
}

// Step operations

func (s *MemoryStorage) CreateStep(ctx context.Context, params flowstate.CreateStepParams) (*flowstate.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stepID := params.StepID
	if stepID == "" {
		stepID = s.stepIDs.NewID()
	}

	if s.steps[params.RunID] == nil {
		s.steps[params.RunID] = make(map[string]*stepRecord)
	}
	if _, exists := s.steps[params.RunID][stepID]; exists {
		return nil, flowstate.NewConflict("step", stepID,
			"step "+stepID+" already exists in run "+params.RunID)
	}

	now := nowMs()
	rec := &stepRecord{
		PK:          runPK(params.RunID),
		SK:          stepSK(stepID),
		EntityType:  EntityTypeStep,
		RunID:       params.RunID,
		StepID:      stepID,
		StepName:    params.StepName,
		Status:      string(flowstate.StepStatusPending),
		Attempt:     1,
		Input:       params.Input,
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}
	s.steps[params.RunID][stepID] = rec
	return projectStep(rec), nil
}

func (s *MemoryStorage) GetStep(ctx context.Context, runID, stepID string) (*flowstate.Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if runID == "" {
		return nil, flowstate.NewNotFound("step", stepID)
	}
	rec, exists := s.steps[runID][stepID]
	if !exists {
		return nil, flowstate.NewNotFound("step", stepID)
	}
	return projectStep(rec), nil
}

func (s *MemoryStorage) UpdateStep(ctx context.Context, runID, stepID string, update flowstate.StepUpdate) (*flowstate.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.steps[runID][stepID]
	if !exists {
		return nil, flowstate.NewNotFound("step", stepID)
	}
	if update.IsEmpty() {
		return projectStep(rec), nil
	}

	now := nowMs()
	if update.Status != nil {
		status := *update.Status
		rec.Status = string(status)
		if status == flowstate.StepStatusRunning && rec.StartedAtMs == nil {
			started := now
			rec.StartedAtMs = &started
		}
		if status == flowstate.StepStatusCompleted || status == flowstate.StepStatusFailed {
			completed := now
			rec.CompletedAtMs = &completed
		}
	}
	if update.Output != nil {
		rec.Output = update.Output
	}
	if update.Error != nil {
		rec.Error = update.Error
	}
	if update.ErrorCode != nil {
		rec.ErrorCode = update.ErrorCode
	}
	if update.Attempt != nil {
		rec.Attempt = *update.Attempt
	}
	rec.UpdatedAtMs = now
	return projectStep(rec), nil
}

func (s *MemoryStorage) ListSteps(ctx context.Context, runID string, page flowstate.PageOptions) (*flowstate.Page[*flowstate.Step], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := s.cfg.StepLimit(page)

	var recs []*stepRecord
	for _, rec := range s.steps[runID] {
		if page.Cursor != "" && rec.StepID >= page.Cursor {
			continue
		}
		recs = append(recs, rec)
	}
	// Newest first by discriminator key
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].StepID > recs[j].StepID
	})

	recs, hasMore := pageWindow(recs, limit)
	out := &flowstate.Page[*flowstate.Step]{
		Items:   make([]*flowstate.Step, 0, len(recs)),
		HasMore: hasMore,
	}
	for _, rec := range recs {
		out.Items = append(out.Items, projectStep(rec))
	}
	if len(recs) > 0 {
		cursor := recs[len(recs)-1].StepID
		out.Cursor = &cursor
	}
	return out, nil
}

// Hook operations

func (s *MemoryStorage) CreateHook(ctx context.Context, runID, hookID, token string) (*flowstate.Hook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hooks[runID] == nil {
		s.hooks[runID] = make(map[string]*hookRecord)
	}
	if _, exists := s.hooks[runID][hookID]; exists {
		return nil, flowstate.NewConflict("hook", hookID, "hook "+hookID+" already exists")
	}

	rec := &hookRecord{
		PK:          runPK(runID),
		SK:          hookSK(hookID),
		EntityType:  EntityTypeHook,
		HookID:      hookID,
		RunID:       runID,
		Token:       token,
		CreatedAtMs: nowMs(),
	}
	s.hooks[runID][hookID] = rec
	return projectHook(rec), nil
}

func (s *MemoryStorage) findHook(match func(*hookRecord) bool) *hookRecord {
	for _, byID := range s.hooks {
		for _, rec := range byID {
			if match(rec) {
				return rec
			}
		}
	}
	return nil
}

func (s *MemoryStorage) GetHook(ctx context.Context, hookID string) (*flowstate.Hook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := s.findHook(func(r *hookRecord) bool { return r.HookID == hookID })
	if rec == nil {
		return nil, flowstate.NewNotFound("hook", hookID)
	}
	return projectHook(rec), nil
}

func (s *MemoryStorage) GetHookByToken(ctx context.Context, token string) (*flowstate.Hook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := s.findHook(func(r *hookRecord) bool { return r.Token == token })
	if rec == nil {
		return nil, flowstate.NewNotFound("hook", "by-token")
	}
	return projectHook(rec), nil
}

func (s *MemoryStorage) DisposeHook(ctx context.Context, hookID string) (*flowstate.Hook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.findHook(func(r *hookRecord) bool { return r.HookID == hookID })
	if rec == nil {
		return nil, flowstate.NewNotFound("hook", hookID)
	}
	delete(s.hooks[rec.RunID], hookID)
	return projectHook(rec), nil
}

func (s *MemoryStorage) ListHooks(ctx context.Context, runID string, page flowstate.PageOptions) (*flowstate.Page[*flowstate.Hook], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := s.cfg.HookLimit(page)

	var cursorMs int64
	if runID == "" && page.Cursor != "" {
		ms, err := parseMsCursor(page.Cursor)
		if err != nil {
			return nil, err
		}
		cursorMs = ms
	}

	var recs []*hookRecord
	if runID != "" {
		for _, rec := range s.hooks[runID] {
			if page.Cursor != "" && rec.HookID >= page.Cursor {
				continue
			}
			recs = append(recs, rec)
		}
		sort.Slice(recs, func(i, j int) bool {
			return recs[i].HookID > recs[j].HookID
		})
	} else {
		for _, byID := range s.hooks {
			for _, rec := range byID {
				if page.Cursor != "" && rec.CreatedAtMs >= cursorMs {
					continue
				}
				recs = append(recs, rec)
			}
		}
		sort.Slice(recs, func(i, j int) bool {
			if recs[i].CreatedAtMs != recs[j].CreatedAtMs {
				return recs[i].CreatedAtMs > recs[j].CreatedAtMs
			}
			return recs[i].HookID > recs[j].HookID
		})
	}

	recs, hasMore := pageWindow(recs, limit)
	out := &flowstate.Page[*flowstate.Hook]{
		Items:   make([]*flowstate.Hook, 0, len(recs)),
		HasMore: hasMore,
	}
	for _, rec := range recs {
		out.Items = append(out.Items, projectHook(rec))
	}
	if len(recs) > 0 {
		last := recs[len(recs)-1]
		var cursor string
		if runID != "" {
			cursor = last.HookID
		} else {
			cursor = formatMs(last.CreatedAtMs)
		}
		out.Cursor = &cursor
	}
	return out, nil
}

// Event operations

func (s *MemoryStorage) CreateEvent(ctx context.Context, params flowstate.CreateEventParams) (*flowstate.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &eventRecord{
		PK:            runPK(params.RunID),
		EntityType:    EntityTypeEvent,
		EventID:       s.eventIDs.NewID(),
		RunID:         params.RunID,
		EventType:     params.EventType,
		EventData:     params.EventData,
		CorrelationID: params.CorrelationID,
		CreatedAtMs:   nowMs(),
	}
	rec.SK = eventSK(rec.EventID)
	s.events[params.RunID] = append(s.events[params.RunID], rec)
	return projectEvent(rec), nil
}

func (s *MemoryStorage) ListEvents(ctx context.Context, runID string, page flowstate.PageOptions, order flowstate.SortOrder) (*flowstate.Page[*flowstate.Event], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := s.cfg.EventLimit(page)
	ascending := order == flowstate.SortAsc

	var recs []*eventRecord
	for _, rec := range s.events[runID] {
		if page.Cursor != "" {
			if ascending && rec.EventID <= page.Cursor {
				continue
			}
			if !ascending && rec.EventID >= page.Cursor {
				continue
			}
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if ascending {
			return recs[i].EventID < recs[j].EventID
		}
		return recs[i].EventID > recs[j].EventID
	})

	return projectEventPageMem(recs, limit, func(rec *eventRecord) string {
		return rec.EventID
	})
}

func (s *MemoryStorage) ListEventsByCorrelationID(ctx context.Context, correlationID string, page flowstate.PageOptions, order flowstate.SortOrder) (*flowstate.Page[*flowstate.Event], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := s.cfg.EventLimit(page)
	ascending := order == flowstate.SortAsc

	var cursorMs int64
	if page.Cursor != "" {
		ms, err := parseMsCursor(page.Cursor)
		if err != nil {
			return nil, err
		}
		cursorMs = ms
	}

	var recs []*eventRecord
	for _, byRun := range s.events {
		for _, rec := range byRun {
			if rec.CorrelationID != correlationID || correlationID == "" {
				continue
			}
			if page.Cursor != "" {
				if ascending && rec.CreatedAtMs <= cursorMs {
					continue
				}
				if !ascending && rec.CreatedAtMs >= cursorMs {
					continue
				}
			}
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAtMs != recs[j].CreatedAtMs {
			if ascending {
				return recs[i].CreatedAtMs < recs[j].CreatedAtMs
			}
			return recs[i].CreatedAtMs > recs[j].CreatedAtMs
		}
		if ascending {
			return recs[i].EventID < recs[j].EventID
		}
		return recs[i].EventID > recs[j].EventID
	})

	return projectEventPageMem(recs, limit, func(rec *eventRecord) string {
		return formatMs(rec.CreatedAtMs)
	})
}

func projectEventPageMem(recs []*eventRecord, limit int, cursorOf func(*eventRecord) string) (*flowstate.Page[*flowstate.Event], error) {
	recs, hasMore := pageWindow(recs, limit)
	page := &flowstate.Page[*flowstate.Event]{
		Items:   make([]*flowstate.Event, 0, len(recs)),
		HasMore: hasMore,
	}
	for _, rec := range recs {
		page.Items = append(page.Items, projectEvent(rec))
	}
	if len(recs) > 0 {
		cursor := cursorOf(recs[len(recs)-1])
		page.Cursor = &cursor
	}
	return page, nil
}
