package flowstate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStorage overrides only the methods a test exercises; calling anything
// else panics through the embedded nil interface.
type stubStorage struct {
	Storage
	getRun         func(ctx context.Context, runID string) (*Run, error)
	getHookByToken func(ctx context.Context, token string) (*Hook, error)
	listRuns       func(ctx context.Context, params ListRunsParams) (*Page[*Run], error)
}

func (s *stubStorage) GetRun(ctx context.Context, runID string) (*Run, error) {
	return s.getRun(ctx, runID)
}

func (s *stubStorage) GetHookByToken(ctx context.Context, token string) (*Hook, error) {
	return s.getHookByToken(ctx, token)
}

func (s *stubStorage) ListRuns(ctx context.Context, params ListRunsParams) (*Page[*Run], error) {
	return s.listRuns(ctx, params)
}

func lastLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestWithLogging_Success(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	storage := WithLogging(&stubStorage{
		getRun: func(ctx context.Context, runID string) (*Run, error) {
			return &Run{RunID: runID, Status: RunStatusRunning}, nil
		},
	}, logger)

	run, err := storage.GetRun(context.Background(), "run_1")
	require.NoError(t, err)
	assert.Equal(t, "run_1", run.RunID)

	entry := lastLogLine(t, &buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "GetRun", entry["op"])
	assert.Equal(t, "run_1", entry["run_id"])
	assert.Contains(t, entry, "elapsed")
	assert.NotContains(t, entry, "error")
}

func TestWithLogging_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	storage := WithLogging(&stubStorage{
		getRun: func(ctx context.Context, runID string) (*Run, error) {
			return nil, NewNotFound("run", runID)
		},
	}, logger)

	_, err := storage.GetRun(context.Background(), "run_missing")
	require.Error(t, err)

	entry := lastLogLine(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "GetRun", entry["op"])
	assert.Contains(t, entry["error"], "not found")
}

func TestWithLogging_TokenNeverLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	const token = "secret-bearer-token"
	storage := WithLogging(&stubStorage{
		getHookByToken: func(ctx context.Context, tok string) (*Hook, error) {
			return &Hook{HookID: "h1", RunID: "run_1", Token: tok}, nil
		},
	}, logger)

	hook, err := storage.GetHookByToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "h1", hook.HookID)

	assert.NotContains(t, buf.String(), token)
	entry := lastLogLine(t, &buf)
	assert.Equal(t, "h1", entry["hook_id"])
}

func TestWithLogging_ListPageFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	storage := WithLogging(&stubStorage{
		listRuns: func(ctx context.Context, params ListRunsParams) (*Page[*Run], error) {
			return &Page[*Run]{
				Items:   []*Run{{RunID: "run_1"}, {RunID: "run_2"}},
				HasMore: true,
			}, nil
		},
	}, logger)

	_, err := storage.ListRuns(context.Background(), ListRunsParams{WorkflowName: "demo"})
	require.NoError(t, err)

	entry := lastLogLine(t, &buf)
	assert.Equal(t, "ListRuns", entry["op"])
	assert.Equal(t, "demo", entry["workflow_name"])
	assert.Equal(t, float64(2), entry["count"])
	assert.Equal(t, true, entry["has_more"])
}

func TestWithLogging_PassesThroughErrorUnchanged(t *testing.T) {
	logger := zerolog.Nop()
	cause := errors.New("throttled")

	storage := WithLogging(&stubStorage{
		getRun: func(ctx context.Context, runID string) (*Run, error) {
			return nil, NewBackendFailure("get item", cause)
		},
	}, logger)

	_, err := storage.GetRun(context.Background(), "run_1")
	assert.True(t, IsBackendFailure(err))
	assert.ErrorIs(t, err, cause)
}
