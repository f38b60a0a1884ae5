//go:build integration

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/flowstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gsiDef(name, pk, sk string) types.GlobalSecondaryIndex {
	keySchema := []types.KeySchemaElement{
		{AttributeName: aws.String(pk), KeyType: types.KeyTypeHash},
	}
	if sk != "" {
		keySchema = append(keySchema, types.KeySchemaElement{
			AttributeName: aws.String(sk), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(name),
		KeySchema:  keySchema,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

// createTestTable creates a temporary DynamoDB table for integration testing
func createTestTable(ctx context.Context, client *dynamodb.Client, tableName string) error {
	attrDefs := []types.AttributeDefinition{
		{AttributeName: aws.String(AttrPK), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String(AttrSK), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String(AttrGSI1PK), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String(AttrGSI1SK), AttributeType: types.ScalarAttributeTypeN},
		{AttributeName: aws.String(AttrGSI2PK), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String(AttrGSI2SK), AttributeType: types.ScalarAttributeTypeN},
		{AttributeName: aws.String(AttrGSI3PK), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String(AttrGSI3SK), AttributeType: types.ScalarAttributeTypeN},
		{AttributeName: aws.String(AttrGSI4PK), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String(AttrGSI5PK), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String(AttrGSI6PK), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String(AttrGSI6SK), AttributeType: types.ScalarAttributeTypeN},
	}

	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(tableName),
		AttributeDefinitions: attrDefs,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(AttrPK), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(AttrSK), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsiDef(IndexWorkflowName, AttrGSI1PK, AttrGSI1SK),
			gsiDef(IndexStatus, AttrGSI2PK, AttrGSI2SK),
			gsiDef(IndexEntityType, AttrGSI3PK, AttrGSI3SK),
			gsiDef(IndexHookID, AttrGSI4PK, ""),
			gsiDef(IndexToken, AttrGSI5PK, ""),
			gsiDef(IndexCorrelation, AttrGSI6PK, AttrGSI6SK),
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	// Wait for table to be active
	waiter := dynamodb.NewTableExistsWaiter(client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	}, 2*time.Minute)
}

func deleteTestTable(ctx context.Context, client *dynamodb.Client, tableName string) error {
	_, err := client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	})
	return err
}

// setupIntegrationTest creates a test table and returns a storage instance
func setupIntegrationTest(t *testing.T) (flowstate.Storage, func()) {
	ctx := context.Background()

	cfg, err := config.LoadDefaultConfig(ctx)
	require.NoError(t, err, "Failed to load AWS config")

	client := dynamodb.NewFromConfig(cfg)
	tableName := fmt.Sprintf("flowstate-integration-test-%d", time.Now().Unix())

	err = createTestTable(ctx, client, tableName)
	require.NoError(t, err, "Failed to create test table")
	t.Logf("Created test table: %s", tableName)

	storeCfg := flowstate.DefaultConfig
	storeCfg.TableName = tableName
	storage := NewDynamoDBStorage(client, storeCfg)

	cleanup := func() {
		if err := deleteTestTable(context.Background(), client, tableName); err != nil {
			t.Logf("Warning: Failed to delete test table %s: %v", tableName, err)
		} else {
			t.Logf("Deleted test table: %s", tableName)
		}
	}
	return storage, cleanup
}

func TestIntegration_RunLifecycle(t *testing.T) {
	storage, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()

	run, err := storage.CreateRun(ctx, flowstate.CreateRunParams{
		WorkflowName: "integration-demo",
		Input:        []byte(`{"n":1}`),
	})
	require.NoError(t, err, "Failed to create run")

	retrieved, err := storage.GetRun(ctx, run.RunID)
	require.NoError(t, err, "Failed to get run")
	assert.Equal(t, run.RunID, retrieved.RunID)
	assert.Equal(t, flowstate.RunStatusPending, retrieved.Status)

	updated, err := storage.UpdateRun(ctx, run.RunID, flowstate.RunUpdate{
		Status: flowstate.ToPtr(flowstate.RunStatusRunning),
	})
	require.NoError(t, err)
	assert.Equal(t, flowstate.RunStatusRunning, updated.Status)
	assert.NotNil(t, updated.StartedAt)

	cancelled, err := storage.CancelRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, flowstate.RunStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CompletedAt)
}

func TestIntegration_ListRuns_WorkflowNameIndex(t *testing.T) {
	storage, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := storage.CreateRun(ctx, flowstate.CreateRunParams{
			WorkflowName: "list-test",
		})
		require.NoError(t, err, "Failed to create run %d", i)
		time.Sleep(5 * time.Millisecond)
	}

	// Wait a moment for the GSI to update
	time.Sleep(2 * time.Second)

	var total int
	var cursor string
	for {
		page, err := storage.ListRuns(ctx, flowstate.ListRunsParams{
			WorkflowName: "list-test",
			Page:         flowstate.PageOptions{Limit: 2, Cursor: cursor},
		})
		require.NoError(t, err, "Failed to list runs")
		total += len(page.Items)
		if !page.HasMore {
			break
		}
		cursor = *page.Cursor
	}
	assert.Equal(t, 5, total, "Should walk all 5 runs across pages")
}

func TestIntegration_StepPagination(t *testing.T) {
	storage, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()

	run, err := storage.CreateRun(ctx, flowstate.CreateRunParams{WorkflowName: "steps"})
	require.NoError(t, err)

	for i := 0; i < 15; i++ {
		_, err := storage.CreateStep(ctx, flowstate.CreateStepParams{
			RunID:    run.RunID,
			StepName: fmt.Sprintf("step-%02d", i),
		})
		require.NoError(t, err, "Failed to create step %d", i)
	}

	var total int
	var cursor string
	for {
		page, err := storage.ListSteps(ctx, run.RunID, flowstate.PageOptions{Limit: 4, Cursor: cursor})
		require.NoError(t, err, "Failed to list steps")
		total += len(page.Items)
		if !page.HasMore {
			break
		}
		cursor = *page.Cursor
	}
	assert.Equal(t, 15, total, "Should walk all 15 steps across pages")
}

func TestIntegration_HookTokenLookup(t *testing.T) {
	storage, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()

	run, err := storage.CreateRun(ctx, flowstate.CreateRunParams{WorkflowName: "hooks"})
	require.NoError(t, err)

	_, err = storage.CreateHook(ctx, run.RunID, "hook-1", "token-1")
	require.NoError(t, err, "Failed to create hook")

	// Wait a moment for the GSIs to update
	time.Sleep(2 * time.Second)

	byToken, err := storage.GetHookByToken(ctx, "token-1")
	require.NoError(t, err, "Failed to look up hook by token")
	assert.Equal(t, "hook-1", byToken.HookID)

	disposed, err := storage.DisposeHook(ctx, "hook-1")
	require.NoError(t, err, "Failed to dispose hook")
	assert.Equal(t, "hook-1", disposed.HookID)

	time.Sleep(2 * time.Second)
	_, err = storage.GetHook(ctx, "hook-1")
	assert.True(t, flowstate.IsNotFound(err), "Disposed hook should be gone")
}

func TestIntegration_EventsByCorrelation(t *testing.T) {
	storage, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()

	for _, runID := range []string{"run-a", "run-b"} {
		_, err := storage.CreateEvent(ctx, flowstate.CreateEventParams{
			RunID:         runID,
			EventType:     "hook.fired",
			CorrelationID: "corr-int",
		})
		require.NoError(t, err, "Failed to create event")
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(2 * time.Second)

	page, err := storage.ListEventsByCorrelationID(ctx, "corr-int",
		flowstate.PageOptions{}, flowstate.SortAsc)
	require.NoError(t, err, "Failed to list by correlation id")
	assert.Len(t, page.Items, 2, "Both runs' events share the correlation id")
}
