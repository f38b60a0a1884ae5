package store

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/flowstate"
)

// Workflow run operations

func (s *DynamoDBStorage) CreateRun(ctx context.Context, params flowstate.CreateRunParams) (*flowstate.Run, error) {
	now := nowMs()
	runID := s.runIDs.NewID()

	rec := &runRecord{
		PK:         runPK(runID),
		SK:         runSK(),
		EntityType: EntityTypeRun,

		GSI1PK: workflowNameGSI1PK(params.WorkflowName),
		GSI1SK: now,
		GSI2PK: statusGSI2PK(string(flowstate.RunStatusPending)),
		GSI2SK: now,
		GSI3PK: EntityTypeRun,
		GSI3SK: now,

		RunID:            runID,
		WorkflowName:     params.WorkflowName,
		DeploymentID:     params.DeploymentID,
		Status:           string(flowstate.RunStatusPending),
		Input:            params.Input,
		ExecutionContext: params.ExecutionContext,
		CreatedAtMs:      now,
		UpdatedAtMs:      now,
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, flowstate.NewBackendFailure("marshal run", err)
	}

	// Generated ids make a collision astronomically unlikely, but the
	// precondition guards it regardless.
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, flowstate.NewConflict("run", runID, "run "+runID+" already exists")
		}
		return nil, flowstate.NewBackendFailure("create run", err)
	}

	return projectRun(rec), nil
}

func (s *DynamoDBStorage) GetRun(ctx context.Context, runID string) (*flowstate.Run, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: runPK(runID)},
			AttrSK: &types.AttributeValueMemberS{Value: runSK()},
		},
	})
	if err != nil {
		return nil, flowstate.NewBackendFailure("get run", err)
	}
	if len(result.Item) == 0 {
		return nil, flowstate.NewNotFound("run", runID)
	}

	var rec runRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, flowstate.NewBackendFailure("unmarshal run", err)
	}
	return projectRun(&rec), nil
}

// runUpdateExpr accumulates a SET expression for a conditional run mutation
type runUpdateExpr struct {
	sets   []string
	names  map[string]string
	values map[string]types.AttributeValue
}

func newRunUpdateExpr(now int64) *runUpdateExpr {
	e := &runUpdateExpr{
		names:  map[string]string{"#updated_at": "updated_at"},
		values: map[string]types.AttributeValue{":now": &types.AttributeValueMemberN{Value: formatMs(now)}},
	}
	e.sets = append(e.sets, "#updated_at = :now")
	return e
}

// assign adds "#key = :key" for the given stored attribute name
func (e *runUpdateExpr) assign(key, attr string, value types.AttributeValue) {
	e.sets = append(e.sets, "#"+key+" = :"+key)
	e.names["#"+key] = attr
	e.values[":"+key] = value
}

// setStatusOnly sets the status attribute and mirrors it into the status
// index partition key, without touching lifecycle timestamps
func (e *runUpdateExpr) setStatusOnly(status flowstate.RunStatus) {
	e.assign("status", "status", &types.AttributeValueMemberS{Value: string(status)})
	e.assign("gsi2pk", AttrGSI2PK, &types.AttributeValueMemberS{Value: statusGSI2PK(string(status))})
}

// setStatus additionally applies the lifecycle timestamps: startedAt on the
// first transition to running, completedAt on any terminal status
func (e *runUpdateExpr) setStatus(status flowstate.RunStatus) {
	e.setStatusOnly(status)

	if status == flowstate.RunStatusRunning {
		e.sets = append(e.sets, "#started_at = if_not_exists(#started_at, :now)")
		e.names["#started_at"] = "started_at"
	}
	if status.IsTerminal() {
		e.sets = append(e.sets, "#completed_at = :now")
		e.names["#completed_at"] = "completed_at"
	}
}

func (e *runUpdateExpr) expression() string {
	return "SET " + strings.Join(e.sets, ", ")
}

// updateRunItem issues the conditional UpdateItem and projects the new state.
// A failed condition is reported with the given notFoundEntity, matching the
// caller-facing semantics of each transition.
func (s *DynamoDBStorage) updateRunItem(ctx context.Context, runID string, e *runUpdateExpr, condition, op, notFoundEntity string) (*flowstate.Run, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: runPK(runID)},
			AttrSK: &types.AttributeValueMemberS{Value: runSK()},
		},
		UpdateExpression:          aws.String(e.expression()),
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeNames:  e.names,
		ExpressionAttributeValues: e.values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, flowstate.NewNotFound(notFoundEntity, runID)
		}
		return nil, flowstate.NewBackendFailure(op, err)
	}

	var rec runRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return nil, flowstate.NewBackendFailure("unmarshal run", err)
	}
	return projectRun(&rec), nil
}

func (s *DynamoDBStorage) UpdateRun(ctx context.Context, runID string, update flowstate.RunUpdate) (*flowstate.Run, error) {
	// A no-op update still reads and returns the current record
	if update.IsEmpty() {
		return s.GetRun(ctx, runID)
	}

	e := newRunUpdateExpr(nowMs())
	if update.Status != nil {
		e.setStatus(*update.Status)
	}
	if update.Output != nil {
		e.assign("output", "output", &types.AttributeValueMemberB{Value: update.Output})
	}
	if update.Error != nil {
		e.assign("error", "error", &types.AttributeValueMemberS{Value: *update.Error})
	}
	if update.ErrorCode != nil {
		e.assign("error_code", "error_code", &types.AttributeValueMemberS{Value: *update.ErrorCode})
	}
	if update.DeploymentID != nil {
		e.assign("deployment_id", "deployment_id", &types.AttributeValueMemberS{Value: *update.DeploymentID})
	}
	if update.ExecutionContext != nil {
		e.assign("execution_context", "execution_context", &types.AttributeValueMemberB{Value: update.ExecutionContext})
	}

	return s.updateRunItem(ctx, runID, e, "attribute_exists(PK)", "update run", "run")
}

func (s *DynamoDBStorage) CancelRun(ctx context.Context, runID string) (*flowstate.Run, error) {
	// Unconditional with respect to the current status; cancelling an
	// already-terminal run is caller policy.
	e := newRunUpdateExpr(nowMs())
	e.setStatus(flowstate.RunStatusCancelled)
	return s.updateRunItem(ctx, runID, e, "attribute_exists(PK)", "cancel run", "run")
}

func (s *DynamoDBStorage) PauseRun(ctx context.Context, runID string) (*flowstate.Run, error) {
	e := newRunUpdateExpr(nowMs())
	e.setStatusOnly(flowstate.RunStatusPaused)
	return s.updateRunItem(ctx, runID, e, "attribute_exists(PK)", "pause run", "run")
}

func (s *DynamoDBStorage) ResumeRun(ctx context.Context, runID string) (*flowstate.Run, error) {
	// Conditional on the run being exactly paused. A run that exists in any
	// other status fails the same way as a missing run: "paused run" not
	// found. Callers cannot distinguish the two cases.
	e := newRunUpdateExpr(nowMs())
	e.setStatus(flowstate.RunStatusRunning)
	e.values[":paused"] = &types.AttributeValueMemberS{Value: string(flowstate.RunStatusPaused)}
	return s.updateRunItem(ctx, runID, e,
		"attribute_exists(PK) AND #status = :paused", "resume run", "paused run")
}

func (s *DynamoDBStorage) ListRuns(ctx context.Context, params flowstate.ListRunsParams) (*flowstate.Page[*flowstate.Run], error) {
	limit := s.cfg.RunLimit(params.Page)

	// Index priority: workflow name, then status, then the type-wide index
	var indexName, skName, pkValue string
	var pkName string
	switch {
	case params.WorkflowName != "":
		indexName, pkName, skName = IndexWorkflowName, AttrGSI1PK, AttrGSI1SK
		pkValue = workflowNameGSI1PK(params.WorkflowName)
	case params.Status != "":
		indexName, pkName, skName = IndexStatus, AttrGSI2PK, AttrGSI2SK
		pkValue = statusGSI2PK(string(params.Status))
	default:
		indexName, pkName, skName = IndexEntityType, AttrGSI3PK, AttrGSI3SK
		pkValue = EntityTypeRun
	}

	keyCond := "#pk = :pk"
	names := map[string]string{"#pk": pkName}
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: pkValue},
	}
	if params.Page.Cursor != "" {
		ms, err := parseMsCursor(params.Page.Cursor)
		if err != nil {
			return nil, err
		}
		keyCond += " AND #sk < :cursor"
		names["#sk"] = skName
		values[":cursor"] = &types.AttributeValueMemberN{Value: formatMs(ms)}
	}

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(indexName),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(int32(limit + 1)),
	})
	if err != nil {
		return nil, flowstate.NewBackendFailure("list runs", err)
	}

	var recs []runRecord
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &recs); err != nil {
		return nil, flowstate.NewBackendFailure("unmarshal runs", err)
	}

	recs, hasMore := pageWindow(recs, limit)
	page := &flowstate.Page[*flowstate.Run]{
		Items:   make([]*flowstate.Run, 0, len(recs)),
		HasMore: hasMore,
	}
	for i := range recs {
		page.Items = append(page.Items, projectRun(&recs[i]))
	}
	if len(recs) > 0 {
		cursor := formatMs(recs[len(recs)-1].CreatedAtMs)
		page.Cursor = &cursor
	}
	return page, nil
}
