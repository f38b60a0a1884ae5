package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/flowstate"
)

// Step operations

func (s *DynamoDBStorage) CreateStep(ctx context.Context, params flowstate.CreateStepParams) (*flowstate.Step, error) {
	now := nowMs()
	stepID := params.StepID
	if stepID == "" {
		stepID = s.stepIDs.NewID()
	}

	rec := &stepRecord{
		PK:         runPK(params.RunID),
		SK:         stepSK(stepID),
		EntityType: EntityTypeStep,

		RunID:       params.RunID,
		StepID:      stepID,
		StepName:    params.StepName,
		Status:      string(flowstate.StepStatusPending),
		Attempt:     1,
		Input:       params.Input,
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, flowstate.NewBackendFailure("marshal step", err)
	}

	// (runID, stepID) must be unique; caller-supplied ids make this a real
	// race, guarded by the precondition
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, flowstate.NewConflict("step", stepID,
				"step "+stepID+" already exists in run "+params.RunID)
		}
		return nil, flowstate.NewBackendFailure("create step", err)
	}

	return projectStep(rec), nil
}

func (s *DynamoDBStorage) GetStep(ctx context.Context, runID, stepID string) (*flowstate.Step, error) {
	// An empty run id can never address a step; skip the backend round trip
	if runID == "" {
		return nil, flowstate.NewNotFound("step", stepID)
	}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: runPK(runID)},
			AttrSK: &types.AttributeValueMemberS{Value: stepSK(stepID)},
		},
	})
	if err != nil {
		return nil, flowstate.NewBackendFailure("get step", err)
	}
	if len(result.Item) == 0 {
		return nil, flowstate.NewNotFound("step", stepID)
	}

	var rec stepRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, flowstate.NewBackendFailure("unmarshal step", err)
	}
	return projectStep(&rec), nil
}

func (s *DynamoDBStorage) UpdateStep(ctx context.Context, runID, stepID string, update flowstate.StepUpdate) (*flowstate.Step, error) {
	if update.IsEmpty() {
		return s.GetStep(ctx, runID, stepID)
	}

	now := nowMs()
	sets := []string{"#updated_at = :now"}
	names := map[string]string{"#updated_at": "updated_at"}
	values := map[string]types.AttributeValue{
		":now": &types.AttributeValueMemberN{Value: formatMs(now)},
	}

	if update.Status != nil {
		status := *update.Status
		sets = append(sets, "#status = :status")
		names["#status"] = "status"
		values[":status"] = &types.AttributeValueMemberS{Value: string(status)}

		if status == flowstate.StepStatusRunning {
			sets = append(sets, "#started_at = if_not_exists(#started_at, :now)")
			names["#started_at"] = "started_at"
		}
		// Steps have no cancellation status; completedAt covers the two
		// terminal outcomes only
		if status == flowstate.StepStatusCompleted || status == flowstate.StepStatusFailed {
			sets = append(sets, "#completed_at = :now")
			names["#completed_at"] = "completed_at"
		}
	}
	if update.Output != nil {
		sets = append(sets, "#output = :output")
		names["#output"] = "output"
		values[":output"] = &types.AttributeValueMemberB{Value: update.Output}
	}
	if update.Error != nil {
		sets = append(sets, "#error = :error")
		names["#error"] = "error"
		values[":error"] = &types.AttributeValueMemberS{Value: *update.Error}
	}
	if update.ErrorCode != nil {
		sets = append(sets, "#error_code = :error_code")
		names["#error_code"] = "error_code"
		values[":error_code"] = &types.AttributeValueMemberS{Value: *update.ErrorCode}
	}
	if update.Attempt != nil {
		sets = append(sets, "#attempt = :attempt")
		names["#attempt"] = "attempt"
		values[":attempt"] = &types.AttributeValueMemberN{Value: strconv.Itoa(*update.Attempt)}
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: runPK(runID)},
			AttrSK: &types.AttributeValueMemberS{Value: stepSK(stepID)},
		},
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, flowstate.NewNotFound("step", stepID)
		}
		return nil, flowstate.NewBackendFailure("update step", err)
	}

	var rec stepRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return nil, flowstate.NewBackendFailure("unmarshal step", err)
	}
	return projectStep(&rec), nil
}

func (s *DynamoDBStorage) ListSteps(ctx context.Context, runID string, page flowstate.PageOptions) (*flowstate.Page[*flowstate.Step], error) {
	limit := s.cfg.StepLimit(page)

	input := &dynamodb.QueryInput{
		TableName:        aws.String(s.tableName),
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit + 1)),
	}

	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: runPK(runID)},
	}
	if page.Cursor == "" {
		input.KeyConditionExpression = aws.String("PK = :pk AND begins_with(SK, :prefix)")
		values[":prefix"] = &types.AttributeValueMemberS{Value: stepPrefix()}
	} else {
		// Descending past the cursor walks out of the STEP# range into the
		// other record types of the group, so records are filtered by
		// entity type. Steps sort contiguously, which keeps the page and
		// the hasMore signal exact.
		input.KeyConditionExpression = aws.String("PK = :pk AND SK < :cursor")
		input.FilterExpression = aws.String("entity_type = :et")
		values[":cursor"] = &types.AttributeValueMemberS{Value: stepSK(page.Cursor)}
		values[":et"] = &types.AttributeValueMemberS{Value: EntityTypeStep}
	}
	input.ExpressionAttributeValues = values

	result, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, flowstate.NewBackendFailure("list steps", err)
	}

	var recs []stepRecord
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &recs); err != nil {
		return nil, flowstate.NewBackendFailure("unmarshal steps", err)
	}

	recs, hasMore := pageWindow(recs, limit)
	out := &flowstate.Page[*flowstate.Step]{
		Items:   make([]*flowstate.Step, 0, len(recs)),
		HasMore: hasMore,
	}
	for i := range recs {
		out.Items = append(out.Items, projectStep(&recs[i]))
	}
	if len(recs) > 0 {
		cursor := recs[len(recs)-1].StepID
		out.Cursor = &cursor
	}
	return out, nil
}
