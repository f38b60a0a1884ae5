package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/flowstate"
)

// Hook operations. Hooks are immutable after creation; the only mutation is
// disposal, which deletes the record.

func (s *DynamoDBStorage) CreateHook(ctx context.Context, runID, hookID, token string) (*flowstate.Hook, error) {
	now := nowMs()

	rec := &hookRecord{
		PK:         runPK(runID),
		SK:         hookSK(hookID),
		EntityType: EntityTypeHook,

		GSI3PK: EntityTypeHook,
		GSI3SK: now,
		GSI4PK: hookIDGSI4PK(hookID),
		GSI5PK: tokenGSI5PK(token),

		HookID:      hookID,
		RunID:       runID,
		Token:       token,
		CreatedAtMs: now,
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, flowstate.NewBackendFailure("marshal hook", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, flowstate.NewConflict("hook", hookID, "hook "+hookID+" already exists")
		}
		return nil, flowstate.NewBackendFailure("create hook", err)
	}

	return projectHook(rec), nil
}

// queryOneHook runs a point lookup against one of the hook indexes. A backend
// error propagates as-is; only a genuinely empty result is NotFound.
func (s *DynamoDBStorage) queryOneHook(ctx context.Context, indexName, pkAttr, pkValue, op, notFoundID string) (*flowstate.Hook, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(indexName),
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": pkAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pkValue},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, flowstate.NewBackendFailure(op, err)
	}
	if len(result.Items) == 0 {
		return nil, flowstate.NewNotFound("hook", notFoundID)
	}

	var rec hookRecord
	if err := attributevalue.UnmarshalMap(result.Items[0], &rec); err != nil {
		return nil, flowstate.NewBackendFailure("unmarshal hook", err)
	}
	return projectHook(&rec), nil
}

func (s *DynamoDBStorage) GetHook(ctx context.Context, hookID string) (*flowstate.Hook, error) {
	return s.queryOneHook(ctx, IndexHookID, AttrGSI4PK, hookIDGSI4PK(hookID), "get hook", hookID)
}

func (s *DynamoDBStorage) GetHookByToken(ctx context.Context, token string) (*flowstate.Hook, error) {
	// The raw token never appears in the returned error
	return s.queryOneHook(ctx, IndexToken, AttrGSI5PK, tokenGSI5PK(token), "get hook by token", "by-token")
}

func (s *DynamoDBStorage) DisposeHook(ctx context.Context, hookID string) (*flowstate.Hook, error) {
	// Two steps: resolve the owning run through the hook-id index, then
	// delete at the primary key. A hook disposed concurrently between the
	// two reports NotFound.
	hook, err := s.GetHook(ctx, hookID)
	if err != nil {
		return nil, err
	}

	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: runPK(hook.RunID)},
			AttrSK: &types.AttributeValueMemberS{Value: hookSK(hookID)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ReturnValues:        types.ReturnValueAllOld,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, flowstate.NewNotFound("hook", hookID)
		}
		return nil, flowstate.NewBackendFailure("dispose hook", err)
	}

	var rec hookRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return nil, flowstate.NewBackendFailure("unmarshal hook", err)
	}
	return projectHook(&rec), nil
}

func (s *DynamoDBStorage) ListHooks(ctx context.Context, runID string, page flowstate.PageOptions) (*flowstate.Page[*flowstate.Hook], error) {
	limit := s.cfg.HookLimit(page)

	var input *dynamodb.QueryInput
	if runID != "" {
		// Range query within the run's group
		input = &dynamodb.QueryInput{
			TableName:        aws.String(s.tableName),
			ScanIndexForward: aws.Bool(false),
			Limit:            aws.Int32(int32(limit + 1)),
		}
		values := map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: runPK(runID)},
		}
		if page.Cursor == "" {
			input.KeyConditionExpression = aws.String("PK = :pk AND begins_with(SK, :prefix)")
			values[":prefix"] = &types.AttributeValueMemberS{Value: hookPrefix()}
		} else {
			input.KeyConditionExpression = aws.String("PK = :pk AND SK < :cursor")
			input.FilterExpression = aws.String("entity_type = :et")
			values[":cursor"] = &types.AttributeValueMemberS{Value: hookSK(page.Cursor)}
			values[":et"] = &types.AttributeValueMemberS{Value: EntityTypeHook}
		}
		input.ExpressionAttributeValues = values
	} else {
		// Global listing via the type-wide index, newest first
		keyCond := "#pk = :pk"
		names := map[string]string{"#pk": AttrGSI3PK}
		values := map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: EntityTypeHook},
		}
		if page.Cursor != "" {
			ms, err := parseMsCursor(page.Cursor)
			if err != nil {
				return nil, err
			}
			keyCond += " AND #sk < :cursor"
			names["#sk"] = AttrGSI3SK
			values[":cursor"] = &types.AttributeValueMemberN{Value: formatMs(ms)}
		}
		input = &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			IndexName:                 aws.String(IndexEntityType),
			KeyConditionExpression:    aws.String(keyCond),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
			ScanIndexForward:          aws.Bool(false),
			Limit:                     aws.Int32(int32(limit + 1)),
		}
	}

	result, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, flowstate.NewBackendFailure("list hooks", err)
	}

	var recs []hookRecord
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &recs); err != nil {
		return nil, flowstate.NewBackendFailure("unmarshal hooks", err)
	}

	recs, hasMore := pageWindow(recs, limit)
	out := &flowstate.Page[*flowstate.Hook]{
		Items:   make([]*flowstate.Hook, 0, len(recs)),
		HasMore: hasMore,
	}
	for i := range recs {
		out.Items = append(out.Items, projectHook(&recs[i]))
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
