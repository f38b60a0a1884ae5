package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/flowstate"
)

// Event operations. The event log is append-only: no update, no delete.
// Event ids are monotonic, so the discriminator key orders events by
// creation within a run.

func (s *DynamoDBStorage) CreateEvent(ctx context.Context, params flowstate.CreateEventParams) (*flowstate.Event, error) {
	now := nowMs()
	eventID := s.eventIDs.NewID()

	rec := &eventRecord{
		PK:         runPK(params.RunID),
		SK:         eventSK(eventID),
		EntityType: EntityTypeEvent,

		EventID:       eventID,
		RunID:         params.RunID,
		EventType:     params.EventType,
		EventData:     params.EventData,
		CorrelationID: params.CorrelationID,
		CreatedAtMs:   now,
	}
	if params.CorrelationID != "" {
		rec.GSI6PK = correlationGSI6PK(params.CorrelationID)
		rec.GSI6SK = now
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, flowstate.NewBackendFailure("marshal event", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, flowstate.NewConflict("event", eventID, "event "+eventID+" already exists")
		}
		return nil, flowstate.NewBackendFailure("create event", err)
	}

	return projectEvent(rec), nil
}

func (s *DynamoDBStorage) ListEvents(ctx context.Context, runID string, page flowstate.PageOptions, order flowstate.SortOrder) (*flowstate.Page[*flowstate.Event], error) {
	limit := s.cfg.EventLimit(page)
	ascending := order == flowstate.SortAsc

	input := &dynamodb.QueryInput{
		TableName:        aws.String(s.tableName),
		ScanIndexForward: aws.Bool(ascending),
		Limit:            aws.Int32(int32(limit + 1)),
	}

	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: runPK(runID)},
	}
	if page.Cursor == "" {
		input.KeyConditionExpression = aws.String("PK = :pk AND begins_with(SK, :prefix)")
		values[":prefix"] = &types.AttributeValueMemberS{Value: eventPrefix()}
	} else {
		// The cursor is the last event id of the previous page; the
		// comparison direction follows the sort order
		if ascending {
			input.KeyConditionExpression = aws.String("PK = :pk AND SK > :cursor")
		} else {
			input.KeyConditionExpression = aws.String("PK = :pk AND SK < :cursor")
		}
		input.FilterExpression = aws.String("entity_type = :et")
		values[":cursor"] = &types.AttributeValueMemberS{Value: eventSK(page.Cursor)}
		values[":et"] = &types.AttributeValueMemberS{Value: EntityTypeEvent}
	}
	input.ExpressionAttributeValues = values

	result, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, flowstate.NewBackendFailure("list events", err)
	}
	return s.projectEventPage(result.Items, limit, func(rec *eventRecord) string {
		return rec.EventID
	})
}

func (s *DynamoDBStorage) ListEventsByCorrelationID(ctx context.Context, correlationID string, page flowstate.PageOptions, order flowstate.SortOrder) (*flowstate.Page[*flowstate.Event], error) {
	limit := s.cfg.EventLimit(page)
	ascending := order == flowstate.SortAsc

	keyCond := "#pk = :pk"
	names := map[string]string{"#pk": AttrGSI6PK}
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: correlationGSI6PK(correlationID)},
	}
	if page.Cursor != "" {
		// Cursor compares against the creation instant; the operator flips
		// with the sort order
		ms, err := parseMsCursor(page.Cursor)
		if err != nil {
			return nil, err
		}
		if ascending {
			keyCond += " AND #sk > :cursor"
		} else {
			keyCond += " AND #sk < :cursor"
		}
		names["#sk"] = AttrGSI6SK
		values[":cursor"] = &types.AttributeValueMemberN{Value: formatMs(ms)}
	}

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(IndexCorrelation),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(ascending),
		Limit:                     aws.Int32(int32(limit + 1)),
	})
	if err != nil {
		return nil, flowstate.NewBackendFailure("list events by correlation id", err)
	}
	return s.projectEventPage(result.Items, limit, func(rec *eventRecord) string {
		return formatMs(rec.CreatedAtMs)
	})
}

func (s *DynamoDBStorage) projectEventPage(items []map[string]types.AttributeValue, limit int, cursorOf func(*eventRecord) string) (*flowstate.Page[*flowstate.Event], error) {
	var recs []eventRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &recs); err != nil {
		return nil, flowstate.NewBackendFailure("unmarshal events", err)
	}

	recs, hasMore := pageWindow(recs, limit)
	page := &flowstate.Page[*flowstate.Event]{
		Items:   make([]*flowstate.Event, 0, len(recs)),
		HasMore: hasMore,
	}
	for i := range recs {
		page.Items = append(page.Items, projectEvent(&recs[i]))
	}
	if len(recs) > 0 {
		cursor := cursorOf(&recs[len(recs)-1])
		page.Cursor = &cursor
	}
	return page, nil
}
