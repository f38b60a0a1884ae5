package store

import (
	"errors"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/flowstate"
)

// DynamoDBStorage implements flowstate.Storage over a single DynamoDB table.
// Correctness under concurrent callers is enforced by conditional writes,
// not client-side locking; there is no retry policy in this layer.
type DynamoDBStorage struct {
	client    DynamoDBClient
	tableName string
	cfg       flowstate.Config

	runIDs   *IDGenerator
	stepIDs  *IDGenerator
	eventIDs *IDGenerator
}

// NewDynamoDBStorage creates a DynamoDB-backed storage facade
func NewDynamoDBStorage(client DynamoDBClient, cfg flowstate.Config) flowstate.Storage {
	return &DynamoDBStorage{
		client:    client,
		tableName: cfg.TableName,
		cfg:       cfg,
		runIDs:    NewIDGenerator(RunIDPrefix),
		stepIDs:   NewIDGenerator(StepIDPrefix),
		eventIDs:  NewIDGenerator(EventIDPrefix),
	}
}

var _ flowstate.Storage = (*DynamoDBStorage)(nil)

// isConditionalCheckFailed reports whether err is a failed write precondition,
// as opposed to an infrastructure failure
func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tx *types.TransactionCanceledException
	return errors.As(err, &tx)
}

// pageWindow applies the limit+1 convention: the backend is asked for one
// record beyond the page size, the extra record only signals hasMore.
func pageWindow[T any](items []T, limit int) ([]T, bool) {
	if len(items) > limit {
		return items[:limit], true
	}
	return items, false
}

func formatMs(ms int64) string {
	return strconv.FormatInt(ms, 10)
}

func parseMsCursor(cursor string) (int64, error) {
	ms, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil {
		return 0, flowstate.NewBackendFailure("parse cursor", err)
	}
	return ms, nil
}
