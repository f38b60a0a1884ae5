package store

// Package store provides persistence implementations for the workflow state
// layer. The Storage interface is defined in the parent flowstate package
// (../store_interface.go) to avoid import cycles between the domain model
// and its backends.
//
// This package contains concrete implementations:
//   - DynamoDBStorage: production backend over a single DynamoDB table
//   - MemoryStorage: in-memory backend for tests and local development
//
// Schema design follows the single-table layout defined in schema.go.
