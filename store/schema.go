package store

import "fmt"

// DynamoDB schema constants for single-table design
const (
	// Table attributes
	AttrPK         = "PK"
	AttrSK         = "SK"
	AttrGSI1PK     = "GSI1PK"
	AttrGSI1SK     = "GSI1SK"
	AttrGSI2PK     = "GSI2PK"
	AttrGSI2SK     = "GSI2SK"
	AttrGSI3PK     = "GSI3PK"
	AttrGSI3SK     = "GSI3SK"
	AttrGSI4PK     = "GSI4PK"
	AttrGSI5PK     = "GSI5PK"
	AttrGSI6PK     = "GSI6PK"
	AttrGSI6SK     = "GSI6SK"
	AttrEntityType = "entity_type"

	// Entity types
	EntityTypeRun   = "RUN"
	EntityTypeStep  = "STEP"
	EntityTypeHook  = "HOOK"
	EntityTypeEvent = "EVENT"

	// Index names
	IndexWorkflowName = "workflow-name-index" // GSI1: runs by workflow name, sorted by created_at
	IndexStatus       = "status-index"        // GSI2: runs by status, sorted by created_at
	IndexEntityType   = "entity-type-index"   // GSI3: global listing per entity type, sorted by created_at
	IndexHookID       = "hook-id-index"       // GSI4: hook point lookup
	IndexToken        = "token-index"         // GSI5: hook reverse lookup by token
	IndexCorrelation  = "correlation-index"   // GSI6: events by correlation id, sorted by created_at
)

// Key builders for single-table design.
// All entities under one run share PK=RUN#{runID}; the SK discriminates
// the entity within the group and determines in-group ordering.

func runPK(runID string) string {
	return fmt.Sprintf("RUN#%s", runID)
}

func runSK() string {
	return "RUN#METADATA"
}

func stepSK(stepID string) string {
	return fmt.Sprintf("STEP#%s", stepID)
}

func hookSK(hookID string) string {
	return fmt.Sprintf("HOOK#%s", hookID)
}

func eventSK(eventID string) string {
	return fmt.Sprintf("EVENT#%s", eventID)
}

// Prefixes for in-group range queries

func stepPrefix() string {
	return "STEP#"
}

func hookPrefix() string {
	return "HOOK#"
}

func eventPrefix() string {
	return "EVENT#"
}

// GSI partition key builders

func workflowNameGSI1PK(workflowName string) string {
	return fmt.Sprintf("WF#%s", workflowName)
}

func statusGSI2PK(status string) string {
	return fmt.Sprintf("STATUS#%s", status)
}

func hookIDGSI4PK(hookID string) string {
	return fmt.Sprintf("HOOKID#%s", hookID)
}

func tokenGSI5PK(token string) string {
	return fmt.Sprintf("TOKEN#%s", token)
}

func correlationGSI6PK(correlationID string) string {
	return fmt.Sprintf("CORR#%s", correlationID)
}
