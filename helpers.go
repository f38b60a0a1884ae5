package flowstate

// ToPtr returns a pointer to the given value.
// This is useful for creating pointers to literals, e.g. partial updates:
//
//	store.UpdateRun(ctx, runID, flowstate.RunUpdate{
//		Status: flowstate.ToPtr(flowstate.RunStatusRunning),
//	})
func ToPtr[T any](v T) *T {
	return &v
}
