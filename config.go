package flowstate

// Config holds store-level configuration shared by all backends
type Config struct {
	// TableName is the backing table for the single-table layout
	TableName string

	// Page size overrides; zero means the per-entity default applies
	RunPageSize   int
	StepPageSize  int
	HookPageSize  int
	EventPageSize int
}

// DefaultConfig provides the defaults used when a field is left zero
var DefaultConfig = Config{
	RunPageSize:   DefaultRunPageSize,
	StepPageSize:  DefaultStepPageSize,
	HookPageSize:  DefaultHookPageSize,
	EventPageSize: DefaultEventPageSize,
}

// RunLimit resolves the effective run page size
func (c Config) RunLimit(p PageOptions) int {
	if c.RunPageSize > 0 {
		return p.LimitOr(c.RunPageSize)
	}
	return p.LimitOr(DefaultRunPageSize)
}

// StepLimit resolves the effective step page size
func (c Config) StepLimit(p PageOptions) int {
	if c.StepPageSize > 0 {
		return p.LimitOr(c.StepPageSize)
	}
	return p.LimitOr(DefaultStepPageSize)
}

// HookLimit resolves the effective hook page size
func (c Config) HookLimit(p PageOptions) int {
	if c.HookPageSize > 0 {
		return p.LimitOr(c.HookPageSize)
	}
	return p.LimitOr(DefaultHookPageSize)
}

// EventLimit resolves the effective event page size
func (c Config) EventLimit(p PageOptions) int {
	if c.EventPageSize > 0 {
		return p.LimitOr(c.EventPageSize)
	}
	return p.LimitOr(DefaultEventPageSize)
}
