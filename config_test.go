package flowstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig

	assert.Equal(t, "", config.TableName)
	assert.Equal(t, DefaultRunPageSize, config.RunPageSize)
	assert.Equal(t, DefaultStepPageSize, config.StepPageSize)
	assert.Equal(t, DefaultHookPageSize, config.HookPageSize)
	assert.Equal(t, DefaultEventPageSize, config.EventPageSize)
}

func TestDefaultPageSizes(t *testing.T) {
	assert.Equal(t, 20, DefaultRunPageSize)
	assert.Equal(t, 20, DefaultStepPageSize)
	assert.Equal(t, 100, DefaultHookPageSize)
	assert.Equal(t, 100, DefaultEventPageSize)
}

func TestConfig_Limits_ZeroConfigFallsBackToDefaults(t *testing.T) {
	var config Config

	assert.Equal(t, DefaultRunPageSize, config.RunLimit(PageOptions{}))
	assert.Equal(t, DefaultStepPageSize, config.StepLimit(PageOptions{}))
	assert.Equal(t, DefaultHookPageSize, config.HookLimit(PageOptions{}))
	assert.Equal(t, DefaultEventPageSize, config.EventLimit(PageOptions{}))
}

func TestConfig_Limits_ConfiguredPageSizes(t *testing.T) {
	config := Config{
		RunPageSize:   5,
		StepPageSize:  10,
		HookPageSize:  15,
		EventPageSize: 25,
	}

	assert.Equal(t, 5, config.RunLimit(PageOptions{}))
	assert.Equal(t, 10, config.StepLimit(PageOptions{}))
	assert.Equal(t, 15, config.HookLimit(PageOptions{}))
	assert.Equal(t, 25, config.EventLimit(PageOptions{}))
}

func TestConfig_Limits_RequestOverridesConfig(t *testing.T) {
	config := Config{
		RunPageSize:   5,
		StepPageSize:  10,
		HookPageSize:  15,
		EventPageSize: 25,
	}
	page := PageOptions{Limit: 3}

	assert.Equal(t, 3, config.RunLimit(page))
	assert.Equal(t, 3, config.StepLimit(page))
	assert.Equal(t, 3, config.HookLimit(page))
	assert.Equal(t, 3, config.EventLimit(page))
}

func TestPageOptions_LimitOr(t *testing.T) {
	assert.Equal(t, 20, PageOptions{}.LimitOr(20))
	assert.Equal(t, 20, PageOptions{Limit: -1}.LimitOr(20))
	assert.Equal(t, 7, PageOptions{Limit: 7}.LimitOr(20))
}
