package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative count tolerance", func(c *Config) { c.Validation.CountTolerance = -1 }, "validation.count_tolerance"},
		{"negative percentage tolerance", func(c *Config) { c.Validation.PercentageTolerance = -0.5 }, "validation.percentage_tolerance"},
		{"zero list proximity", func(c *Config) { c.Validation.ListProximity = 0 }, "validation.list_proximity"},
		{"zero link window", func(c *Config) { c.Validation.LinkWindow = 0 }, "validation.link_window"},
		{"no iterations", func(c *Config) { c.Agent.MaxIterations = 0 }, "agent.max_iterations"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "anthropic" }, "llm.provider"},
		{"unnamed endpoint", func(c *Config) { c.Tools.Endpoints = append(c.Tools.Endpoints, ToolEndpoint{Path: "/x"}) }, "tools.endpoints"},
		{"duplicate endpoint", func(c *Config) { c.Tools.Endpoints = append(c.Tools.Endpoints, c.Tools.Endpoints[0]) }, "tools.endpoints"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			var cfgErr *ConfigError
			require.True(t, errors.As(cfg.Validate(), &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	inner := errors.New("bad level")
	err := &ConfigError{Field: "logging.level", Msg: "invalid", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "config logging.level: invalid: bad level", err.Error())
}

func TestCorrectionAction_JSONNames(t *testing.T) {
	a := CorrectionAction{Kind: CorrectionReplace, Class: ClassUptime, Severity: SeverityCritical}
	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"class":"uptime"`)
	assert.Contains(t, string(data), `"severity":"critical"`)

	var back CorrectionAction
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ClassUptime, back.Class)
	assert.Equal(t, SeverityCritical, back.Severity)
}

func TestCorrectionAction_Overlaps(t *testing.T) {
	a := CorrectionAction{Start: 5, End: 10}
	assert.True(t, a.Overlaps(CorrectionAction{Start: 9, End: 12}))
	assert.False(t, a.Overlaps(CorrectionAction{Start: 10, End: 12}))
	// Zero-width insertions only collide strictly inside a range
	assert.True(t, a.Overlaps(CorrectionAction{Start: 7, End: 7}))
	assert.False(t, a.Overlaps(CorrectionAction{Start: 5, End: 5}))
}
