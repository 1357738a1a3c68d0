package model

import (
	"fmt"
	"time"
)

// Config is the full groundcheck configuration tree
type Config struct {
	Validation   ValidationConfig   `yaml:"validation" mapstructure:"validation"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Tools        ToolsConfig        `yaml:"tools" mapstructure:"tools"`
	Agent        AgentConfig        `yaml:"agent" mapstructure:"agent"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
}

// ValidationConfig is the correction policy for the engine
type ValidationConfig struct {
	CountTolerance       float64            `yaml:"count_tolerance" mapstructure:"count_tolerance"`             // Absolute slack for count claims
	PercentageTolerance  float64            `yaml:"percentage_tolerance" mapstructure:"percentage_tolerance"`   // Percentage-point slack
	StrictMode           bool               `yaml:"strict_mode" mapstructure:"strict_mode"`                     // Reserved
	AutoCorrect          bool               `yaml:"auto_correct" mapstructure:"auto_correct"`                   // Apply edits instead of only reporting
	BlockOnCritical      bool               `yaml:"block_on_critical" mapstructure:"block_on_critical"`         // Suppress answers with critical corrections
	NormalizePercentages bool               `yaml:"normalize_percentages" mapstructure:"normalize_percentages"` // Round over-precise percentages to one decimal
	PriorityWeights      map[string]float64 `yaml:"priority_weights" mapstructure:"priority_weights"`           // Per correction class, reporting only
	ListProximity        int                `yaml:"list_proximity" mapstructure:"list_proximity"`               // Max chars between list items
	LinkWindow           int                `yaml:"link_window" mapstructure:"link_window"`                     // Max chars between a count claim and its list
	ParseCacheTTL        time.Duration      `yaml:"parse_cache_ttl" mapstructure:"parse_cache_ttl"`
}

// LLMConfig configures the model provider used by the agent loop
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, ollama, "" (disabled)
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
}

// ToolsConfig configures the HTTP tool backend
type ToolsConfig struct {
	BaseURL      string         `yaml:"base_url" mapstructure:"base_url"`
	Timeout      time.Duration  `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string         `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64          `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string         `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string         `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string         `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	Endpoints    []ToolEndpoint `yaml:"endpoints" mapstructure:"endpoints"`
}

// ToolEndpoint maps a tool name to an HTTP endpoint
type ToolEndpoint struct {
	Name        string            `yaml:"name" mapstructure:"name"`
	Description string            `yaml:"description" mapstructure:"description"`
	Method      string            `yaml:"method" mapstructure:"method"`
	Path        string            `yaml:"path" mapstructure:"path"`
	Parameters  map[string]string `yaml:"parameters,omitempty" mapstructure:"parameters"` // name -> description
}

// AgentConfig bounds the LLM/tool loop
type AgentConfig struct {
	MaxIterations int    `yaml:"max_iterations" mapstructure:"max_iterations"`
	SystemPrompt  string `yaml:"system_prompt" mapstructure:"system_prompt"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// ConcurrencyConfig controls batch workers
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig controls per-tool call rates
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ServerConfig controls the HTTP listener of `groundcheck serve`
type ServerConfig struct {
	Address         string        `yaml:"address" mapstructure:"address"`
	GracefulTimeout time.Duration `yaml:"graceful_timeout" mapstructure:"graceful_timeout"`
}

// DefaultValidationConfig returns the default correction policy
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		CountTolerance:       0,
		PercentageTolerance:  0.1,
		StrictMode:           false,
		AutoCorrect:          true,
		BlockOnCritical:      false,
		NormalizePercentages: true,
		PriorityWeights: map[string]float64{
			ClassDeviceCount.String(): 1.0,
			ClassCount.String():       0.8,
			ClassUptime.String():      0.7,
			ClassPercentage.String():  0.6,
			ClassAggregation.String(): 0.5,
		},
		ListProximity: 200,
		LinkWindow:    300,
		ParseCacheTTL: 10 * time.Minute,
	}
}

// DefaultConfig returns the full default configuration
func DefaultConfig() *Config {
	return &Config{
		Validation: DefaultValidationConfig(),
		LLM: LLMConfig{
			Provider:    "",
			Model:       "gpt-4o-mini",
			Timeout:     60,
			MaxTokens:   1500,
			Temperature: 0.2,
		},
		Tools: ToolsConfig{
			Timeout:      15 * time.Second,
			UserAgent:    "groundcheck/0.1",
			MaxBodyBytes: 2_000_000,
			Endpoints:    DefaultToolEndpoints(),
		},
		Agent: AgentConfig{
			MaxIterations: 8,
			SystemPrompt: "You are an operations assistant for a video device fleet. " +
				"Use the tools to look up live data before answering. " +
				"State counts and percentages exactly as the tools report them.",
		},
		Logging:      LoggingConfig{Level: "info", JSON: false},
		Concurrency:  ConcurrencyConfig{Workers: 4},
		RateLimiting: RateLimitingConfig{RequestsPerSecond: 5, BurstSize: 5},
		Server: ServerConfig{
			Address:         ":8088",
			GracefulTimeout: 10 * time.Second,
		},
	}
}

// DefaultToolEndpoints describes the device-management API tools
func DefaultToolEndpoints() []ToolEndpoint {
	return []ToolEndpoint{
		{Name: "list_devices", Description: "List devices with their live connection status", Method: "GET", Path: "/api/v1/devices",
			Parameters: map[string]string{"status": "Optional status filter (connected, disconnected)"}},
		{Name: "get_device_summary", Description: "Cached per-status device totals", Method: "GET", Path: "/api/v1/reports/devices/summary"},
		{Name: "list_alerts", Description: "List alerts", Method: "GET", Path: "/api/v1/alerts",
			Parameters: map[string]string{"status": "Optional status filter (open, resolved)"}},
		{Name: "get_availability_report", Description: "Fleet uptime percentage over a period", Method: "GET", Path: "/api/v1/reports/availability",
			Parameters: map[string]string{"period": "Reporting period such as 24h or 7d"}},
		{Name: "get_stream_rollup", Description: "Numeric rollup series for streams", Method: "GET", Path: "/api/v1/streams/rollup",
			Parameters: map[string]string{"metric": "Metric name such as bitrate or viewers"}},
		{Name: "list_streams", Description: "List streams", Method: "GET", Path: "/api/v1/streams"},
		{Name: "list_groups", Description: "List device groups", Method: "GET", Path: "/api/v1/groups"},
		{Name: "list_jobs", Description: "List scheduled jobs", Method: "GET", Path: "/api/v1/jobs"},
		{Name: "list_firmware", Description: "List firmware updates", Method: "GET", Path: "/api/v1/firmware"},
	}
}

// ConfigError reports an invalid configuration value
type ConfigError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("config %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("config %s: %s: %v", e.Field, e.Msg, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Validate checks the configuration for values the engine cannot work with
func (c *Config) Validate() error {
	v := c.Validation
	if v.CountTolerance < 0 {
		return &ConfigError{Field: "validation.count_tolerance", Msg: "must not be negative"}
	}
	if v.PercentageTolerance < 0 {
		return &ConfigError{Field: "validation.percentage_tolerance", Msg: "must not be negative"}
	}
	if v.ListProximity <= 0 {
		return &ConfigError{Field: "validation.list_proximity", Msg: "must be positive"}
	}
	if v.LinkWindow <= 0 {
		return &ConfigError{Field: "validation.link_window", Msg: "must be positive"}
	}
	if c.Agent.MaxIterations <= 0 {
		return &ConfigError{Field: "agent.max_iterations", Msg: "must be positive"}
	}
	switch c.LLM.Provider {
	case "", "openai", "ollama":
	default:
		return &ConfigError{Field: "llm.provider", Msg: fmt.Sprintf("unknown provider %q (supported: openai, ollama)", c.LLM.Provider)}
	}
	seen := make(map[string]bool)
	for _, ep := range c.Tools.Endpoints {
		if ep.Name == "" {
			return &ConfigError{Field: "tools.endpoints", Msg: "endpoint without name"}
		}
		if seen[ep.Name] {
			return &ConfigError{Field: "tools.endpoints", Msg: "duplicate endpoint " + ep.Name}
		}
		seen[ep.Name] = true
	}
	return nil
}
