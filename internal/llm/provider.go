package llm

import (
	"context"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Chat sends the conversation and returns either text or tool calls
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Message is one turn of the conversation
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall // Set on assistant turns that requested tools
	ToolCallID string     // Set on tool turns
}

// ToolCall is a function call requested by the model
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON object
}

// ToolSpec describes a callable tool; Parameters is a JSON schema object
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ChatRequest is the input for one model round trip
type ChatRequest struct {
	Messages []Message
	Tools    []ToolSpec

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// ChatResponse is the model's reply. When ToolCalls is non-empty the
// caller is expected to run them and call Chat again.
type ChatResponse struct {
	Content    string
	ToolCalls  []ToolCall
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	Temperature float32

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   60,
		MaxTokens: 1500,
	}
}
