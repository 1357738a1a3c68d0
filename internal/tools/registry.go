package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ppiankov/groundcheck/internal/metrics"
	"github.com/ppiankov/groundcheck/internal/model"
)

// Definition describes a tool to the LLM. Parameters is a JSON schema object.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Tool is something the agent can call to look up live data
type Tool interface {
	Name() string
	Definition() Definition
	Call(ctx context.Context, args map[string]any) (string, error)
}

// Registry holds tools by name
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// Register adds a tool, replacing any tool with the same name
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get looks a tool up by name
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns every tool definition sorted by name
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute calls a tool with JSON-encoded arguments. Failures are reported in
// the result with IsError set rather than returned, so the caller can hand
// them back to the LLM. An empty callID gets a generated one.
func (r *Registry) Execute(ctx context.Context, name, callID, rawArgs string) model.ToolResult {
	if callID == "" {
		callID = "call_" + uuid.NewString()
	}
	result := model.ToolResult{ToolName: name, CallID: callID}

	content, err := r.call(ctx, name, rawArgs)
	metrics.ObserveToolCall(name, err != nil)
	if err != nil {
		result.IsError = true
		result.Content = err.Error()
		return result
	}
	result.Content = content
	return result
}

func (r *Registry) call(ctx context.Context, name, rawArgs string) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	args := map[string]any{}
	if s := strings.TrimSpace(rawArgs); s != "" && s != "null" {
		if err := json.Unmarshal([]byte(s), &args); err != nil {
			return "", fmt.Errorf("decode %s arguments: %w", name, err)
		}
	}
	content, err := t.Call(ctx, args)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return content, nil
}

// NewRegistryFromConfig builds an HTTP tool for every configured endpoint
func NewRegistryFromConfig(cfg model.ToolsConfig) (*Registry, error) {
	if cfg.BaseURL == "" {
		return nil, &model.ConfigError{Field: "tools.base_url", Msg: "must be set to call tools"}
	}
	r := NewRegistry()
	for _, ep := range cfg.Endpoints {
		r.Register(NewHTTPTool(ep, cfg))
	}
	return r, nil
}
