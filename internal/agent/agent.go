package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/groundcheck/internal/llm"
	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/pipeline"
	"github.com/ppiankov/groundcheck/internal/tools"
	"github.com/ppiankov/groundcheck/internal/worker"
)

// ErrMaxIterations is returned when the model keeps requesting tools
var ErrMaxIterations = errors.New("agent: max iterations reached without an answer")

// Answer is a checked reply to one question
type Answer struct {
	Question    string             `json:"question"`
	Text        string             `json:"text"` // Empty when blocked
	Report      *model.Report      `json:"report"`
	ToolResults []model.ToolResult `json:"tool_results"`
	Iterations  int                `json:"iterations"`
}

// Agent answers questions with an LLM that calls tools, then checks the
// answer against what those tools returned
type Agent struct {
	provider llm.Provider
	registry *tools.Registry
	pipeline *pipeline.Pipeline
	limiter  *worker.Limiter
	cfg      model.AgentConfig
	logger   *zap.Logger
}

// New creates an agent. A nil limiter means tool calls are not rate limited.
func New(provider llm.Provider, registry *tools.Registry, p *pipeline.Pipeline, limiter *worker.Limiter, cfg model.AgentConfig, logger *zap.Logger) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = model.DefaultConfig().Agent.MaxIterations
	}
	if registry == nil {
		registry = tools.NewRegistry()
	}
	if limiter == nil {
		limiter = worker.NewLimiter(0, 1)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		provider: provider,
		registry: registry,
		pipeline: p,
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger,
	}
}

// Answer runs the tool loop for a question and checks the final text.
// When the check blocks the answer, the returned Answer carries the report
// and the error is pipeline.ErrBlocked.
func (a *Agent) Answer(ctx context.Context, question string) (*Answer, error) {
	if a.provider == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}

	messages := []llm.Message{}
	if a.cfg.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: a.cfg.SystemPrompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})
	specs := a.toolSpecs()

	var results []model.ToolResult
	for i := 1; i <= a.cfg.MaxIterations; i++ {
		resp, err := a.provider.Chat(ctx, llm.ChatRequest{Messages: messages, Tools: specs})
		if err != nil {
			return nil, fmt.Errorf("chat: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			report := a.pipeline.Check(resp.Content, results)
			report.Source = a.provider.Name()
			answer := &Answer{
				Question:    question,
				Report:      report,
				ToolResults: results,
				Iterations:  i,
			}
			text, err := a.pipeline.Finalize(report)
			if err != nil {
				return answer, err
			}
			answer.Text = text
			return answer, nil
		}

		calls := make([]llm.ToolCall, len(resp.ToolCalls))
		for j, call := range resp.ToolCalls {
			if call.ID == "" {
				call.ID = "call_" + uuid.NewString()
			}
			calls[j] = call
		}
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: calls})

		for _, call := range calls {
			if err := a.limiter.Wait(ctx, call.Name); err != nil {
				return nil, fmt.Errorf("wait for %s: %w", call.Name, err)
			}
			res := a.registry.Execute(ctx, call.Name, call.ID, call.Arguments)
			a.logger.Debug("Tool call",
				zap.String("tool", call.Name),
				zap.String("call_id", call.ID),
				zap.Bool("is_error", res.IsError),
				zap.Int("bytes", len(res.Content)))
			results = append(results, res)
			messages = append(messages, llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, Content: res.Content})
		}
	}

	return nil, ErrMaxIterations
}

func (a *Agent) toolSpecs() []llm.ToolSpec {
	defs := a.registry.Definitions()
	specs := make([]llm.ToolSpec, 0, len(defs))
	for _, d := range defs {
		specs = append(specs, llm.ToolSpec{Name: d.Name, Description: d.Description, Parameters: d.Parameters})
	}
	return specs
}
