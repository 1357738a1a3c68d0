package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/groundcheck/internal/agent"
	"github.com/ppiankov/groundcheck/internal/llm"
	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/pipeline"
	"github.com/ppiankov/groundcheck/internal/tools"
	"github.com/ppiankov/groundcheck/internal/worker"
)

var (
	askProvider string
	askModel    string
	askToolsURL string
	askJSON     bool
	askTimeout  time.Duration
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the LLM a question and check its answer against live tool data",
	Long: `Ask runs the LLM with the device-management API tools, lets it call
them until it produces an answer, then checks that answer against the
tool results and prints the corrected text.

Example:
  groundcheck ask "How many cameras are offline?" --tools-url https://devices.example.com
  groundcheck ask "What was uptime last week?" --llm-provider ollama --llm-model llama3.1`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askProvider, "llm-provider", "", "LLM provider (openai, ollama)")
	askCmd.Flags().StringVar(&askModel, "llm-model", "", "LLM model name")
	askCmd.Flags().StringVar(&askToolsURL, "tools-url", "", "base URL of the device-management API")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer and report as JSON")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 2*time.Minute, "overall timeout for the question")
	askCmd.Flags().BoolVar(&blockOnCritical, "block-on-critical", false, "withhold the answer when a critical correction is needed")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if askProvider != "" {
		cfg.LLM.Provider = askProvider
	}
	if askModel != "" {
		cfg.LLM.Model = askModel
	}
	if askToolsURL != "" {
		cfg.Tools.BaseURL = askToolsURL
	}
	if cmd.Flags().Changed("block-on-critical") {
		cfg.Validation.BlockOnCritical = blockOnCritical
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}

	a, err := newAgent(cfg, pipeline.NewPipeline(cfg.Validation, logger), logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	answer, err := a.Answer(ctx, args[0])
	if err != nil && !errors.Is(err, pipeline.ErrBlocked) {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(answer); encErr != nil {
			return fmt.Errorf("encode answer: %w", encErr)
		}
		return err
	}

	pipeline.NewRenderer(os.Stderr).RenderSummary(answer.Report)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
	return nil
}

// newAgent wires the LLM provider, HTTP tools and tool rate limits
func newAgent(cfg *model.Config, p *pipeline.Pipeline, logger *zap.Logger) (*agent.Agent, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(*cfg))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	if provider == nil {
		return nil, &model.ConfigError{Field: "llm.provider", Msg: "must be set to answer questions"}
	}

	registry, err := tools.NewRegistryFromConfig(cfg.Tools)
	if err != nil {
		return nil, err
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	logger.Debug("Agent ready",
		zap.String("provider", provider.Name()),
		zap.String("model", cfg.LLM.Model),
		zap.Int("tools", len(registry.Definitions())))

	return agent.New(provider, registry, p, limiter, cfg.Agent, logger), nil
}
