package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/pipeline"
)

var (
	outJSON             string
	outMD               string
	reportOnly          bool
	blockOnCritical     bool
	countTolerance      float64
	percentageTolerance float64
	inputFormat         string
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <transcript>",
	Short: "Check one answer against its tool results",
	Long: `Check reads a transcript (an answer plus the tool results collected for
it) and validates every numeric claim in the answer:
- Extract counts, percentages, uptime and aggregate claims
- Match each claim to the tool output it refers to
- Correct wrong values and inconsistent numbered lists
- Print the corrected answer and a summary

Transcripts are JSON, or YAML when the file ends in .yaml/.yml.
Use "-" to read from stdin.

Example:
  groundcheck check answer.json
  groundcheck check answer.yaml --json report.json --md report.md
  groundcheck check answer.json --report-only --count-tolerance 1`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	// Output flags
	checkCmd.Flags().StringVar(&outJSON, "json", "", "output JSON report path (optional)")
	checkCmd.Flags().StringVar(&outMD, "md", "", "output Markdown report path (optional)")
	checkCmd.Flags().StringVar(&inputFormat, "format", "json", "transcript format when reading stdin (json, yaml)")

	// Policy flags
	checkCmd.Flags().BoolVar(&reportOnly, "report-only", false, "propose corrections without rewriting the answer")
	checkCmd.Flags().BoolVar(&blockOnCritical, "block-on-critical", false, "withhold the answer when a critical correction is needed")
	checkCmd.Flags().Float64Var(&countTolerance, "count-tolerance", 0, "absolute slack allowed for count claims")
	checkCmd.Flags().Float64Var(&percentageTolerance, "percentage-tolerance", 0.1, "percentage-point slack allowed for percentage claims")
}

// applyPolicyFlags overrides configured policy with flags the user set
func applyPolicyFlags(cmd *cobra.Command, cfg *model.ValidationConfig) {
	flags := cmd.Flags()
	if flags.Changed("report-only") {
		cfg.AutoCorrect = !reportOnly
	}
	if flags.Changed("block-on-critical") {
		cfg.BlockOnCritical = blockOnCritical
	}
	if flags.Changed("count-tolerance") {
		cfg.CountTolerance = countTolerance
	}
	if flags.Changed("percentage-tolerance") {
		cfg.PercentageTolerance = percentageTolerance
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	applyPolicyFlags(cmd, &cfg.Validation)

	source := args[0]
	transcript, err := readTranscript(cmd.InOrStdin(), source, inputFormat)
	if err != nil {
		return err
	}

	p := pipeline.NewPipeline(cfg.Validation, logger)
	report := p.CheckTranscript(transcript, source)

	renderer := pipeline.NewRenderer(os.Stderr)
	if outJSON != "" {
		if err := renderer.RenderJSON(report, outJSON); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(report, outMD); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
	}
	renderer.RenderSummary(report)

	text, err := p.Finalize(report)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func readTranscript(stdin io.Reader, source, format string) (*pipeline.Transcript, error) {
	if source != "-" {
		return pipeline.LoadTranscript(source)
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return pipeline.ParseTranscript(data, format)
}
