package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/groundcheck/internal/pipeline"
	"github.com/ppiankov/groundcheck/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <list-file>",
	Short: "Check many transcripts from a list file in parallel",
	Long: `Batch checks many transcripts concurrently:
- Read transcript paths from the list file (one per line, # for comments)
- Check them in parallel with a configurable worker count
- Write a JSON and a Markdown report per transcript

Example:
  groundcheck batch transcripts.txt
  groundcheck batch transcripts.txt --concurrency 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./groundcheck-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&reportOnly, "report-only", false, "propose corrections without rewriting answers")
	batchCmd.Flags().BoolVar(&blockOnCritical, "block-on-critical", false, "withhold answers when a critical correction is needed")
	batchCmd.Flags().Float64Var(&countTolerance, "count-tolerance", 0, "absolute slack allowed for count claims")
	batchCmd.Flags().Float64Var(&percentageTolerance, "percentage-tolerance", 0.1, "percentage-point slack allowed for percentage claims")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	applyPolicyFlags(cmd, &cfg.Validation)
	if !cmd.Flags().Changed("concurrency") && cfg.Concurrency.Workers > 0 {
		concurrency = cfg.Concurrency.Workers
	}

	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	logger.Info("Starting batch",
		zap.String("input", file),
		zap.Int("workers", concurrency),
		zap.String("output_dir", outputDir))

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p := pipeline.NewPipeline(cfg.Validation, logger)
	processor := worker.NewBatchProcessor(p, concurrency)

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := pipeline.NewRenderer(os.Stderr)
	successCount, failureCount, blockedCount := 0, 0, 0
	for i, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			continue
		}

		base := reportName(i, result.Path)
		if err := renderer.RenderJSON(result.Report, filepath.Join(outputDir, base+".json")); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Path, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Report, filepath.Join(outputDir, base+".md")); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Path, err)
			continue
		}

		successCount++
		resp := result.Report.Response
		if resp.Blocked {
			blockedCount++
		}
		fmt.Fprintf(os.Stderr, "✓ %s (index: %d/100, corrections: %d)\n",
			result.Path, result.Report.Score.Index, len(resp.Corrections))
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d transcripts\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Blocked:   %d\n", blockedCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d transcripts failed", failureCount, len(results))
	}
	return nil
}

// reportName derives a report file stem from a transcript path. The index
// prefix keeps same-named transcripts from different directories apart.
func reportName(index int, path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		case ' ':
			return '-'
		}
		return r
	}, name)
	if r := []rune(name); len(r) > 100 {
		name = string(r[:100])
	}
	return fmt.Sprintf("%03d-%s", index+1, name)
}
