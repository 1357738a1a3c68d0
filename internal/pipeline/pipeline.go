package pipeline

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/groundcheck/internal/cache"
	"github.com/ppiankov/groundcheck/internal/correct"
	"github.com/ppiankov/groundcheck/internal/extract"
	"github.com/ppiankov/groundcheck/internal/metrics"
	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/score"
	"github.com/ppiankov/groundcheck/internal/validate"
)

// ErrBlocked is returned by Finalize when a critical mismatch withholds the answer
var ErrBlocked = errors.New("answer blocked: critical mismatch with tool data")

// Pipeline orchestrates parse, validate, correct and score for one answer
type Pipeline struct {
	parser    *extract.Parser
	validator *validate.Validator
	corrector *correct.Corrector
	scorer    *score.Scorer
	config    model.ValidationConfig
	logger    *zap.Logger
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg model.ValidationConfig, logger *zap.Logger) *Pipeline {
	return NewPipelineWithCache(cfg, logger, nil)
}

// NewPipelineWithCache creates a pipeline whose validator shares the given
// parse cache. A nil cache gets a private one.
func NewPipelineWithCache(cfg model.ValidationConfig, logger *zap.Logger, c cache.Cache) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = cache.NewMemoryCache(cfg.ParseCacheTTL, 2*cfg.ParseCacheTTL)
	}
	return &Pipeline{
		parser:    extract.NewParser(cfg),
		validator: validate.NewValidator(cfg, c),
		corrector: correct.NewCorrector(cfg),
		scorer:    score.NewScorer(),
		config:    cfg,
		logger:    logger,
	}
}

// Config returns the validation settings the pipeline runs with
func (p *Pipeline) Config() model.ValidationConfig {
	return p.config
}

// Check validates and corrects one answer against the tool results collected for it
func (p *Pipeline) Check(text string, results []model.ToolResult) *model.Report {
	start := time.Now()

	// 1. Parse claims and lists
	parsed := p.parser.Parse(text)

	// 2. Validate claims against tool data
	validations := p.validator.ValidateAll(parsed.Claims, results)

	// 3. Correct
	resp := p.corrector.CorrectResponse(parsed, validations, results)
	if p.config.BlockOnCritical && resp.Severity == model.SeverityCritical {
		resp.Blocked = true
	}

	// 4. Score (never changes the text)
	scoreResult := p.scorer.Calculate(validations, resp.Corrections, p.config.PriorityWeights)

	report := &model.Report{
		CheckID:      uuid.NewString(),
		CheckedAt:    time.Now().UTC(),
		OriginalText: text,
		Parsed:       parsed,
		ToolResults:  len(results),
		Response:     resp,
		Score:        scoreResult,
	}

	p.observe(report, time.Since(start))
	return report
}

// CheckTranscript checks a loaded transcript and records where it came from
func (p *Pipeline) CheckTranscript(t *Transcript, source string) *model.Report {
	report := p.Check(t.Answer, t.ToolResults)
	report.Source = source
	return report
}

// Finalize returns the text to show the user, or ErrBlocked
func (p *Pipeline) Finalize(report *model.Report) (string, error) {
	if report.Response.Blocked {
		return "", ErrBlocked
	}
	return report.Response.Text, nil
}

func (p *Pipeline) observe(report *model.Report, elapsed time.Duration) {
	resp := report.Response
	log := p.logger.With(zap.String("check_id", report.CheckID))

	for _, v := range resp.Validations {
		result := metrics.ResultValid
		switch {
		case !v.Verified():
			result = metrics.ResultUnverified
			log.Debug("Claim not verifiable",
				zap.String("claim", v.Claim.RawText),
				zap.String("kind", string(v.Claim.Kind)),
				zap.Int("line", v.Claim.Line))
		case !v.IsValid:
			result = metrics.ResultInvalid
		}
		metrics.ObserveClaim(string(v.Claim.Kind), result)
	}

	for _, a := range resp.Corrections {
		metrics.ObserveCorrection(a.Class.String(), a.Severity.String())
		if resp.Metadata.ReportOnly {
			continue
		}
		log.Info("Applied correction",
			zap.String("kind", string(a.Kind)),
			zap.String("class", a.Class.String()),
			zap.String("severity", a.Severity.String()),
			zap.String("reason", a.Reason))
	}

	outcome := metrics.OutcomeClean
	switch {
	case resp.Blocked:
		outcome = metrics.OutcomeBlocked
		log.Warn("Answer blocked",
			zap.Int("corrections", len(resp.Corrections)),
			zap.String("severity", resp.Severity.String()))
	case len(resp.Corrections) > 0:
		outcome = metrics.OutcomeCorrected
	}
	metrics.ObserveCheck(elapsed, outcome)
}
