package validate

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/groundcheck/internal/cache"
	"github.com/ppiankov/groundcheck/internal/model"
)

// Epsilon absorbs float noise in tolerance comparisons
const Epsilon = 1e-9

// Validator checks numeric claims against ground truth from tool results
type Validator struct {
	cfg        model.ValidationConfig
	strategies []Strategy
	cache      cache.Cache
	ttl        time.Duration
}

// NewValidator creates a validator with the built-in strategies. A nil cache
// gets a private in-memory cache.
func NewValidator(cfg model.ValidationConfig, c cache.Cache) *Validator {
	ttl := cfg.ParseCacheTTL
	if ttl <= 0 {
		ttl = model.DefaultValidationConfig().ParseCacheTTL
	}
	if c == nil {
		c = cache.NewMemoryCache(ttl, 2*ttl)
	}
	return &Validator{
		cfg:        cfg,
		strategies: DefaultStrategies(),
		cache:      c,
		ttl:        ttl,
	}
}

// WithStrategies replaces the strategy table
func (v *Validator) WithStrategies(strategies []Strategy) *Validator {
	v.strategies = strategies
	return v
}

// ValidateAll validates every claim in order
func (v *Validator) ValidateAll(claims []model.NumericClaim, results []model.ToolResult) []model.ValidationResult {
	out := make([]model.ValidationResult, 0, len(claims))
	for _, c := range claims {
		out = append(out, v.Validate(c, results))
	}
	return out
}

// Validate checks one claim. A claim without ground truth is valid with
// severity none.
func (v *Validator) Validate(claim model.NumericClaim, results []model.ToolResult) model.ValidationResult {
	result := model.ValidationResult{
		Claim:        claim,
		IsValid:      true,
		ClaimedValue: claim.Value,
		Severity:     model.SeverityNone,
		Method:       "unverified: no ground truth",
	}

	gt, actual, ok := v.findGroundTruth(claim, results)
	if !ok {
		return result
	}

	errAbs := math.Abs(claim.Value - actual)
	errPct := 0.0
	if actual != 0 {
		errPct = errAbs / math.Abs(actual) * 100
	}

	result.ActualValue = &actual
	result.Error = &errAbs
	result.ErrorPercent = &errPct
	result.GroundTruth = gt
	result.Method = gt.Method
	result.IsValid = v.withinTolerance(claim, errAbs, errPct)
	if !result.IsValid {
		result.Severity = Classify(claim, errAbs, errPct)
	}
	return result
}

func (v *Validator) withinTolerance(claim model.NumericClaim, errAbs, errPct float64) bool {
	switch claim.Kind {
	case model.ClaimKindCount:
		return errAbs <= v.cfg.CountTolerance+Epsilon
	case model.ClaimKindPercentage:
		return errAbs <= v.cfg.PercentageTolerance+Epsilon
	default:
		return errPct <= v.cfg.PercentageTolerance+Epsilon
	}
}

// Classify assigns severity to an invalid claim; the first matching rule wins
func Classify(claim model.NumericClaim, errAbs, errPct float64) model.Severity {
	switch {
	case claim.Kind == model.ClaimKindCount && claim.Entity == model.EntityDevice && errAbs > Epsilon:
		return model.SeverityCritical
	case claim.IsUptime(), claim.Kind == model.ClaimKindPercentage && errPct > 5:
		return model.SeverityMajor
	case claim.Kind == model.ClaimKindCount && errPct > 10:
		return model.SeverityMajor
	case errPct > 1:
		return model.SeverityMinor
	default:
		return model.SeverityNone
	}
}

// findGroundTruth walks the candidate strategies by priority and returns the
// first ground truth whose value resolves
func (v *Validator) findGroundTruth(claim model.NumericClaim, results []model.ToolResult) (*model.GroundTruth, float64, bool) {
	for _, s := range v.candidates(claim, results) {
		// Newest record first
		for i := len(results) - 1; i >= 0; i-- {
			rec := results[i]
			if !s.usesTool(rec.ToolName) {
				continue
			}
			data, ok := v.decode(rec)
			if !ok {
				continue
			}
			gt := s.Extract(claim, rec, data)
			if gt == nil {
				continue
			}
			actual, ok := ResolveValue(gt)
			if !ok {
				continue
			}
			gt.ToolName = rec.ToolName
			gt.CallID = rec.CallID
			gt.Strategy = s.Name
			return gt, actual, true
		}
	}
	return nil, 0, false
}

// candidates returns the applicable strategies with a tool present, highest priority first
func (v *Validator) candidates(claim model.NumericClaim, results []model.ToolResult) []Strategy {
	var out []Strategy
	for _, s := range v.strategies {
		if !s.applies(claim) {
			continue
		}
		for _, r := range results {
			if s.usesTool(r.ToolName) {
				out = append(out, s)
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// noData marks content that did not decode
type noData struct{}

// decode parses a tool record's JSON content through the side cache.
// Records are never modified; error records are never parsed.
func (v *Validator) decode(rec model.ToolResult) (any, bool) {
	if rec.IsError {
		return nil, false
	}
	key := ""
	if rec.CallID != "" {
		key = cache.ToolKey(rec.ToolName, rec.CallID, rec.Content)
		if cached, ok := v.cache.Get(key); ok {
			if _, bad := cached.(noData); bad {
				return nil, false
			}
			return cached, true
		}
	}

	var data any
	ok := true
	if err := json.Unmarshal([]byte(strings.TrimSpace(rec.Content)), &data); err != nil || data == nil {
		ok = false
	}

	if key != "" {
		if ok {
			v.cache.Set(key, data, v.ttl)
		} else {
			v.cache.Set(key, noData{}, v.ttl)
		}
	}
	return data, ok
}
