package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/groundcheck/internal/correct"
	"github.com/ppiankov/groundcheck/internal/model"
)

// defaultWeight applies to a correction class missing from the weights map
const defaultWeight = 0.5

// criticalPenalty is subtracted from the index when any critical mismatch exists
const criticalPenalty = 15

// Scorer calculates the accuracy index and generates signals
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate scores an answer from its validations and the correction actions
// proposed for it. Weights are keyed by correction class name.
func (s *Scorer) Calculate(validations []model.ValidationResult, corrections []model.CorrectionAction, weights map[string]float64) model.Score {
	var signals []model.Signal

	// 1. Verification coverage (0-20 points)
	coverageScore, coverageSignal := s.calculateCoverage(validations)
	signals = append(signals, coverageSignal)

	// 2. Claim accuracy (0-40 points)
	accuracyScore, accuracySignal := s.calculateAccuracy(validations)
	signals = append(signals, accuracySignal)

	// 3. Weighted error (0-30 points)
	weightedScore, weightedSignal := s.calculateWeightedError(validations, weights)
	signals = append(signals, weightedSignal)

	// 4. List consistency (0-10 points)
	listScore, listSignal := s.calculateListConsistency(corrections)
	signals = append(signals, listSignal)

	// 5. Critical mismatch (penalty)
	critical, criticalSignal := s.detectCritical(validations, corrections)
	if critical {
		signals = append(signals, criticalSignal)
	}

	total := coverageScore + accuracyScore + weightedScore + listScore
	if critical {
		total -= criticalPenalty
		if total < 0 {
			total = 0
		}
	}

	verified := 0
	for _, v := range validations {
		if v.Verified() {
			verified++
		}
	}

	return model.Score{
		Index:      total,
		Confidence: s.determineConfidence(total, verified, critical),
		Signals:    signals,
	}
}

// calculateCoverage scores the share of claims that had ground truth (0-20 points)
func (s *Scorer) calculateCoverage(validations []model.ValidationResult) (int, model.Signal) {
	total := len(validations)
	if total == 0 {
		return 20, model.Signal{
			Type:        model.SignalVerificationCoverage,
			Severity:    model.SignalInfo,
			Description: "No numeric claims to verify",
			Data:        map[string]any{"claims": 0, "score": 20},
		}
	}

	verified := 0
	for _, v := range validations {
		if v.Verified() {
			verified++
		}
	}
	ratio := float64(verified) / float64(total)
	score := int(ratio * 20)

	severity := model.SignalInfo
	if ratio < 0.5 {
		severity = model.SignalCritical
	} else if ratio < 1.0 {
		severity = model.SignalWarning
	}

	return score, model.Signal{
		Type:        model.SignalVerificationCoverage,
		Severity:    severity,
		Description: fmt.Sprintf("Verified %d of %d claims against tool data", verified, total),
		Data: map[string]any{
			"claims":   total,
			"verified": verified,
			"ratio":    ratio,
			"score":    score,
			"formula":  "(verified / claims) * 20",
		},
	}
}

// calculateAccuracy scores the share of verified claims that were valid (0-40 points)
func (s *Scorer) calculateAccuracy(validations []model.ValidationResult) (int, model.Signal) {
	verified, valid := 0, 0
	for _, v := range validations {
		if !v.Verified() {
			continue
		}
		verified++
		if v.IsValid {
			valid++
		}
	}

	if verified == 0 {
		return 20, model.Signal{
			Type:        model.SignalClaimAccuracy,
			Severity:    model.SignalWarning,
			Description: "No verified claims (assuming neutral)",
			Data:        map[string]any{"verified": 0, "score": 20},
		}
	}

	ratio := float64(valid) / float64(verified)
	score := int(ratio * 40)

	severity := model.SignalInfo
	if ratio < 0.5 {
		severity = model.SignalCritical
	} else if ratio < 1.0 {
		severity = model.SignalWarning
	}

	return score, model.Signal{
		Type:        model.SignalClaimAccuracy,
		Severity:    severity,
		Description: fmt.Sprintf("Accuracy: %d/%d verified claims correct (%.0f%%)", valid, verified, ratio*100),
		Data: map[string]any{
			"valid":    valid,
			"verified": verified,
			"ratio":    ratio,
			"score":    score,
			"formula":  "(valid / verified) * 40",
		},
	}
}

// calculateWeightedError scores verified claims by class weight and severity (0-30 points)
func (s *Scorer) calculateWeightedError(validations []model.ValidationResult, weights map[string]float64) (int, model.Signal) {
	var penalty, totalWeight float64
	perClass := map[string]float64{}

	for _, v := range validations {
		if !v.Verified() {
			continue
		}
		class, ok := correct.ClassOf(v)
		if !ok {
			continue
		}
		w, ok := weights[class.String()]
		if !ok {
			w = defaultWeight
		}
		totalWeight += w
		p := w * float64(v.Severity) / float64(model.SeverityCritical)
		penalty += p
		if p > 0 {
			perClass[class.String()] += p
		}
	}

	if totalWeight == 0 {
		return 15, model.Signal{
			Type:        model.SignalWeightedError,
			Severity:    model.SignalInfo,
			Description: "No weighted claims (assuming moderate)",
			Data:        map[string]any{"weight": 0, "score": 15},
		}
	}

	errRatio := penalty / totalWeight
	score := int(math.Round(30 * (1 - errRatio)))

	severity := model.SignalInfo
	if errRatio > 0.5 {
		severity = model.SignalCritical
	} else if errRatio > 0 {
		severity = model.SignalWarning
	}

	return score, model.Signal{
		Type:        model.SignalWeightedError,
		Severity:    severity,
		Description: fmt.Sprintf("Weighted error: %.2f", errRatio),
		Data: map[string]any{
			"penalty":   penalty,
			"weight":    totalWeight,
			"per_class": perClass,
			"score":     score,
			"formula":   "30 * (1 - sum(weight * severity / 3) / sum(weight))",
		},
	}
}

// calculateListConsistency deducts for every list that disagreed with ground truth (0-10 points)
func (s *Scorer) calculateListConsistency(corrections []model.CorrectionAction) (int, model.Signal) {
	mismatched := 0
	for _, c := range corrections {
		if c.List != nil {
			mismatched++
		}
	}

	score := 10 - 5*mismatched
	if score < 0 {
		score = 0
	}

	severity := model.SignalInfo
	description := "All checked lists match their counts"
	if mismatched > 0 {
		severity = model.SignalWarning
		description = fmt.Sprintf("%d list(s) disagreed with ground truth", mismatched)
	}

	return score, model.Signal{
		Type:        model.SignalListConsistency,
		Severity:    severity,
		Description: description,
		Data: map[string]any{
			"mismatched_lists": mismatched,
			"score":            score,
			"formula":          "max(10 - 5 * mismatched_lists, 0)",
		},
	}
}

// detectCritical reports whether any claim or correction is critical
func (s *Scorer) detectCritical(validations []model.ValidationResult, corrections []model.CorrectionAction) (bool, model.Signal) {
	var claims []string
	for _, v := range validations {
		if v.Severity == model.SeverityCritical {
			claims = append(claims, v.Claim.RawText)
		}
	}
	lists := 0
	for _, c := range corrections {
		if c.List != nil && c.Severity == model.SeverityCritical {
			lists++
		}
	}

	if len(claims) == 0 && lists == 0 {
		return false, model.Signal{}
	}

	return true, model.Signal{
		Type:        model.SignalCriticalMismatch,
		Severity:    model.SignalCritical,
		Description: fmt.Sprintf("%d critical claim(s) and %d critical list(s)", len(claims), lists),
		Data: map[string]any{
			"claims":  claims,
			"lists":   lists,
			"penalty": criticalPenalty,
		},
	}
}

// determineConfidence determines the confidence level based on the score
func (s *Scorer) determineConfidence(score int, verified int, critical bool) string {
	if critical {
		return "low"
	}

	if verified < 3 {
		if verified == 0 {
			return "low"
		}
		return "medium"
	}

	if score >= 80 {
		return "high"
	} else if score >= 60 {
		return "medium"
	}
	return "low"
}
