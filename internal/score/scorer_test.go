package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/groundcheck/internal/model"
)

func ptr(v float64) *float64 { return &v }

func deviceValidation(claimed, actual float64, severity model.Severity) model.ValidationResult {
	return model.ValidationResult{
		Claim: model.NumericClaim{
			Kind:    model.ClaimKindCount,
			Entity:  model.EntityDevice,
			Value:   claimed,
			RawText: "devices",
		},
		IsValid:      severity == model.SeverityNone,
		ClaimedValue: claimed,
		ActualValue:  ptr(actual),
		Severity:     severity,
	}
}

func unverified() model.ValidationResult {
	return model.ValidationResult{
		Claim:   model.NumericClaim{Kind: model.ClaimKindSum, Value: 10},
		IsValid: true,
	}
}

func signal(t *testing.T, s model.Score, typ model.SignalType) model.Signal {
	t.Helper()
	for _, sig := range s.Signals {
		if sig.Type == typ {
			return sig
		}
	}
	require.Failf(t, "signal not found", "%s", typ)
	return model.Signal{}
}

func TestScorer_Calculate_Empty(t *testing.T) {
	result := NewScorer().Calculate(nil, nil, nil)

	assert.Equal(t, 65, result.Index)
	assert.Equal(t, "low", result.Confidence)
	assert.Len(t, result.Signals, 4)
	assert.Equal(t, "No numeric claims to verify", signal(t, result, model.SignalVerificationCoverage).Description)
}

func TestScorer_Calculate_AllCorrect(t *testing.T) {
	validations := []model.ValidationResult{
		deviceValidation(12, 12, model.SeverityNone),
		deviceValidation(3, 3, model.SeverityNone),
		deviceValidation(9, 9, model.SeverityNone),
	}

	result := NewScorer().Calculate(validations, nil, model.DefaultValidationConfig().PriorityWeights)

	assert.Equal(t, 100, result.Index)
	assert.Equal(t, "high", result.Confidence)
	for _, sig := range result.Signals {
		assert.Equal(t, model.SignalInfo, sig.Severity, sig.Type)
		assert.NotEqual(t, model.SignalCriticalMismatch, sig.Type)
	}
}

func TestScorer_Calculate_CriticalMismatch(t *testing.T) {
	validations := []model.ValidationResult{
		deviceValidation(12, 12, model.SeverityNone),
		deviceValidation(9, 12, model.SeverityCritical),
	}
	corrections := []model.CorrectionAction{
		{Kind: model.CorrectionReplace, Class: model.ClassDeviceCount, Severity: model.SeverityCritical},
	}

	result := NewScorer().Calculate(validations, corrections, model.DefaultValidationConfig().PriorityWeights)

	// 20 coverage + 20 accuracy + 15 weighted + 10 lists - 15 penalty
	assert.Equal(t, 50, result.Index)
	assert.Equal(t, "low", result.Confidence)

	crit := signal(t, result, model.SignalCriticalMismatch)
	assert.Equal(t, model.SignalCritical, crit.Severity)
	assert.Equal(t, []string{"devices"}, crit.Data["claims"])

	weighted := signal(t, result, model.SignalWeightedError)
	assert.Equal(t, 15, weighted.Data["score"])
	assert.Equal(t, model.SignalWarning, weighted.Severity)
}

func TestScorer_Calculate_UnverifiedClaims(t *testing.T) {
	validations := []model.ValidationResult{unverified(), unverified()}

	result := NewScorer().Calculate(validations, nil, nil)

	assert.Equal(t, 45, result.Index)
	assert.Equal(t, "low", result.Confidence)
	cov := signal(t, result, model.SignalVerificationCoverage)
	assert.Equal(t, model.SignalCritical, cov.Severity)
	assert.Equal(t, 0, cov.Data["verified"])
}

func TestScorer_Calculate_ListConsistency(t *testing.T) {
	list := &model.ExtractedList{Entity: model.EntityDevice, ItemCount: 12}
	corrections := []model.CorrectionAction{
		{Kind: model.CorrectionRegenerate, Class: model.ClassDeviceCount, Severity: model.SeverityMinor, List: list},
		{Kind: model.CorrectionTruncate, Class: model.ClassCount, Severity: model.SeverityMinor, List: list},
	}

	result := NewScorer().Calculate(nil, corrections, nil)

	lists := signal(t, result, model.SignalListConsistency)
	assert.Equal(t, 0, lists.Data["score"])
	assert.Equal(t, 2, lists.Data["mismatched_lists"])
	assert.Equal(t, model.SignalWarning, lists.Severity)
}

func TestScorer_Calculate_WeightsByClass(t *testing.T) {
	aggregation := model.ValidationResult{
		Claim:       model.NumericClaim{Kind: model.ClaimKindAverage, Value: 4},
		ActualValue: ptr(3.5),
		Severity:    model.SeverityMajor,
	}
	validations := []model.ValidationResult{
		deviceValidation(12, 12, model.SeverityNone),
		aggregation,
	}
	weights := map[string]float64{"device_count": 1.0, "aggregation": 0.5}

	result := NewScorer().Calculate(validations, nil, weights)

	// penalty = 0.5 * 2/3, total weight = 1.5, so 30 * (1 - 0.2222) rounds to 23
	weighted := signal(t, result, model.SignalWeightedError)
	assert.Equal(t, 23, weighted.Data["score"])
	perClass := weighted.Data["per_class"].(map[string]float64)
	assert.InDelta(t, 1.0/3.0, perClass["aggregation"], 1e-9)
	assert.NotContains(t, perClass, "device_count")
}
