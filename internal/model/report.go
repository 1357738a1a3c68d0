package model

import "time"

// Report is the complete result of checking one answer
type Report struct {
	CheckID   string    `json:"check_id"`
	CheckedAt time.Time `json:"checked_at"`
	Source    string    `json:"source,omitempty"` // Transcript path or request origin

	OriginalText string         `json:"original_text"`
	Parsed       ParsedResponse `json:"parsed"`
	ToolResults  int            `json:"tool_results"` // Number of tool results supplied

	Response CorrectedResponse `json:"response"`
	Score    Score             `json:"score"`
}

// Score is the transparent accuracy breakdown for an answer
type Score struct {
	Index      int      `json:"index"`      // Overall accuracy index (0-100)
	Confidence string   `json:"confidence"` // "low", "medium", "high"
	Signals    []Signal `json:"signals"`
}

// Signal is a diagnostic signal with the data used to compute it
type Signal struct {
	Type        SignalType     `json:"type"`
	Severity    SignalSeverity `json:"severity"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
}

// SignalType classifies a diagnostic signal
type SignalType string

const (
	SignalVerificationCoverage SignalType = "verification_coverage" // Verified claims over all claims
	SignalClaimAccuracy        SignalType = "claim_accuracy"        // Valid claims over verified claims
	SignalWeightedError        SignalType = "weighted_error"        // Corrections weighted by class priority
	SignalListConsistency      SignalType = "list_consistency"      // Lists whose item count matched
	SignalCriticalMismatch     SignalType = "critical_mismatch"     // At least one critical correction
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SignalInfo     SignalSeverity = "info"
	SignalWarning  SignalSeverity = "warning"
	SignalCritical SignalSeverity = "critical"
)
