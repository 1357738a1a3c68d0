package model

import "strings"

// ToolResult is the output of one tool invocation collected during an answer.
// The engine treats it as read-only.
type ToolResult struct {
	ToolName string `json:"tool_name" yaml:"tool_name"`
	CallID   string `json:"call_id" yaml:"call_id"`
	Content  string `json:"content" yaml:"content"`
	IsError  bool   `json:"is_error,omitempty" yaml:"is_error,omitempty"` // Content is an error message, not JSON
}

// GroundTruth is a value or data set recovered from a tool result to check a claim
type GroundTruth struct {
	ToolName string `json:"tool_name"`
	CallID   string `json:"call_id"`
	Strategy string `json:"strategy"`
	Path     string `json:"path,omitempty"` // Dot path walked over Data when Data is an object
	Data     any    `json:"data"`           // Scalar, array, or object
	Method   string `json:"method"`         // How the value was derived
}

// Severity ranks how serious a detected mismatch is
type Severity int

const (
	SeverityNone     Severity = 0
	SeverityMinor    Severity = 1
	SeverityMajor    Severity = 2
	SeverityCritical Severity = 3
)

func (s Severity) String() string {
	switch s {
	case SeverityMinor:
		return "minor"
	case SeverityMajor:
		return "major"
	case SeverityCritical:
		return "critical"
	default:
		return "none"
	}
}

// MarshalText renders the severity by name in JSON and YAML
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name
func (s *Severity) UnmarshalText(b []byte) error {
	*s = ParseSeverity(string(b))
	return nil
}

// Max returns the more severe of s and o
func (s Severity) Max(o Severity) Severity {
	if o > s {
		return o
	}
	return s
}

// ParseSeverity converts a name to a Severity, defaulting to none
func ParseSeverity(name string) Severity {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "minor", "1":
		return SeverityMinor
	case "major", "2":
		return SeverityMajor
	case "critical", "3":
		return SeverityCritical
	default:
		return SeverityNone
	}
}

// ValidationResult is the outcome of checking one claim.
// A nil ActualValue means the claim could not be verified; such results are
// always valid with severity none.
type ValidationResult struct {
	Claim        NumericClaim `json:"claim"`
	IsValid      bool         `json:"is_valid"`
	ActualValue  *float64     `json:"actual_value"`
	ClaimedValue float64      `json:"claimed_value"`
	Error        *float64     `json:"error,omitempty"`
	ErrorPercent *float64     `json:"error_percent,omitempty"`
	Severity     Severity     `json:"severity"`
	GroundTruth  *GroundTruth `json:"ground_truth,omitempty"`
	Method       string       `json:"method"`
}

// Verified reports whether ground truth was found for the claim
func (v ValidationResult) Verified() bool {
	return v.ActualValue != nil
}
