package model

// CorrectionKind is the edit an action performs on the answer text
type CorrectionKind string

const (
	CorrectionReplace    CorrectionKind = "replace"    // Swap a numeral for the actual value
	CorrectionRemove     CorrectionKind = "remove"     // Replace a numeral with a placeholder
	CorrectionAdd        CorrectionKind = "add"        // Insert text without removing any
	CorrectionTruncate   CorrectionKind = "truncate"   // Drop trailing list items
	CorrectionRegenerate CorrectionKind = "regenerate" // Rebuild a list body from ground truth
)

// CorrectionClass groups actions by what they fix; lower values win overlaps
type CorrectionClass int

const (
	ClassDeviceCount CorrectionClass = iota + 1
	ClassCount
	ClassPercentage
	ClassUptime
	ClassAggregation
)

func (c CorrectionClass) String() string {
	switch c {
	case ClassDeviceCount:
		return "device_count"
	case ClassCount:
		return "count"
	case ClassPercentage:
		return "percentage"
	case ClassUptime:
		return "uptime"
	case ClassAggregation:
		return "aggregation"
	default:
		return "unknown"
	}
}

// MarshalText renders the class by name
func (c CorrectionClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a class name; unknown names decode to zero
func (c *CorrectionClass) UnmarshalText(b []byte) error {
	*c = 0
	for k := ClassDeviceCount; k <= ClassAggregation; k++ {
		if k.String() == string(b) {
			*c = k
			break
		}
	}
	return nil
}

// CorrectionAction is one edit to apply to the answer. Start and End are
// offsets into the original text even though edits land on a copy.
type CorrectionAction struct {
	Kind        CorrectionKind  `json:"kind"`
	Class       CorrectionClass `json:"class"`
	Start       int             `json:"start"`
	End         int             `json:"end"`
	Original    string          `json:"original"`
	Replacement string          `json:"replacement"`
	Reason      string          `json:"reason"`
	Severity    Severity        `json:"severity"`
	Claim       *NumericClaim   `json:"claim,omitempty"`
	List        *ExtractedList  `json:"list,omitempty"`
}

// Overlaps reports whether two half-open spans share a character.
// A zero-width insertion overlaps a range only when strictly inside it.
func (a CorrectionAction) Overlaps(b CorrectionAction) bool {
	return a.Start < b.End && b.Start < a.End
}

// CorrectionMetadata holds counters describing one correction pass
type CorrectionMetadata struct {
	OriginalLength  int  `json:"original_length"`
	CorrectedLength int  `json:"corrected_length"`
	ClaimsValidated int  `json:"claims_validated"`
	ClaimsCorrected int  `json:"claims_corrected"`
	ListsValidated  int  `json:"lists_validated"`
	ListsCorrected  int  `json:"lists_corrected"`
	SkippedOverlaps int  `json:"skipped_overlaps"`
	ReportOnly      bool `json:"report_only"` // Actions were proposed but not applied
}

// CorrectedResponse is the engine's output
type CorrectedResponse struct {
	Text            string             `json:"text"`
	CorrectionsMade bool               `json:"corrections_made"`
	Corrections     []CorrectionAction `json:"corrections"`
	Severity        Severity           `json:"severity"`
	Validations     []ValidationResult `json:"validations"`
	Metadata        CorrectionMetadata `json:"metadata"`
	Blocked         bool               `json:"blocked"` // Critical mismatch under BlockOnCritical
}
