package model

// ClaimKind categorizes the quantity a claim asserts
type ClaimKind string

const (
	ClaimKindCount      ClaimKind = "count"      // Number of entities
	ClaimKindPercentage ClaimKind = "percentage" // A percentage value (uptime, utilization)
	ClaimKindAverage    ClaimKind = "average"    // Mean over a series
	ClaimKindSum        ClaimKind = "sum"        // Total over a series
	ClaimKindDuration   ClaimKind = "duration"   // Time span
	ClaimKindRatio      ClaimKind = "ratio"      // N out of M
)

// EntityKind is the subject a claim or list talks about
type EntityKind string

const (
	EntityDevice   EntityKind = "device"
	EntityStream   EntityKind = "stream"
	EntityAlert    EntityKind = "alert"
	EntityGroup    EntityKind = "group"
	EntityJob      EntityKind = "job"
	EntityFirmware EntityKind = "firmware"
	EntityOther    EntityKind = "other"
)

// FilterUptime is the qualifier attached to uptime percentage claims
const FilterUptime = "uptime"

// NumericClaim is a single quantitative assertion found in answer text.
// All offsets index into the original, unmodified text.
type NumericClaim struct {
	Kind        ClaimKind  `json:"kind"`
	Entity      EntityKind `json:"entity"`
	Value       float64    `json:"value"`
	Filter      string     `json:"filter,omitempty"` // Qualifier such as "connected" or "uptime"
	Start       int        `json:"start"`            // Span start (inclusive)
	End         int        `json:"end"`              // Span end (exclusive)
	ValueStart  int        `json:"value_start"`      // Numeral start inside the span
	ValueEnd    int        `json:"value_end"`        // Numeral end inside the span
	RawText     string     `json:"raw_text"`
	Context     string     `json:"context,omitempty"` // Containing line
	Line        int        `json:"line"`              // 1-based line number
	Rule        string     `json:"rule"`              // Pattern rule that produced the claim
	Specificity int        `json:"-"`
}

// Numeral returns the matched numeral exactly as it appears in the text
func (c NumericClaim) Numeral() string {
	lo := c.ValueStart - c.Start
	hi := c.ValueEnd - c.Start
	if lo < 0 || hi > len(c.RawText) || lo >= hi {
		return ""
	}
	return c.RawText[lo:hi]
}

// IsUptime reports whether the claim is qualified as an uptime figure
func (c NumericClaim) IsUptime() bool {
	return c.Filter == FilterUptime
}

// ListStyle is the marker style of an itemized list
type ListStyle string

const (
	ListNumbered ListStyle = "numbered"
	ListBulleted ListStyle = "bulleted"
)

// ExtractedList is an itemized list found under a recognized header
type ExtractedList struct {
	Entity     EntityKind `json:"entity"`
	Items      []string   `json:"items"`
	ItemCount  int        `json:"item_count"`
	Start      int        `json:"start"` // Header start
	End        int        `json:"end"`   // Last item end
	ItemsStart int        `json:"items_start"`
	ItemsEnd   int        `json:"items_end"`
	ItemEnds   []int      `json:"-"` // End of each item's own line
	Header     string     `json:"header"`
	Style      ListStyle  `json:"style"`
	Indent     string     `json:"-"` // Leading whitespace of the first item
	Marker     string     `json:"-"` // Bullet rune for bulleted lists, separator for numbered ("." or ")")
}

// ParseMetadata summarizes one parse
type ParseMetadata struct {
	TextLength    int `json:"text_length"`
	LineCount     int `json:"line_count"`
	RawClaimCount int `json:"raw_claim_count"`
	ClaimCount    int `json:"claim_count"`
	ListCount     int `json:"list_count"`
	MismatchCount int `json:"mismatch_count"`
}

// ListMismatch pairs a list with the nearby count claim that disagrees with
// its length
type ListMismatch struct {
	List  ExtractedList `json:"list"`
	Claim NumericClaim  `json:"claim"`
}

// ParsedResponse is the structured extraction of one answer
type ParsedResponse struct {
	Text      string          `json:"-"`
	Claims    []NumericClaim  `json:"claims"`     // After overlap resolution
	RawClaims []NumericClaim  `json:"-"`          // Every rule match, sorted by start
	Lists      []ExtractedList `json:"lists"`
	Mismatches []ListMismatch  `json:"mismatches,omitempty"` // Count/list disagreements within the link window
	Metadata   ParseMetadata   `json:"metadata"`
}
