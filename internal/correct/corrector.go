package correct

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/groundcheck/internal/extract"
	"github.com/ppiankov/groundcheck/internal/model"
)

// Placeholder replaces a wrong figure when no actual value is known
const Placeholder = "[count unavailable]"

// Corrector rewrites wrong figures and inconsistent lists in answer text
type Corrector struct {
	cfg model.ValidationConfig
}

// NewCorrector creates a corrector
func NewCorrector(cfg model.ValidationConfig) *Corrector {
	if cfg.LinkWindow <= 0 {
		cfg.LinkWindow = model.DefaultValidationConfig().LinkWindow
	}
	return &Corrector{cfg: cfg}
}

// CorrectResponse builds and applies correction actions. Ground truth
// reaches the corrector through the validations, so tool results are not
// read again here.
func (c *Corrector) CorrectResponse(parsed model.ParsedResponse, validations []model.ValidationResult, _ []model.ToolResult) model.CorrectedResponse {
	text := parsed.Text
	resp := model.CorrectedResponse{
		Text:        text,
		Corrections: []model.CorrectionAction{},
		Validations: validations,
		Metadata: model.CorrectionMetadata{
			OriginalLength:  len(text),
			CorrectedLength: len(text),
		},
	}
	for _, v := range validations {
		if v.Verified() {
			resp.Metadata.ClaimsValidated++
		}
	}

	byClaim := indexValidations(validations)

	var actions []model.CorrectionAction
	listActions, listsValidated := c.listActions(parsed, byClaim)
	resp.Metadata.ListsValidated = listsValidated
	actions = append(actions, listActions...)
	for _, v := range validations {
		if a, ok := c.claimAction(text, v); ok {
			actions = append(actions, a)
		}
	}
	if len(actions) == 0 {
		return resp
	}

	accepted, skipped := guard(actions)
	resp.Metadata.SkippedOverlaps = skipped

	if !c.cfg.AutoCorrect {
		ordered := CommitOrder(accepted)
		resp.Corrections = ordered
		resp.Severity = maxSeverity(ordered)
		resp.Metadata.ReportOnly = true
		return resp
	}

	corrected, applied := Apply(text, accepted)
	resp.Text = corrected
	resp.Corrections = applied
	resp.CorrectionsMade = len(applied) > 0
	resp.Severity = maxSeverity(applied)
	resp.Metadata.CorrectedLength = len(corrected)
	for _, a := range applied {
		if a.List != nil {
			resp.Metadata.ListsCorrected++
		} else if a.Claim != nil {
			resp.Metadata.ClaimsCorrected++
		}
	}
	return resp
}

type claimKey struct {
	start, valueStart int
	rule              string
}

func keyOf(c model.NumericClaim) claimKey {
	return claimKey{start: c.Start, valueStart: c.ValueStart, rule: c.Rule}
}

func indexValidations(validations []model.ValidationResult) map[claimKey]model.ValidationResult {
	m := make(map[claimKey]model.ValidationResult, len(validations))
	for _, v := range validations {
		m[keyOf(v.Claim)] = v
	}
	return m
}

// ClassOf maps a claim to its correction class
func ClassOf(v model.ValidationResult) (model.CorrectionClass, bool) {
	switch v.Claim.Kind {
	case model.ClaimKindCount:
		if v.Claim.Entity == model.EntityDevice {
			return model.ClassDeviceCount, true
		}
		return model.ClassCount, true
	case model.ClaimKindPercentage:
		if v.Claim.IsUptime() || (v.GroundTruth != nil && v.GroundTruth.Strategy == "availability_report") {
			return model.ClassUptime, true
		}
		return model.ClassPercentage, true
	case model.ClaimKindAverage, model.ClaimKindSum:
		return model.ClassAggregation, true
	}
	return 0, false
}

// claimAction builds the numeral replacement for one validation, if any
func (c *Corrector) claimAction(text string, v model.ValidationResult) (model.CorrectionAction, bool) {
	class, ok := ClassOf(v)
	if !ok {
		return model.CorrectionAction{}, false
	}
	claim := v.Claim
	if claim.ValueStart < 0 || claim.ValueEnd > len(text) || claim.ValueStart >= claim.ValueEnd {
		return model.CorrectionAction{}, false
	}
	numeral := text[claim.ValueStart:claim.ValueEnd]

	if v.IsValid {
		return c.normalizeAction(class, numeral, v)
	}

	action := model.CorrectionAction{
		Kind:     model.CorrectionReplace,
		Class:    class,
		Start:    claim.ValueStart,
		End:      claim.ValueEnd,
		Original: numeral,
		Severity: v.Severity,
		Claim:    &v.Claim,
	}
	// The built-in validator never fails a claim without an actual value;
	// this only guards validations supplied by other callers
	if v.ActualValue == nil {
		action.Kind = model.CorrectionRemove
		action.Replacement = Placeholder
		action.Reason = fmt.Sprintf("%s %s has no ground truth", describeClaim(claim), numeral)
		return action, true
	}

	action.Replacement = formatNumeral(class, *v.ActualValue, numeral)
	if action.Replacement == numeral {
		return model.CorrectionAction{}, false
	}
	action.Reason = fmt.Sprintf("%s claimed %s, %s reports %s", describeClaim(claim), numeral, source(v.GroundTruth), action.Replacement)
	return action, true
}

// normalizeAction rounds an over-precise but valid percentage to one decimal
func (c *Corrector) normalizeAction(class model.CorrectionClass, numeral string, v model.ValidationResult) (model.CorrectionAction, bool) {
	if !c.cfg.NormalizePercentages || v.Claim.Kind != model.ClaimKindPercentage || !v.Verified() {
		return model.CorrectionAction{}, false
	}
	if decimals(numeral) <= 1 {
		return model.CorrectionAction{}, false
	}
	repl := formatNumeral(class, *v.ActualValue, numeral)
	if repl == numeral {
		return model.CorrectionAction{}, false
	}
	return model.CorrectionAction{
		Kind:        model.CorrectionReplace,
		Class:       class,
		Start:       v.Claim.ValueStart,
		End:         v.Claim.ValueEnd,
		Original:    numeral,
		Replacement: repl,
		Reason:      fmt.Sprintf("%s %s normalized to %s from %s", describeClaim(v.Claim), numeral, repl, source(v.GroundTruth)),
		Severity:    model.SeverityNone,
		Claim:       &v.Claim,
	}, true
}

// listActions reconciles every list whose linked count claim has ground truth
func (c *Corrector) listActions(parsed model.ParsedResponse, byClaim map[claimKey]model.ValidationResult) ([]model.CorrectionAction, int) {
	var actions []model.CorrectionAction
	validated := 0
	for i := range parsed.Lists {
		list := parsed.Lists[i]
		claim := extract.FindCountClaimForList(list, parsed.Claims, c.cfg.LinkWindow)
		if claim == nil {
			continue
		}
		v, ok := byClaim[keyOf(*claim)]
		if !ok || !v.Verified() {
			continue
		}
		validated++

		actual := int(math.Round(*v.ActualValue))
		if actual < 0 || actual == list.ItemCount {
			continue
		}
		if a, ok := c.reconcileList(parsed.Text, list, v, actual); ok {
			actions = append(actions, a)
		}
	}
	return actions, validated
}

// reconcileList regenerates the items from ground-truth records, or truncates
// an overlong list when no records are available
func (c *Corrector) reconcileList(text string, list model.ExtractedList, v model.ValidationResult, actual int) (model.CorrectionAction, bool) {
	class := model.ClassCount
	if list.Entity == model.EntityDevice {
		class = model.ClassDeviceCount
	}
	severity := v.Severity.Max(model.SeverityMinor)
	label := entityLabel(list.Entity)

	if records, ok := v.GroundTruth.Data.([]any); ok {
		return model.CorrectionAction{
			Kind:        model.CorrectionRegenerate,
			Class:       class,
			Start:       list.ItemsStart,
			End:         list.ItemsEnd,
			Original:    text[list.ItemsStart:list.ItemsEnd],
			Replacement: RenderList(list, records, actual),
			Reason: fmt.Sprintf("%s list has %d items, %s reports %d",
				label, list.ItemCount, source(v.GroundTruth), actual),
			Severity: severity,
			List:     &list,
		}, true
	}

	if list.ItemCount <= actual || len(list.ItemEnds) != list.ItemCount {
		return model.CorrectionAction{}, false
	}
	start := list.ItemsStart
	if actual > 0 {
		start = list.ItemEnds[actual-1]
	}
	return model.CorrectionAction{
		Kind:        model.CorrectionTruncate,
		Class:       class,
		Start:       start,
		End:         list.ItemsEnd,
		Original:    text[start:list.ItemsEnd],
		Replacement: "",
		Reason: fmt.Sprintf("%s list has %d items, %s reports %d; dropped the last %d",
			label, list.ItemCount, source(v.GroundTruth), actual, list.ItemCount-actual),
		Severity: severity,
		List:     &list,
	}, true
}

// formatValue renders an actual value for its correction class
func formatValue(class model.CorrectionClass, v float64) string {
	switch class {
	case model.ClassPercentage, model.ClassUptime:
		return strconv.FormatFloat(v, 'f', 1, 64)
	case model.ClassAggregation:
		return strconv.FormatFloat(v, 'f', 2, 64)
	default:
		return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	}
}

// formatNumeral formats like formatValue and keeps thousands separators
// when the numeral being replaced used them
func formatNumeral(class model.CorrectionClass, v float64, numeral string) string {
	s := formatValue(class, v)
	if !strings.Contains(numeral, ",") {
		return s
	}
	return groupThousands(s)
}

// groupThousands inserts commas into the integer part of a formatted number
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + frac
}

// decimals counts digits after the decimal point of a numeral
func decimals(numeral string) int {
	i := strings.IndexByte(numeral, '.')
	if i < 0 {
		return 0
	}
	return len(numeral) - i - 1
}

func describeClaim(c model.NumericClaim) string {
	parts := []string{}
	if c.Filter != "" && c.Filter != model.FilterUptime {
		parts = append(parts, c.Filter)
	}
	switch c.Kind {
	case model.ClaimKindCount:
		parts = append(parts, entityLabel(c.Entity), "count")
	case model.ClaimKindPercentage:
		if c.IsUptime() {
			parts = append(parts, "uptime")
		}
		parts = append(parts, "percentage")
	default:
		parts = append(parts, string(c.Kind))
	}
	return strings.Join(parts, " ")
}

func source(gt *model.GroundTruth) string {
	if gt == nil {
		return "no tool"
	}
	if gt.Path != "" {
		return gt.ToolName + " (" + gt.Path + ")"
	}
	return gt.ToolName
}

func maxSeverity(actions []model.CorrectionAction) model.Severity {
	s := model.SeverityNone
	for _, a := range actions {
		s = s.Max(a.Severity)
	}
	return s
}
