package extract

import (
	"sort"
	"strings"

	"github.com/ppiankov/groundcheck/internal/model"
)

// Parser extracts numeric claims and itemized lists from answer text
type Parser struct {
	rules      []PatternRule
	proximity  int
	linkWindow int
}

// NewParser creates a parser with the default claim catalog
func NewParser(cfg model.ValidationConfig) *Parser {
	proximity := cfg.ListProximity
	if proximity <= 0 {
		proximity = model.DefaultValidationConfig().ListProximity
	}
	linkWindow := cfg.LinkWindow
	if linkWindow <= 0 {
		linkWindow = model.DefaultValidationConfig().LinkWindow
	}
	return &Parser{
		rules:      DefaultRules(),
		proximity:  proximity,
		linkWindow: linkWindow,
	}
}

// Rules returns the catalog in evaluation order
func (p *Parser) Rules() []PatternRule {
	return p.rules
}

// Parse extracts claims and lists. It is pure: the same text always yields
// the same result.
func (p *Parser) Parse(text string) model.ParsedResponse {
	lines := newLineIndex(text)

	raw := p.extractClaims(text, lines)
	claims := ResolveOverlaps(raw)
	lists := extractLists(text, lines, p.proximity)

	parsed := model.ParsedResponse{
		Text:      text,
		Claims:    claims,
		RawClaims: raw,
		Lists:     lists,
		Metadata: model.ParseMetadata{
			TextLength:    len(text),
			LineCount:     lines.count(),
			RawClaimCount: len(raw),
			ClaimCount:    len(claims),
			ListCount:     len(lists),
		},
	}
	parsed.Mismatches = DetectMismatches(parsed, p.linkWindow)
	parsed.Metadata.MismatchCount = len(parsed.Mismatches)
	return parsed
}

// extractClaims applies every rule to the whole text
func (p *Parser) extractClaims(text string, lines *lineIndex) []model.NumericClaim {
	var claims []model.NumericClaim
	for i := range p.rules {
		rule := &p.rules[i]
		for _, loc := range rule.Pattern.FindAllStringSubmatchIndex(text, -1) {
			if claim, ok := toClaim(Match{Text: text, Loc: loc, Rule: rule}, lines); ok {
				claims = append(claims, claim)
			}
		}
	}
	sortClaims(claims)
	return claims
}

// toClaim converts one match, rejecting matches without a usable numeral
func toClaim(m Match, lines *lineIndex) (model.NumericClaim, bool) {
	rule := m.Rule
	start, end := m.Loc[0], m.Loc[1]
	vs, ve := rule.Value(m)
	if vs < 0 || ve <= vs || start >= end {
		return model.NumericClaim{}, false
	}
	if rule.Accept != nil && !rule.Accept(m.Text, vs, ve) {
		return model.NumericClaim{}, false
	}
	value, ok := parseNumeral(m.Text[vs:ve])
	if !ok {
		return model.NumericClaim{}, false
	}

	entity := rule.Entity
	if rule.EntityOf != nil {
		if e, ok := rule.EntityOf(m); ok {
			entity = e
		}
	}
	filter := ""
	if rule.Filter != nil {
		filter = rule.Filter(m)
	}

	line, context := lines.lineAt(start)
	return model.NumericClaim{
		Kind:        rule.Kind,
		Entity:      entity,
		Value:       value,
		Filter:      filter,
		Start:       start,
		End:         end,
		ValueStart:  vs,
		ValueEnd:    ve,
		RawText:     m.Text[start:end],
		Context:     context,
		Line:        line,
		Rule:        rule.Name,
		Specificity: rule.Specificity,
	}, true
}

// sortClaims orders by start, then higher specificity, then longer span
func sortClaims(claims []model.NumericClaim) {
	sort.SliceStable(claims, func(i, j int) bool {
		a, b := claims[i], claims[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Specificity != b.Specificity {
			return a.Specificity > b.Specificity
		}
		return a.End-a.Start > b.End-b.Start
	})
}

// ResolveOverlaps drops every claim whose numeral overlaps the numeral of a
// more specific claim. The result is sorted by start.
func ResolveOverlaps(claims []model.NumericClaim) []model.NumericClaim {
	if len(claims) == 0 {
		return nil
	}

	ranked := make([]model.NumericClaim, len(claims))
	copy(ranked, claims)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Specificity != b.Specificity {
			return a.Specificity > b.Specificity
		}
		if a.End-a.Start != b.End-b.Start {
			return a.End-a.Start > b.End-b.Start
		}
		return a.Start < b.Start
	})

	var kept []model.NumericClaim
	for _, c := range ranked {
		clash := false
		for _, k := range kept {
			if c.ValueStart < k.ValueEnd && k.ValueStart < c.ValueEnd {
				clash = true
				break
			}
		}
		if !clash {
			kept = append(kept, c)
		}
	}

	sortClaims(kept)
	return kept
}

// lineIndex maps byte offsets to 1-based lines
type lineIndex struct {
	text   string
	starts []int
}

func newLineIndex(text string) *lineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{text: text, starts: starts}
}

func (l *lineIndex) count() int {
	if l.text == "" {
		return 0
	}
	return len(l.starts)
}

// lineAt returns the 1-based line number and the line's text for an offset
func (l *lineIndex) lineAt(offset int) (int, string) {
	i := sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return i + 1, l.line(i)
}

// line returns the text of the 0-based line i without its newline
func (l *lineIndex) line(i int) string {
	start := l.starts[i]
	end := len(l.text)
	if i+1 < len(l.starts) {
		end = l.starts[i+1] - 1
	}
	return strings.TrimRight(l.text[start:end], "\r")
}

// bounds returns the [start, end) of the 0-based line i without its newline
func (l *lineIndex) bounds(i int) (int, int) {
	start := l.starts[i]
	end := len(l.text)
	if i+1 < len(l.starts) {
		end = l.starts[i+1] - 1
	}
	if end > start && l.text[end-1] == '\r' {
		end--
	}
	return start, end
}
