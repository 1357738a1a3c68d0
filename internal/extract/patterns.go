package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/groundcheck/internal/model"
)

// numeral matches integers with optional thousands separators and decimals
const numeral = `\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`

const (
	deviceStatus = `connected|disconnected|online|offline|active|inactive|healthy|unhealthy|registered|total`
	alertStatus  = `open|active|critical|warning|resolved|acknowledged|unresolved|new|firing`
	entityQual   = `active|live|running|scheduled|failed|completed|pending|available|queued|recorded`
	labelColon   = `[ \t]*(?:\*\*)?:(?:\*\*)?[ \t]*` // ":" with optional markdown bold, same line only
)

// PatternRule is one entry of the claim catalog
type PatternRule struct {
	Name        string
	Pattern     *regexp.Regexp
	Kind        model.ClaimKind
	Entity      model.EntityKind
	Specificity int // Higher wins overlapping value spans

	Value    func(m Match) (int, int)               // Numeral span, -1 when absent
	Filter   func(m Match) string                   // Optional qualifier
	EntityOf func(m Match) (model.EntityKind, bool) // Optional entity resolver

	// Accept is an optional guard on the text around the numeral
	Accept func(text string, valueStart, valueEnd int) bool
}

// Match is a single regex match of a rule over the whole text
type Match struct {
	Text string
	Loc  []int
	Rule *PatternRule
}

// Group returns the first participating named group among names
func (m Match) Group(names ...string) (string, int, int) {
	for _, name := range names {
		i := m.Rule.Pattern.SubexpIndex(name)
		if i < 0 || 2*i+1 >= len(m.Loc) {
			continue
		}
		lo, hi := m.Loc[2*i], m.Loc[2*i+1]
		if lo >= 0 && hi >= 0 {
			return m.Text[lo:hi], lo, hi
		}
	}
	return "", -1, -1
}

func groupSpan(names ...string) func(Match) (int, int) {
	return func(m Match) (int, int) {
		_, lo, hi := m.Group(names...)
		return lo, hi
	}
}

func groupFilter(names ...string) func(Match) string {
	return func(m Match) string {
		s, _, _ := m.Group(names...)
		return normalizeFilter(s)
	}
}

// normalizeFilter lowercases a qualifier and drops the ones meaning "no filter"
func normalizeFilter(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	switch s {
	case "total", "registered", "all":
		return ""
	}
	return s
}

// notPercent rejects numerals that are immediately followed by a percent sign
func notPercent(text string, _, valueEnd int) bool {
	return valueEnd >= len(text) || text[valueEnd] != '%'
}

// notDateLike rejects N/M pairs that are part of a longer slash sequence
func notDateLike(text string, valueStart, valueEnd int) bool {
	if valueStart > 0 && text[valueStart-1] == '/' {
		return false
	}
	rest := text[valueEnd:]
	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, "/") {
		return notPercent(text, valueStart, valueEnd)
	}
	// Walk past "/M" and reject a second slash
	rest = strings.TrimLeft(rest[1:], " \t")
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	return i >= len(rest) || (rest[i] != '/' && rest[i] != '%')
}

// DefaultRules returns the claim catalog ordered from most to least specific
func DefaultRules() []PatternRule {
	return []PatternRule{
		{
			Name: "device_count_labeled",
			Pattern: regexp.MustCompile(`(?i)\b(?:(?P<filter>` + deviceStatus + `)[ \t]+)?(?:devices|cameras)` +
				labelColon + `(?P<value>` + numeral + `)\b`),
			Kind:        model.ClaimKindCount,
			Entity:      model.EntityDevice,
			Specificity: 90,
			Value:       groupSpan("value"),
			Filter:      groupFilter("filter"),
			Accept:      notPercent,
		},
		{
			Name: "device_count_prose",
			Pattern: regexp.MustCompile(`(?i)\b(?P<value>` + numeral + `)[ \t]+(?:(?P<filter>` + deviceStatus + `)[ \t]+)?` +
				`(?:devices?|cameras?)\b(?:[ \t]+(?:are[ \t]+|were[ \t]+|is[ \t]+)?(?P<post>connected|disconnected|online|offline))?`),
			Kind:        model.ClaimKindCount,
			Entity:      model.EntityDevice,
			Specificity: 80,
			Value:       groupSpan("value"),
			Filter:      groupFilter("filter", "post"),
			Accept:      notPercent,
		},
		{
			Name: "alert_count",
			Pattern: regexp.MustCompile(`(?i)\b(?:(?P<value>` + numeral + `)[ \t]+(?:(?P<filter>` + alertStatus + `)[ \t]+)?alerts?\b` +
				`|(?:(?P<filter2>` + alertStatus + `)[ \t]+)?alerts` + labelColon + `(?P<value2>` + numeral + `)\b)`),
			Kind:        model.ClaimKindCount,
			Entity:      model.EntityAlert,
			Specificity: 80,
			Value:       groupSpan("value", "value2"),
			Filter:      groupFilter("filter", "filter2"),
			Accept:      notPercent,
		},
		{
			Name: "entity_count",
			Pattern: regexp.MustCompile(`(?i)\b(?P<value>` + numeral + `)[ \t]+(?:(?P<filter>` + entityQual + `)[ \t]+)?` +
				`(?P<entity>streams?|groups?|jobs?|firmware[ \t]+updates?)\b`),
			Kind:        model.ClaimKindCount,
			Entity:      model.EntityOther,
			Specificity: 70,
			Value:       groupSpan("value"),
			Filter:      groupFilter("filter"),
			EntityOf: func(m Match) (model.EntityKind, bool) {
				s, _, _ := m.Group("entity")
				return InferEntity(s), true
			},
			Accept: notPercent,
		},
		{
			Name: "uptime_percentage",
			Pattern: regexp.MustCompile(`(?i)\b(?:(?:uptime|availability)(?:[ \t]+(?:of|was|is|at|rate|has[ \t]+been))*` +
				`[ \t]*(?:\*\*)?:?(?:\*\*)?[ \t]*(?P<value>` + numeral + `)%` +
				`|(?P<value2>` + numeral + `)%[ \t]+(?:uptime|availability)\b)`),
			Kind:        model.ClaimKindPercentage,
			Entity:      model.EntityOther,
			Specificity: 90,
			Value:       groupSpan("value", "value2"),
			Filter: func(Match) string {
				return model.FilterUptime
			},
		},
		{
			Name:        "percentage",
			Pattern:     regexp.MustCompile(`\b(?P<value>` + numeral + `)%`),
			Kind:        model.ClaimKindPercentage,
			Entity:      model.EntityOther,
			Specificity: 10,
			Value:       groupSpan("value"),
		},
		{
			Name: "average",
			Pattern: regexp.MustCompile(`(?i)\b(?:average|avg\.?|mean)(?P<metric>(?:[ \t]+[a-z]+){0,3}?)` +
				`[ \t]*(?:\*\*)?(?:of|is|was|:|=)?(?:\*\*)?[ \t]*(?P<value>` + numeral + `)\b`),
			Kind:        model.ClaimKindAverage,
			Entity:      model.EntityStream,
			Specificity: 60,
			Value:       groupSpan("value"),
			Filter:      metricFilter,
			Accept:      notPercent,
		},
		{
			Name: "sum",
			Pattern: regexp.MustCompile(`(?i)\b(?:total|sum)(?P<metric>(?:[ \t]+[a-z]+){0,3}?)` +
				`[ \t]*(?:\*\*)?(?:of|is|was|:|=)?(?:\*\*)?[ \t]*(?P<value>` + numeral + `)\b`),
			Kind:        model.ClaimKindSum,
			Entity:      model.EntityStream,
			Specificity: 60,
			Value:       groupSpan("value"),
			Filter:      metricFilter,
			Accept:      notPercent,
		},
		{
			Name:        "duration",
			Pattern:     regexp.MustCompile(`(?i)\b(?P<value>` + numeral + `)[ \t]*(?P<unit>hours?|hrs?|minutes?|mins?|seconds?|secs?|days?|weeks?)\b`),
			Kind:        model.ClaimKindDuration,
			Entity:      model.EntityOther,
			Specificity: 40,
			Value:       groupSpan("value"),
			Filter: func(m Match) string {
				s, _, _ := m.Group("unit")
				return durationUnit(s)
			},
		},
		{
			Name: "ratio",
			Pattern: regexp.MustCompile(`(?i)\b(?:(?P<value>` + numeral + `)[ \t]+out[ \t]+of[ \t]+(?P<total>` + numeral + `)\b` +
				`|(?P<value2>\d+)[ \t]*/[ \t]*(?P<total2>\d+)\b)`),
			Kind:        model.ClaimKindRatio,
			Entity:      model.EntityOther,
			Specificity: 50,
			Value:       groupSpan("value", "value2"),
			Filter: func(m Match) string {
				s, _, _ := m.Group("total", "total2")
				return strings.ReplaceAll(s, ",", "")
			},
			EntityOf: func(m Match) (model.EntityKind, bool) {
				// "9 out of 12 devices": the noun follows the match
				rest := m.Text[m.Loc[1]:]
				if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
					rest = rest[:nl]
				}
				fields := strings.Fields(rest)
				if len(fields) == 0 {
					return model.EntityOther, true
				}
				return InferEntity(fields[0]), true
			},
			Accept: notDateLike,
		},
	}
}

// metricFilter trims connective words from the captured metric name
func metricFilter(m Match) string {
	s, _, _ := m.Group("metric")
	words := strings.Fields(strings.ToLower(s))
	for len(words) > 0 {
		switch words[len(words)-1] {
		case "of", "is", "was", "per", "across":
			words = words[:len(words)-1]
			continue
		}
		break
	}
	return strings.Join(words, " ")
}

func durationUnit(s string) string {
	s = strings.ToLower(s)
	switch {
	case strings.HasPrefix(s, "h"):
		return "hours"
	case strings.HasPrefix(s, "m"):
		return "minutes"
	case strings.HasPrefix(s, "s"):
		return "seconds"
	case strings.HasPrefix(s, "d"):
		return "days"
	case strings.HasPrefix(s, "w"):
		return "weeks"
	}
	return s
}

// parseNumeral converts a matched numeral, dropping thousands separators
func parseNumeral(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// entityKeywords maps keyword prefixes to entities, checked in order
var entityKeywords = []struct {
	prefix string
	entity model.EntityKind
}{
	{"device", model.EntityDevice},
	{"camera", model.EntityDevice},
	{"alert", model.EntityAlert},
	{"stream", model.EntityStream},
	{"group", model.EntityGroup},
	{"job", model.EntityJob},
	{"firmware", model.EntityFirmware},
}

// InferEntity maps a keyword or phrase to the entity it talks about
func InferEntity(s string) model.EntityKind {
	lower := strings.ToLower(s)
	best, bestAt := model.EntityOther, -1
	for _, kw := range entityKeywords {
		if i := wordIndex(lower, kw.prefix); i >= 0 && (bestAt < 0 || i < bestAt) {
			best, bestAt = kw.entity, i
		}
	}
	return best
}

// wordIndex finds prefix at a word start
func wordIndex(s, prefix string) int {
	from := 0
	for {
		i := strings.Index(s[from:], prefix)
		if i < 0 {
			return -1
		}
		i += from
		if i == 0 || !isWordByte(s[i-1]) {
			return i
		}
		from = i + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
