package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/groundcheck/internal/model"
)

var (
	// A header is a short line ending in ":", optionally decorated with # or **
	headerPattern = regexp.MustCompile(`^[ \t]*(?:#{1,6}[ \t]+)?(?:\*\*)?(?P<body>[^:]*?)(?:\*\*)?[ \t]*:(?:\*\*)?[ \t]*$`)

	introPattern = regexp.MustCompile(`(?i)\b(?:here\s+(?:are|is)|here's|the\s+following|list\s+of|below\s+are|these\s+are|includes?)\b`)

	numberedItem = regexp.MustCompile(`^([ \t]*)(\d{1,3})([.)])[ \t]+(\S.*)$`)
	bulletedItem = regexp.MustCompile(`^([ \t]*)([-*•])[ \t]+(\S.*)$`)
)

const maxHeaderLength = 160

// isHeader reports whether a line introduces a list and the entity it names
func isHeader(line string) (model.EntityKind, bool) {
	if len(line) > maxHeaderLength || isItem(line) {
		return "", false
	}
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	body := strings.TrimSpace(m[headerPattern.SubexpIndex("body")])
	if body == "" {
		return "", false
	}
	entity := InferEntity(body)
	if entity == model.EntityOther && !introPattern.MatchString(body) {
		return "", false
	}
	return entity, true
}

func isItem(line string) bool {
	return numberedItem.MatchString(line) || bulletedItem.MatchString(line)
}

type listItem struct {
	text   string
	start  int
	end    int
	indent string
	marker string
}

// extractLists finds every header followed by at least one item
func extractLists(text string, lines *lineIndex, proximity int) []model.ExtractedList {
	var lists []model.ExtractedList
	n := len(lines.starts)

	for h := 0; h < n; h++ {
		entity, ok := isHeader(lines.line(h))
		if !ok {
			continue
		}

		_, headerEnd := lines.bounds(h)
		numbered, lastNum := scanItems(lines, h, headerEnd, proximity, numberedItem, 3)
		bulleted, lastBul := scanItems(lines, h, headerEnd, proximity, bulletedItem, 2)

		items, last, style := numbered, lastNum, model.ListNumbered
		if len(bulleted) > len(numbered) {
			items, last, style = bulleted, lastBul, model.ListBulleted
		}
		if len(items) == 0 {
			continue
		}

		headerStart, _ := lines.bounds(h)
		list := model.ExtractedList{
			Entity:     entity,
			ItemCount:  len(items),
			Start:      headerStart,
			End:        items[len(items)-1].end,
			ItemsStart: items[0].start,
			ItemsEnd:   items[len(items)-1].end,
			Header:     strings.TrimSpace(lines.line(h)),
			Style:      style,
			Indent:     items[0].indent,
			Marker:     items[0].marker,
		}
		for _, it := range items {
			list.Items = append(list.Items, it.text)
			list.ItemEnds = append(list.ItemEnds, it.end)
		}
		lists = append(lists, list)
		h = last
	}
	return lists
}

// scanItems collects consecutive items of one style after header line h.
// markerGroup is the submatch holding the marker for that style.
func scanItems(lines *lineIndex, h, headerEnd, proximity int, pattern *regexp.Regexp, markerGroup int) ([]listItem, int) {
	var items []listItem
	prevEnd := headerEnd
	last := h

	for i := h + 1; i < len(lines.starts); i++ {
		line := lines.line(i)
		if strings.TrimSpace(line) == "" {
			continue
		}
		start, end := lines.bounds(i)

		if m := pattern.FindStringSubmatch(line); m != nil {
			if len(items) > 0 && len(m[1]) > len(items[0].indent) {
				continue // nested item
			}
			if start-prevEnd > proximity {
				break
			}
			items = append(items, listItem{
				text:   strings.TrimSpace(m[len(m)-1]),
				start:  start,
				end:    end,
				indent: m[1],
				marker: m[markerGroup],
			})
			prevEnd = end
			last = i
			continue
		}

		if _, ok := isHeader(line); ok {
			break
		}
		// Indented lines continue the previous item
		if len(items) > 0 && (line[0] == ' ' || line[0] == '\t') {
			continue
		}
		break
	}
	return items, last
}
