package correct

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/groundcheck/internal/model"
)

var (
	nameFields     = []string{"name", "display_name", "label", "hostname", "id"}
	typeFields     = []string{"type", "device_type", "model", "kind"}
	lastSeenFields = []string{"last_seen", "lastSeen", "last_seen_at"}
)

// RenderList rebuilds the item region of a list from ground-truth records,
// truncated or padded to exactly n lines, in the list's original style
func RenderList(list model.ExtractedList, records []any, n int) string {
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		marker := list.Marker
		if list.Style == model.ListNumbered {
			marker = strconv.Itoa(i+1) + list.Marker
		}
		if marker == "" {
			marker = "-"
		}

		body := fmt.Sprintf("[unlisted %s]", entityLabel(list.Entity))
		if i < len(records) {
			body = describeRecord(records[i], list.Entity)
		}
		lines = append(lines, list.Indent+marker+" "+body)
	}
	return strings.Join(lines, "\n")
}

// describeRecord renders one record as "name (type) — last seen X"
func describeRecord(record any, entity model.EntityKind) string {
	m, ok := record.(map[string]any)
	if !ok {
		if s := scalarString(record); s != "" {
			return s
		}
		return "Unnamed " + entityLabel(entity)
	}

	name := firstField(m, nameFields)
	if name == "" {
		name = "Unnamed " + entityLabel(entity)
	}
	line := name
	if typ := firstField(m, typeFields); typ != "" {
		line += " (" + typ + ")"
	}
	if seen := firstField(m, lastSeenFields); seen != "" {
		line += " — last seen " + seen
	}
	return line
}

func firstField(m map[string]any, fields []string) string {
	for _, f := range fields {
		if s := scalarString(m[f]); s != "" {
			return s
		}
	}
	return ""
}

// scalarString formats strings and numbers, and returns "" for anything else
func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

func entityLabel(e model.EntityKind) string {
	if e == "" || e == model.EntityOther {
		return "item"
	}
	return string(e)
}
