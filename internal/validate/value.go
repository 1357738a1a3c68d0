package validate

import (
	"strconv"
	"strings"

	"github.com/ppiankov/groundcheck/internal/model"
)

// ResolveValue turns ground truth into a number. Arrays give their length,
// numbers are used as is, and objects are walked along the dot path.
func ResolveValue(gt *model.GroundTruth) (float64, bool) {
	if gt == nil {
		return 0, false
	}
	node := gt.Data
	if _, isObject := node.(map[string]any); isObject {
		if gt.Path == "" {
			return 0, false
		}
		var ok bool
		if node, ok = Walk(node, gt.Path); !ok {
			return 0, false
		}
	}
	return numericValue(node)
}

// Walk follows a dot path through decoded JSON. The segment "length" yields
// the length of an array; integer segments index into arrays.
func Walk(node any, path string) (any, bool) {
	if path == "" {
		return node, true
	}
	for _, seg := range strings.Split(path, ".") {
		switch cur := node.(type) {
		case map[string]any:
			next, ok := cur[seg]
			if !ok {
				return nil, false
			}
			node = next
		case []any:
			if seg == "length" {
				node = float64(len(cur))
				continue
			}
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(cur) {
				return nil, false
			}
			node = cur[i]
		default:
			return nil, false
		}
	}
	return node, true
}

// numericValue converts a resolved JSON node to a number
func numericValue(node any) (float64, bool) {
	switch v := node.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case []any:
		return float64(len(v)), true
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// firstPath returns the first of paths that resolves to a number in data
func firstPath(data any, paths ...string) (string, bool) {
	for _, p := range paths {
		if node, ok := Walk(data, p); ok {
			if _, ok := numericValue(node); ok {
				return p, true
			}
		}
	}
	return "", false
}

// collection finds the array of records in a tool payload: the payload
// itself, or the first array under one of keys (also looked up under "data")
func collection(data any, keys ...string) ([]any, string) {
	switch v := data.(type) {
	case []any:
		return v, ""
	case map[string]any:
		for _, k := range keys {
			if arr, ok := v[k].([]any); ok {
				return arr, k
			}
		}
		if inner, ok := v["data"].(map[string]any); ok {
			if arr, path := collection(inner, keys...); arr != nil {
				return arr, "data." + path
			}
		}
	}
	return nil, ""
}

// fieldString returns the lowercased string value of the first present field
func fieldString(item map[string]any, fields ...string) (string, bool) {
	for _, f := range fields {
		if s, ok := item[f].(string); ok {
			return strings.ToLower(strings.TrimSpace(s)), true
		}
	}
	return "", false
}
