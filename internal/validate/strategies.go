package validate

import (
	"fmt"
	"strings"

	"github.com/ppiankov/groundcheck/internal/model"
)

// Strategy locates ground truth for a class of claims in one family of tools
type Strategy struct {
	Name       string
	Priority   int
	Tools      []string
	ClaimKinds []model.ClaimKind
	Entities   []model.EntityKind // Empty means any entity

	// Match is an optional extra predicate on the claim
	Match func(claim model.NumericClaim) bool
	// Extract builds ground truth from one decoded tool record, or returns nil.
	// ToolName, CallID and Strategy are filled in by the validator.
	Extract func(claim model.NumericClaim, record model.ToolResult, data any) *model.GroundTruth
}

// applies reports whether the strategy handles the claim at all
func (s Strategy) applies(claim model.NumericClaim) bool {
	kindOK := false
	for _, k := range s.ClaimKinds {
		if k == claim.Kind {
			kindOK = true
			break
		}
	}
	if !kindOK {
		return false
	}
	if len(s.Entities) > 0 {
		entityOK := false
		for _, e := range s.Entities {
			if e == claim.Entity {
				entityOK = true
				break
			}
		}
		if !entityOK {
			return false
		}
	}
	return s.Match == nil || s.Match(claim)
}

func (s Strategy) usesTool(name string) bool {
	for _, t := range s.Tools {
		if t == name {
			return true
		}
	}
	return false
}

// DefaultStrategies returns the built-in strategy table
func DefaultStrategies() []Strategy {
	return []Strategy{
		{
			Name:       "live_device_listing",
			Priority:   100,
			Tools:      []string{"list_devices", "get_devices", "search_devices"},
			ClaimKinds: []model.ClaimKind{model.ClaimKindCount},
			Entities:   []model.EntityKind{model.EntityDevice},
			Extract:    extractDeviceListing,
		},
		{
			Name:       "alert_listing",
			Priority:   90,
			Tools:      []string{"list_alerts", "get_alerts"},
			ClaimKinds: []model.ClaimKind{model.ClaimKindCount},
			Entities:   []model.EntityKind{model.EntityAlert},
			Extract:    extractAlertListing,
		},
		{
			Name:       "availability_report",
			Priority:   80,
			Tools:      []string{"get_availability_report", "get_uptime_report"},
			ClaimKinds: []model.ClaimKind{model.ClaimKindPercentage},
			Match:      mentionsUptime,
			Extract:    extractAvailability,
		},
		{
			Name:       "stream_rollup",
			Priority:   70,
			Tools:      []string{"get_stream_rollup", "get_stream_stats"},
			ClaimKinds: []model.ClaimKind{model.ClaimKindAverage, model.ClaimKindSum},
			Extract:    extractRollup,
		},
		{
			Name:       "entity_listing",
			Priority:   60,
			Tools:      []string{"list_streams", "list_groups", "list_jobs", "list_firmware"},
			ClaimKinds: []model.ClaimKind{model.ClaimKindCount},
			Entities: []model.EntityKind{
				model.EntityStream, model.EntityGroup, model.EntityJob, model.EntityFirmware,
			},
			Extract: extractEntityListing,
		},
		{
			Name:       "device_summary_report",
			Priority:   50,
			Tools:      []string{"get_device_summary", "get_summary_report"},
			ClaimKinds: []model.ClaimKind{model.ClaimKindCount},
			Entities:   []model.EntityKind{model.EntityDevice},
			Extract:    extractDeviceSummary,
		},
	}
}

// mentionsUptime accepts uptime-qualified claims, and a bare percentage only
// when it is the sole percentage on a line that mentions uptime
func mentionsUptime(claim model.NumericClaim) bool {
	if claim.IsUptime() {
		return true
	}
	ctx := strings.ToLower(claim.Context)
	if strings.Count(ctx, "%") != 1 {
		return false
	}
	return strings.Contains(ctx, "uptime") || strings.Contains(ctx, "availability")
}

// Status words grouped by the connection state they mean
var (
	onlineStates  = map[string]bool{"connected": true, "online": true, "active": true, "up": true, "healthy": true}
	offlineStates = map[string]bool{"disconnected": true, "offline": true, "inactive": true, "down": true, "unhealthy": true}
)

// deviceOnline reports a device's connection state, and whether it has one
func deviceOnline(item map[string]any) (online bool, known bool) {
	if s, ok := fieldString(item, "status", "state", "connection_status", "connectionStatus"); ok {
		switch {
		case onlineStates[s]:
			return true, true
		case offlineStates[s]:
			return false, true
		}
	}
	for _, f := range []string{"online", "connected", "is_online", "isOnline"} {
		if b, ok := item[f].(bool); ok {
			return b, true
		}
	}
	return false, false
}

func extractDeviceListing(claim model.NumericClaim, _ model.ToolResult, data any) *model.GroundTruth {
	devices, key := collection(data, "devices", "cameras", "items", "results")
	if devices == nil {
		return nil
	}
	label := key
	if label == "" {
		label = "devices"
	}

	want, filtered := true, false
	switch {
	case onlineStates[claim.Filter]:
		filtered = true
	case offlineStates[claim.Filter]:
		want, filtered = false, true
	}

	if !filtered || !anyItem(devices, func(m map[string]any) bool { _, known := deviceOnline(m); return known }) {
		return &model.GroundTruth{
			Path:   label,
			Data:   devices,
			Method: fmt.Sprintf("len(%s)", label),
		}
	}

	var out []any
	for _, d := range devices {
		m, ok := d.(map[string]any)
		if !ok {
			continue
		}
		if online, known := deviceOnline(m); known && online == want {
			out = append(out, m)
		}
	}
	if out == nil {
		out = []any{}
	}
	return &model.GroundTruth{
		Path:   fmt.Sprintf("%s[status=%s]", label, claim.Filter),
		Data:   out,
		Method: fmt.Sprintf("len(%s) where status=%s", label, claim.Filter),
	}
}

// alertMatches reports whether an alert satisfies a status or severity qualifier
func alertMatches(item map[string]any, filter string) (match bool, known bool) {
	switch filter {
	case "critical", "warning":
		s, ok := fieldString(item, "severity", "level", "priority")
		return s == filter, ok
	case "resolved", "acknowledged":
		s, ok := fieldString(item, "status", "state")
		return s == filter, ok
	default: // open, active, firing, new, unresolved
		s, ok := fieldString(item, "status", "state")
		if !ok {
			if b, isBool := item["resolved"].(bool); isBool {
				return !b, true
			}
			return false, false
		}
		return s != "resolved" && s != "closed" && s != "acknowledged", true
	}
}

func extractAlertListing(claim model.NumericClaim, _ model.ToolResult, data any) *model.GroundTruth {
	alerts, key := collection(data, "alerts", "items", "results")
	if alerts == nil {
		return nil
	}
	label := key
	if label == "" {
		label = "alerts"
	}
	if claim.Filter == "" || !anyItem(alerts, func(m map[string]any) bool { _, known := alertMatches(m, claim.Filter); return known }) {
		return &model.GroundTruth{Path: label, Data: alerts, Method: fmt.Sprintf("len(%s)", label)}
	}

	out := []any{}
	for _, a := range alerts {
		if m, ok := a.(map[string]any); ok {
			if match, known := alertMatches(m, claim.Filter); known && match {
				out = append(out, m)
			}
		}
	}
	return &model.GroundTruth{
		Path:   fmt.Sprintf("%s[%s]", label, claim.Filter),
		Data:   out,
		Method: fmt.Sprintf("len(%s) where %s", label, claim.Filter),
	}
}

var availabilityPaths = []string{
	"uptime_percent",
	"uptime_percentage",
	"availability_percent",
	"uptime",
	"availability.uptime_percent",
	"availability.uptime_percentage",
	"summary.uptime_percent",
	"report.uptime_percent",
	"data.uptime_percent",
}

func extractAvailability(_ model.NumericClaim, _ model.ToolResult, data any) *model.GroundTruth {
	if _, ok := numericValue(data); ok {
		if _, isArray := data.([]any); !isArray {
			return &model.GroundTruth{Data: data, Method: "reported uptime"}
		}
	}
	if _, ok := data.(map[string]any); !ok {
		return nil
	}
	path, ok := firstPath(data, availabilityPaths...)
	if !ok {
		return nil
	}
	return &model.GroundTruth{Path: path, Data: data, Method: "reported " + path}
}

// seriesValue reads one point of a rollup series
func seriesValue(point any) (float64, bool) {
	switch p := point.(type) {
	case float64:
		return p, true
	case map[string]any:
		for _, f := range []string{"value", "v", "y"} {
			if v, ok := p[f].(float64); ok {
				return v, true
			}
		}
	}
	return 0, false
}

func extractRollup(claim model.NumericClaim, _ model.ToolResult, data any) *model.GroundTruth {
	// A payload keyed by metric narrows to that metric first
	if m, ok := data.(map[string]any); ok && claim.Filter != "" {
		for _, word := range strings.Fields(claim.Filter) {
			if inner, ok := m[word]; ok {
				data = inner
				break
			}
		}
	}

	series, key := collection(data, "series", "values", "data", "points")
	var values []float64
	for _, p := range series {
		if v, ok := seriesValue(p); ok {
			values = append(values, v)
		}
	}

	if len(values) == 0 {
		// No series: fall back to a precomputed figure
		fields := []string{"average", "avg", "mean"}
		if claim.Kind == model.ClaimKindSum {
			fields = []string{"sum", "total"}
		}
		path, ok := firstPath(data, fields...)
		if !ok {
			return nil
		}
		return &model.GroundTruth{Path: path, Data: data, Method: "reported " + path}
	}

	label := key
	if label == "" {
		label = "series"
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	if claim.Kind == model.ClaimKindSum {
		return &model.GroundTruth{
			Path:   label,
			Data:   sum,
			Method: fmt.Sprintf("sum(%s) over %d points", label, len(values)),
		}
	}
	return &model.GroundTruth{
		Path:   label,
		Data:   sum / float64(len(values)),
		Method: fmt.Sprintf("mean(%s) over %d points", label, len(values)),
	}
}

var entityTools = map[string]model.EntityKind{
	"list_streams":  model.EntityStream,
	"list_groups":   model.EntityGroup,
	"list_jobs":     model.EntityJob,
	"list_firmware": model.EntityFirmware,
}

// Qualifiers that mean the same state across streams, jobs and updates
var stateSynonyms = map[string][]string{
	"active":    {"active", "live", "running", "online"},
	"live":      {"active", "live", "running", "online"},
	"running":   {"active", "live", "running"},
	"available": {"available", "pending", "ready"},
	"pending":   {"pending", "queued", "available"},
	"queued":    {"queued", "pending"},
}

func stateMatches(state, filter string) bool {
	if state == filter {
		return true
	}
	for _, s := range stateSynonyms[filter] {
		if s == state {
			return true
		}
	}
	return false
}

func extractEntityListing(claim model.NumericClaim, record model.ToolResult, data any) *model.GroundTruth {
	if entityTools[record.ToolName] != claim.Entity {
		return nil
	}
	plural := string(claim.Entity) + "s"
	items, key := collection(data, plural, string(claim.Entity), "updates", "items", "results")
	if items == nil {
		return nil
	}
	label := key
	if label == "" {
		label = plural
	}

	hasState := func(m map[string]any) bool { _, ok := fieldString(m, "status", "state"); return ok }
	if claim.Filter == "" || !anyItem(items, hasState) {
		return &model.GroundTruth{Path: label, Data: items, Method: fmt.Sprintf("len(%s)", label)}
	}

	out := []any{}
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			if s, ok := fieldString(m, "status", "state"); ok && stateMatches(s, claim.Filter) {
				out = append(out, m)
			}
		}
	}
	return &model.GroundTruth{
		Path:   fmt.Sprintf("%s[status=%s]", label, claim.Filter),
		Data:   out,
		Method: fmt.Sprintf("len(%s) where status=%s", label, claim.Filter),
	}
}

// summaryKeys lists the keys a summary report may use for a device filter
func summaryKeys(filter string) []string {
	switch {
	case filter == "":
		return []string{"total", "all", "count"}
	case onlineStates[filter]:
		return []string{filter, "connected", "online"}
	case offlineStates[filter]:
		return []string{filter, "disconnected", "offline"}
	}
	return []string{filter}
}

func extractDeviceSummary(claim model.NumericClaim, _ model.ToolResult, data any) *model.GroundTruth {
	if _, ok := data.(map[string]any); !ok {
		return nil
	}
	var paths []string
	for _, k := range summaryKeys(claim.Filter) {
		paths = append(paths,
			"summary.devices."+k,
			"devices."+k,
			"summary."+k+"_devices",
			k+"_devices",
			"summary."+k,
			k,
		)
	}
	if claim.Filter == "" {
		paths = append(paths, "device_count", "devices.length", "summary.devices.length")
	}
	path, ok := firstPath(data, paths...)
	if !ok {
		return nil
	}
	return &model.GroundTruth{Path: path, Data: data, Method: "summary " + path}
}

func anyItem(items []any, pred func(map[string]any) bool) bool {
	for _, it := range items {
		if m, ok := it.(map[string]any); ok && pred(m) {
			return true
		}
	}
	return false
}
