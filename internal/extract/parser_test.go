package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/groundcheck/internal/model"
)

func newTestParser() *Parser {
	return NewParser(model.DefaultValidationConfig())
}

func claimsByRule(claims []model.NumericClaim, rule string) []model.NumericClaim {
	var out []model.NumericClaim
	for _, c := range claims {
		if c.Rule == rule {
			out = append(out, c)
		}
	}
	return out
}

func TestParser_LabeledDeviceCount(t *testing.T) {
	text := "Status report\nConnected devices: 9"
	parsed := newTestParser().Parse(text)

	require.Len(t, parsed.Claims, 1)
	c := parsed.Claims[0]
	assert.Equal(t, model.ClaimKindCount, c.Kind)
	assert.Equal(t, model.EntityDevice, c.Entity)
	assert.Equal(t, 9.0, c.Value)
	assert.Equal(t, "connected", c.Filter)
	assert.Equal(t, "device_count_labeled", c.Rule)
	assert.Equal(t, "9", c.Numeral())
	assert.Equal(t, "9", text[c.ValueStart:c.ValueEnd])
	assert.Equal(t, 2, c.Line)
	assert.Equal(t, "Connected devices: 9", c.Context)
}

func TestParser_MarkdownLabel(t *testing.T) {
	parsed := newTestParser().Parse("**Online devices:** 14")

	require.Len(t, parsed.Claims, 1)
	assert.Equal(t, 14.0, parsed.Claims[0].Value)
	assert.Equal(t, "online", parsed.Claims[0].Filter)
}

func TestParser_ListHeaderIsNotACount(t *testing.T) {
	text := "Devices:\n1. Lobby camera\n2. Parking camera"
	parsed := newTestParser().Parse(text)

	assert.Empty(t, claimsByRule(parsed.RawClaims, "device_count_labeled"))
	require.Len(t, parsed.Lists, 1)
	assert.Equal(t, 2, parsed.Lists[0].ItemCount)
}

func TestParser_ProseDeviceCount(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		value  float64
		filter string
	}{
		{"qualifier before noun", "You have 12 connected devices.", 12, "connected"},
		{"qualifier after noun", "Right now 7 cameras are offline.", 7, "offline"},
		{"total is no filter", "There are 30 total devices.", 30, ""},
		{"thousands separator", "We manage 1,204 devices", 1204, ""},
		{"singular", "Only 1 device responded", 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := newTestParser().Parse(tt.text)
			got := claimsByRule(parsed.Claims, "device_count_prose")
			require.Len(t, got, 1)
			assert.Equal(t, tt.value, got[0].Value)
			assert.Equal(t, tt.filter, got[0].Filter)
			assert.Equal(t, model.EntityDevice, got[0].Entity)
		})
	}
}

func TestParser_AlertCount(t *testing.T) {
	parsed := newTestParser().Parse("There are 3 open alerts.\nCritical alerts: 1")

	got := claimsByRule(parsed.Claims, "alert_count")
	require.Len(t, got, 2)
	assert.Equal(t, 3.0, got[0].Value)
	assert.Equal(t, "open", got[0].Filter)
	assert.Equal(t, 1.0, got[1].Value)
	assert.Equal(t, "critical", got[1].Filter)
	for _, c := range got {
		assert.Equal(t, model.EntityAlert, c.Entity)
	}
}

func TestParser_EntityCount(t *testing.T) {
	tests := []struct {
		text   string
		entity model.EntityKind
		filter string
	}{
		{"12 active streams", model.EntityStream, "active"},
		{"4 groups", model.EntityGroup, ""},
		{"2 failed jobs", model.EntityJob, "failed"},
		{"5 pending firmware updates", model.EntityFirmware, "pending"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			parsed := newTestParser().Parse(tt.text)
			require.Len(t, parsed.Claims, 1)
			assert.Equal(t, tt.entity, parsed.Claims[0].Entity)
			assert.Equal(t, tt.filter, parsed.Claims[0].Filter)
			assert.Equal(t, model.ClaimKindCount, parsed.Claims[0].Kind)
		})
	}
}

func TestParser_UptimeWinsOverGenericPercentage(t *testing.T) {
	text := "Uptime: 98.73%"
	parsed := newTestParser().Parse(text)

	assert.Len(t, parsed.RawClaims, 2)
	require.Len(t, parsed.Claims, 1)
	c := parsed.Claims[0]
	assert.Equal(t, "uptime_percentage", c.Rule)
	assert.True(t, c.IsUptime())
	assert.Equal(t, 98.73, c.Value)
	assert.Equal(t, "98.73", c.Numeral())
	assert.Equal(t, byte('%'), text[c.ValueEnd])
}

func TestParser_UptimeSuffixForm(t *testing.T) {
	parsed := newTestParser().Parse("The fleet had 99.2% uptime last week.")

	require.Len(t, parsed.Claims, 1)
	assert.Equal(t, "uptime_percentage", parsed.Claims[0].Rule)
	assert.Equal(t, 99.2, parsed.Claims[0].Value)
}

func TestParser_GenericPercentage(t *testing.T) {
	parsed := newTestParser().Parse("CPU load is at 45% on the recorder.")

	require.Len(t, parsed.Claims, 1)
	assert.Equal(t, model.ClaimKindPercentage, parsed.Claims[0].Kind)
	assert.Empty(t, parsed.Claims[0].Filter)
}

func TestParser_CountFollowedByPercentIsAPercentage(t *testing.T) {
	parsed := newTestParser().Parse("Connected devices: 50%")

	require.Len(t, parsed.Claims, 1)
	assert.Equal(t, "percentage", parsed.Claims[0].Rule)
}

func TestParser_Aggregations(t *testing.T) {
	parsed := newTestParser().Parse("Average bitrate: 4.25 Mbps\nTotal viewers: 1,250")

	avg := claimsByRule(parsed.Claims, "average")
	require.Len(t, avg, 1)
	assert.Equal(t, 4.25, avg[0].Value)
	assert.Equal(t, "bitrate", avg[0].Filter)

	sum := claimsByRule(parsed.Claims, "sum")
	require.Len(t, sum, 1)
	assert.Equal(t, 1250.0, sum[0].Value)
	assert.Equal(t, "viewers", sum[0].Filter)
}

func TestParser_AverageOfForm(t *testing.T) {
	parsed := newTestParser().Parse("The average of 3.5 was reported.")

	avg := claimsByRule(parsed.Claims, "average")
	require.Len(t, avg, 1)
	assert.Equal(t, 3.5, avg[0].Value)
	assert.Empty(t, avg[0].Filter)
}

func TestParser_Duration(t *testing.T) {
	parsed := newTestParser().Parse("The gateway was down for 3 hours.")

	require.Len(t, parsed.Claims, 1)
	assert.Equal(t, model.ClaimKindDuration, parsed.Claims[0].Kind)
	assert.Equal(t, "hours", parsed.Claims[0].Filter)
}

func TestParser_Ratio(t *testing.T) {
	parsed := newTestParser().Parse("9 out of 12 devices are online")

	ratio := claimsByRule(parsed.Claims, "ratio")
	require.Len(t, ratio, 1)
	assert.Equal(t, 9.0, ratio[0].Value)
	assert.Equal(t, "12", ratio[0].Filter)
	assert.Equal(t, model.EntityDevice, ratio[0].Entity)

	count := claimsByRule(parsed.Claims, "device_count_prose")
	require.Len(t, count, 1)
	assert.Equal(t, 12.0, count[0].Value)
	assert.Equal(t, "online", count[0].Filter)
}

func TestParser_DatesAreNotRatios(t *testing.T) {
	parsed := newTestParser().Parse("Last sync ran on 10/15/2026.")
	assert.Empty(t, claimsByRule(parsed.RawClaims, "ratio"))
}

func TestParser_SpanCorrectness(t *testing.T) {
	text := strings.Join([]string{
		"## Fleet status",
		"Connected devices: 9 of the fleet; 3 open alerts.",
		"Uptime was 98.73% and the average bitrate is 4.1 over 24 hours.",
		"Total viewers: 1,250 across 6 live streams (2/3 regions).",
	}, "\n")
	parsed := newTestParser().Parse(text)

	require.NotEmpty(t, parsed.RawClaims)
	for _, c := range parsed.RawClaims {
		assert.Less(t, c.Start, c.End, c.Rule)
		assert.Equal(t, c.RawText, text[c.Start:c.End], c.Rule)
		assert.LessOrEqual(t, c.Start, c.ValueStart, c.Rule)
		assert.Less(t, c.ValueStart, c.ValueEnd, c.Rule)
		assert.LessOrEqual(t, c.ValueEnd, c.End, c.Rule)
	}
	for i := 1; i < len(parsed.Claims); i++ {
		assert.LessOrEqual(t, parsed.Claims[i-1].Start, parsed.Claims[i].Start)
	}
}

func TestParser_Idempotent(t *testing.T) {
	text := "Here are the connected devices:\n1. Lobby\n2. Gate\nConnected devices: 2, uptime 99.5%"
	p := newTestParser()

	first := p.Parse(text)
	second := p.Parse(text)
	assert.Equal(t, first, second)
}

func TestParser_Metadata(t *testing.T) {
	text := "Uptime: 98.73%\nDevices:\n- A\n- B"
	parsed := newTestParser().Parse(text)

	assert.Equal(t, len(text), parsed.Metadata.TextLength)
	assert.Equal(t, 4, parsed.Metadata.LineCount)
	assert.Equal(t, 2, parsed.Metadata.RawClaimCount)
	assert.Equal(t, 1, parsed.Metadata.ClaimCount)
	assert.Equal(t, 1, parsed.Metadata.ListCount)
}

func TestParser_EmptyText(t *testing.T) {
	parsed := newTestParser().Parse("")

	assert.Empty(t, parsed.Claims)
	assert.Empty(t, parsed.Lists)
	assert.Equal(t, 0, parsed.Metadata.LineCount)
}

func TestResolveOverlaps(t *testing.T) {
	generic := model.NumericClaim{Rule: "percentage", Start: 8, End: 14, ValueStart: 8, ValueEnd: 13, Specificity: 10}
	uptime := model.NumericClaim{Rule: "uptime_percentage", Start: 0, End: 14, ValueStart: 8, ValueEnd: 13, Specificity: 90}
	other := model.NumericClaim{Rule: "duration", Start: 20, End: 27, ValueStart: 20, ValueEnd: 21, Specificity: 40}

	got := ResolveOverlaps([]model.NumericClaim{generic, other, uptime})

	require.Len(t, got, 2)
	assert.Equal(t, "uptime_percentage", got[0].Rule)
	assert.Equal(t, "duration", got[1].Rule)
	assert.Nil(t, ResolveOverlaps(nil))
}

func TestInferEntity(t *testing.T) {
	tests := map[string]model.EntityKind{
		"Connected cameras":        model.EntityDevice,
		"Here are the devices":     model.EntityDevice,
		"Open alerts":              model.EntityAlert,
		"Live streams":             model.EntityStream,
		"Device groups":            model.EntityDevice,
		"Scheduled jobs":           model.EntityJob,
		"Pending firmware updates": model.EntityFirmware,
		"Here is what I found":     model.EntityOther,
		"Subgroups":                model.EntityOther,
	}
	for in, want := range tests {
		assert.Equal(t, want, InferEntity(in), in)
	}
}
