package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/groundcheck/internal/model"
)

func TestLists_Numbered(t *testing.T) {
	text := "Here are the connected devices:\n1. Lobby camera\n2. Parking camera\n3) Gate camera\n\nLet me know if you need more."
	parsed := newTestParser().Parse(text)

	require.Len(t, parsed.Lists, 1)
	list := parsed.Lists[0]
	assert.Equal(t, model.EntityDevice, list.Entity)
	assert.Equal(t, model.ListNumbered, list.Style)
	assert.Equal(t, ".", list.Marker)
	assert.Equal(t, []string{"Lobby camera", "Parking camera", "Gate camera"}, list.Items)
	assert.Equal(t, 3, list.ItemCount)
	assert.Equal(t, "Here are the connected devices:", list.Header)
	assert.Equal(t, 0, list.Start)
	assert.True(t, strings.HasPrefix(text[list.ItemsStart:list.ItemsEnd], "1. Lobby camera"))
	assert.True(t, strings.HasSuffix(text[list.ItemsStart:list.ItemsEnd], "3) Gate camera"))
	assert.Equal(t, list.ItemsEnd, list.End)
}

func TestLists_BulletedWithDecoratedHeader(t *testing.T) {
	text := "**Active alerts:**\n- Disk full on NVR-2\n* Camera 7 offline\n• Firmware mismatch"
	parsed := newTestParser().Parse(text)

	require.Len(t, parsed.Lists, 1)
	list := parsed.Lists[0]
	assert.Equal(t, model.EntityAlert, list.Entity)
	assert.Equal(t, model.ListBulleted, list.Style)
	assert.Equal(t, "-", list.Marker)
	assert.Equal(t, 3, list.ItemCount)
}

func TestLists_MarkdownHeading(t *testing.T) {
	parsed := newTestParser().Parse("### Streams:\n- Lobby main\n- Lobby sub")

	require.Len(t, parsed.Lists, 1)
	assert.Equal(t, model.EntityStream, parsed.Lists[0].Entity)
	assert.Equal(t, 2, parsed.Lists[0].ItemCount)
}

func TestLists_IndentAndNestedItems(t *testing.T) {
	text := "Devices:\n  - Lobby\n      - serial 123\n  - Gate\n    last seen today"
	parsed := newTestParser().Parse(text)

	require.Len(t, parsed.Lists, 1)
	list := parsed.Lists[0]
	assert.Equal(t, "  ", list.Indent)
	assert.Equal(t, []string{"Lobby", "Gate"}, list.Items)
	assert.True(t, strings.HasSuffix(text[list.ItemsStart:list.ItemsEnd], "- Gate"))
}

func TestLists_MajorityStyleWins(t *testing.T) {
	parsed := newTestParser().Parse("Devices:\n- A\n- B\n1. C")

	require.Len(t, parsed.Lists, 1)
	assert.Equal(t, model.ListBulleted, parsed.Lists[0].Style)
	assert.Equal(t, 2, parsed.Lists[0].ItemCount)
}

func TestLists_GapEndsList(t *testing.T) {
	cfg := model.DefaultValidationConfig()
	cfg.ListProximity = 20
	text := "Devices:\n1. A" + strings.Repeat("\n", 30) + "2. B"

	parsed := NewParser(cfg).Parse(text)

	require.Len(t, parsed.Lists, 1)
	assert.Equal(t, []string{"A"}, parsed.Lists[0].Items)
}

func TestLists_FirstItemTooFarFromHeader(t *testing.T) {
	text := "Devices:" + strings.Repeat("\n", 250) + "1. A\n2. B"
	parsed := newTestParser().Parse(text)

	assert.Empty(t, parsed.Lists)
}

func TestLists_NextHeaderEndsList(t *testing.T) {
	text := "Devices:\n- A\n- B\nStreams:\n- S1"
	parsed := newTestParser().Parse(text)

	require.Len(t, parsed.Lists, 2)
	assert.Equal(t, model.EntityDevice, parsed.Lists[0].Entity)
	assert.Equal(t, 2, parsed.Lists[0].ItemCount)
	assert.Equal(t, model.EntityStream, parsed.Lists[1].Entity)
	assert.Equal(t, 1, parsed.Lists[1].ItemCount)
}

func TestLists_GenericIntroIsOther(t *testing.T) {
	parsed := newTestParser().Parse("Here is the following summary:\n- one\n- two")

	require.Len(t, parsed.Lists, 1)
	assert.Equal(t, model.EntityOther, parsed.Lists[0].Entity)
}

func TestLists_HeaderWithoutItems(t *testing.T) {
	parsed := newTestParser().Parse("Devices:\nNone of them reported in the last hour.")
	assert.Empty(t, parsed.Lists)
}

func TestLists_PlainColonLineIsNotHeader(t *testing.T) {
	parsed := newTestParser().Parse("Note:\n- something")
	assert.Empty(t, parsed.Lists)
}
