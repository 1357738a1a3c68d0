package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok {
			if want != lp.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}

func TestRegister_Twice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))

	before := counterValue(t, reg, "groundcheck_checks_total", map[string]string{"outcome": OutcomeClean})
	ObserveCheck(2*time.Millisecond, "whatever")
	ObserveCheck(-time.Second, OutcomeClean)
	after := counterValue(t, reg, "groundcheck_checks_total", map[string]string{"outcome": OutcomeClean})
	assert.Equal(t, before+2, after)

	labels := map[string]string{"tool": "list_devices", "outcome": ToolError}
	before = counterValue(t, reg, "groundcheck_tool_calls_total", labels)
	ObserveToolCall("list_devices", true)
	assert.Equal(t, before+1, counterValue(t, reg, "groundcheck_tool_calls_total", labels))

	labels = map[string]string{"class": "device_count", "severity": "critical"}
	before = counterValue(t, reg, "groundcheck_corrections_total", labels)
	ObserveCorrection("device_count", "critical")
	assert.Equal(t, before+1, counterValue(t, reg, "groundcheck_corrections_total", labels))
}
