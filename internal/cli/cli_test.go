package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/groundcheck/internal/agent"
	"github.com/ppiankov/groundcheck/internal/llm"
	"github.com/ppiankov/groundcheck/internal/logging"
	"github.com/ppiankov/groundcheck/internal/metrics"
	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/pipeline"
	"github.com/ppiankov/groundcheck/internal/tools"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig().Validation.PercentageTolerance, cfg.Validation.PercentageTolerance)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Tools.Endpoints)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("GROUNDCHECK_TOOLS_BASE_URL", "http://devices.test")
	t.Setenv("GROUNDCHECK_VALIDATION_COUNT_TOLERANCE", "2")
	t.Setenv("GROUNDCHECK_LLM_PROVIDER", "ollama")
	t.Setenv("GROUNDCHECK_LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	v := viper.New()
	bindEnv(v)
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "http://devices.test", cfg.Tools.BaseURL)
	assert.Equal(t, 2.0, cfg.Validation.CountTolerance)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
validation:
  block_on_critical: true
  parse_cache_ttl: 5m
server:
  address: ":9999"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.True(t, cfg.Validation.BlockOnCritical)
	assert.Equal(t, "5m0s", cfg.Validation.ParseCacheTTL.String())
	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, 8, cfg.Agent.MaxIterations)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("GROUNDCHECK_LLM_PROVIDER", "carrier-pigeon")
	v := viper.New()
	bindEnv(v)

	_, err := loadConfig(v)
	var cfgErr *model.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "llm.provider", cfgErr.Field)
}

func TestRenderDefaultConfig(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderDefaultConfig(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "# Groundcheck Configuration File"))

	// The rendered file reads back as the defaults
	var cfg model.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &cfg))
	assert.Equal(t, model.DefaultConfig().Agent.MaxIterations, cfg.Agent.MaxIterations)
	assert.Equal(t, model.DefaultConfig().Server.Address, cfg.Server.Address)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	_, err := loadConfig(v)
	assert.NoError(t, err)
}

func TestApplyPolicyFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().BoolVar(&reportOnly, "report-only", false, "")
	cmd.Flags().BoolVar(&blockOnCritical, "block-on-critical", false, "")
	cmd.Flags().Float64Var(&countTolerance, "count-tolerance", 0, "")
	cmd.Flags().Float64Var(&percentageTolerance, "percentage-tolerance", 0.1, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--report-only", "--count-tolerance", "3"}))

	cfg := model.DefaultValidationConfig()
	cfg.PercentageTolerance = 0.5
	applyPolicyFlags(cmd, &cfg)

	assert.False(t, cfg.AutoCorrect)
	assert.Equal(t, 3.0, cfg.CountTolerance)
	// Unset flags leave configured values alone
	assert.Equal(t, 0.5, cfg.PercentageTolerance)
	assert.False(t, cfg.BlockOnCritical)
}

func TestReportName(t *testing.T) {
	assert.Equal(t, "001-answer", reportName(0, "/tmp/runs/answer.json"))
	assert.Equal(t, "012-weekly-report", reportName(11, "weekly report.yaml"))
	assert.Equal(t, "003-a_b", reportName(2, "dir/a:b.json"))
}

func TestReadTranscript_Stdin(t *testing.T) {
	in := strings.NewReader("answer: \"Open alerts: 2\"\ntool_results: []\n")
	tr, err := readTranscript(in, "-", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "Open alerts: 2", tr.Answer)
}

func deviceTranscript(claimed, actual int) []byte {
	var items []string
	for i := 0; i < actual; i++ {
		items = append(items, fmt.Sprintf(`{"name":"cam-%d","status":"connected"}`, i))
	}
	content := `{"devices":[` + strings.Join(items, ",") + `]}`
	data, _ := json.Marshal(map[string]any{
		"answer": fmt.Sprintf("Connected devices: %d", claimed),
		"tool_results": []map[string]any{
			{"tool_name": "list_devices", "call_id": "c1", "content": content},
		},
	})
	return data
}

func newTestServer(t *testing.T, a *agent.Agent) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))
	p := pipeline.NewPipeline(model.DefaultValidationConfig(), logging.Nop())
	srv := httptest.NewServer(newHandler(p, a, reg, logging.Nop()))
	t.Cleanup(srv.Close)
	return srv
}

func TestServer_Check(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/v1/check", "application/json", bytes.NewReader(deviceTranscript(9, 12)))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report model.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, "Connected devices: 12", report.Response.Text)
	assert.NotEmpty(t, report.CheckID)
}

func TestServer_CheckBadRequest(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/v1/check", "application/json", strings.NewReader(`{"answer":""}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/check")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/v1/check", "application/json", bytes.NewReader(deviceTranscript(12, 12)))
	require.NoError(t, err)
	_ = resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "groundcheck_checks_total")
}

func TestServer_AskDisabledWithoutAgent(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/v1/ask", "application/json", strings.NewReader(`{"question":"q"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type cannedProvider struct{ text string }

func (c cannedProvider) Name() string { return "canned" }

func (c cannedProvider) Chat(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: c.text}, nil
}

func TestServer_Ask(t *testing.T) {
	p := pipeline.NewPipeline(model.DefaultValidationConfig(), nil)
	a := agent.New(cannedProvider{text: "Nothing numeric here."}, tools.NewRegistry(), p, nil, model.AgentConfig{}, nil)
	srv := newTestServer(t, a)

	resp, err := http.Post(srv.URL+"/v1/ask", "application/json", strings.NewReader(`{"question":"status?"}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var answer agent.Answer
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
	assert.Equal(t, "Nothing numeric here.", answer.Text)
	assert.Equal(t, 1, answer.Iterations)

	resp2, err := http.Post(srv.URL+"/v1/ask", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	_ = resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}
