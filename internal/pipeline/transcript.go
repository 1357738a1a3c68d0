package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/groundcheck/internal/model"
)

// Transcript is one answer together with the tool results collected while producing it
type Transcript struct {
	Question    string             `json:"question,omitempty" yaml:"question,omitempty"`
	Answer      string             `json:"answer" yaml:"answer"`
	ToolResults []model.ToolResult `json:"tool_results" yaml:"tool_results"`
}

// LoadTranscript reads a transcript file; .yaml and .yml are YAML, anything else JSON
func LoadTranscript(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	t, err := ParseTranscript(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParseTranscript decodes a transcript in the given format ("json" or "yaml")
func ParseTranscript(data []byte, format string) (*Transcript, error) {
	var t Transcript
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode yaml transcript: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode json transcript: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown transcript format %q", format)
	}
	if strings.TrimSpace(t.Answer) == "" {
		return nil, fmt.Errorf("transcript has no answer")
	}
	return &t, nil
}
