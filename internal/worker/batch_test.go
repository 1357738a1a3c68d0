package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/pipeline"
)

func writeTranscript(t *testing.T, dir, name, answer string, devices int) string {
	t.Helper()
	var items []string
	for i := 0; i < devices; i++ {
		items = append(items, fmt.Sprintf(`{"name":"cam-%d","status":"connected"}`, i))
	}
	content := fmt.Sprintf(`{"devices":[%s]}`, strings.Join(items, ","))
	doc := fmt.Sprintf(`{"answer": %q, "tool_results": [{"tool_name": "list_devices", "call_id": "c1", "content": %q}]}`,
		answer, content)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	return path
}

func TestBatchProcessor_ProcessPaths(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeTranscript(t, dir, "a.json", "Connected devices: 3", 3),
		writeTranscript(t, dir, "b.json", "Connected devices: 9", 12),
		filepath.Join(dir, "missing.json"),
	}

	p := pipeline.NewPipeline(model.DefaultValidationConfig(), nil)
	results := NewBatchProcessor(p, 2).ProcessPaths(context.Background(), paths)
	require.Len(t, results, 3)

	assert.Equal(t, paths[0], results[0].Path)
	require.NoError(t, results[0].Error)
	assert.Equal(t, "Connected devices: 3", results[0].Report.Response.Text)
	assert.Equal(t, paths[0], results[0].Report.Source)

	require.NoError(t, results[1].Error)
	assert.Equal(t, "Connected devices: 12", results[1].Report.Response.Text)

	assert.Error(t, results[2].GetError())
	assert.Nil(t, results[2].Report)
}

func TestBatchProcessor_Empty(t *testing.T) {
	p := pipeline.NewPipeline(model.DefaultValidationConfig(), nil)
	assert.Empty(t, NewBatchProcessor(p, 2).ProcessPaths(context.Background(), nil))
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	dir := t.TempDir()
	a := writeTranscript(t, dir, "a.json", "Connected devices: 3", 3)
	b := writeTranscript(t, dir, "b.json", "Connected devices: 2", 2)
	list := filepath.Join(dir, "list.txt")
	require.NoError(t, os.WriteFile(list, []byte(a+"\n# comment\n\n"+b+"\n"+a+"\n"), 0644))

	p := pipeline.NewPipeline(model.DefaultValidationConfig(), nil)
	results, err := NewBatchProcessor(p, 2).ProcessFile(context.Background(), list)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, a, results[0].Path)
	assert.Equal(t, b, results[1].Path)

	_, err = NewBatchProcessor(p, 2).ProcessFile(context.Background(), filepath.Join(dir, "nope.txt"))
	assert.Error(t, err)
}

func TestReadPathsFromFile(t *testing.T) {
	content := "runs/a.json\n# comment\nruns/b.yaml\n   \n  runs/c.json   \nruns/a.json"
	path := filepath.Join(t.TempDir(), "paths.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	paths, err := ReadPathsFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"runs/a.json", "runs/b.yaml", "runs/c.json"}, paths)

	_, err = ReadPathsFromFile("non_existent_file.txt")
	assert.Error(t, err)
}

func TestCheckResult_GetError(t *testing.T) {
	assert.NoError(t, (&CheckResult{Path: "a.json"}).GetError())

	expected := errors.New("check failed")
	assert.Equal(t, expected, (&CheckResult{Path: "a.json", Error: expected}).GetError())
}

func TestCheckJob_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := (&CheckJob{Path: "a.json"}).Execute(ctx)
	assert.ErrorIs(t, res.GetError(), context.Canceled)
}
