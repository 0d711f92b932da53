package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace_ReportsEvents(t *testing.T) {
	design := writeDesign(t, tracedDesign)

	stdout, _, err := executeCommand("trace", design)
	require.NoError(t, err)
	assert.Contains(t, stdout, "design: "+design)
	assert.Contains(t, stdout, "name: capture")
	assert.Contains(t, stdout, "condition: valid")
	assert.Contains(t, stdout, "data: data")
	assert.Contains(t, stdout, "name: idle")
	assert.Contains(t, stdout, "~valid")
}

func TestTrace_JSONFormat(t *testing.T) {
	design := writeDesign(t, tracedDesign)

	stdout, _, err := executeCommand("--format", "json", "trace", design)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Events, 2)

	capture := resp.Data.Events[0]
	assert.Equal(t, "capture", capture.Name)
	assert.Equal(t, "valid", capture.Condition)
	assert.False(t, capture.Combinational)
	assert.Equal(t, map[string]string{"data": "data"}, capture.Fields)

	idle := resp.Data.Events[1]
	assert.Equal(t, "idle", idle.Name)
	assert.Equal(t, "~valid", idle.Condition)
	assert.Empty(t, idle.Fields)
}

func TestTrace_NoEvents(t *testing.T) {
	design := writeDesign(t, adderDesign)

	stdout, _, err := executeCommand("trace", design)
	require.NoError(t, err)
	assert.Contains(t, stdout, "events: []")
}

func TestTrace_RemoveStripsAndRewrites(t *testing.T) {
	design := writeDesign(t, tracedDesign)

	stdout, _, err := executeCommand("trace", design, "--remove")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Removed 2 event site(s)")
	assert.Contains(t, stdout, design)

	// The rewritten design carries no fire sites.
	stdout, _, err = executeCommand("trace", design)
	require.NoError(t, err)
	assert.Contains(t, stdout, "events: []")
}

func TestTrace_RemoveToOutput(t *testing.T) {
	design := writeDesign(t, tracedDesign)
	stripped := filepath.Join(t.TempDir(), "stripped.json")

	_, _, err := executeCommand("trace", design, "--remove", "--output", stripped)
	require.NoError(t, err)

	// Original is untouched, the copy is stripped.
	stdout, _, err := executeCommand("trace", design)
	require.NoError(t, err)
	assert.Contains(t, stdout, "name: capture")

	stdout, _, err = executeCommand("trace", stripped)
	require.NoError(t, err)
	assert.Contains(t, stdout, "events: []")
}

func TestTrace_MissingFile(t *testing.T) {
	stdout, _, err := executeCommand("trace", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, ErrCodeNotFound)
}
