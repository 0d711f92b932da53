package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loom/internal/debugdb"
)

// writeManifest writes CUE manifest text into a fresh temp file.
func writeManifest(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "build.cue")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestEmit_WritesModules(t *testing.T) {
	design := writeDesign(t, adderDesign)
	outDir := filepath.Join(t.TempDir(), "out")

	stdout, _, err := executeCommand("emit", design, "-o", outDir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Emitted 1 module(s)")
	assert.Contains(t, stdout, "adder.sv")

	src, err := os.ReadFile(filepath.Join(outDir, "adder.sv"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "module adder")
	assert.Contains(t, string(src), "sum = a + b;")
}

func TestEmit_StripsEvents(t *testing.T) {
	design := writeDesign(t, tracedDesign)
	outDir := filepath.Join(t.TempDir(), "out")

	stdout, _, err := executeCommand("emit", design, "-o", outDir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 event(s) extracted")

	src, err := os.ReadFile(filepath.Join(outDir, "traced.sv"))
	require.NoError(t, err)
	assert.NotContains(t, string(src), "capture")
	assert.NotContains(t, string(src), "idle")
	assert.Contains(t, string(src), "seen <= data;")
}

func TestEmit_JSONFormat(t *testing.T) {
	design := writeDesign(t, adderDesign)
	outDir := filepath.Join(t.TempDir(), "out")

	stdout, _, err := executeCommand("--format", "json", "emit", design, "-o", outDir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   EmitResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"adder"}, resp.Data.Modules)
	assert.Equal(t, outDir, resp.Data.Output)
	assert.Equal(t, 0, resp.Data.Events)
}

func TestEmit_MissingFile(t *testing.T) {
	stdout, _, err := executeCommand("emit", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, ErrCodeNotFound)
}

func TestEmit_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "design.json")
	require.NoError(t, os.WriteFile(path, []byte("not a design"), 0o644))

	stdout, _, err := executeCommand("emit", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, ErrCodeCorrupt)
}

func TestEmit_TopSelectsRoot(t *testing.T) {
	design := writeDesign(t, twoRootDesign)
	outDir := filepath.Join(t.TempDir(), "out")

	stdout, _, err := executeCommand("emit", design, "-o", outDir, "--top", "adder")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Emitted 1 module(s)")

	_, err = os.Stat(filepath.Join(outDir, "adder.sv"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "buffer.sv"))
	assert.True(t, os.IsNotExist(err))
}

func TestEmit_TopMissing(t *testing.T) {
	design := writeDesign(t, adderDesign)

	stdout, _, err := executeCommand("emit", design, "--top", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, ErrCodeTopMissing)
	assert.Contains(t, stdout, "not in the design")
}

func TestEmit_KeepEventsWritesReport(t *testing.T) {
	design := writeDesign(t, tracedDesign)
	outDir := filepath.Join(t.TempDir(), "out")

	_, _, err := executeCommand("emit", design, "-o", outDir, "--keep-events")
	require.NoError(t, err)

	report, err := os.ReadFile(filepath.Join(outDir, "events.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "name: capture")
	assert.Contains(t, string(report), "condition: valid")
	assert.Contains(t, string(report), "name: idle")
}

func TestEmit_ManifestAppliesValues(t *testing.T) {
	design := writeDesign(t, tracedDesign)
	outDir := filepath.Join(t.TempDir(), "out")
	manifest := writeManifest(t, `
output:      "`+outDir+`"
keep_events: true
`)

	_, _, err := executeCommand("emit", design, "--manifest", manifest)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(outDir, "traced.sv"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "events.yaml"))
	require.NoError(t, err)
}

func TestEmit_FlagOverridesManifest(t *testing.T) {
	design := writeDesign(t, adderDesign)
	manifestDir := filepath.Join(t.TempDir(), "from-manifest")
	flagDir := filepath.Join(t.TempDir(), "from-flag")
	manifest := writeManifest(t, `output: "`+manifestDir+`"`)

	_, _, err := executeCommand("emit", design, "--manifest", manifest, "-o", flagDir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(flagDir, "adder.sv"))
	require.NoError(t, err)
	_, err = os.Stat(manifestDir)
	assert.True(t, os.IsNotExist(err))
}

func TestEmit_ManifestInvalid(t *testing.T) {
	design := writeDesign(t, adderDesign)
	manifest := writeManifest(t, `output: 5`)

	stdout, _, err := executeCommand("emit", design, "--manifest", manifest)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, ErrCodeManifestInvalid)
}

func TestEmit_DebugDB(t *testing.T) {
	design := writeDesign(t, adderDesign)
	outDir := filepath.Join(t.TempDir(), "out")
	dbPath := filepath.Join(t.TempDir(), "debug.db")

	stdout, _, err := executeCommand("emit", design, "-o", outDir, "--debug-db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "debug symbols in")

	db, err := debugdb.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	sessions, err := db.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "adder", sessions[0].TopModule)
}

func TestEmit_WatchBadPathFailsFast(t *testing.T) {
	// The up-front emission fails before any watcher starts, so watch
	// mode with a bad path returns instead of blocking.
	stdout, _, err := executeCommand("emit", filepath.Join(t.TempDir(), "missing.json"), "--watch")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, ErrCodeNotFound)
}
