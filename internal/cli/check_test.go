package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCheck(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format, NoColor: true}
	cmd := NewCheckCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCheckValidDirectory(t *testing.T) {
	out, err := executeCheck(t, "text", filepath.Join("testdata", "good"))
	require.NoError(t, err)

	assert.Contains(t, out, "✓ "+filepath.Join("testdata", "good", "pick.los"))
	assert.Contains(t, out, "✓ "+filepath.Join("testdata", "good", "simple.los"))
	assert.Contains(t, out, "2 valid, 0 invalid, 2 total")
}

func TestCheckCollectsAllDiagnostics(t *testing.T) {
	out, err := executeCheck(t, "text", filepath.Join("testdata", "bad"), filepath.Join("testdata", "good"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ "+filepath.Join("testdata", "bad", "syntax.los"))
	assert.Contains(t, out, "P001 [parse]")
	assert.Contains(t, out, "✗ "+filepath.Join("testdata", "bad", "undefined.los"))
	assert.Contains(t, out, "V001 [validate]")
	assert.Contains(t, out, "2 valid, 2 invalid, 4 total")
}

func TestCheckInfeasibleModelIsValid(t *testing.T) {
	_, err := executeCheck(t, "text", filepath.Join("testdata", "infeasible.los"))
	require.NoError(t, err)
}

func TestCheckWithData(t *testing.T) {
	plan := filepath.Join("testdata", "data", "plan.los")

	out, err := executeCheck(t, "text", plan)
	require.Error(t, err)
	assert.Contains(t, out, "D001 [bind]")

	_, err = executeCheck(t, "text", plan, "--data", filepath.Join("testdata", "data", "costs.csv"))
	require.NoError(t, err)
}

func TestCheckFailFast(t *testing.T) {
	out, err := executeCheck(t, "json", "--fail-fast", "--jobs", "1", filepath.Join("testdata", "bad"), filepath.Join("testdata", "good"))
	require.Error(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   CheckReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	// bad/syntax.los sorts first and stops the run.
	require.Len(t, resp.Data.Models, 1)
	assert.Equal(t, filepath.Join("testdata", "bad", "syntax.los"), resp.Data.Models[0].Model)
	assert.Equal(t, 1, resp.Data.Invalid)
}

func TestCheckJSONReport(t *testing.T) {
	out, err := executeCheck(t, "json", filepath.Join("testdata", "bad", "undefined.los"))
	require.Error(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   CheckReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Models, 1)
	m := resp.Data.Models[0]
	assert.False(t, m.Valid)
	require.NotEmpty(t, m.Diagnostics)
	assert.Equal(t, "validate", m.Diagnostics[0].Stage)
	assert.Equal(t, "V001", m.Diagnostics[0].Code)
	assert.Equal(t, 2, m.Diagnostics[0].Line)
}

func TestCheckMissingPath(t *testing.T) {
	out, err := executeCheck(t, "text", filepath.Join("testdata", "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
