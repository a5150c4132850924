package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCompile(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format, NoColor: true}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCompileWritesLPToStdout(t *testing.T) {
	out, err := executeCompile(t, "text", filepath.Join("testdata", "good", "simple.los"))
	require.NoError(t, err)

	assert.Contains(t, out, "Minimize")
	assert.Contains(t, out, "obj: 3 x + 5 y")
	assert.Contains(t, out, "cover: x + y >= 2")
	assert.Contains(t, out, "End")
}

func TestCompileWithDataAndOverride(t *testing.T) {
	out, err := executeCompile(t, "text",
		filepath.Join("testdata", "data", "plan.los"),
		"--data", filepath.Join("testdata", "data", "costs.csv"),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "obj: 10 qty_A + 20 qty_B")

	out, err = executeCompile(t, "text", filepath.Join("testdata", "good", "simple.los"), "--set", "Demand=7")
	require.NoError(t, err)
	assert.Contains(t, out, "cover: x + y >= 7")
}

func TestCompileOutputToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "pick.lp")

	out, err := executeCompile(t, "text", filepath.Join("testdata", "good", "pick.los"), "-o", outputFile)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled")
	assert.Contains(t, out, "2 column(s) (2 integer), 1 row(s)")
	assert.Contains(t, out, "Wrote LP to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Maximize")
	assert.Contains(t, string(data), "Binary")
}

func TestCompileJSON(t *testing.T) {
	out, err := executeCompile(t, "json", filepath.Join("testdata", "good", "simple.los"))
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Columns)
	assert.Equal(t, 1, resp.Data.Rows)
	assert.Len(t, resp.Data.Fingerprint, 64)
	assert.Contains(t, resp.Data.LP, "Subject To")
}

func TestCompileReportsDiagnostics(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  string
	}{
		{"syntax", filepath.Join("testdata", "bad", "syntax.los"), "P001 [parse]"},
		{"undefined name", filepath.Join("testdata", "bad", "undefined.los"), "V001 [validate]"},
		{"missing data", filepath.Join("testdata", "data", "plan.los"), "D001 [bind]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCompile(t, "text", tt.model)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, out, "✗ "+tt.model)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestCompileDiagnosticsJSON(t *testing.T) {
	out, err := executeCompile(t, "json", filepath.Join("testdata", "bad", "undefined.los"))
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Error  *CLIError  `json:"error"`
		Data   []CLIError `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "V001", resp.Error.Code)
	assert.NotEmpty(t, resp.Data)
}

func TestCompileMissingFile(t *testing.T) {
	out, err := executeCompile(t, "text", filepath.Join("testdata", "nope.los"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestCompileMissingArgs(t *testing.T) {
	_, err := executeCompile(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
