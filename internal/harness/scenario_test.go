package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "plan.los", "var x >= 0\nminimize: x\n")
	path := writeScenario(t, dir, "plan.yaml", `
name: plan
description: "Loads a model next to the scenario"
model: plan.los
overrides:
  Cost: {A: 1}
assertions:
  - type: status
    status: optimal
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "plan", s.Name)
	assert.Equal(t, dir, s.Dir())
	assert.Equal(t, filepath.Join(dir, "plan.los"), s.Path(s.Model))
	assert.Equal(t, map[string]any{"A": 1}, s.Overrides["Cost"])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MissingModelFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "s.yaml", `
name: s
description: "model does not exist"
model: gone.los
assertions:
  - type: status
    status: optimal
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model file not found")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: s\ndescription: d\nsource: x\nassertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "description: d\nsource: x\nassertions: [{type: status, status: optimal}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: s\nsource: x\nassertions: [{type: status, status: optimal}]\n",
			wantErr: "description is required",
		},
		{
			name:    "model and source",
			content: "name: s\ndescription: d\nmodel: a.los\nsource: x\nassertions: [{type: status, status: optimal}]\n",
			wantErr: "exactly one of model or source",
		},
		{
			name:    "no assertions",
			content: "name: s\ndescription: d\nsource: x\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "bad time limit",
			content: "name: s\ndescription: d\nsource: x\ntime_limit: soon\nassertions: [{type: status, status: optimal}]\n",
			wantErr: "time_limit",
		},
		{
			name:    "unknown assertion",
			content: "name: s\ndescription: d\nsource: x\nassertions: [{type: vibes}]\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "objective without value",
			content: "name: s\ndescription: d\nsource: x\nassertions: [{type: objective}]\n",
			wantErr: "value is required for objective",
		},
		{
			name:    "error with unknown stage",
			content: "name: s\ndescription: d\nsource: x\nassertions: [{type: error, stage: solve}]\n",
			wantErr: "stage must be one of",
		},
		{
			name:    "negative count",
			content: "name: s\ndescription: d\nsource: x\nassertions: [{type: constraint_count, count: -1}]\n",
			wantErr: "non-negative count",
		},
		{
			name:    "wide table row",
			content: "name: s\ndescription: d\nsource: x\ntables: {t: {columns: [a], rows: [[1, 2]]}}\nassertions: [{type: status, status: optimal}]\n",
			wantErr: "2 cells for 1 columns",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarios_EmptyDir(t *testing.T) {
	_, err := LoadScenarios(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenario files")
}
