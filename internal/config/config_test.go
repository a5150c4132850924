package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "losc.toml", `
[solver]
time_limit = "5s"
max_nodes = 250

[data]
base_dir = "data"

[audit]
enabled = true
path = "runs.db"

[log]
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Solver.TimeLimit.Duration)
	assert.Equal(t, 250, cfg.Solver.MaxNodes)
	assert.Equal(t, 1e-9, cfg.Solver.Tolerance, "unset field takes its default")
	assert.Equal(t, "data", cfg.Data.BaseDir)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "runs.db", cfg.Audit.Path)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_DefaultFileAbsent(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_DefaultFilePresent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, DefaultFile, "[solver]\nmax_nodes = 7\n")
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Solver.MaxNodes)
}

func TestLoad_ParseError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.toml", "[solver\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "losc.toml", "[solver]\ntime_limit = \"5s\"\n")
	t.Setenv("LOS_TIME_LIMIT", "90s")
	t.Setenv("LOS_MAX_NODES", "12")
	t.Setenv("LOS_AUDIT", "true")
	t.Setenv("LOS_AUDIT_DB", "/tmp/a.db")
	t.Setenv("LOS_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Solver.TimeLimit.Duration)
	assert.Equal(t, 12, cfg.Solver.MaxNodes)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "/tmp/a.db", cfg.Audit.Path)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel())
}

func TestLoad_InvalidEnv(t *testing.T) {
	path := writeFile(t, t.TempDir(), "losc.toml", "")
	t.Setenv("LOS_MAX_NODES", "many")
	t.Setenv("LOS_TIME_LIMIT", "soon")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOS_MAX_NODES")
	assert.Contains(t, err.Error(), "LOS_TIME_LIMIT")
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"negative nodes", "[solver]\nmax_nodes = -1\n", "max_nodes"},
		{"negative time", "[solver]\ntime_limit = \"-1s\"\n", "time_limit"},
		{"bad level", "[log]\nlevel = \"loud\"\n", "unknown log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "losc.toml", tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "test.env", "LOS_TEST_DOTENV_VALUE=from-file\n")

	t.Setenv("LOS_TEST_DOTENV_VALUE", "")
	os.Unsetenv("LOS_TEST_DOTENV_VALUE")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("LOS_TEST_DOTENV_VALUE"))
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "test.env", "LOS_TEST_DOTENV_KEEP=from-file\n")
	t.Setenv("LOS_TEST_DOTENV_KEEP", "from-env")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("LOS_TEST_DOTENV_KEEP"))
}

func TestLoadDotEnv_Missing(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.NoError(t, LoadDotEnv(""), "implicit .env may be absent")
	assert.Error(t, LoadDotEnv("missing.env"))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
