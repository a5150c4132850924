// Package config loads losc settings from losc.toml, a .env file and
// LOS_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultFile is the config file looked up in the working directory
// when no path is given.
const DefaultFile = "losc.toml"

// Config holds the complete losc configuration.
type Config struct {
	Solver SolverConfig `toml:"solver"`
	Data   DataConfig   `toml:"data"`
	Audit  AuditConfig  `toml:"audit"`
	Log    LogConfig    `toml:"log"`
}

// SolverConfig holds execution limits.
type SolverConfig struct {
	TimeLimit Duration `toml:"time_limit"`
	MaxNodes  int      `toml:"max_nodes"`
	Tolerance float64  `toml:"tolerance"`
}

// DataConfig holds data binding settings.
type DataConfig struct {
	BaseDir string `toml:"base_dir"` // import root; empty means the model's directory
}

// AuditConfig holds the run audit log settings.
type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load reads configuration from a TOML file and applies LOS_* overrides.
// An empty path tries DefaultFile and falls back to defaults when it does
// not exist; an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	path = os.ExpandEnv(path)

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			cfg = Config{}
		} else if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		} else {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads variables from an env file without overriding ones
// already set. A missing file is not an error unless the path was given
// explicitly.
func LoadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Solver.TimeLimit.Duration == 0 {
		c.Solver.TimeLimit.Duration = 60 * time.Second
	}
	if c.Solver.MaxNodes == 0 {
		c.Solver.MaxNodes = 100000
	}
	if c.Solver.Tolerance == 0 {
		c.Solver.Tolerance = 1e-9
	}
	if c.Audit.Path == "" {
		c.Audit.Path = "losc-audit.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// applyEnv overrides file values with LOS_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	parse := func(key string, set func(string) error) {
		if v, ok := lookup(key); ok && v != "" {
			if err := set(v); err != nil {
				errs = append(errs, fmt.Errorf("%s=%q: %w", key, v, err))
			}
		}
	}

	parse("LOS_TIME_LIMIT", func(v string) error {
		d, err := time.ParseDuration(v)
		c.Solver.TimeLimit.Duration = d
		return err
	})
	parse("LOS_MAX_NODES", func(v string) error {
		n, err := strconv.Atoi(v)
		c.Solver.MaxNodes = n
		return err
	})
	parse("LOS_TOLERANCE", func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		c.Solver.Tolerance = f
		return err
	})
	parse("LOS_AUDIT", func(v string) error {
		b, err := strconv.ParseBool(v)
		c.Audit.Enabled = b
		return err
	})
	str("LOS_DATA_DIR", &c.Data.BaseDir)
	str("LOS_AUDIT_DB", &c.Audit.Path)
	str("LOS_LOG_LEVEL", &c.Log.Level)

	return errors.Join(errs...)
}

func (c *Config) validate() error {
	if c.Solver.TimeLimit.Duration < 0 {
		return fmt.Errorf("solver.time_limit must not be negative, got %s", c.Solver.TimeLimit.Duration)
	}
	if c.Solver.MaxNodes < 0 {
		return fmt.Errorf("solver.max_nodes must not be negative, got %d", c.Solver.MaxNodes)
	}
	if c.Solver.Tolerance < 0 {
		return fmt.Errorf("solver.tolerance must not be negative, got %g", c.Solver.Tolerance)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	l, _ := ParseLevel(c.Log.Level)
	return l
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
	}
}
