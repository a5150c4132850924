package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	los "github.com/jowpereira/LOS"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the path of the .los file, relative to the scenario file.
	Model string `yaml:"model,omitempty"`

	// Source is inline model text, used when Model is empty.
	Source string `yaml:"source,omitempty"`

	// Files lists data files loaded as named sources.
	Files []string `yaml:"files,omitempty"`

	// Tables are inline sources keyed by logical name.
	Tables map[string]TableData `yaml:"tables,omitempty"`

	// Overrides are programmatic values keyed by set or parameter name.
	Overrides map[string]any `yaml:"overrides,omitempty"`

	// TimeLimit bounds the solver, as a Go duration string.
	TimeLimit string `yaml:"time_limit,omitempty"`

	// Golden compares the LP export with testdata/golden/<name>.golden.
	Golden bool `yaml:"golden,omitempty"`

	// Assertions validate the outcome.
	Assertions []Assertion `yaml:"assertions"`

	// dir is the directory relative paths resolve against.
	dir string
}

// TableData is an inline tabular source.
type TableData struct {
	Columns []string `yaml:"columns"`
	Rows    [][]any  `yaml:"rows"`
}

// Assertion validates one aspect of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Status is the expected solve status (status).
	Status string `yaml:"status,omitempty"`

	// Value is the expected number (objective, variable).
	Value *float64 `yaml:"value,omitempty"`

	// Tolerance is the allowed absolute difference; defaults to 1e-6.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Variable and Index address one variable instance (variable).
	Variable string `yaml:"variable,omitempty"`
	Index    []any  `yaml:"index,omitempty"`

	// Stage, Code and Contains describe an expected failure (error).
	Stage    string `yaml:"stage,omitempty"`
	Code     string `yaml:"code,omitempty"`
	Contains string `yaml:"contains,omitempty"`

	// Names are the expected constraint names in order (constraints).
	Names []string `yaml:"names,omitempty"`

	// Count is the expected number of constraints (constraint_count).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertStatus          = "status"
	AssertObjective       = "objective"
	AssertVariable        = "variable"
	AssertError           = "error"
	AssertConstraints     = "constraints"
	AssertConstraintCount = "constraint_count"
)

var stages = []string{
	los.StageRead, los.StageParse, los.StageBuild,
	los.StageBind, los.StageValidate, los.StageLower,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	s.dir = filepath.Dir(path)
	if err := s.checkPaths(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return s, nil
}

// ParseScenario parses scenario YAML. Relative paths resolve against the
// working directory; LoadScenario resolves them against the file.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml/.yml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}
	var out []*Scenario
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		s, err := LoadScenario(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}
	return out, nil
}

// Path resolves p against the scenario's directory.
func (s *Scenario) Path(p string) string {
	if filepath.IsAbs(p) || s.dir == "" {
		return p
	}
	return filepath.Join(s.dir, p)
}

// Dir returns the directory the scenario was loaded from.
func (s *Scenario) Dir() string { return s.dir }

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if (s.Model == "") == (s.Source == "") {
		return fmt.Errorf("exactly one of model or source is required")
	}
	if s.TimeLimit != "" {
		if _, err := time.ParseDuration(s.TimeLimit); err != nil {
			return fmt.Errorf("time_limit: %w", err)
		}
	}
	for name, t := range s.Tables {
		if len(t.Columns) == 0 {
			return fmt.Errorf("tables.%s: columns are required", name)
		}
		for i, row := range t.Rows {
			if len(row) > len(t.Columns) {
				return fmt.Errorf("tables.%s.rows[%d]: %d cells for %d columns", name, i, len(row), len(t.Columns))
			}
		}
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// checkPaths verifies that referenced files exist.
func (s *Scenario) checkPaths() error {
	if s.Model != "" {
		if _, err := os.Stat(s.Path(s.Model)); os.IsNotExist(err) {
			return fmt.Errorf("model file not found: %s", s.Model)
		}
	}
	for _, f := range s.Files {
		if _, err := os.Stat(s.Path(f)); os.IsNotExist(err) {
			return fmt.Errorf("data file not found: %s", f)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for status", index)
		}
	case AssertObjective:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for objective", index)
		}
	case AssertVariable:
		if a.Variable == "" {
			return fmt.Errorf("assertions[%d]: variable is required for variable", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for variable", index)
		}
	case AssertError:
		if !slices.Contains(stages, a.Stage) {
			return fmt.Errorf("assertions[%d]: stage must be one of %v for error", index, stages)
		}
	case AssertConstraints:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names list is required for constraints", index)
		}
	case AssertConstraintCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for constraint_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Tolerance < 0 {
		return fmt.Errorf("assertions[%d]: tolerance must be non-negative", index)
	}
	return nil
}
