package harness

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	los "github.com/jowpereira/LOS"
	"github.com/jowpereira/LOS/internal/store"
)

// Runner executes scenarios. The zero Runner discards logs and records
// nothing.
type Runner struct {
	Logger *slog.Logger

	// Audit, when set, records every run that reaches the solver.
	Audit *store.Store

	// Version is stored with audited runs.
	Version string
}

// Run executes a scenario with the zero Runner.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return (&Runner{}).Run(ctx, scenario)
}

// Run executes a scenario and returns the result.
//
// Pipeline failures (parse, build, bind, validate, lower) are outcomes
// checked by assertions, not errors. The returned error reports problems
// with the scenario itself: unreadable data files, malformed tables or an
// audit write failure.
func (r *Runner) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	result := NewResult()

	opts, err := r.options(ctx, scenario, logger)
	if err != nil {
		return nil, err
	}

	m, err := compile(scenario)
	if err != nil {
		result.fail(err)
		return finish(scenario, result), nil
	}

	if scenario.Golden {
		lp, err := m.LP(ctx, opts...)
		if err != nil {
			result.fail(err)
			return finish(scenario, result), nil
		}
		result.LP = lp
	}

	sres, err := los.Solve(ctx, m, opts...)
	if err != nil {
		result.fail(err)
		return finish(scenario, result), nil
	}
	result.Stage = StageSolve
	result.Solve = sres
	result.Status = string(sres.Status())
	result.Objective = sres.Objective()
	result.Constraints = sres.Constraints()
	logger.Debug("scenario solved", "scenario", scenario.Name, "status", result.Status, "objective", result.Objective)

	if r.Audit != nil {
		source := m.Path()
		if source == "" {
			source = "scenario:" + scenario.Name
		}
		run, err := r.Audit.WriteRun(ctx, store.NewRun(source, m.Fingerprint(), r.Version, sres.Raw()))
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		result.RunID = run.ID
	}

	return finish(scenario, result), nil
}

func compile(s *Scenario) (*los.Model, error) {
	if s.Model != "" {
		return los.CompileFile(s.Path(s.Model))
	}
	return los.Compile(s.Source)
}

// options turns the scenario's data and limits into solve options.
func (r *Runner) options(ctx context.Context, s *Scenario, logger *slog.Logger) ([]los.Option, error) {
	opts := []los.Option{los.WithLogger(logger)}
	if s.Model == "" && s.dir != "" {
		opts = append(opts, los.WithBaseDir(s.dir))
	}
	if s.TimeLimit != "" {
		d, err := time.ParseDuration(s.TimeLimit)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: time_limit: %w", s.Name, err)
		}
		opts = append(opts, los.WithTimeLimit(d))
	}

	sources := make(los.Sources)
	if len(s.Files) > 0 {
		paths := make([]string, len(s.Files))
		for i, f := range s.Files {
			paths[i] = s.Path(f)
		}
		loaded, err := los.LoadSources(ctx, paths...)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		maps.Copy(sources, loaded)
	}
	for name, td := range s.Tables {
		rows := make([][]any, len(td.Rows))
		for i, row := range td.Rows {
			rows[i] = make([]any, len(row))
			for j, cell := range row {
				rows[i][j] = normalizeYAML(cell)
			}
		}
		t, err := los.NewTable(name, td.Columns, rows...)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		sources[name] = t
	}
	if len(sources) > 0 {
		opts = append(opts, los.WithSources(sources))
	}

	if len(s.Overrides) > 0 {
		data := make(map[string]any, len(s.Overrides))
		for k, v := range s.Overrides {
			data[k] = normalizeYAML(v)
		}
		opts = append(opts, los.WithData(data))
	}
	return opts, nil
}

// normalizeYAML rewrites maps with non-string keys, which yaml.v3
// produces for integer keys, into map[string]any.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, x := range val {
			out[k] = normalizeYAML(x)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, x := range val {
			out[fmt.Sprint(k)] = normalizeYAML(x)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, x := range val {
			out[i] = normalizeYAML(x)
		}
		return out
	default:
		return v
	}
}

// finish evaluates the assertions of s against result.
func finish(s *Scenario, result *Result) *Result {
	expectsError := false
	for _, a := range s.Assertions {
		if a.Type == AssertError {
			expectsError = true
		}
		if err := evaluate(a, result); err != nil {
			result.AddError(err.Error())
		}
	}
	if result.Err != nil && !expectsError {
		result.AddError(fmt.Sprintf("pipeline stopped at %s: %v", result.Stage, result.Err))
	}
	return result
}
