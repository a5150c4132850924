package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	los "github.com/jowpereira/LOS"
)

// ModelFlags holds the data and solver flags shared by commands that
// bind a model.
type ModelFlags struct {
	Data      []string // data files, loaded by extension
	Set       []string // name=value scalar overrides
	BaseDir   string
	TimeLimit time.Duration
	MaxNodes  int
	Tolerance float64
}

// register adds the data flags to cmd, and the solver limits when solve
// is true. Zero limits defer to the config file.
func (f *ModelFlags) register(cmd *cobra.Command, solve bool) {
	cmd.Flags().StringSliceVarP(&f.Data, "data", "d", nil, "data file (.csv, .json, .yaml, .db); repeatable")
	cmd.Flags().StringArrayVar(&f.Set, "set", nil, "scalar parameter override name=value; repeatable")
	cmd.Flags().StringVar(&f.BaseDir, "base-dir", "", "directory model imports resolve against (default: model's directory)")
	if solve {
		cmd.Flags().DurationVar(&f.TimeLimit, "time-limit", 0, "solver wall-clock limit (default from config)")
		cmd.Flags().IntVar(&f.MaxNodes, "max-nodes", 0, "branch-and-bound node limit (default from config)")
		cmd.Flags().Float64Var(&f.Tolerance, "tolerance", 0, "simplex tolerance (default from config)")
	}
}

// options turns flags and config into pipeline options. Data files are
// loaded here, so the returned error is a command error.
func (f *ModelFlags) options(ctx context.Context, o *RootOptions) ([]los.Option, error) {
	cfg := o.config()
	opts := []los.Option{los.WithLogger(o.logger())}

	baseDir := f.BaseDir
	if baseDir == "" {
		baseDir = cfg.Data.BaseDir
	}
	if baseDir != "" {
		opts = append(opts, los.WithBaseDir(baseDir))
	}

	timeLimit := cfg.Solver.TimeLimit.Duration
	if f.TimeLimit > 0 {
		timeLimit = f.TimeLimit
	}
	maxNodes := cfg.Solver.MaxNodes
	if f.MaxNodes > 0 {
		maxNodes = f.MaxNodes
	}
	tolerance := cfg.Solver.Tolerance
	if f.Tolerance > 0 {
		tolerance = f.Tolerance
	}
	opts = append(opts,
		los.WithTimeLimit(timeLimit),
		los.WithMaxNodes(maxNodes),
		los.WithTolerance(tolerance),
	)

	if len(f.Data) > 0 {
		sources, err := los.LoadSources(ctx, f.Data...)
		if err != nil {
			return nil, &PathError{Code: ErrCodeDataFailed, Path: strings.Join(f.Data, ", "), Message: err.Error()}
		}
		opts = append(opts, los.WithSources(sources))
	}

	if len(f.Set) > 0 {
		data, err := parseOverrides(f.Set)
		if err != nil {
			return nil, &PathError{Code: ErrCodeGeneric, Path: "--set", Message: err.Error()}
		}
		opts = append(opts, los.WithData(data))
	}
	return opts, nil
}

// parseOverrides parses name=value pairs. Values are read as integer,
// then float, then bool, else kept as strings.
func parseOverrides(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid override %q: want name=value", pair)
		}
		out[name] = parseScalar(strings.TrimSpace(raw))
	}
	return out, nil
}

func parseScalar(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// commandError reports a command-level failure and returns the matching
// exit error.
func commandError(formatter *OutputFormatter, err error) error {
	code, message := ErrCodeGeneric, err.Error()
	var pe *PathError
	if errors.As(err, &pe) {
		code = pe.Code
		message = fmt.Sprintf("%s: %s", pe.Path, pe.Message)
	}
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// modelError reports pipeline diagnostics for a model and returns an
// ExitFailure error. Read failures are command errors.
func modelError(formatter *OutputFormatter, source string, err error) error {
	var pipe *los.PipelineError
	if errors.As(err, &pipe) && pipe.Stage == los.StageRead {
		return commandError(formatter, &PathError{Code: ErrCodeNotFound, Path: source, Message: pipe.Err.Error()})
	}
	diags := los.Diagnostics(err)
	if formatter.Format == "json" {
		errs := diagnosticErrors(source, diags)
		_ = writeJSON(formatter.Writer, CLIResponse{Status: "error", Error: &errs[0], Data: errs})
	} else {
		fmt.Fprintf(formatter.Writer, "%s %s\n", formatter.Mark(false), source)
		formatter.Diagnostics(source, diags)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %d diagnostic(s)", source, len(diags)))
}
