package cli

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	los "github.com/jowpereira/LOS"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	ModelFlags
	FailFast bool
	Jobs     int
}

// CheckResult holds the outcome for one model.
type CheckResult struct {
	Model       string           `json:"model"`
	Valid       bool             `json:"valid"`
	Diagnostics []los.Diagnostic `json:"diagnostics,omitempty"`
}

// CheckReport holds the outcome for every checked model.
type CheckReport struct {
	Models  []CheckResult `json:"models"`
	Valid   int           `json:"valid"`
	Invalid int           `json:"invalid"`
	Total   int           `json:"total"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <model.los|dir>...",
		Short: "Bind and validate models without solving",
		Long: `Check LOS models through parse, build, data binding and validation
without lowering or solving them. Directories are searched recursively for
*.los files and models are checked in parallel.

Exit codes:
  0 - All models valid
  1 - One or more models have diagnostics
  2 - Command error (invalid paths, unreadable data)

Examples:
  losc check plan.los
  losc check ./models --fail-fast
  losc check ./models --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args, cmd)
		},
	}

	opts.ModelFlags.register(cmd, false)
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "stop at the first invalid model")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", runtime.GOMAXPROCS(0), "models checked in parallel")

	return cmd
}

func runCheck(opts *CheckOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	files, err := FindModels(paths)
	if err != nil {
		return commandError(formatter, err)
	}
	formatter.VerboseLog("Found %d model file(s)", len(files))

	pipeline, err := opts.ModelFlags.options(cmd.Context(), opts.RootOptions)
	if err != nil {
		return commandError(formatter, err)
	}

	mode := LoadModeCollectAll
	if opts.FailFast {
		mode = LoadModeFailFast
	}
	report, err := checkModels(cmd.Context(), files, pipeline, mode, opts.Jobs)
	if err != nil {
		return commandError(formatter, err)
	}

	if formatter.Format == "json" {
		status := "ok"
		if report.Invalid > 0 {
			status = "error"
		}
		if err := writeJSON(formatter.Writer, CLIResponse{Status: status, Data: report}); err != nil {
			return err
		}
	} else {
		for _, r := range report.Models {
			fmt.Fprintf(formatter.Writer, "%s %s\n", formatter.Mark(r.Valid), r.Model)
			formatter.Diagnostics(r.Model, r.Diagnostics)
		}
		fmt.Fprintf(formatter.Writer, "\n%d valid, %d invalid, %d total\n", report.Valid, report.Invalid, report.Total)
	}

	if report.Invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d model(s) invalid", report.Invalid, report.Total))
	}
	return nil
}

// checkModels checks files concurrently. Results keep the order of files.
// In fail-fast mode the first invalid model stops checks that have not
// started yet; only models checked so far are reported.
func checkModels(ctx context.Context, files []string, pipeline []los.Option, mode LoadMode, jobs int) (CheckReport, error) {
	results := make([]*CheckResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, file := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			r := checkModel(ctx, file, pipeline)
			results[i] = &r
			if !r.Valid && mode == LoadModeFailFast {
				return errStopCheck
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, errStopCheck) {
		return CheckReport{}, err
	}

	report := CheckReport{Models: []CheckResult{}}
	for _, r := range results {
		if r == nil {
			continue
		}
		report.Models = append(report.Models, *r)
		if r.Valid {
			report.Valid++
		} else {
			report.Invalid++
		}
	}
	report.Total = len(report.Models)
	return report, nil
}

var errStopCheck = errors.New("check stopped")

func checkModel(ctx context.Context, file string, pipeline []los.Option) CheckResult {
	m, err := los.CompileFile(file)
	if err == nil {
		err = m.Check(ctx, pipeline...)
	}
	if err != nil {
		return CheckResult{Model: file, Diagnostics: los.Diagnostics(err)}
	}
	return CheckResult{Model: file, Valid: true}
}
