package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	los "github.com/jowpereira/LOS"
	"github.com/jowpereira/LOS/internal/solver"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	ModelFlags
	Output string // output file path
}

// CompilationResult summarizes a lowered model.
type CompilationResult struct {
	Model       string `json:"model"`
	Fingerprint string `json:"fingerprint"`
	Columns     int    `json:"columns"`
	Rows        int    `json:"rows"`
	Integer     int    `json:"integer"`
	Output      string `json:"output,omitempty"`
	LP          string `json:"lp,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <model.los>",
		Short: "Compile a model to CPLEX LP format",
		Long: `Compile a LOS model through parse, build, data binding, validation and
lowering, and write the resulting solver problem in CPLEX LP format.

Without --output the LP text is written to stdout.

Examples:
  losc compile plan.los
  losc compile plan.los --data costs.csv -o plan.lp
  losc compile plan.los --set Demand=4 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	opts.ModelFlags.register(cmd, false)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	pipeline, err := opts.ModelFlags.options(ctx, opts.RootOptions)
	if err != nil {
		return commandError(formatter, err)
	}

	formatter.VerboseLog("Compiling %s", path)
	m, err := los.CompileFile(path)
	if err != nil {
		return modelError(formatter, path, err)
	}
	art, err := m.Lower(ctx, pipeline...)
	if err != nil {
		return modelError(formatter, path, err)
	}

	var buf bytes.Buffer
	if err := solver.WriteLP(&buf, art.Problem); err != nil {
		return commandError(formatter, err)
	}

	result := CompilationResult{
		Model:       path,
		Fingerprint: m.Fingerprint(),
		Columns:     art.Problem.NumColumns(),
		Rows:        art.Problem.NumRows(),
		Output:      opts.Output,
	}
	for i := range result.Columns {
		if art.Problem.Column(i).Integer {
			result.Integer++
		}
	}
	formatter.VerboseLog("Lowered to %d column(s), %d row(s)", result.Columns, result.Rows)

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, buf.Bytes(), 0644); err != nil {
			return commandError(formatter, &PathError{Code: ErrCodeWriteFailed, Path: opts.Output, Message: err.Error()})
		}
	} else {
		result.LP = buf.String()
	}

	return outputCompileSuccess(formatter, result)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result CompilationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if result.Output == "" {
		_, err := fmt.Fprint(formatter.Writer, result.LP)
		return err
	}

	fmt.Fprintf(formatter.Writer, "%s Compiled %s: %d column(s) (%d integer), %d row(s)\n",
		formatter.Mark(true), result.Model, result.Columns, result.Integer, result.Rows)
	fmt.Fprintf(formatter.Writer, "Wrote LP to %s\n", result.Output)
	return nil
}
