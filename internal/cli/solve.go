package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	los "github.com/jowpereira/LOS"
	"github.com/jowpereira/LOS/internal/store"
)

// SolveOptions holds flags for the solve command.
type SolveOptions struct {
	*RootOptions
	ModelFlags
	Audit   bool
	AuditDB string
	LPOut   string
	All     bool // report zero-valued variables too

	// IDGenerator overrides audit run ids (for testing).
	IDGenerator store.IDGenerator
}

// SolveReport is the printable outcome of a solve.
type SolveReport struct {
	Model       string          `json:"model"`
	Status      string          `json:"status"`
	Objective   float64         `json:"objective"`
	HasSolution bool            `json:"has_solution"`
	Message     string          `json:"message,omitempty"`
	Nodes       int             `json:"nodes"`
	DurationMS  float64         `json:"duration_ms"`
	Fingerprint string          `json:"fingerprint"`
	Variables   []VariableValue `json:"variables"`
	RunID       string          `json:"run_id,omitempty"`
}

// VariableValue is one reported variable instance.
type VariableValue struct {
	Name  string  `json:"name"`
	Index []any   `json:"index,omitempty"`
	Value float64 `json:"value"`
}

// NewSolveCommand creates the solve command.
func NewSolveCommand(rootOpts *RootOptions) *cobra.Command {
	return newSolveCommand(&SolveOptions{RootOptions: rootOpts})
}

func newSolveCommand(opts *SolveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve <model.los>",
		Short: "Solve a model and report variable values",
		Long: `Solve a LOS model and print the solver status, objective value and
the non-zero variable values.

Runs can be recorded in a SQLite audit log with --audit; the log path
comes from --audit-db or the [audit] section of the config file.

Exit codes:
  0 - Solution found (optimal, or the incumbent at a limit)
  1 - Model diagnostics, or the solver found no solution
  2 - Command error (invalid paths, unreadable data, audit database)

Examples:
  losc solve plan.los
  losc solve plan.los --data costs.csv --data demand.yaml
  losc solve plan.los --time-limit 10s --audit
  losc solve plan.los --lp-out plan.lp --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(opts, args[0], cmd)
		},
	}

	opts.ModelFlags.register(cmd, true)
	cmd.Flags().BoolVar(&opts.Audit, "audit", false, "record the run in the audit log")
	cmd.Flags().StringVar(&opts.AuditDB, "audit-db", "", "audit log path (implies --audit)")
	cmd.Flags().StringVar(&opts.LPOut, "lp-out", "", "also write the lowered problem in CPLEX LP format")
	cmd.Flags().BoolVar(&opts.All, "all", false, "report zero-valued variables too")

	return cmd
}

func runSolve(opts *SolveOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	pipeline, err := opts.ModelFlags.options(ctx, opts.RootOptions)
	if err != nil {
		return commandError(formatter, err)
	}

	m, err := los.CompileFile(path)
	if err != nil {
		return modelError(formatter, path, err)
	}

	if opts.LPOut != "" {
		lp, err := m.LP(ctx, pipeline...)
		if err != nil {
			return modelError(formatter, path, err)
		}
		if err := os.WriteFile(opts.LPOut, []byte(lp), 0644); err != nil {
			return commandError(formatter, &PathError{Code: ErrCodeWriteFailed, Path: opts.LPOut, Message: err.Error()})
		}
		formatter.VerboseLog("Wrote LP to %s", opts.LPOut)
	}

	res, err := los.Solve(ctx, m, pipeline...)
	if err != nil {
		return modelError(formatter, path, err)
	}

	report := newSolveReport(path, res, opts.All)
	if opts.Audit || opts.AuditDB != "" || opts.config().Audit.Enabled {
		id, err := opts.record(ctx, m, res)
		if err != nil {
			return commandError(formatter, err)
		}
		report.RunID = id
	}

	if err := outputSolve(formatter, report); err != nil {
		return err
	}
	if !res.HasSolution() {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s: no solution", ErrCodeNoSolution, res.Status()))
	}
	return nil
}

// record writes the run to the audit log and returns its id.
func (o *SolveOptions) record(ctx context.Context, m *los.Model, res *los.Result) (string, error) {
	path := o.AuditDB
	if path == "" {
		path = o.config().Audit.Path
	}
	var storeOpts []store.Option
	if o.IDGenerator != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(o.IDGenerator))
	}
	st, err := store.Open(path, storeOpts...)
	if err != nil {
		return "", &PathError{Code: ErrCodeAuditFailed, Path: path, Message: err.Error()}
	}
	defer st.Close()

	run, err := st.WriteRun(ctx, store.NewRun(m.Path(), m.Fingerprint(), Version, res.Raw()))
	if err != nil {
		return "", &PathError{Code: ErrCodeAuditFailed, Path: path, Message: err.Error()}
	}
	o.logger().Info("run recorded", "id", run.ID, "seq", run.Seq, "db", path)
	return run.ID, nil
}

func newSolveReport(path string, res *los.Result, all bool) SolveReport {
	report := SolveReport{
		Model:       path,
		Status:      string(res.Status()),
		Objective:   res.Objective(),
		HasSolution: res.HasSolution(),
		Message:     res.Message(),
		Nodes:       res.Nodes(),
		DurationMS:  float64(res.Duration()) / float64(time.Millisecond),
		Fingerprint: res.Fingerprint(),
		Variables:   []VariableValue{},
	}
	if !res.HasSolution() {
		return report
	}
	for _, name := range res.Variables() {
		v := res.Variable(name)
		items := v.NonZero()
		if all {
			items = v.Items()
		}
		for _, it := range items {
			report.Variables = append(report.Variables, VariableValue{Name: name, Index: it.Index, Value: it.Value})
		}
	}
	return report
}

// outputSolve outputs the solve report.
func outputSolve(formatter *OutputFormatter, report SolveReport) error {
	if formatter.Format == "json" {
		status := "ok"
		if !report.HasSolution {
			status = "error"
		}
		return writeJSON(formatter.Writer, CLIResponse{Status: status, Data: report})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s %s: %s\n", formatter.Mark(report.HasSolution), report.Model, formatter.status(report.Status))
	if report.Message != "" {
		fmt.Fprintf(w, "  %s\n", report.Message)
	}
	if !report.HasSolution {
		return nil
	}
	fmt.Fprintf(w, "Objective: %g\n", report.Objective)
	if len(report.Variables) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Variables:")
		for _, v := range report.Variables {
			fmt.Fprintf(w, "  %s = %g\n", variableLabel(v), v.Value)
		}
	}
	if report.RunID != "" {
		fmt.Fprintf(w, "\nRecorded run %s\n", report.RunID)
	}
	return nil
}

// status colors a solver status by outcome.
func (f *OutputFormatter) status(s string) string {
	switch los.Status(s) {
	case los.StatusOptimal:
		return f.paint(color.FgGreen, s)
	case los.StatusTimeout:
		return f.paint(color.FgYellow, s)
	default:
		return f.paint(color.FgRed, s)
	}
}

func variableLabel(v VariableValue) string {
	if len(v.Index) == 0 {
		return v.Name
	}
	parts := make([]string, len(v.Index))
	for i, x := range v.Index {
		parts[i] = fmt.Sprint(x)
	}
	return v.Name + "[" + strings.Join(parts, ",") + "]"
}
