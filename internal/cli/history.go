package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	los "github.com/jowpereira/LOS"
	"github.com/jowpereira/LOS/internal/store"
)

// HistoryOptions holds flags for the history commands.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// RunSummary is one audited run as printed by history.
type RunSummary struct {
	ID          string          `json:"id"`
	Seq         int64           `json:"seq"`
	Source      string          `json:"source"`
	Fingerprint string          `json:"fingerprint"`
	Status      string          `json:"status"`
	Objective   float64         `json:"objective"`
	HasSolution bool            `json:"has_solution"`
	Nodes       int             `json:"nodes"`
	DurationMS  float64         `json:"duration_ms"`
	Message     string          `json:"message,omitempty"`
	Version     string          `json:"version,omitempty"`
	Values      []VariableValue `json:"values,omitempty"`
}

// NewHistoryCommand creates the history command and its show subcommand.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [model.los]",
		Short: "List runs recorded in the audit log",
		Long: `List runs recorded by "losc solve --audit", newest first. With a model
argument only runs of that model's structure (same fingerprint) are listed.

Examples:
  losc history
  losc history plan.los --limit 5
  losc history show 0192f3c1-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			model := ""
			if len(args) == 1 {
				model = args[0]
			}
			return runHistory(opts, model, cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "audit log path (default from config)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum runs to list (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:           "show <run-id>",
		Short:         "Show one recorded run with its variable values",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(opts, args[0], cmd)
		},
	})

	return cmd
}

// open opens the audit log. A missing database is a command error rather
// than an empty history, so a mistyped --db is noticed.
func (o *HistoryOptions) open() (*store.Store, error) {
	path := o.Database
	if path == "" {
		path = o.config().Audit.Path
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &PathError{Code: ErrCodeNotFound, Path: path, Message: "audit log not found"}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, &PathError{Code: ErrCodeAuditFailed, Path: path, Message: err.Error()}
	}
	return st, nil
}

func runHistory(opts *HistoryOptions, model string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	fingerprint := ""
	if model != "" {
		m, err := los.CompileFile(model)
		if err != nil {
			return modelError(formatter, model, err)
		}
		fingerprint = m.Fingerprint()
	}

	st, err := opts.open()
	if err != nil {
		return commandError(formatter, err)
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), fingerprint, opts.Limit)
	if err != nil {
		return commandError(formatter, &PathError{Code: ErrCodeAuditFailed, Path: "history", Message: err.Error()})
	}

	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = summarize(r)
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tSTATUS\tOBJECTIVE\tNODES\tSOURCE")
	for _, s := range summaries {
		obj := "-"
		if s.HasSolution {
			obj = fmt.Sprintf("%g", s.Objective)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", s.Seq, s.ID, s.Status, obj, s.Nodes, s.Source)
	}
	return tw.Flush()
}

func runHistoryShow(opts *HistoryOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.open()
	if err != nil {
		return commandError(formatter, err)
	}
	defer st.Close()

	r, err := st.ReadRun(cmd.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return commandError(formatter, &PathError{Code: ErrCodeNotFound, Path: id, Message: "run not found"})
	}
	if err != nil {
		return commandError(formatter, &PathError{Code: ErrCodeAuditFailed, Path: id, Message: err.Error()})
	}

	s := summarize(r)
	for _, v := range r.Values {
		index := make([]any, len(v.Index))
		for i, x := range v.Index {
			index[i] = x.Interface()
		}
		s.Values = append(s.Values, VariableValue{Name: v.Variable, Index: index, Value: v.Value})
	}

	if formatter.Format == "json" {
		return formatter.Success(s)
	}
	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (#%d)\n", s.ID, s.Seq)
	fmt.Fprintf(w, "  Source:      %s\n", s.Source)
	fmt.Fprintf(w, "  Fingerprint: %s\n", s.Fingerprint)
	fmt.Fprintf(w, "  Status:      %s\n", formatter.status(s.Status))
	if s.HasSolution {
		fmt.Fprintf(w, "  Objective:   %g\n", s.Objective)
	}
	fmt.Fprintf(w, "  Nodes:       %d\n", s.Nodes)
	fmt.Fprintf(w, "  Duration:    %s\n", time.Duration(s.DurationMS*float64(time.Millisecond)).Round(time.Microsecond))
	if s.Message != "" {
		fmt.Fprintf(w, "  Message:     %s\n", s.Message)
	}
	if s.Version != "" {
		fmt.Fprintf(w, "  Version:     %s\n", s.Version)
	}
	if len(s.Values) > 0 {
		fmt.Fprintln(w, "\nValues:")
		for _, v := range s.Values {
			fmt.Fprintf(w, "  %s = %g\n", variableLabel(v), v.Value)
		}
	}
	return nil
}

func summarize(r store.Run) RunSummary {
	return RunSummary{
		ID:          r.ID,
		Seq:         r.Seq,
		Source:      r.SourcePath,
		Fingerprint: r.Fingerprint,
		Status:      r.Status,
		Objective:   r.Objective,
		HasSolution: r.HasSolution,
		Nodes:       r.Nodes,
		DurationMS:  float64(r.Duration) / float64(time.Millisecond),
		Message:     r.Message,
		Version:     r.Version,
	}
}
