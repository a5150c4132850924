package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	los "github.com/jowpereira/LOS"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	ModelFlags
	Debounce time.Duration
}

// watchExts are the file kinds whose changes trigger a re-solve.
var watchExts = map[string]bool{
	ModelExt:   true,
	".csv":     true,
	".tsv":     true,
	".json":    true,
	".yaml":    true,
	".yml":     true,
	".cue":     true,
	".db":      true,
	".sqlite":  true,
	".sqlite3": true,
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <model.los>",
		Short: "Re-solve a model whenever it or its data changes",
		Long: `Solve a model, then watch the model file, its imports and any --data
files, and solve again after each change. Runs until interrupted.

Examples:
  losc watch plan.los
  losc watch plan.los --data costs.csv --debounce 500ms`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, args[0], cmd)
		},
	}

	opts.ModelFlags.register(cmd, true)
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "quiet period before re-solving")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return commandError(formatter, err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	watchDir := func(dir string) {
		dir = filepath.Clean(dir)
		if watched[dir] {
			return
		}
		if err := watcher.Add(dir); err != nil {
			logger.Warn("cannot watch directory", "dir", dir, "error", err)
			return
		}
		watched[dir] = true
		logger.Debug("watching", "dir", dir)
	}

	solveOnce := func(reason string) {
		if formatter.Format != "json" && reason != "" {
			fmt.Fprintf(formatter.Writer, "\n--- %s changed, solving again\n", reason)
		}
		for _, dir := range watchDirs(path, opts.ModelFlags) {
			watchDir(dir)
		}
		// Model and data errors are reported and the loop keeps watching.
		if err := solveWatched(ctx, opts, path, formatter); err != nil {
			logger.Debug("solve failed", "model", path, "error", err)
		}
	}

	solveOnce("")
	return watchLoop(ctx, watcher, opts.Debounce, logger.Warn, solveOnce)
}

// solveWatched runs one compile and solve cycle with fresh data.
func solveWatched(ctx context.Context, opts *WatchOptions, path string, formatter *OutputFormatter) error {
	pipeline, err := opts.ModelFlags.options(ctx, opts.RootOptions)
	if err != nil {
		return commandError(formatter, err)
	}
	m, err := los.CompileFile(path)
	if err != nil {
		return modelError(formatter, path, err)
	}
	res, err := los.Solve(ctx, m, pipeline...)
	if err != nil {
		return modelError(formatter, path, err)
	}
	return outputSolve(formatter, newSolveReport(path, res, false))
}

// watchDirs lists the directories holding the model, its imports and the
// data files. Imports are read from the model when it compiles.
func watchDirs(path string, flags ModelFlags) []string {
	dirs := []string{filepath.Dir(path)}
	for _, d := range flags.Data {
		dirs = append(dirs, filepath.Dir(d))
	}
	m, err := los.CompileFile(path)
	if err != nil {
		return dirs
	}
	base := flags.BaseDir
	if base == "" {
		base = filepath.Dir(path)
	}
	for _, imp := range m.IR().Imports {
		p := imp.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		dirs = append(dirs, filepath.Dir(p))
	}
	return dirs
}

// watchLoop calls onChange once per burst of relevant events, after
// debounce has passed without another one. It returns when ctx is done.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, warn func(string, ...any), onChange func(string)) error {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending string
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			pending = event.Name
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			onChange(pending)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			warn("watcher error", "error", err)
		}
	}
}

// relevant reports whether event changes a model or data file.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	return watchExts[strings.ToLower(filepath.Ext(event.Name))]
}
