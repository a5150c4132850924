package los

import (
	"log/slog"
	"os"
	"time"

	"github.com/jowpereira/LOS/internal/binding"
)

// Option configures Solve, Model.Check and Model.LP.
type Option func(*options)

type options struct {
	data      map[string]any
	sources   binding.Sources
	timeLimit time.Duration
	maxNodes  int
	tolerance float64
	verbosity int
	logger    *slog.Logger
	baseDir   string
	loaders   map[string]binding.Loader
}

// WithData supplies programmatic overrides keyed by set or parameter
// name. An override wins over every other source.
func WithData(data map[string]any) Option {
	return func(o *options) {
		if o.data == nil {
			o.data = make(map[string]any, len(data))
		}
		for k, v := range data {
			o.data[k] = v
		}
	}
}

// WithSources supplies in-memory tables keyed by logical source name.
func WithSources(sources Sources) Option {
	return func(o *options) {
		if o.sources == nil {
			o.sources = make(binding.Sources, len(sources))
		}
		for k, v := range sources {
			o.sources[k] = v
		}
	}
}

// WithTimeLimit bounds solver execution. Zero means no limit.
func WithTimeLimit(d time.Duration) Option {
	return func(o *options) { o.timeLimit = d }
}

// WithMaxNodes bounds the branch-and-bound search.
func WithMaxNodes(n int) Option {
	return func(o *options) { o.maxNodes = n }
}

// WithTolerance sets the simplex feasibility tolerance.
func WithTolerance(tol float64) Option {
	return func(o *options) { o.tolerance = tol }
}

// WithVerbosity logs pipeline progress to stderr: 1 for info, 2 or more
// for debug. Ignored when WithLogger is given.
func WithVerbosity(level int) Option {
	return func(o *options) { o.verbosity = level }
}

// WithLogger sets the logger used by every pipeline stage.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBaseDir sets the directory import paths resolve against,
// overriding the model file's directory.
func WithBaseDir(dir string) Option {
	return func(o *options) { o.baseDir = dir }
}

// WithLoader registers a table loader for a file extension such as ".xlsx".
func WithLoader(ext string, l binding.Loader) Option {
	return func(o *options) {
		if o.loaders == nil {
			o.loaders = make(map[string]binding.Loader)
		}
		o.loaders[ext] = l
	}
}

func newOptions(m *Model, opts []Option) *options {
	o := &options{baseDir: m.baseDir}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = verbosityLogger(o.verbosity)
	}
	if o.baseDir == "" {
		o.baseDir = "."
	}
	return o
}

func verbosityLogger(level int) *slog.Logger {
	switch {
	case level <= 0:
		return slog.Default()
	case level == 1:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
