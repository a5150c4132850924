package binding

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jowpereira/LOS/internal/compiler"
	"github.com/jowpereira/LOS/internal/ir"
)

// Loader reads a data file into one or more tables.
type Loader interface {
	Load(ctx context.Context, path string) ([]*Table, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) ([]*Table, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, path string) ([]*Table, error) {
	return f(ctx, path)
}

// DefaultLoaders returns the loaders keyed by lower-case file extension.
func DefaultLoaders() map[string]Loader {
	return map[string]Loader{
		".csv":     LoaderFunc(LoadCSV),
		".tsv":     LoaderFunc(LoadCSV),
		".json":    LoaderFunc(LoadYAML),
		".yaml":    LoaderFunc(LoadYAML),
		".yml":     LoaderFunc(LoadYAML),
		".cue":     LoaderFunc(LoadCUE),
		".db":      LoaderFunc(LoadSQLite),
		".sqlite":  LoaderFunc(LoadSQLite),
		".sqlite3": LoaderFunc(LoadSQLite),
	}
}

func (s *Service) loaderFor(path string) (Loader, bool) {
	loaders := s.Loaders
	if loaders == nil {
		loaders = DefaultLoaders()
	}
	l, ok := loaders[strings.ToLower(filepath.Ext(path))]
	return l, ok
}

// ResolveImport maps an import path onto the file system. Paths are
// relative to baseDir and may not leave it.
func ResolveImport(baseDir, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty import path")
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") || filepath.VolumeName(path) != "" {
		return "", fmt.Errorf("import path %q must be relative", path)
	}
	if baseDir == "" {
		baseDir = "."
	}
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve base directory: %w", err)
	}
	full := filepath.Join(base, filepath.FromSlash(path))
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("import path %q escapes %s", path, baseDir)
	}
	return full, nil
}

// loadImports loads every import into b.sources. Sources already
// supplied by the caller keep precedence over loaded tables. Load
// failures are recorded and binding continues so that all problems are
// reported together; only context cancellation aborts.
func (b *binder) loadImports(ctx context.Context, imports []ir.Import) error {
	for _, imp := range imports {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := compiler.ImportName(imp.Path, imp.Alias)
		path, err := ResolveImport(b.svc.BaseDir, imp.Path)
		if err != nil {
			b.errorf(ErrImport, name, "", "%v", err)
			continue
		}
		loader, ok := b.svc.loaderFor(path)
		if !ok {
			b.errorf(ErrImport, name, "", "no loader for %q files", filepath.Ext(path))
			continue
		}
		tables, err := loader.Load(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.errorf(ErrImport, name, "", "loading %s: %v", imp.Path, err)
			continue
		}
		if len(tables) == 1 {
			tables[0].Name = name
		}
		for _, t := range tables {
			if _, exists := b.sources[t.Name]; exists {
				b.log.Debug("source already supplied, skipping import", "source", t.Name, "path", imp.Path)
				continue
			}
			b.sources[t.Name] = t
			b.log.Debug("loaded source", "source", t.Name, "path", imp.Path, "rows", len(t.Rows), "columns", len(t.Columns))
		}
	}
	return nil
}
