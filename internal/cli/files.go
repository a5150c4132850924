package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ModelExt is the extension of LOS model files.
const ModelExt = ".los"

// LoadMode controls how errors are handled when checking many models.
type LoadMode int

const (
	// LoadModeFailFast stops on the first model with diagnostics.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll checks every model before returning.
	LoadModeCollectAll
)

// Error code constants - unified across all CLI commands. Model
// diagnostics carry their own pipeline codes (P001, B001, D001, V001, T001).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No model files found
	ErrCodeDataFailed  = "E004" // Data file could not be loaded
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeAuditFailed = "E006" // Audit database error
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeNoSolution  = "E008" // Solver finished without a solution
)

// PathError is a command-level error about an input path.
type PathError struct {
	Code    string
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
}

// FindModels expands files and directories into a sorted, de-duplicated
// list of model files. Directories are walked recursively for *.los files;
// files named explicitly are accepted whatever their extension.
func FindModels(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			return nil, &PathError{Code: ErrCodeNotFound, Path: p, Message: "no such file or directory"}
		}
		if err != nil {
			return nil, &PathError{Code: ErrCodeNotFound, Path: p, Message: err.Error()}
		}
		if !info.IsDir() {
			files = append(files, filepath.Clean(p))
			continue
		}
		found, err := findModelFiles(p)
		if err != nil {
			return nil, &PathError{Code: ErrCodeScanError, Path: p, Message: err.Error()}
		}
		files = append(files, found...)
	}
	slices.Sort(files)
	files = slices.Compact(files)
	if len(files) == 0 {
		return nil, &PathError{Code: ErrCodeNoFiles, Path: strings.Join(paths, ", "), Message: "no " + ModelExt + " files found"}
	}
	return files, nil
}

// findModelFiles walks the directory and returns all .los file paths.
func findModelFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ModelExt {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
