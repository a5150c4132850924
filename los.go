package los

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jowpereira/LOS/internal/binding"
	"github.com/jowpereira/LOS/internal/compiler"
	"github.com/jowpereira/LOS/internal/ir"
	"github.com/jowpereira/LOS/internal/run"
	"github.com/jowpereira/LOS/internal/solver"
	"github.com/jowpereira/LOS/internal/translate"
)

// Model is a compiled, not yet bound, LOS model. A Model is never
// mutated: every Solve binds a fresh copy, so one Model can be solved
// concurrently with different data.
type Model struct {
	ir      *ir.Model
	path    string
	baseDir string
}

// Compile parses and builds source text. Imports resolve against the
// working directory unless WithBaseDir is given.
func Compile(source string) (*Model, error) {
	m, err := compiler.Compile(source)
	if err != nil {
		return nil, compileError(err)
	}
	return &Model{ir: m}, nil
}

// CompileFile compiles a .los file. Imports resolve against the file's
// directory.
func CompileFile(path string) (*Model, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &PipelineError{Stage: StageRead, Err: err}
	}
	m, err := Compile(string(src))
	if err != nil {
		return nil, err
	}
	m.path = path
	m.baseDir = filepath.Dir(path)
	return m, nil
}

// Path returns the file the model was compiled from, or "".
func (m *Model) Path() string { return m.path }

// IR returns the built model.
func (m *Model) IR() *ir.Model { return m.ir }

// Fingerprint identifies the model's declared structure.
func (m *Model) Fingerprint() string {
	fp, err := ir.Fingerprint(m.ir)
	if err != nil {
		return ""
	}
	return fp
}

// Check binds and validates the model without solving it.
func (m *Model) Check(ctx context.Context, opts ...Option) error {
	_, err := m.prepare(ctx, newOptions(m, opts))
	return err
}

// Lower binds, validates and lowers the model.
func (m *Model) Lower(ctx context.Context, opts ...Option) (*translate.Artifact, error) {
	o := newOptions(m, opts)
	v, err := m.prepare(ctx, o)
	if err != nil {
		return nil, err
	}
	return lower(v, o)
}

// LP binds, validates and lowers the model, and returns the solver
// problem in CPLEX LP format.
func (m *Model) LP(ctx context.Context, opts ...Option) (string, error) {
	art, err := m.Lower(ctx, opts...)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := solver.WriteLP(&buf, art.Problem); err != nil {
		return "", fmt.Errorf("write lp: %w", err)
	}
	return buf.String(), nil
}

// Solve binds, validates, lowers and executes m. Pipeline failures are
// returned as a *PipelineError; solver outcomes are reported by
// Result.Status.
func Solve(ctx context.Context, m *Model, opts ...Option) (*Result, error) {
	o := newOptions(m, opts)
	v, err := m.prepare(ctx, o)
	if err != nil {
		return nil, err
	}
	art, err := lower(v, o)
	if err != nil {
		return nil, err
	}
	res := run.Execute(ctx, art, run.Options{
		TimeLimit: o.timeLimit,
		MaxNodes:  o.maxNodes,
		Tolerance: o.tolerance,
		Logger:    o.logger,
	})
	fp, _ := ir.Fingerprint(v)
	return newResult(res, art, fp), nil
}

// prepare runs binding and validation.
func (m *Model) prepare(ctx context.Context, o *options) (*ir.Model, error) {
	svc := binding.NewService(o.logger, o.baseDir)
	if len(o.loaders) > 0 {
		svc.Loaders = binding.DefaultLoaders()
		for ext, l := range o.loaders {
			svc.Loaders[ext] = l
		}
	}
	bound, err := svc.Bind(ctx, m.ir, o.sources, o.data)
	if err != nil {
		return nil, &PipelineError{Stage: StageBind, Err: err}
	}
	valid, err := compiler.Validate(bound)
	if err != nil {
		return nil, &PipelineError{Stage: StageValidate, Err: err}
	}
	return valid, nil
}

func lower(m *ir.Model, o *options) (*translate.Artifact, error) {
	art, err := translate.Lower(m, o.logger)
	if err != nil {
		return nil, &PipelineError{Stage: StageLower, Err: err}
	}
	return art, nil
}
