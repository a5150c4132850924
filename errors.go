package los

import (
	"errors"

	"github.com/jowpereira/LOS/internal/binding"
	"github.com/jowpereira/LOS/internal/compiler"
	"github.com/jowpereira/LOS/internal/parser"
	"github.com/jowpereira/LOS/internal/translate"
)

// Pipeline stages a PipelineError can come from.
const (
	StageRead     = "read"
	StageParse    = "parse"
	StageBuild    = "build"
	StageBind     = "bind"
	StageValidate = "validate"
	StageLower    = "lower"
)

// PipelineError reports the stage that stopped a compile or solve.
// Unwrap returns the stage's own typed error (*parser.ParseError,
// compiler.BuildErrors, binding.BindErrors, compiler.ValidationErrors
// or *translate.TranslationError).
type PipelineError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *PipelineError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error { return e.Err }

func compileError(err error) error {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		return &PipelineError{Stage: StageParse, Err: err}
	}
	return &PipelineError{Stage: StageBuild, Err: err}
}

// Diagnostic is one located problem, flattened from any stage's error.
type Diagnostic struct {
	Stage   string `json:"stage"`
	Code    string `json:"code,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Target  string `json:"target,omitempty"`
	Message string `json:"message"`
}

// Diagnostics flattens err into one Diagnostic per reported problem.
// Errors that are not pipeline errors yield a single diagnostic.
func Diagnostics(err error) []Diagnostic {
	if err == nil {
		return nil
	}
	stage := ""
	var pipe *PipelineError
	if errors.As(err, &pipe) {
		stage = pipe.Stage
	}

	var (
		parseErr *parser.ParseError
		build    compiler.BuildErrors
		bind     binding.BindErrors
		valid    compiler.ValidationErrors
		trans    *translate.TranslationError
	)
	switch {
	case errors.As(err, &parseErr):
		return []Diagnostic{{
			Stage: stage, Code: "P001", Line: parseErr.Line, Column: parseErr.Column,
			Target: parseErr.Text, Message: parseErr.Message,
		}}
	case errors.As(err, &build):
		out := make([]Diagnostic, len(build))
		for i, e := range build {
			out[i] = Diagnostic{Stage: stage, Code: e.Code, Line: e.Line, Column: e.Column, Message: e.Message}
		}
		return out
	case errors.As(err, &bind):
		out := make([]Diagnostic, len(bind))
		for i, e := range bind {
			out[i] = Diagnostic{Stage: stage, Code: e.Code, Target: e.Target + e.Index, Message: e.Message}
		}
		return out
	case errors.As(err, &valid):
		out := make([]Diagnostic, len(valid))
		for i, e := range valid {
			out[i] = Diagnostic{Stage: stage, Code: e.Rule, Line: e.Line, Column: e.Column, Message: e.Message}
		}
		return out
	case errors.As(err, &trans):
		return []Diagnostic{{
			Stage: stage, Code: "T001", Line: trans.Pos.Line, Column: trans.Pos.Column,
			Target: trans.Context, Message: trans.Message,
		}}
	default:
		return []Diagnostic{{Stage: stage, Message: err.Error()}}
	}
}

// Codes returns the diagnostic codes of err in report order.
func Codes(err error) []string {
	var codes []string
	for _, d := range Diagnostics(err) {
		if d.Code != "" {
			codes = append(codes, d.Code)
		}
	}
	return codes
}
