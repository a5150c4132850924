package compiler

import (
	"fmt"
	"strings"
)

// Build error codes (B001-B099).
const (
	ErrDuplicateDecl      = "B001" // set/param/var declared twice
	ErrMultipleObjectives = "B002" // more than one objective
	ErrDuplicateMember    = "B003" // literal set lists a member twice
	ErrInvalidRange       = "B004" // range bound or step not a positive-step integer
	ErrDeclarationCycle   = "B005" // sets/params depend on each other
	ErrDuplicateImport    = "B006" // two imports share a logical name
	ErrInvalidDomain      = "B007" // unknown variable domain
	ErrNonConstant        = "B008" // default or bound is not a constant
	ErrNameIndex          = "B009" // constraint name index is not an iterator
)

// BuildError reports a structurally invalid declaration.
type BuildError struct {
	Code    string `json:"code"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("[%s] %d:%d: %s", e.Code, e.Line, e.Column, e.Message)
}

// BuildErrors collects every BuildError found in one build.
type BuildErrors []*BuildError

// Error implements the error interface.
func (es BuildErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("build failed with %d error(s):\n  %s", len(es), strings.Join(msgs, "\n  "))
}

// Unwrap exposes the individual errors to errors.As.
func (es BuildErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}
