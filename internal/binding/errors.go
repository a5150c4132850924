package binding

import (
	"fmt"
	"strings"
)

// Binding error codes (D001-D099).
const (
	ErrNoSource        = "D001" // no source provides the target column
	ErrDisjoint        = "D002" // source keys share no member with the index set
	ErrAmbiguous       = "D003" // conflicting values or columns for one target
	ErrMissingIndex    = "D004" // index tuple without value or default
	ErrInvalidOverride = "D005" // override value has the wrong shape
	ErrImport          = "D006" // import could not be resolved or loaded
	ErrFilter          = "D007" // filtered set condition failed to evaluate
)

// DataBindingError reports one set or parameter that could not be bound.
type DataBindingError struct {
	Code    string `json:"code"`
	Target  string `json:"target"`
	Index   string `json:"index,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *DataBindingError) Error() string {
	if e.Index != "" {
		return fmt.Sprintf("[%s] %s%s: %s", e.Code, e.Target, e.Index, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Target, e.Message)
}

// BindErrors collects every DataBindingError of one Bind call.
type BindErrors []*DataBindingError

// Error implements the error interface.
func (es BindErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("data binding failed with %d error(s):\n  %s", len(es), strings.Join(msgs, "\n  "))
}

// Unwrap exposes the individual errors to errors.As.
func (es BindErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}
