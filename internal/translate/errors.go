package translate

import (
	"fmt"

	"github.com/jowpereira/LOS/internal/ir"
)

// TranslationError reports an expression the lowering cannot express as
// a linear form. Validation is expected to have ruled most of these out.
type TranslationError struct {
	Pos     ir.Pos
	Context string // "objective" or a constraint instance label
	Message string
	Err     error
}

// Error implements the error interface.
func (e *TranslationError) Error() string {
	return fmt.Sprintf("translate %s at %s: %s", e.Context, e.Pos, e.Message)
}

// Unwrap returns the underlying evaluation error, if any.
func (e *TranslationError) Unwrap() error { return e.Err }
