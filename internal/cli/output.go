package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	los "github.com/jowpereira/LOS"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Model failure (diagnostics, no solution, scenarios failed)
	ExitCommandError = 2 // Command error (invalid paths, unreadable data, audit database errors)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
	NoColor   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "B003", "V001", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "%s [%s]: %s\n", f.paint(color.FgRed, "Error"), code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// paint colors s for text output. fatih/color already disables itself
// when stdout is not a terminal.
func (f *OutputFormatter) paint(attr color.Attribute, s string) string {
	c := color.New(attr)
	if f.NoColor {
		c.DisableColor()
	}
	return c.Sprint(s)
}

// Mark returns the pass or fail marker used in text output.
func (f *OutputFormatter) Mark(ok bool) string {
	if ok {
		return f.paint(color.FgGreen, "✓")
	}
	return f.paint(color.FgRed, "✗")
}

// Diagnostics writes one line per diagnostic in compiler style:
//
//	model.los:3:7: B003 [build] duplicate declaration "x"
func (f *OutputFormatter) Diagnostics(source string, diags []los.Diagnostic) {
	for _, d := range diags {
		var loc strings.Builder
		loc.WriteString(source)
		if d.Line > 0 {
			fmt.Fprintf(&loc, ":%d:%d", d.Line, d.Column)
		}
		code := d.Code
		if code == "" {
			code = ErrCodeGeneric
		}
		msg := d.Message
		if d.Target != "" && !strings.Contains(msg, d.Target) {
			msg = fmt.Sprintf("%s (%s)", msg, d.Target)
		}
		fmt.Fprintf(f.Writer, "%s: %s [%s] %s\n",
			f.paint(color.Bold, loc.String()), f.paint(color.FgRed, code), d.Stage, msg)
	}
}

// diagnosticErrors converts diagnostics to CLI errors for JSON output.
func diagnosticErrors(source string, diags []los.Diagnostic) []CLIError {
	out := make([]CLIError, len(diags))
	for i, d := range diags {
		code := d.Code
		if code == "" {
			code = ErrCodeGeneric
		}
		out[i] = CLIError{Code: code, Message: d.Message, Details: diagnosticDetails{
			File:   source,
			Stage:  d.Stage,
			Line:   d.Line,
			Column: d.Column,
			Target: d.Target,
		}}
	}
	return out
}

type diagnosticDetails struct {
	File   string `json:"file,omitempty"`
	Stage  string `json:"stage,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
	Target string `json:"target,omitempty"`
}
