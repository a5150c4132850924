package parser

import "fmt"

// ParseError reports malformed source. Parse errors are fatal to the
// compilation that produced them.
type ParseError struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Text    string `json:"text"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("parse error at %d:%d near %q: %s", e.Line, e.Column, e.Text, e.Message)
}
