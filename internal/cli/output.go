// Package cli implements the squint command-line surface: a single default
// action (compile-and-emit, spec §6.1), a replay subcommand over the
// content-addressed session store, and validate/trace subcommands over the
// same pipeline. It follows the teacher's cobra conventions: an
// OutputFormatter for text/json/yaml rendering and an ExitError type
// carrying the process exit code.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Exit codes for the squint CLI (spec §6.1).
const (
	ExitSuccess    = 0
	ExitParseError = 1
	ExitOverlayErr = 2
	ExitIOError    = 3
)

// ExitError carries the exit code a command should terminate with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError builds an ExitError with no wrapped cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError builds an ExitError wrapping an underlying error.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code carried by err, defaulting to
// ExitParseError for any error not already classified.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitParseError
}

// OutputFormatter renders CLI results as text, JSON, or YAML.
type OutputFormatter struct {
	Format    string // "text" | "json" | "yaml"
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// Success writes data in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	switch f.Format {
	case "json":
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml":
		enc := yaml.NewEncoder(f.Writer)
		defer enc.Close()
		return enc.Encode(data)
	default:
		fmt.Fprintln(f.Writer, data)
		return nil
	}
}

// Error writes a diagnostic message to the configured error writer.
func (f *OutputFormatter) Error(message string) {
	fmt.Fprintf(f.GetErrWriter(), "squint: %s\n", message)
}

// VerboseLog writes a message only when Verbose is set.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
