package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/galapoto/todiscope-v3-sub003/internal/artifact"
	"github.com/galapoto/todiscope-v3-sub003/internal/checksum"
	"github.com/galapoto/todiscope-v3-sub003/internal/engine"
	"github.com/galapoto/todiscope-v3-sub003/internal/export"
	"github.com/galapoto/todiscope-v3-sub003/internal/ledger"
	"github.com/galapoto/todiscope-v3-sub003/internal/policy"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Integrity/validation failure in the data itself
	ExitCommandError = 2 // Command error (invalid paths, database not found, etc.)
)

// ExitError represents an error with a specific exit code.
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

func (e *ExitError) Unwrap() error {
	return e.Err
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

// ErrorCode maps a typed internal error to its stable machine-readable
// code. This is the single boundary where internal failures become
// wire-level codes; unknown errors collapse to "INTERNAL".
func ErrorCode(err error) string {
	var ie *checksum.IntegrityError
	if errors.As(err, &ie) {
		return string(ie.Code)
	}
	var se *artifact.StoreError
	if errors.As(err, &se) {
		return string(se.Code)
	}
	var ve *engine.ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	var pe *policy.PolicyError
	if errors.As(err, &pe) {
		return pe.Code
	}
	var we *export.ViewError
	if errors.As(err, &we) {
		return we.Code
	}
	if ledger.IsConflict(err) {
		return ledger.ErrCodeImmutableConflict
	}
	if ledger.IsNotFound(err) {
		return ledger.ErrCodeNotFound
	}
	return "INTERNAL"
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format. The message never
// carries internal detail beyond the stable code and summary; stack
// traces and payload contents stay out of boundary output.
func (f *OutputFormatter) Error(code, message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid
// corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
