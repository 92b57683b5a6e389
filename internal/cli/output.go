package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Scenario failure, write failure, cancelled watch
	ExitCommandError = 2 // Command error (bad flags, unreadable files, store not openable)
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
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format. In text
// mode the data is printed as is.
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

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
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

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// EventRecord is one delivery printed by watch and demo.
type EventRecord struct {
	Event   string      `json:"event"`
	Query   string      `json:"query"`
	IDs     []int64     `json:"ids"`
	Diffs   []string    `json:"diffs"`
	Records []ir.Object `json:"records,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NewEventRecord flattens a delivery. Records are only printed in json mode.
func NewEventRecord(event, q string, records []ir.Object, diffs []store.Diff) EventRecord {
	rec := EventRecord{Event: event, Query: q, IDs: []int64{}, Diffs: make([]string, len(diffs)), Records: records}
	for _, r := range records {
		id, _ := store.RecordID(r)
		rec.IDs = append(rec.IDs, id)
	}
	for i, d := range diffs {
		rec.Diffs[i] = d.String()
	}
	return rec
}

// String renders the record on one line for text output.
func (r EventRecord) String() string {
	if r.Error != "" {
		return fmt.Sprintf("%-12s error=%q", r.Event, r.Error)
	}
	return fmt.Sprintf("%-12s ids=%v diffs=[%s]", r.Event, r.IDs, strings.Join(r.Diffs, " "))
}

// Event writes one delivery: a JSON object per line in json mode, one
// text line otherwise. Deliveries are streamed, so they are not wrapped
// in a CLIResponse.
func (f *OutputFormatter) Event(rec EventRecord) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(rec)
	}
	_, err := fmt.Fprintln(f.Writer, rec.String())
	return err
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
