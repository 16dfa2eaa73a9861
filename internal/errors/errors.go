package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Exit codes. The installer reports every failure as ExitFailure; the
// distinction between failure kinds lives in the sentinel errors below.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitFailure indicates the command failed for any reason.
	ExitFailure = 1
)

// Sentinel errors for the installer's failure kinds. Each step of the
// install workflow fails with exactly one of these, wrapped with context
// via cockroachdb/errors.
var (
	// ErrInvalidTarget indicates the target path is missing or not a directory.
	ErrInvalidTarget = errors.New("invalid target directory")

	// ErrAlreadyInstalled indicates a prior installation exists and
	// --force was not given.
	ErrAlreadyInstalled = errors.New("installation already exists")

	// ErrBackup indicates the pre-install snapshot could not be created.
	ErrBackup = errors.New("backup failed")

	// ErrFetch indicates the bundle archive could not be downloaded.
	ErrFetch = errors.New("download failed")

	// ErrArchive indicates the downloaded archive is malformed or empty.
	ErrArchive = errors.New("invalid archive")

	// ErrInstall indicates expected bundle content was missing from the
	// archive or could not be copied into the target tree.
	ErrInstall = errors.New("install failed")
)

// ExitError wraps an error with an exit code and optional suggestion for
// the CLI driver. It implements the error interface and supports
// unwrapping via errors.Unwrap.
type ExitError struct {
	// Err is the underlying error that caused the exit.
	Err error

	// Code is the exit code to return to the operating system.
	Code int

	// Suggestion is an optional actionable suggestion for the user.
	Suggestion string
}

// NewExitError creates an ExitError with the given underlying error and code.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{
		Err:  err,
		Code: code,
	}
}

// NewUserError creates an ExitError with ExitFailure code and a suggestion.
func NewUserError(err error, suggestion string) *ExitError {
	return &ExitError{
		Err:        err,
		Code:       ExitFailure,
		Suggestion: suggestion,
	}
}

// NewConfigError creates an ExitError for configuration load failures.
func NewConfigError(err error) *ExitError {
	return &ExitError{
		Err:        err,
		Code:       ExitFailure,
		Suggestion: "Check your copa config file (config.yaml)",
	}
}

// Error returns the error message from the underlying error.
// If the underlying error is nil, it returns a generic message with the code.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error, enabling errors.Is and errors.As
// to examine the error chain.
func (e *ExitError) Unwrap() error {
	return e.Err
}
