// Package errors provides error handling conventions for the copa CLI.
//
// This package defines sentinel errors for the installer's failure kinds,
// an ExitError type for CLI exit code handling, and exit code constants.
//
// # Sentinel Errors
//
// Sentinel errors allow callers to check for specific failure kinds
// using [errors.Is]:
//
//	if errors.Is(err, copaerrors.ErrAlreadyInstalled) {
//	    // suggest --force
//	}
//
// # Exit Codes
//
// copa follows the original installer contract: exit 0 on success and
// exit 1 on any failure, regardless of kind.
//
// # ExitError
//
// [ExitError] wraps an underlying error with an exit code and an optional
// suggestion. It supports error unwrapping via [errors.Unwrap] and
// [errors.As]:
//
//	var exitErr *copaerrors.ExitError
//	if errors.As(err, &exitErr) {
//	    if exitErr.Suggestion != "" {
//	        fmt.Println("Suggestion:", exitErr.Suggestion)
//	    }
//	    os.Exit(exitErr.Code)
//	}
package errors
