// Package main is the entry point for the copa CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/thoreinstein/copa/cmd/copa/commands"
	copaerrors "github.com/thoreinstein/copa/internal/errors"
)

func main() {
	err := commands.Execute()
	if err == nil {
		os.Exit(copaerrors.ExitSuccess)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var exitErr *copaerrors.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Suggestion != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", exitErr.Suggestion)
		}
		os.Exit(exitErr.Code)
	}
	os.Exit(copaerrors.ExitFailure)
}
