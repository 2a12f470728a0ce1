package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"doccov/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(reportError(err))
	}
}

// exitError carries a specific process exit code. A nil err exits silently.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// reportError prints err and its suggested fixes to stderr and returns the exit code.
func reportError(err error) int {
	code := 1
	var ee *exitError
	if stderrors.As(err, &ee) {
		code = ee.code
		if ee.err == nil {
			return code
		}
		err = ee.err
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var de *errors.Error
	if stderrors.As(err, &de) {
		for _, fix := range de.SuggestedFixes {
			fmt.Fprintf(os.Stderr, "  hint: %s  # %s\n", fix.Command, fix.Description)
		}
	}
	return code
}
