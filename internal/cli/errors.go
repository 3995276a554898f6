package cli

import (
	"errors"
	"fmt"
)

// ExitError carries the process exit code of a failed command. Commands
// print their own diagnostics and return it; [RunWithApp] maps it onto
// [ExecuteResult.ExitCode].
type ExitError struct {
	// Code is 1 for a failed run (dossier echec), an unknown objective or
	// step, a blocked objective under evaluate, and configuration errors.
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewExitError creates an [ExitError] with the given exit code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

// IsExitError reports whether err is, or wraps, an [ExitError] and returns
// its code.
func IsExitError(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
