package engine

import (
	"errors"
	"fmt"

	"certiflow/internal/objective"
)

var (
	// ErrInvalidConfiguration indicates a missing or malformed workflow file.
	ErrInvalidConfiguration = errors.New("invalid workflow configuration")

	// ErrStepFailed indicates a step reported a failure. It is always
	// carried by a [*StepFailedError].
	ErrStepFailed = errors.New("step failed")

	// ErrUnknownStep is returned when a named step is not part of the workflow.
	ErrUnknownStep = errors.New("unknown step")

	// ErrUnknownObjective is returned when an objective id is not defined.
	ErrUnknownObjective = objective.ErrUnknownObjective
)

// StepFailedError reports which step failed for which dossier.
type StepFailedError struct {
	StepID    string
	DossierID string

	// Err is the error returned by the step, when available.
	Err error
}

// Error implements error.
func (e *StepFailedError) Error() string {
	msg := fmt.Sprintf("step %s failed for dossier %s", e.StepID, e.DossierID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns [ErrStepFailed] and the step's own error.
func (e *StepFailedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStepFailed}
	}
	return []error{ErrStepFailed, e.Err}
}
