package steps

import (
	"context"
	"fmt"

	"certiflow/internal/dossier"
	"certiflow/internal/validation"
)

// ValidationStep is a specialized step bound to a built-in validator.
// A script configured on the descriptor replaces the validator.
type ValidationStep struct {
	*ScriptStep
	validate validation.Validator
}

func validationFactory(kind Kind, v validation.Validator) Factory {
	return func(desc Descriptor, deps Deps) Step {
		return &ValidationStep{
			ScriptStep: newScriptStep(kind, desc, deps),
			validate:   v,
		}
	}
}

// Execute runs the configured script, or the built-in validator when none is set.
func (s *ValidationStep) Execute(ctx context.Context, d *dossier.Dossier) error {
	if d == nil {
		return fmt.Errorf("%w: %s", ErrNoDossier, s.ID())
	}
	if s.Script() != "" {
		return s.ScriptStep.Execute(ctx, d)
	}
	return s.validate(ctx, d)
}
