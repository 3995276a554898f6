// Package steps defines the certification steps the engine executes.
//
// A step is built once per workflow load from a [Descriptor] and is
// stateless afterwards: every call to [Step.Execute] reads the dossier it is
// given and reports success with a nil error. Identifiers bound to a built-in
// validator resolve to a [ValidationStep]; every other identifier becomes a
// generic [ScriptStep] that runs an external program.
//
// Key types:
//   - [Step] is the executable unit
//   - [Kind] tags the implementation chosen for a descriptor
//   - [Registry] maps step identifiers to factories
package steps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"certiflow/internal/dossier"
	"certiflow/internal/exec"
)

// ErrNoDossier is returned by the built-in steps when executed without a dossier.
var ErrNoDossier = errors.New("step requires a dossier")

// Kind identifies the implementation backing a step.
type Kind int

const (
	KindScript Kind = iota
	KindCheckExigences
	KindCheckMOP
	KindCheckPreuves
	KindGererRetours
	KindAnalyseRetours
	KindSoumettreDossier
)

var kindNames = map[Kind]string{
	KindScript:           "script",
	KindCheckExigences:   "check_exigences",
	KindCheckMOP:         "check_mop",
	KindCheckPreuves:     "check_preuves",
	KindGererRetours:     "gerer_retours",
	KindAnalyseRetours:   "analyse_retours",
	KindSoumettreDossier: "soumettre_dossier",
}

// String returns the kind name, "unknown" for out-of-range values.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Step is one unit of the certification workflow.
type Step interface {
	// ID returns the identifier declared in the workflow file.
	ID() string

	// Kind returns the implementation kind.
	Kind() Kind

	// Config returns the raw descriptor parameters, excluding id and script.
	Config() map[string]any

	// Execute runs the step against the dossier. A nil error means success.
	Execute(ctx context.Context, d *dossier.Dossier) error
}

// Descriptor is one entry of the workflow file's steps list.
type Descriptor struct {
	ID     string
	Script string

	// Params holds every other key of the entry, passed through untouched.
	Params map[string]any

	// BaseDir resolves relative script paths. Empty means the working directory.
	BaseDir string
}

// Deps carries the collaborators shared by every step of a workflow.
// Logger receives the script output; nil discards it.
type Deps struct {
	Runner      exec.Runner
	Interpreter string
	Logger      *slog.Logger
}

// Factory builds a step from its descriptor.
type Factory func(desc Descriptor, deps Deps) Step

// Invoke runs s and converts a panic into an error so that a faulty step
// fails like any other.
func Invoke(ctx context.Context, s Step, d *dossier.Dossier) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step %s panicked: %v\n%s", s.ID(), r, debug.Stack())
		}
	}()
	return s.Execute(ctx, d)
}

// GetConfigString extracts a string value from a step config.
func GetConfigString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetConfigStringSlice extracts a list of strings from a step config.
// A single string is returned as a one-element slice; other scalars are
// formatted with %v.
func GetConfigStringSlice(config map[string]any, key string) []string {
	v, ok := config[key]
	if !ok || v == nil {
		return nil
	}
	switch vals := v.(type) {
	case string:
		return []string{vals}
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return []string{fmt.Sprint(v)}
}
