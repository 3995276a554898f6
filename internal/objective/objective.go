// Package objective evaluates certification objectives.
//
// An objective groups steps behind a business goal: preconditions decide
// whether it can start, actions are the steps it runs, and expected results
// are the files that must exist once the actions succeed. Relative paths are
// resolved against the dossier root and may be doublestar glob patterns
// (audit/*.csv, data/**/preuve_*.pdf).
//
// Key types:
//   - [Objective] is one loaded definition together with its computed status
//   - [Manager] loads definitions and evaluates them in declaration order
//   - [Result] is the outcome of one evaluation
package objective

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"certiflow/internal/dossier"
	"certiflow/internal/status"
	"certiflow/internal/steps"
)

var (
	// ErrUnknownObjective is returned when an objective id is not defined.
	ErrUnknownObjective = errors.New("unknown objective")

	// ErrInvalidDefinitions indicates a malformed objectives file.
	ErrInvalidDefinitions = errors.New("invalid objective definitions")

	// ErrPreconditionsUnmet indicates a precondition is neither a known step nor an existing path.
	ErrPreconditionsUnmet = errors.New("preconditions not met")

	// ErrActionFailed indicates an action step failed.
	ErrActionFailed = errors.New("action failed")

	// ErrExpectedResultMissing indicates a required expected result does not exist.
	ErrExpectedResultMissing = errors.New("expected result missing")
)

// StepResolver looks up steps by identifier.
type StepResolver interface {
	Lookup(id string) (steps.Step, bool)
}

// StepRunner resolves and executes steps on behalf of an objective.
// Execute reports success; failures are logged by the runner.
type StepRunner interface {
	StepResolver
	Execute(ctx context.Context, s steps.Step, d *dossier.Dossier) bool
}

// RefKind tells how a precondition is checked.
type RefKind int

const (
	// RefAuto is a known step identifier when one exists, a path otherwise.
	RefAuto RefKind = iota
	// RefStep must be a known step identifier.
	RefStep
	// RefPath must be an existing path.
	RefPath
)

// Precondition is one entry of an objective's preconditions list.
//
// A plain string is a [RefAuto] reference; the mapping forms {step: id} and
// {path: p} force the kind.
type Precondition struct {
	Ref  string
	Kind RefKind
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Precondition) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*p = Precondition{Ref: node.Value, Kind: RefAuto}
		return nil
	case yaml.MappingNode:
		var raw struct {
			Step string `yaml:"step"`
			Path string `yaml:"path"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		switch {
		case raw.Step != "" && raw.Path == "":
			*p = Precondition{Ref: raw.Step, Kind: RefStep}
		case raw.Path != "" && raw.Step == "":
			*p = Precondition{Ref: raw.Path, Kind: RefPath}
		default:
			return fmt.Errorf("line %d: precondition needs exactly one of step or path", node.Line)
		}
		return nil
	}
	return fmt.Errorf("line %d: precondition must be a string or a mapping", node.Line)
}

// StepID returns the step identifier when the precondition resolves to a
// known step.
func (p Precondition) StepID(resolver StepResolver) (string, bool) {
	if p.Kind == RefPath || resolver == nil {
		return "", false
	}
	if _, ok := resolver.Lookup(p.Ref); ok {
		return p.Ref, true
	}
	return "", false
}

// Satisfied reports whether the precondition holds.
func (p Precondition) Satisfied(resolver StepResolver, baseDir string) bool {
	if _, ok := p.StepID(resolver); ok {
		return true
	}
	if p.Kind == RefStep {
		return false
	}
	return PathExists(baseDir, p.Ref)
}

// String returns the reference.
func (p Precondition) String() string {
	return p.Ref
}

// ExpectedResult is a file that must exist once the objective's actions ran.
// Entries with MustExist false are informational.
type ExpectedResult struct {
	Path      string
	MustExist bool
}

// UnmarshalYAML accepts {fichier, existe} and {file_path, must_exist}.
func (r *ExpectedResult) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected result must be a mapping", node.Line)
	}
	var raw struct {
		Fichier   string `yaml:"fichier"`
		FilePath  string `yaml:"file_path"`
		Existe    *bool  `yaml:"existe"`
		MustExist *bool  `yaml:"must_exist"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	r.Path = raw.Fichier
	if r.Path == "" {
		r.Path = raw.FilePath
	}
	if r.Path == "" {
		return fmt.Errorf("line %d: expected result without fichier", node.Line)
	}
	switch {
	case raw.Existe != nil:
		r.MustExist = *raw.Existe
	case raw.MustExist != nil:
		r.MustExist = *raw.MustExist
	}
	return nil
}

// Objective is a named certification goal.
type Objective struct {
	ID              string
	Name            string
	Description     string
	Criticality     string
	Preconditions   []Precondition
	Actions         []string
	ExpectedResults []ExpectedResult

	// Status is the outcome of the last evaluation.
	Status status.Objective
}

// FirstUnmet returns the first precondition that does not hold.
func (o *Objective) FirstUnmet(resolver StepResolver, baseDir string) (Precondition, bool) {
	for _, p := range o.Preconditions {
		if !p.Satisfied(resolver, baseDir) {
			return p, true
		}
	}
	return Precondition{}, false
}

// PreconditionsSatisfied reports whether every precondition holds,
// stopping at the first failure.
func (o *Objective) PreconditionsSatisfied(resolver StepResolver, baseDir string) bool {
	_, unmet := o.FirstUnmet(resolver, baseDir)
	return !unmet
}

// MissingResults returns the required expected results that do not exist.
func (o *Objective) MissingResults(baseDir string) []string {
	var missing []string
	for _, r := range o.ExpectedResults {
		if r.MustExist && !PathExists(baseDir, r.Path) {
			missing = append(missing, r.Path)
		}
	}
	return missing
}

// ExpectedResultsMet reports whether every required expected result exists.
func (o *Objective) ExpectedResultsMet(baseDir string) bool {
	return len(o.MissingResults(baseDir)) == 0
}

// PathExists reports whether p exists. Relative paths are resolved against
// baseDir. A path that does not exist literally is tried as a doublestar
// pattern and matches when at least one file does; baseDir itself is never
// read as a pattern.
func PathExists(baseDir, p string) bool {
	if p == "" {
		return false
	}
	full := p
	if !filepath.IsAbs(p) && baseDir != "" {
		full = filepath.Join(baseDir, p)
	}
	if _, err := os.Stat(full); err == nil {
		return true
	}
	if !strings.ContainsAny(p, "*?[{") {
		return false
	}
	if filepath.IsAbs(p) {
		matches, err := doublestar.FilepathGlob(p)
		return err == nil && len(matches) > 0
	}

	pattern := path.Clean(filepath.ToSlash(p))
	if !fs.ValidPath(pattern) {
		return false
	}
	root := baseDir
	if root == "" {
		root = "."
	}
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	return err == nil && len(matches) > 0
}
