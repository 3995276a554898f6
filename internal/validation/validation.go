// Package validation holds the built-in validators bound to the specialized
// certification steps.
//
// Each [Validator] reads CSV exports from the dossier's data directory,
// writes its findings to the audit directory and returns nil when the dossier
// passes. Findings are reported as errors wrapping [ErrNonCompliant]; a
// missing or malformed input file is reported as a plain error. Either way
// the step fails, and audit files written before the failure stay on disk.
//
// Key types:
//   - [Validator] is the callback signature shared by every built-in check
//   - [Builtin] maps step identifiers to their validator
package validation

import (
	"context"
	"errors"
	"fmt"

	"certiflow/internal/dossier"
	"certiflow/internal/tabular"
)

// ErrNonCompliant indicates the dossier content failed a validation rule.
var ErrNonCompliant = errors.New("dossier content is not compliant")

// Input files read from the dossier data directory.
const (
	ExigencesFile = "exigences.csv"
	MOPFile       = "mop.csv"
	PreuvesFile   = "preuves.csv"
	RetoursFile   = "retours.csv"
)

// Audit files written to the dossier audit directory.
const (
	ExigencesIncompletesFile = "exigences_incompletes.csv"
	MOPManquantsFile         = "mop_manquants.csv"
	PreuvesManquantesFile    = "preuves_manquantes.csv"
	ExigencesSansPreuvesFile = "exigences_sans_preuves.csv"
	RetoursCritiquesFile     = "retours_critiques.csv"
	RetoursTraitementFile    = "retours_traite_nontraite.csv"
	ImpactRetoursFile        = "impact_retours.csv"
	SyntheseRetoursFile      = "synthese_retours.csv"
	SubmissionArchiveFile    = "dossier_soumission.zip"
)

// Validator checks one aspect of a dossier.
type Validator func(ctx context.Context, d *dossier.Dossier) error

// Builtin returns the validator registered for a step identifier.
func Builtin(stepID string) (Validator, bool) {
	v, ok := builtins[stepID]
	return v, ok
}

var builtins = map[string]Validator{
	"check_exigences":   CheckExigences,
	"check_mop":         CheckMOP,
	"check_preuves":     CheckPreuves,
	"gerer_retours":     GererRetours,
	"analyse_retours":   AnalyseRetours,
	"soumettre_dossier": SoumettreDossier,
}

// readData loads an input table from the dossier data directory.
func readData(d *dossier.Dossier, name string) (*tabular.Table, error) {
	path, err := d.DataPath(name)
	if err != nil {
		return nil, err
	}
	return tabular.ReadFile(path)
}

// writeAudit writes a table to the dossier audit directory.
func writeAudit(d *dossier.Dossier, name string, t *tabular.Table) error {
	path, err := d.AuditPath(name)
	if err != nil {
		return err
	}
	if err := t.WriteFile(path); err != nil {
		return err
	}
	d.Logger().Info("audit file saved", "path", path, "rows", t.Len())
	return nil
}

// reportFindings writes findings when present and returns the matching error.
func reportFindings(d *dossier.Dossier, name, what string, findings *tabular.Table) error {
	if findings.Empty() {
		return nil
	}
	if err := writeAudit(d, name, findings); err != nil {
		return err
	}
	d.Logger().Warn(what, "count", findings.Len())
	return fmt.Errorf("%w: %s: %d", ErrNonCompliant, what, findings.Len())
}
