package validation

import (
	"context"
	"errors"
	"strings"

	"certiflow/internal/dossier"
	"certiflow/internal/tabular"
)

const (
	colApplicability = "Applicability"
	colJustification = "Justification non-applicabilité"
	colDesignProof   = "Preuve_conception"
	colTestProof     = "Preuve_test"
)

var (
	applicabilityPatterns    = []string{`^Applicabilit[ée]$`, `^Applicability$`}
	applicabilityAltPatterns = []string{`applicab`}
	mopPatterns              = []string{`^MOP$`}
	mopAltPatterns           = []string{`moyen.*preuve`}
	requirementPatterns      = []string{`^Exigences?$`, `^Requirement$`}
	requirementAltPatterns   = []string{`exig`, `^id$`, `^r[ée]f`}
)

// CheckExigences flags applicable requirements that lack a justification.
//
// Rows of exigences.csv whose Applicability is "Oui" and whose
// "Justification non-applicabilité" cell is empty are exported to
// exigences_incompletes.csv.
func CheckExigences(ctx context.Context, d *dossier.Dossier) error {
	t, err := readData(d, ExigencesFile)
	if err != nil {
		return err
	}
	if err := t.RequireColumns(colApplicability, colJustification); err != nil {
		return err
	}

	invalid := t.Filter(func(row []string) bool {
		return t.Value(row, colApplicability) == "Oui" && t.Value(row, colJustification) == ""
	})
	return reportFindings(d, ExigencesIncompletesFile, "non-compliant requirements", invalid)
}

// CheckMOP flags applicable requirements without a means of proof (MOP).
//
// Column names are matched tolerantly: the applicability column is
// "Applicabilité" or "Applicability" (or any header containing "applicab"),
// the MOP column is "MOP" (or any header matching "moyen.*preuve").
func CheckMOP(ctx context.Context, d *dossier.Dossier) error {
	t, err := readData(d, MOPFile)
	if err != nil {
		return err
	}
	appCol, err := t.FindColumn(applicabilityPatterns, applicabilityAltPatterns)
	if err != nil {
		return err
	}
	mopCol, err := t.FindColumn(mopPatterns, mopAltPatterns)
	if err != nil {
		return err
	}

	invalid := t.Filter(func(row []string) bool {
		return strings.EqualFold(t.Value(row, appCol), "oui") && t.Value(row, mopCol) == ""
	})
	return reportFindings(d, MOPManquantsFile, "missing MOP", invalid)
}

// CheckPreuves verifies design and test evidence for applicable requirements.
//
// Two findings are produced:
//   - preuves_manquantes.csv: applicable rows of preuves.csv missing either proof
//   - exigences_sans_preuves.csv: applicable requirements of exigences.csv
//     that never appear in preuves.csv
//
// Both checks always run so that every audit file is produced in one pass.
func CheckPreuves(ctx context.Context, d *dossier.Dossier) error {
	proofs, err := readData(d, PreuvesFile)
	if err != nil {
		return err
	}
	if err := proofs.RequireColumns(colApplicability, colDesignProof, colTestProof); err != nil {
		return err
	}
	requirements, err := readData(d, ExigencesFile)
	if err != nil {
		return err
	}

	missingProofs := proofs.Filter(func(row []string) bool {
		return proofs.Value(row, colApplicability) == "Oui" &&
			(proofs.Value(row, colDesignProof) == "" || proofs.Value(row, colTestProof) == "")
	})

	uncovered, err := requirementsWithoutProof(requirements, proofs)
	if err != nil {
		return err
	}

	return errors.Join(
		reportFindings(d, PreuvesManquantesFile, "missing evidence", missingProofs),
		reportFindings(d, ExigencesSansPreuvesFile, "requirements without evidence", uncovered),
	)
}

func requirementsWithoutProof(requirements, proofs *tabular.Table) (*tabular.Table, error) {
	reqCol, err := requirements.FindColumn(requirementPatterns, requirementAltPatterns)
	if err != nil {
		return nil, err
	}
	proofCol, err := proofs.FindColumn(requirementPatterns, requirementAltPatterns)
	if err != nil {
		return nil, err
	}
	appCol, err := requirements.FindColumn(applicabilityPatterns, applicabilityAltPatterns)
	if err != nil {
		return nil, err
	}

	covered := make(map[string]bool, proofs.Len())
	for _, row := range proofs.Rows {
		covered[proofs.Value(row, proofCol)] = true
	}

	return requirements.Filter(func(row []string) bool {
		return strings.EqualFold(requirements.Value(row, appCol), "oui") &&
			!covered[requirements.Value(row, reqCol)]
	}), nil
}
