// Package status defines the dossier and objective status models and the
// status marker file that records a dossier's last known status.
//
// Key types:
//   - [Dossier] is the status of a certification dossier
//   - [Objective] is the computed status of a certification objective
//   - [Writer] persists a [Dossier] status to the marker file
//   - [Reader] reads the marker file back
//
// The marker file is plain text holding exactly one [Dossier] value, located
// at [MarkerFile] under the dossier root and overwritten on every write.
package status

import "fmt"

// Dossier represents the workflow status of a certification dossier.
//
// Lifecycle:
//
//	en_preparation → en_cours → termine
//	                          ↘ echec
//	                          ↘ incomplet
type Dossier string

const (
	// DossierPreparation is the initial status of a freshly created dossier.
	DossierPreparation Dossier = "en_preparation"

	// DossierInProgress indicates a run is in progress.
	DossierInProgress Dossier = "en_cours"

	// DossierDone indicates every executed step succeeded and, in objective
	// mode, every required expected result exists.
	DossierDone Dossier = "termine"

	// DossierFailed indicates a step failed during the last run.
	DossierFailed Dossier = "echec"

	// DossierIncomplete indicates steps succeeded but an expected result is missing.
	DossierIncomplete Dossier = "incomplet"
)

// IsValid returns true if the status is one of the known dossier values.
func (s Dossier) IsValid() bool {
	switch s {
	case DossierPreparation, DossierInProgress, DossierDone, DossierFailed, DossierIncomplete:
		return true
	}
	return false
}

// IsTerminal returns true if the status is the outcome of a finished run.
func (s Dossier) IsTerminal() bool {
	switch s {
	case DossierDone, DossierFailed, DossierIncomplete:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Dossier) String() string {
	return string(s)
}

// DossierValues returns every dossier status in lifecycle order.
func DossierValues() []Dossier {
	return []Dossier{DossierPreparation, DossierInProgress, DossierDone, DossierFailed, DossierIncomplete}
}

// ParseDossier converts a raw marker value into a [Dossier] status.
func ParseDossier(raw string) (Dossier, error) {
	s := Dossier(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid dossier status: %q", raw)
	}
	return s, nil
}

// Objective represents the computed status of a certification objective.
//
// Lifecycle within one evaluation:
//
//	non_declenche → en_cours → atteint
//	              ↘ bloque   ↘ bloque
type Objective string

const (
	// ObjectiveNotTriggered is the initial status before evaluation.
	ObjectiveNotTriggered Objective = "non_declenche"

	// ObjectiveInProgress is the transient status while actions execute.
	ObjectiveInProgress Objective = "en_cours"

	// ObjectiveBlocked indicates unmet preconditions, a failed action or a
	// missing expected result.
	ObjectiveBlocked Objective = "bloque"

	// ObjectiveReached indicates every expected result holds after the actions ran.
	ObjectiveReached Objective = "atteint"

	// ObjectiveIncomplete is reserved for objectives whose evaluation was cut short.
	ObjectiveIncomplete Objective = "incomplet"
)

// IsValid returns true if the status is one of the known objective values.
func (s Objective) IsValid() bool {
	switch s {
	case ObjectiveNotTriggered, ObjectiveInProgress, ObjectiveBlocked, ObjectiveReached, ObjectiveIncomplete:
		return true
	}
	return false
}

// IsTerminal returns true if no further transition is possible within an evaluation.
func (s Objective) IsTerminal() bool {
	switch s {
	case ObjectiveBlocked, ObjectiveReached, ObjectiveIncomplete:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Objective) String() string {
	return string(s)
}

// rank orders objective statuses so transitions can only move forward.
func (s Objective) rank() int {
	switch s {
	case ObjectiveNotTriggered:
		return 0
	case ObjectiveInProgress:
		return 1
	case ObjectiveBlocked, ObjectiveReached, ObjectiveIncomplete:
		return 2
	}
	return -1
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
func (s Objective) CanAdvanceTo(next Objective) bool {
	if !next.IsValid() {
		return false
	}
	return next.rank() > s.rank()
}
