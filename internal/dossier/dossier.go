// Package dossier models a project's certification folder and its status.
//
// A [Dossier] is created by the caller before any engine invocation. Its
// Status field is mutated by the engine at the end of a run and persisted to
// the status marker file through [status.Writer].
//
// Directory layout under the dossier root:
//
//	<root>/
//	├── data/        input documents read by validation steps
//	├── audit/       audit files and archives produced by steps
//	└── statut.txt   status marker
package dossier

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"certiflow/internal/status"
	"certiflow/internal/telemetry"
)

const (
	// DataDirName is the input directory name relative to the dossier root.
	DataDirName = "data"

	// AuditDirName is the output directory name relative to the dossier root.
	AuditDirName = "audit"
)

// Dossier is the unit of work: a project's certification folder and its
// current status.
type Dossier struct {
	// ID is the project identifier, used for logging.
	ID string

	// Root is the dossier root directory.
	Root string

	// Status is the current workflow status. Use [Dossier.SetStatus] to
	// change and persist it in one call.
	Status status.Dossier

	writer *status.Writer
	logger *slog.Logger
}

// New creates a dossier in the [status.DossierPreparation] status.
// A nil logger discards log output.
func New(id, root string, logger *slog.Logger) *Dossier {
	return &Dossier{
		ID:     id,
		Root:   root,
		Status: status.DossierPreparation,
		writer: status.NewWriter(root),
		logger: telemetry.WithDossierID(telemetry.OrDiscard(logger), id),
	}
}

// Load checks that the dossier root exists.
func (d *Dossier) Load() error {
	info, err := os.Stat(d.Root)
	if err != nil {
		d.logger.Error("dossier not found", "root", d.Root, "error", err)
		return fmt.Errorf("dossier not found: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("dossier root is not a directory: %s", d.Root)
	}
	d.logger.Info("dossier loaded", "root", d.Root)
	return nil
}

// PersistStatus writes the current status as the sole content of the marker file.
// Write failures are returned to the caller and never retried.
func (d *Dossier) PersistStatus() error {
	if err := d.writer.Write(d.Status); err != nil {
		d.logger.Error("status persistence failed", "status", d.Status, "error", err)
		return err
	}
	d.logger.Info("status saved", "status", d.Status)
	return nil
}

// SetStatus updates the status and persists it.
func (d *Dossier) SetStatus(s status.Dossier) error {
	if !s.IsValid() {
		return fmt.Errorf("invalid status: %s", s)
	}
	d.Status = s
	return d.PersistStatus()
}

// MarkerPath returns the path of the status marker file.
func (d *Dossier) MarkerPath() string {
	return d.writer.Path()
}

// DataDir returns the input directory of the dossier.
func (d *Dossier) DataDir() string {
	return filepath.Join(d.Root, DataDirName)
}

// AuditDir returns the output directory of the dossier.
func (d *Dossier) AuditDir() string {
	return filepath.Join(d.Root, AuditDirName)
}

// DataPath returns the path of an input file and fails if it does not exist.
func (d *Dossier) DataPath(name string) (string, error) {
	path := filepath.Join(d.DataDir(), name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("data file not found: %s", path)
	}
	return path, nil
}

// AuditPath returns the path of an output file, creating its parent directories.
func (d *Dossier) AuditPath(name string) (string, error) {
	path := filepath.Join(d.AuditDir(), name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create audit directory: %w", err)
	}
	return path, nil
}

// Resolve returns p unchanged when absolute, otherwise joined to the dossier root.
func (d *Dossier) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(d.Root, p)
}

// Logger returns the dossier's logger, annotated with its id.
func (d *Dossier) Logger() *slog.Logger {
	return d.logger
}
