package status

import (
	"fmt"
	"os"
	"path/filepath"
)

// MarkerFile is the name of the status marker file relative to the dossier root.
const MarkerFile = "statut.txt"

// Writer writes dossier status to the marker file.
type Writer struct {
	basePath string
}

// NewWriter creates a new Writer for the dossier rooted at basePath.
func NewWriter(basePath string) *Writer {
	return &Writer{
		basePath: basePath,
	}
}

// Path returns the full path of the marker file.
func (w *Writer) Path() string {
	return filepath.Join(w.basePath, MarkerFile)
}

// Write replaces the marker file content with the given status.
//
// Parent directories are created as needed. Writing the same status twice
// leaves the file byte-identical to a single write.
func (w *Writer) Write(s Dossier) error {
	if !s.IsValid() {
		return fmt.Errorf("invalid status: %s", s)
	}

	fullPath := w.Path()
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	// Write atomically (write to temp, then rename)
	tmpPath := fullPath + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(s), 0644); err != nil {
		return fmt.Errorf("failed to write dossier status: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		// Clean up temp file on rename failure
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write dossier status: %w", err)
	}

	return nil
}
