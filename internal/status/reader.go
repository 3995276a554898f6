package status

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Reader reads dossier status from the marker file.
type Reader struct {
	basePath string
}

// NewReader creates a new [Reader] for the dossier rooted at basePath.
func NewReader(basePath string) *Reader {
	return &Reader{
		basePath: basePath,
	}
}

// Read returns the [Dossier] status stored in the marker file.
//
// Surrounding whitespace is ignored so hand-edited markers with a trailing
// newline remain readable. Returns an error if the file cannot be read or
// holds an unknown value.
func (r *Reader) Read() (Dossier, error) {
	data, err := os.ReadFile(filepath.Join(r.basePath, MarkerFile))
	if err != nil {
		return "", fmt.Errorf("failed to read dossier status: %w", err)
	}

	s, err := ParseDossier(strings.TrimSpace(string(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read dossier status: %w", err)
	}
	return s, nil
}

// Exists reports whether a marker file has been written.
func (r *Reader) Exists() bool {
	_, err := os.Stat(filepath.Join(r.basePath, MarkerFile))
	return err == nil
}
