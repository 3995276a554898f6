package validation

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"certiflow/internal/dossier"
)

// SoumettreDossier packages the dossier data directory into
// audit/dossier_soumission.zip, replacing any previous archive.
func SoumettreDossier(ctx context.Context, d *dossier.Dossier) error {
	dataDir := d.DataDir()
	info, err := os.Stat(dataDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("data directory not found: %s", dataDir)
	}

	archive, err := d.AuditPath(SubmissionArchiveFile)
	if err != nil {
		return err
	}
	if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove previous archive: %w", err)
	}

	if err := zipDir(ctx, dataDir, archive); err != nil {
		os.Remove(archive)
		return fmt.Errorf("failed to create archive: %w", err)
	}

	d.Logger().Info("archive generated", "path", archive)
	return nil
}

func zipDir(ctx context.Context, src, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	walkErr := filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel))
	})
	if walkErr != nil {
		zw.Close()
		return walkErr
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return out.Close()
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
