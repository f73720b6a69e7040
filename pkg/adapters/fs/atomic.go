package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// TempFilePrefix prefixes the temporary files of atomic writes. Listings
	// and watchers ignore them.
	TempFilePrefix = "docket-tmp-"
)

// writeFileAtomic writes data next to filename and renames it into place, so
// readers and watchers never observe a partially written document.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(filename), TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmpFile.Name()
	defer os.Remove(tmpName)

	_, err = tmpFile.Write(data)
	if err == nil {
		err = tmpFile.Sync()
	}
	if closeErr := tmpFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	return nil
}

// removeFile deletes filename, treating a missing file as success.
func removeFile(filename string) error {
	if err := os.Remove(filename); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
