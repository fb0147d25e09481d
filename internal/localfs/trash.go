package localfs

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/twopane/twopane/internal/models"
	"github.com/twopane/twopane/internal/util/paths"
)

// Delete moves a file or directory into the user trash rather than erasing
// it, following the freedesktop.org trash layout (files/ plus a matching
// .trashinfo record). Collisions inside the trash are disambiguated the
// same way destination names are.
func Delete(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return models.WrapFSError(path, err)
	}
	if _, err := os.Lstat(abs); err != nil {
		return models.WrapFSError(abs, err)
	}

	trash, err := trashDir()
	if err != nil {
		return models.WrapFSError(abs, err)
	}
	filesDir := filepath.Join(trash, "files")
	infoDir := filepath.Join(trash, "info")
	for _, d := range []string{filesDir, infoDir} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return models.WrapFSError(d, err)
		}
	}

	base := filepath.Base(abs)
	trashedName, ok := paths.FirstAvailable(base, func(candidate string) bool {
		_, err := os.Lstat(filepath.Join(filesDir, candidate))
		return err == nil
	})
	if !ok {
		return models.NewBackendError(models.ErrNameCollisionExhausted, abs, nil)
	}

	info := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		url.PathEscape(abs), time.Now().Format("2006-01-02T15:04:05"))
	infoPath := filepath.Join(infoDir, trashedName+".trashinfo")
	if err := os.WriteFile(infoPath, []byte(info), 0600); err != nil {
		return models.WrapFSError(infoPath, err)
	}

	dest := filepath.Join(filesDir, trashedName)
	if err := os.Rename(abs, dest); err != nil {
		// Trash lives on another filesystem; fall back to copy + remove.
		if copyErr := Copy(abs, dest, nil); copyErr != nil {
			os.Remove(infoPath)
			return copyErr
		}
		if rmErr := os.RemoveAll(abs); rmErr != nil {
			return models.WrapFSError(abs, rmErr)
		}
	}
	return nil
}

// trashDir returns the user trash directory, honoring XDG_DATA_HOME.
func trashDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "Trash"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "Trash"), nil
}
