// Package localfs implements the local (POSIX-path) storage backend:
// listing, copy, move, soft delete, directory creation, and collision-free
// destination naming. All failures are reported as models.BackendError.
package localfs

import (
	"io"
	"os"
	"path/filepath"

	"github.com/twopane/twopane/internal/models"
)

// copyBufferSize is the chunk size for copy loops; also the granularity of
// progress reporting.
const copyBufferSize = 128 * 1024

// ProgressFunc receives coarse byte-level progress during a copy.
type ProgressFunc func(copied, total int64)

// List returns the contents of a directory as backend-agnostic entries,
// directories first, case-insensitive name order within each group.
// Entries that cannot be statted (broken symlinks, permission races) are
// skipped rather than failing the whole listing.
func List(dir string, opts ListOptions) ([]models.Entry, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, models.WrapFSError(dir, err)
	}

	entries := make([]models.Entry, 0, len(dirents))
	for _, d := range dirents {
		name := d.Name()
		if !opts.IncludeHidden && IsHiddenName(name) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}

		entry := models.Entry{
			Name:    name,
			IsDir:   d.IsDir(),
			ModTime: info.ModTime(),
			Locator: models.LocalLocator(filepath.Join(dir, name)),
		}
		if !entry.IsDir {
			entry.Size = info.Size()
		}
		entry.AccessedAt, entry.CreatedAt = extraTimes(info)
		entries = append(entries, entry)
	}

	models.SortEntries(entries)
	return entries, nil
}

// Stat returns a single entry for path.
func Stat(path string) (models.Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.Entry{}, models.WrapFSError(path, err)
	}
	entry := models.Entry{
		Name:    info.Name(),
		IsDir:   info.IsDir(),
		ModTime: info.ModTime(),
		Locator: models.LocalLocator(path),
	}
	if !entry.IsDir {
		entry.Size = info.Size()
	}
	entry.AccessedAt, entry.CreatedAt = extraTimes(info)
	return entry, nil
}

// Copy copies a file or directory tree from src to dst. dst is the full
// destination path, not the containing directory. progress may be nil.
func Copy(src, dst string, progress ProgressFunc) error {
	info, err := os.Stat(src)
	if err != nil {
		return models.WrapFSError(src, err)
	}
	if info.IsDir() {
		return copyTree(src, dst, progress)
	}
	return copyFile(src, dst, info.Size(), progress)
}

func copyFile(src, dst string, total int64, progress ProgressFunc) error {
	in, err := os.Open(src)
	if err != nil {
		return models.WrapFSError(src, err)
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return models.WrapFSError(src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return models.WrapFSError(dst, err)
	}

	buf := make([]byte, copyBufferSize)
	var copied int64
	for {
		n, readErr := in.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				out.Close()
				os.Remove(dst)
				return models.WrapFSError(dst, writeErr)
			}
			copied += int64(n)
			if progress != nil {
				progress(copied, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			os.Remove(dst)
			return models.WrapFSError(src, readErr)
		}
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return models.WrapFSError(dst, err)
	}
	return nil
}

// copyTree recursively copies a directory. Progress is reported against the
// total byte size of the tree, computed up front.
func copyTree(src, dst string, progress ProgressFunc) error {
	total, err := TreeSize(src)
	if err != nil {
		return err
	}

	var done int64
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return models.WrapFSError(path, err)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return models.WrapFSError(path, err)
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			if err := os.MkdirAll(target, info.Mode().Perm()); err != nil {
				return models.WrapFSError(target, err)
			}
			return nil
		}

		base := done
		err = copyFile(path, target, info.Size(), func(copied, _ int64) {
			if progress != nil && total > 0 {
				progress(base+copied, total)
			}
		})
		if err != nil {
			return err
		}
		done += info.Size()
		return nil
	})
}

// TreeSize returns the total byte size of a file or directory tree.
func TreeSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, models.WrapFSError(path, err)
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable subtrees contribute nothing
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, nil
}

// Move renames src to dst, falling back to copy-then-delete when the rename
// crosses filesystems.
func Move(src, dst string, progress ProgressFunc) error {
	if err := os.Rename(src, dst); err == nil {
		if progress != nil {
			progress(1, 1)
		}
		return nil
	}
	// Cross-device rename. Copy then remove the source permanently — the
	// bytes live on in the destination, so trash semantics do not apply.
	if err := Copy(src, dst, progress); err != nil {
		return err
	}
	if err := os.RemoveAll(src); err != nil {
		return models.WrapFSError(src, err)
	}
	return nil
}

// Mkdir creates a single directory.
func Mkdir(path string) error {
	if err := os.Mkdir(path, 0755); err != nil {
		return models.WrapFSError(path, err)
	}
	return nil
}

// UniqueDestination returns a collision-free path for name inside dir,
// appending a numeric disambiguator before the extension ("report.txt" ->
// "report 1.txt") until no entry with that name exists. Returns a
// BackendError with ErrNameCollisionExhausted when every candidate is taken.
func UniqueDestination(dir, name string) (string, error) {
	candidate, ok := firstAvailableIn(dir, name)
	if !ok {
		return "", models.NewBackendError(models.ErrNameCollisionExhausted, filepath.Join(dir, name), nil)
	}
	return filepath.Join(dir, candidate), nil
}
