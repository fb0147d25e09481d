package queue

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/twopane/twopane/internal/diskspace"
	"github.com/twopane/twopane/internal/localfs"
	"github.com/twopane/twopane/internal/models"
	"github.com/twopane/twopane/internal/mtp"
)

// Runner executes transfers against the real backends: the local filesystem
// directly, devices through the connection's mutual-exclusion boundary, and
// device-to-device through a temporary local file, since the protocol offers
// no on-device copy.
type Runner struct {
	Conn *mtp.Connection
	// SafetyMargin is extra free space required beyond the transfer size
	// when writing to a local destination.
	SafetyMargin uint64
	// TempDir overrides the staging directory for device-to-device
	// transfers. Empty means the system default.
	TempDir string
}

// Resolve implements Executor.
func (r *Runner) Resolve(dest models.Locator, name string) (models.Locator, string, error) {
	if dest.IsLocal() {
		path, err := localfs.UniqueDestination(dest.Path, name)
		if err != nil {
			return models.Locator{}, "", err
		}
		return models.LocalLocator(path), filepath.Base(path), nil
	}
	unique, err := r.Conn.UniqueName(dest.StorageID, dest.ObjectID, name)
	if err != nil {
		return models.Locator{}, "", err
	}
	return dest, unique, nil
}

// Execute implements Executor. dest is the value Resolve returned: the full
// target path for local destinations, the parent node for device ones.
func (r *Runner) Execute(kind Kind, src models.Entry, dest models.Locator, destName string, progress func(float64)) error {
	switch {
	case src.Locator.IsLocal() && dest.IsLocal():
		return r.localToLocal(kind, src, dest.Path, progress)
	case src.Locator.IsDevice() && dest.IsLocal():
		return r.deviceToLocal(kind, src, dest.Path, progress)
	case src.Locator.IsLocal() && dest.IsDevice():
		return r.localToDevice(kind, src, dest, destName, progress)
	default:
		return r.deviceToDevice(kind, src, dest, destName, progress)
	}
}

func (r *Runner) localToLocal(kind Kind, src models.Entry, destPath string, progress func(float64)) error {
	size, err := localfs.TreeSize(src.Locator.Path)
	if err != nil {
		return err
	}
	if err := r.preflight(filepath.Dir(destPath), uint64(size)); err != nil {
		return err
	}

	byteProgress := func(copied, total int64) {
		if total > 0 {
			progress(float64(copied) / float64(total))
		}
	}
	if kind == KindMove {
		return localfs.Move(src.Locator.Path, destPath, byteProgress)
	}
	return localfs.Copy(src.Locator.Path, destPath, byteProgress)
}

func (r *Runner) deviceToLocal(kind Kind, src models.Entry, destPath string, progress func(float64)) error {
	if src.IsDir {
		return errFolderTransfer(src)
	}
	if err := r.preflight(filepath.Dir(destPath), uint64(src.Size)); err != nil {
		return err
	}
	if err := r.Conn.Download(src, destPath, scaled(progress, 0, 1)); err != nil {
		return err
	}
	if kind == KindMove {
		return r.Conn.DeleteObject(src)
	}
	return nil
}

func (r *Runner) localToDevice(kind Kind, src models.Entry, dest models.Locator, destName string, progress func(float64)) error {
	if src.IsDir {
		return errFolderTransfer(src)
	}
	_, err := r.Conn.Upload(src.Locator.Path, destName, dest.StorageID, dest.ObjectID, scaled(progress, 0, 1))
	if err != nil {
		return err
	}
	if kind == KindMove {
		// The bytes live on the device now; the local source goes away
		// permanently, matching a cross-filesystem move.
		if err := os.RemoveAll(src.Locator.Path); err != nil {
			return models.WrapFSError(src.Locator.Path, err)
		}
	}
	return nil
}

// deviceToDevice stages through a local temporary file: download into it,
// upload it to the destination node, then clean up. Progress spans the two
// halves 0-0.5 and 0.5-1.
func (r *Runner) deviceToDevice(kind Kind, src models.Entry, dest models.Locator, destName string, progress func(float64)) error {
	if src.IsDir {
		return errFolderTransfer(src)
	}

	staging, err := os.CreateTemp(r.TempDir, "twopane-transfer-*")
	if err != nil {
		return models.WrapFSError(r.TempDir, err)
	}
	stagingPath := staging.Name()
	staging.Close()
	defer os.Remove(stagingPath)

	if err := r.preflight(filepath.Dir(stagingPath), uint64(src.Size)); err != nil {
		return err
	}
	if err := r.Conn.Download(src, stagingPath, scaled(progress, 0, 0.5)); err != nil {
		return err
	}
	if _, err := r.Conn.Upload(stagingPath, destName, dest.StorageID, dest.ObjectID, scaled(progress, 0.5, 1)); err != nil {
		return err
	}
	if kind == KindMove {
		return r.Conn.DeleteObject(src)
	}
	return nil
}

// preflight verifies the local destination has room for the transfer plus
// the configured safety margin (additive bytes on top of the transfer size).
func (r *Runner) preflight(dir string, required uint64) error {
	err := diskspace.CheckAvailableSpace(dir, required, r.SafetyMargin)
	if diskspace.IsInsufficientSpaceError(err) {
		return models.NewBackendError(models.ErrInsufficientSpace, dir, err)
	}
	return err
}

// scaled adapts a device byte-progress callback onto the [lo,hi] slice of
// the operation's overall fraction.
func scaled(progress func(float64), lo, hi float64) mtp.ProgressFunc {
	return func(done, total uint64) {
		if total == 0 {
			return
		}
		progress(lo + (hi-lo)*float64(done)/float64(total))
	}
}

func errFolderTransfer(src models.Entry) error {
	return models.NewBackendError(models.ErrTransport, src.Locator.String(),
		errors.New("folder transfers to or from a device are not supported"))
}
