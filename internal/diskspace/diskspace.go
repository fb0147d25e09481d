// Package diskspace provides utilities for checking available disk space
// before a transfer writes to a local destination.
package diskspace

import (
	"errors"
	"fmt"
	"math"
)

// InsufficientSpaceError indicates that there is not enough disk space available.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  uint64
	AvailableBytes uint64
}

func (e *InsufficientSpaceError) Error() string {
	requiredMB := float64(e.RequiredBytes) / (1024 * 1024)
	availableMB := float64(e.AvailableBytes) / (1024 * 1024)
	return fmt.Sprintf("insufficient disk space for %s: need %.2f MB, have %.2f MB available",
		e.Path, requiredMB, availableMB)
}

// IsInsufficientSpaceError checks if an error is an InsufficientSpaceError.
func IsInsufficientSpaceError(err error) bool {
	var target *InsufficientSpaceError
	return errors.As(err, &target)
}

// CheckAvailableSpace checks if there is sufficient disk space available for
// a file about to be written at targetPath. marginBytes is extra headroom the
// destination must keep free beyond the transfer itself.
//
// Returns an InsufficientSpaceError if there is not enough space, nil when
// there is or when the filesystem cannot be statted (network and virtual
// filesystems): in that case the operation proceeds and fails naturally.
func CheckAvailableSpace(targetPath string, requiredBytes, marginBytes uint64) error {
	availableBytes := GetAvailableSpace(targetPath)
	if availableBytes <= 0 {
		return nil
	}

	requiredWithMargin := requiredBytes + marginBytes
	if requiredWithMargin < requiredBytes {
		requiredWithMargin = math.MaxUint64
	}
	if uint64(availableBytes) < requiredWithMargin {
		return &InsufficientSpaceError{
			Path:           targetPath,
			RequiredBytes:  requiredWithMargin,
			AvailableBytes: uint64(availableBytes),
		}
	}
	return nil
}
