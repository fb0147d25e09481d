package diskspace

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func TestCheckAvailableSpaceSmallWriteFits(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.bin")
	if err := CheckAvailableSpace(target, 1, 0); err != nil {
		t.Errorf("one byte with no margin must fit: %v", err)
	}
}

func TestCheckAvailableSpaceMarginIsAdditive(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.bin")
	available := GetAvailableSpace(target)
	if available <= 0 {
		t.Skip("filesystem does not report free space")
	}

	// The transfer alone fits; adding the margin pushes the requirement
	// past what is free.
	free := uint64(available)
	err := CheckAvailableSpace(target, free/2, free)
	if !IsInsufficientSpaceError(err) {
		t.Fatalf("expected InsufficientSpaceError, got %v", err)
	}

	var ise *InsufficientSpaceError
	if !errors.As(err, &ise) {
		t.Fatal("error must unwrap to *InsufficientSpaceError")
	}
	if ise.RequiredBytes != free/2+free {
		t.Errorf("reported requirement must include the margin: got %d, want %d",
			ise.RequiredBytes, free/2+free)
	}
	if ise.AvailableBytes != free {
		t.Errorf("reported availability wrong: got %d, want %d", ise.AvailableBytes, free)
	}
}

func TestCheckAvailableSpaceOverflowingRequirementFails(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.bin")
	if GetAvailableSpace(target) <= 0 {
		t.Skip("filesystem does not report free space")
	}
	err := CheckAvailableSpace(target, math.MaxUint64, math.MaxUint64)
	if !IsInsufficientSpaceError(err) {
		t.Errorf("an overflowing requirement can never fit, got %v", err)
	}
}

func TestCheckAvailableSpaceUnstattableTargetIsAllowed(t *testing.T) {
	// The containing directory does not exist, so the filesystem cannot be
	// statted; the check lets the operation proceed and fail naturally.
	target := filepath.Join(t.TempDir(), "missing", "deeper", "out.bin")
	if err := CheckAvailableSpace(target, math.MaxUint64, 0); err != nil {
		t.Errorf("unstattable destination must not be rejected up front: %v", err)
	}
}
