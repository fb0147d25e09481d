// Package models holds the backend-agnostic data model shared by the
// local and device backends: entries, locators, and the error taxonomy.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Backend identifies which backend owns a locator.
type Backend string

const (
	BackendLocal  Backend = "local"
	BackendDevice Backend = "device"
)

// RootObjectID is the sentinel parent/object ID meaning "the storage root"
// on a protocol device. Matches the PTP/MTP convention of 0xFFFFFFFF.
const RootObjectID uint32 = 0xFFFFFFFF

// Locator is a tagged reference to one browsable object. Exactly one of the
// two variants is populated, selected by Backend. Local and device locations
// are deliberately NOT unified into a single path string: a device "path"
// has no meaning without a live session's object graph, so every consumer
// must branch on the tag.
type Locator struct {
	Backend Backend

	// Local variant
	Path string

	// Device variant
	DeviceID       string
	StorageID      uint32
	ObjectID       uint32
	ParentObjectID uint32
}

// LocalLocator returns a locator for a local filesystem path.
func LocalLocator(path string) Locator {
	return Locator{Backend: BackendLocal, Path: path}
}

// DeviceLocator returns a locator for an object on a protocol device.
// Use RootObjectID as objectID to address a storage root.
func DeviceLocator(deviceID string, storageID, objectID, parentObjectID uint32) Locator {
	return Locator{
		Backend:        BackendDevice,
		DeviceID:       deviceID,
		StorageID:      storageID,
		ObjectID:       objectID,
		ParentObjectID: parentObjectID,
	}
}

// IsLocal reports whether the locator addresses the local filesystem.
func (l Locator) IsLocal() bool { return l.Backend == BackendLocal }

// IsDevice reports whether the locator addresses a protocol device.
func (l Locator) IsDevice() bool { return l.Backend == BackendDevice }

// IsStorageRoot reports whether a device locator addresses a storage root.
func (l Locator) IsStorageRoot() bool {
	return l.Backend == BackendDevice && l.ObjectID == RootObjectID
}

// String renders the locator for logs and CLI display.
// Local locators render as the bare path, device locators as
// "mtp:<deviceID>:<storageID>:<objectID>".
func (l Locator) String() string {
	if l.IsLocal() {
		return l.Path
	}
	return fmt.Sprintf("mtp:%s:%d:%d", l.DeviceID, l.StorageID, l.ObjectID)
}

// ParseLocator parses the CLI locator syntax produced by String.
// Anything without the "mtp:" prefix is treated as a local path.
func ParseLocator(s string) (Locator, error) {
	if !strings.HasPrefix(s, "mtp:") {
		return LocalLocator(s), nil
	}
	parts := strings.Split(strings.TrimPrefix(s, "mtp:"), ":")
	if len(parts) != 3 || parts[0] == "" {
		return Locator{}, fmt.Errorf("invalid device locator %q: want mtp:<device>:<storage>:<object>", s)
	}
	storageID, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Locator{}, fmt.Errorf("invalid storage ID in %q: %w", s, err)
	}
	objectID, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return Locator{}, fmt.Errorf("invalid object ID in %q: %w", s, err)
	}
	return DeviceLocator(parts[0], uint32(storageID), uint32(objectID), RootObjectID), nil
}
