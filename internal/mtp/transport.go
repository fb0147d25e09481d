// Package mtp implements the device backend: the connection state machine
// over an MTP-style transport and the uniform entry view of a device's
// object graph. The wire protocol itself lives behind the Transport
// interface; this package is strictly a consumer of its primitives.
package mtp

import (
	"fmt"
	"time"
)

// RawDevice identifies an attached device at the transport layer, before
// any session exists. Bus location and device number form the fallback
// identity for devices that report no serial number.
type RawDevice struct {
	BusLocation uint32
	DeviceNum   uint8
	VendorID    uint16
	ProductID   uint16
}

// StorageInfo describes one logical storage partition on a device
// (internal memory, removable card).
type StorageInfo struct {
	ID          uint32
	Description string
	Capacity    uint64
	FreeSpace   uint64
}

// ObjectInfo describes one node in the device's object graph. Objects are
// keyed by ID and parent ID only; there is no path string.
type ObjectInfo struct {
	ID        uint32
	ParentID  uint32
	StorageID uint32
	Name      string
	Size      uint64
	IsFolder  bool
	Modified  time.Time // the only timestamp MTP devices reliably report
}

// PTP/MTP response codes surfaced by transports. Only the codes the backend
// classifies are named; everything else maps to a generic transport error.
const (
	CodeGeneralError        = 0x2002
	CodeInvalidObjectHandle = 0x2009
	CodeStoreFull           = 0x200C
	CodeDeviceBusy          = 0x2019
)

// TransportError is a failed transport call with its protocol response code.
type TransportError struct {
	Op   string
	Code int
	Msg  string
}

func (e *TransportError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: response 0x%04X: %s", e.Op, e.Code, e.Msg)
	}
	return fmt.Sprintf("%s: response 0x%04X", e.Op, e.Code)
}

// ProgressFunc reports object data transfer progress in bytes.
type ProgressFunc func(done, total uint64)

// DeviceHandle is one exclusive open on a raw device. The transport allows
// a single opener per physical device, so a handle must be released as soon
// as its owner is done with it — holding one blocks every other open
// attempt, including this process's own.
type DeviceHandle interface {
	// Identity fields, read from the device descriptor.
	FriendlyName() string
	Manufacturer() string
	Model() string
	SerialNumber() string

	// Storages enumerates the device's storage partitions.
	Storages() ([]StorageInfo, error)

	// ListObjects returns the children of (storageID, parentID).
	// models.RootObjectID as parentID addresses the storage root.
	ListObjects(storageID, parentID uint32) ([]ObjectInfo, error)

	// GetObjectToFile streams an object's data into a local file.
	GetObjectToFile(objectID uint32, destPath string, progress ProgressFunc) error

	// SendFileToObject uploads a local file as a new object named name
	// under (storageID, parentID) and returns the new object ID.
	SendFileToObject(srcPath, name string, storageID, parentID uint32, progress ProgressFunc) (uint32, error)

	// DeleteObject removes an object (recursively for folders).
	DeleteObject(objectID uint32) error

	// CreateFolder creates a folder object and returns its ID.
	CreateFolder(name string, storageID, parentID uint32) (uint32, error)

	// DrainErrors pops and returns every queued protocol error. Must be
	// called after any failing call so stale errors are not misattributed
	// to the next operation.
	DrainErrors() []string

	// Release closes the handle. Safe to call once only.
	Release()
}

// Transport enumerates raw devices and opens exclusive handles on them.
// Implementations wrap a native MTP stack; tests use the in-memory
// transport from the mtptest package.
type Transport interface {
	Detect() ([]RawDevice, error)
	Open(raw RawDevice) (DeviceHandle, error)
}
