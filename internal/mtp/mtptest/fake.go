// Package mtptest provides an in-memory Transport implementation for tests:
// a configurable set of fake devices with object graphs, failure injection,
// and strict enforcement of the one-exclusive-opener rule.
package mtptest

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/twopane/twopane/internal/models"
	"github.com/twopane/twopane/internal/mtp"
)

// Object is one node in a fake device's object graph.
type Object struct {
	ID       uint32
	ParentID uint32
	Name     string
	IsFolder bool
	Data     []byte
	Modified time.Time
}

// Device is one fake attached device.
type Device struct {
	Raw          mtp.RawDevice
	FriendlyName string
	Manufacturer string
	Model        string
	Serial       string
	Storages     []mtp.StorageInfo

	// Failure injection: when set, the corresponding handle call fails
	// with this error and pushes a message onto the error stack.
	ListErr   error
	GetErr    error
	SendErr   error
	DeleteErr error

	mu       sync.Mutex
	objects  map[uint32]map[uint32]*Object // storageID -> objectID -> object
	nextID   uint32
	open     bool
	opens    int // total successful opens
	releases int
	drains   int
	pending  []string // protocol error stack
}

// NewDevice builds a fake device with one storage partition.
func NewDevice(serial, friendlyName string, raw mtp.RawDevice) *Device {
	return &Device{
		Raw:          raw,
		FriendlyName: friendlyName,
		Manufacturer: "Acme",
		Model:        "TestPhone",
		Serial:       serial,
		Storages: []mtp.StorageInfo{
			{ID: 0x10001, Description: "Internal storage", Capacity: 1 << 34, FreeSpace: 1 << 33},
		},
		objects: make(map[uint32]map[uint32]*Object),
		nextID:  1,
	}
}

// AddStorage appends a storage partition.
func (d *Device) AddStorage(id uint32, description string, capacity, free uint64) {
	d.Storages = append(d.Storages, mtp.StorageInfo{
		ID: id, Description: description, Capacity: capacity, FreeSpace: free,
	})
}

// AddFolder inserts a folder object and returns its ID.
func (d *Device) AddFolder(storageID, parentID uint32, name string) uint32 {
	return d.addObject(storageID, &Object{ParentID: parentID, Name: name, IsFolder: true})
}

// AddFile inserts a file object and returns its ID.
func (d *Device) AddFile(storageID, parentID uint32, name string, data []byte) uint32 {
	return d.addObject(storageID, &Object{ParentID: parentID, Name: name, Data: data})
}

func (d *Device) addObject(storageID uint32, obj *Object) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.objects[storageID] == nil {
		d.objects[storageID] = make(map[uint32]*Object)
	}
	obj.ID = d.nextID
	if obj.Modified.IsZero() {
		obj.Modified = time.Now()
	}
	d.nextID++
	d.objects[storageID][obj.ID] = obj
	return obj.ID
}

// Object looks up an object by storage and ID.
func (d *Device) Object(storageID, objectID uint32) (*Object, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.objects[storageID][objectID]
	return obj, ok
}

// IsOpen reports whether a handle is currently held on this device.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Opens returns the number of successful opens so far.
func (d *Device) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// Releases returns the number of handle releases so far.
func (d *Device) Releases() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.releases
}

// Drains returns how many times the error stack was drained.
func (d *Device) Drains() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drains
}

// PendingErrors returns the current protocol error stack.
func (d *Device) PendingErrors() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.pending...)
}

func (d *Device) pushError(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, msg)
}

// Transport is an in-memory mtp.Transport over a fixed set of fake devices.
type Transport struct {
	mu        sync.Mutex
	devices   []*Device
	DetectErr error
}

// NewTransport builds a transport exposing the given devices.
func NewTransport(devices ...*Device) *Transport {
	return &Transport{devices: devices}
}

// SetDevices replaces the attached device set (simulates plug/unplug).
func (t *Transport) SetDevices(devices ...*Device) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.devices = devices
}

// Detect implements mtp.Transport.
func (t *Transport) Detect() ([]mtp.RawDevice, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.DetectErr != nil {
		return nil, t.DetectErr
	}
	raws := make([]mtp.RawDevice, len(t.devices))
	for i, d := range t.devices {
		raws[i] = d.Raw
	}
	return raws, nil
}

// Open implements mtp.Transport. Opening an already-open device fails with
// a busy response, mirroring the exclusive-opener behavior of real stacks.
func (t *Transport) Open(raw mtp.RawDevice) (mtp.DeviceHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, d := range t.devices {
		if d.Raw != raw {
			continue
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.open {
			return nil, &mtp.TransportError{Op: "open", Code: mtp.CodeDeviceBusy, Msg: "device already open"}
		}
		d.open = true
		d.opens++
		return &handle{dev: d}, nil
	}
	return nil, &mtp.TransportError{Op: "open", Code: mtp.CodeGeneralError, Msg: "no such device"}
}

// handle implements mtp.DeviceHandle against one fake device.
type handle struct {
	dev      *Device
	released bool
}

func (h *handle) FriendlyName() string { return h.dev.FriendlyName }
func (h *handle) Manufacturer() string { return h.dev.Manufacturer }
func (h *handle) Model() string        { return h.dev.Model }
func (h *handle) SerialNumber() string { return h.dev.Serial }

func (h *handle) Storages() ([]mtp.StorageInfo, error) {
	return append([]mtp.StorageInfo(nil), h.dev.Storages...), nil
}

func (h *handle) ListObjects(storageID, parentID uint32) ([]mtp.ObjectInfo, error) {
	if h.dev.ListErr != nil {
		h.dev.pushError(fmt.Sprintf("list %d/%d failed", storageID, parentID))
		return nil, h.dev.ListErr
	}
	h.dev.mu.Lock()
	defer h.dev.mu.Unlock()
	var out []mtp.ObjectInfo
	for _, obj := range h.dev.objects[storageID] {
		if obj.ParentID != parentID {
			continue
		}
		out = append(out, mtp.ObjectInfo{
			ID:        obj.ID,
			ParentID:  obj.ParentID,
			StorageID: storageID,
			Name:      obj.Name,
			Size:      uint64(len(obj.Data)),
			IsFolder:  obj.IsFolder,
			Modified:  obj.Modified,
		})
	}
	return out, nil
}

func (h *handle) GetObjectToFile(objectID uint32, destPath string, progress mtp.ProgressFunc) error {
	if h.dev.GetErr != nil {
		h.dev.pushError("get object failed")
		return h.dev.GetErr
	}
	h.dev.mu.Lock()
	var found *Object
	for _, storage := range h.dev.objects {
		if obj, ok := storage[objectID]; ok {
			found = obj
			break
		}
	}
	h.dev.mu.Unlock()
	if found == nil {
		h.dev.pushError("invalid object handle")
		return &mtp.TransportError{Op: "get", Code: mtp.CodeInvalidObjectHandle}
	}
	if err := os.WriteFile(destPath, found.Data, 0644); err != nil {
		return err
	}
	total := uint64(len(found.Data))
	if progress != nil {
		progress(total/2, total)
		progress(total, total)
	}
	return nil
}

func (h *handle) SendFileToObject(srcPath, name string, storageID, parentID uint32, progress mtp.ProgressFunc) (uint32, error) {
	if h.dev.SendErr != nil {
		h.dev.pushError("send object failed")
		return 0, h.dev.SendErr
	}
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return 0, err
	}
	id := h.dev.addObject(storageID, &Object{ParentID: parentID, Name: name, Data: data})
	total := uint64(len(data))
	if progress != nil {
		progress(total, total)
	}
	return id, nil
}

func (h *handle) DeleteObject(objectID uint32) error {
	if h.dev.DeleteErr != nil {
		h.dev.pushError("delete object failed")
		return h.dev.DeleteErr
	}
	h.dev.mu.Lock()
	defer h.dev.mu.Unlock()
	for _, storage := range h.dev.objects {
		if _, ok := storage[objectID]; ok {
			// Folders delete recursively, like real devices.
			doomed := []uint32{objectID}
			for len(doomed) > 0 {
				id := doomed[0]
				doomed = doomed[1:]
				delete(storage, id)
				for childID, obj := range storage {
					if obj.ParentID == id {
						doomed = append(doomed, childID)
					}
				}
			}
			return nil
		}
	}
	h.dev.pushError("invalid object handle")
	return &mtp.TransportError{Op: "delete", Code: mtp.CodeInvalidObjectHandle}
}

func (h *handle) CreateFolder(name string, storageID, parentID uint32) (uint32, error) {
	return h.dev.addObject(storageID, &Object{ParentID: parentID, Name: name, IsFolder: true}), nil
}

func (h *handle) DrainErrors() []string {
	h.dev.mu.Lock()
	defer h.dev.mu.Unlock()
	h.dev.drains++
	drained := h.dev.pending
	h.dev.pending = nil
	return drained
}

func (h *handle) Release() {
	h.dev.mu.Lock()
	defer h.dev.mu.Unlock()
	if h.released {
		return
	}
	h.released = true
	h.dev.open = false
	h.dev.releases++
}

// RootID re-exports the storage-root sentinel for test readability.
const RootID = models.RootObjectID
