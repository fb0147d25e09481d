package mtp

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bluele/gcache"

	"github.com/twopane/twopane/internal/events"
	"github.com/twopane/twopane/internal/logging"
	"github.com/twopane/twopane/internal/models"
	"github.com/twopane/twopane/internal/util/paths"
)

// State is the connection state machine position.
type State string

const (
	StateDisconnected State = "disconnected"
	StateScanning     State = "scanning"
	StateConnected    State = "connected"
)

// DeviceInfo is the observable summary of one detected device, produced by
// Scan without keeping any handle open.
type DeviceInfo struct {
	ID           string // serial number, or bus/device composite when absent
	FriendlyName string
	Manufacturer string
	Model        string
	Serial       string
	Raw          RawDevice
	Storages     []StorageInfo
}

// session is the live, exclusively-owned connection to one device. The
// native handle never leaves this package.
type session struct {
	deviceID string
	info     DeviceInfo
	handle   DeviceHandle
}

const (
	listingCacheSize = 128
	listingCacheTTL  = 30 * time.Second
)

// Connection owns the single active device session for the process. Every
// method serializes on one mutex: the native handle is not safe for
// concurrent callers, so browsing calls and transfer-worker calls take
// turns on the same boundary.
type Connection struct {
	mu        sync.Mutex
	transport Transport
	bus       *events.EventBus
	log       *logging.Logger

	state     State
	session   *session
	devices   []DeviceInfo
	lastError error

	// listings caches ListChildren results per (storage, parent) node.
	// Device enumeration is slow enough that re-listing on every
	// navigation is a real cost. Purged on any mutating call and on
	// session changes.
	listings gcache.Cache
}

// NewConnection creates a disconnected device backend over the given
// transport. bus may be nil when no observer is interested.
func NewConnection(transport Transport, bus *events.EventBus, log *logging.Logger) *Connection {
	if log == nil {
		log = logging.Nop()
	}
	return &Connection{
		transport: transport,
		bus:       bus,
		log:       log,
		state:     StateDisconnected,
		listings:  gcache.New(listingCacheSize).LRU().Expiration(listingCacheTTL).Build(),
	}
}

// State returns the current state machine position.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Devices returns the device list produced by the last Scan.
func (c *Connection) Devices() []DeviceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]DeviceInfo, len(c.devices))
	copy(out, c.devices)
	return out
}

// LastError returns the most recent scan/connect failure, or nil. A scan
// that finds zero devices is not an error and clears it.
func (c *Connection) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// ActiveDevice returns the connected device's info, if a session is open.
func (c *Connection) ActiveDevice() (DeviceInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return DeviceInfo{}, false
	}
	return c.session.info, true
}

// deviceID derives the stable identity for a device: its serial number,
// falling back to a bus/device-address composite.
func deviceID(raw RawDevice, serial string) string {
	if serial != "" {
		return serial
	}
	return fmt.Sprintf("usb:%d-%d", raw.BusLocation, raw.DeviceNum)
}

// Scan enumerates candidate devices. Each candidate is opened only long
// enough to read its identity and storage summary, then released before the
// next one — the transport allows one exclusive opener per physical device,
// and a handle held past this call would make later connects fail
// spuriously. Scan never transitions to Connected.
//
// Finding zero devices is a normal result: the list becomes empty and the
// error state is cleared.
func (c *Connection) Scan() ([]DeviceInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateScanning
	defer func() {
		if c.session != nil {
			c.state = StateConnected
		} else {
			c.state = StateDisconnected
		}
	}()

	raws, err := c.transport.Detect()
	if err != nil {
		c.lastError = models.NewBackendError(models.ErrTransport, "", err)
		c.publishDeviceError("", c.lastError)
		return nil, c.lastError
	}

	found := make([]DeviceInfo, 0, len(raws))
	for _, raw := range raws {
		info, ok := c.probe(raw)
		if !ok {
			continue
		}
		found = append(found, info)
	}

	c.devices = found
	c.lastError = nil
	c.publish(&events.DeviceEvent{
		BaseEvent: events.Base(events.EventDeviceListChanged),
		Count:     len(found),
	})
	c.log.Debug().Int("devices", len(found)).Msg("device scan finished")
	return append([]DeviceInfo(nil), found...), nil
}

// probe opens raw transiently and reads its identity. The handle is
// released on every path out, including failures mid-read.
func (c *Connection) probe(raw RawDevice) (DeviceInfo, bool) {
	// The device we hold a session on cannot be opened a second time;
	// report it from the session instead of probing.
	if c.session != nil && c.session.info.Raw == raw {
		return c.session.info, true
	}

	handle, err := c.transport.Open(raw)
	if err != nil {
		c.log.Debug().Err(err).Uint32("bus", raw.BusLocation).Msg("skipping unopenable device")
		return DeviceInfo{}, false
	}
	defer handle.Release()

	info := DeviceInfo{
		FriendlyName: handle.FriendlyName(),
		Manufacturer: handle.Manufacturer(),
		Model:        handle.Model(),
		Serial:       handle.SerialNumber(),
		Raw:          raw,
	}
	info.ID = deviceID(raw, info.Serial)

	storages, err := handle.Storages()
	if err != nil {
		handle.DrainErrors()
		c.log.Debug().Err(err).Str("device", info.ID).Msg("storage enumeration failed during scan")
		return DeviceInfo{}, false
	}
	info.Storages = storages
	return info, true
}

// Connect opens a session to the device identified by id. Any existing
// session is fully released first — two native handles are never held at
// once. The transport requires reopening from a fresh enumeration to get a
// working session, so candidates are re-detected here rather than reusing
// Scan results.
func (c *Connection) Connect(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked()

	raws, err := c.transport.Detect()
	if err != nil {
		c.lastError = models.NewBackendError(models.ErrTransport, "", err)
		c.publishDeviceError(id, c.lastError)
		return c.lastError
	}

	for _, raw := range raws {
		handle, err := c.transport.Open(raw)
		if err != nil {
			continue
		}

		info := DeviceInfo{
			FriendlyName: handle.FriendlyName(),
			Manufacturer: handle.Manufacturer(),
			Model:        handle.Model(),
			Serial:       handle.SerialNumber(),
			Raw:          raw,
		}
		info.ID = deviceID(raw, info.Serial)
		if info.ID != id {
			// Partially matched candidate: release before moving on.
			handle.Release()
			continue
		}

		storages, err := handle.Storages()
		if err != nil {
			handle.DrainErrors()
			handle.Release()
			c.lastError = c.wrapTransport("read storages", id, err)
			c.publishDeviceError(id, c.lastError)
			return c.lastError
		}
		info.Storages = storages

		c.session = &session{deviceID: id, info: info, handle: handle}
		c.state = StateConnected
		c.lastError = nil
		c.listings.Purge()
		c.publish(&events.DeviceEvent{
			BaseEvent: events.Base(events.EventDeviceConnected),
			DeviceID:  id,
			Name:      info.FriendlyName,
		})
		c.log.Info().Str("device", id).Str("name", info.FriendlyName).Msg("device connected")
		return nil
	}

	c.state = StateDisconnected
	c.lastError = models.NewBackendError(models.ErrDeviceNotPresent, id, nil)
	c.publishDeviceError(id, c.lastError)
	return c.lastError
}

// Disconnect releases the active session. Idempotent; safe from any state;
// always leaves the machine Disconnected.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
	c.state = StateDisconnected
}

// Close releases resources on process teardown.
func (c *Connection) Close() {
	c.Disconnect()
}

// releaseLocked drops the session if one exists. Caller holds c.mu.
func (c *Connection) releaseLocked() {
	if c.session == nil {
		return
	}
	id := c.session.deviceID
	c.session.handle.Release()
	c.session = nil
	c.state = StateDisconnected
	c.listings.Purge()
	c.publish(&events.DeviceEvent{
		BaseEvent: events.Base(events.EventDeviceDisconnected),
		DeviceID:  id,
	})
	c.log.Info().Str("device", id).Msg("device disconnected")
}

// requireSession returns the active session or a session-unavailable error.
// Caller holds c.mu.
func (c *Connection) requireSession() (*session, error) {
	if c.session == nil {
		return nil, models.NewBackendError(models.ErrDeviceSessionUnavailable, "", nil)
	}
	return c.session, nil
}

// ListChildren returns the children of (storageID, parentID) as sorted
// entries. models.RootObjectID as parentID lists the storage root.
func (c *Connection) ListChildren(storageID, parentID uint32) ([]models.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listChildrenLocked(storageID, parentID)
}

func (c *Connection) listChildrenLocked(storageID, parentID uint32) ([]models.Entry, error) {
	sess, err := c.requireSession()
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%d/%d", storageID, parentID)
	if cached, err := c.listings.Get(key); err == nil {
		entries := cached.([]models.Entry)
		return append([]models.Entry(nil), entries...), nil
	}

	objects, err := sess.handle.ListObjects(storageID, parentID)
	if err != nil {
		return nil, c.wrapTransport("list objects", sess.deviceID, err)
	}

	entries := make([]models.Entry, 0, len(objects))
	for _, obj := range objects {
		entries = append(entries, models.Entry{
			Name:    obj.Name,
			Size:    int64(obj.Size),
			IsDir:   obj.IsFolder,
			ModTime: obj.Modified,
			Locator: models.DeviceLocator(sess.deviceID, storageID, obj.ID, parentID),
		})
	}
	models.SortEntries(entries)

	_ = c.listings.Set(key, entries)
	return append([]models.Entry(nil), entries...), nil
}

// Download streams the object behind entry into destPath. progress may be
// nil; when given it receives byte counts from the transport.
func (c *Connection) Download(entry models.Entry, destPath string, progress ProgressFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, err := c.requireSession()
	if err != nil {
		return err
	}
	if !entry.Locator.IsDevice() || entry.Locator.DeviceID != sess.deviceID {
		return models.NewBackendError(models.ErrDeviceSessionUnavailable, entry.Locator.String(),
			errors.New("entry does not belong to the connected device"))
	}

	if err := sess.handle.GetObjectToFile(entry.Locator.ObjectID, destPath, progress); err != nil {
		os.Remove(destPath)
		return c.wrapTransport("download "+entry.Name, entry.Locator.String(), err)
	}
	return nil
}

// Upload sends the local file at srcPath to (storageID, parentID) under the
// given name and returns the entry for the new object.
func (c *Connection) Upload(srcPath, name string, storageID, parentID uint32, progress ProgressFunc) (models.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, err := c.requireSession()
	if err != nil {
		return models.Entry{}, err
	}
	info, err := os.Stat(srcPath)
	if err != nil {
		return models.Entry{}, models.WrapFSError(srcPath, err)
	}

	objectID, err := sess.handle.SendFileToObject(srcPath, name, storageID, parentID, progress)
	if err != nil {
		return models.Entry{}, c.wrapTransport("upload "+name, srcPath, err)
	}

	c.invalidateListing(storageID, parentID)
	return models.Entry{
		Name:    name,
		Size:    info.Size(),
		ModTime: time.Now(),
		Locator: models.DeviceLocator(sess.deviceID, storageID, objectID, parentID),
	}, nil
}

// DeleteObject removes the object behind entry from the device.
func (c *Connection) DeleteObject(entry models.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, err := c.requireSession()
	if err != nil {
		return err
	}
	if err := sess.handle.DeleteObject(entry.Locator.ObjectID); err != nil {
		return c.wrapTransport("delete "+entry.Name, entry.Locator.String(), err)
	}
	c.invalidateListing(entry.Locator.StorageID, entry.Locator.ParentObjectID)
	return nil
}

// CreateFolder creates a folder under (storageID, parentID) and returns the
// new object ID.
func (c *Connection) CreateFolder(name string, storageID, parentID uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, err := c.requireSession()
	if err != nil {
		return 0, err
	}
	objectID, err := sess.handle.CreateFolder(name, storageID, parentID)
	if err != nil {
		return 0, c.wrapTransport("create folder "+name, "", err)
	}
	c.invalidateListing(storageID, parentID)
	return objectID, nil
}

// UniqueName returns a collision-free variant of name among the children of
// (storageID, parentID), using the same numeric disambiguation the local
// backend applies.
func (c *Connection) UniqueName(storageID, parentID uint32, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.listChildrenLocked(storageID, parentID)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(entries))
	for _, e := range entries {
		taken[e.Name] = true
	}
	unique, ok := paths.FirstAvailable(name, func(candidate string) bool { return taken[candidate] })
	if !ok {
		return "", models.NewBackendError(models.ErrNameCollisionExhausted, name, nil)
	}
	return unique, nil
}

// invalidateListing drops the cached listing of one node. Caller holds c.mu.
func (c *Connection) invalidateListing(storageID, parentID uint32) {
	c.listings.Remove(fmt.Sprintf("%d/%d", storageID, parentID))
}

// wrapTransport classifies a failing transport call into the error taxonomy
// and drains the protocol error queue so stale errors cannot leak into the
// next unrelated operation. Caller holds c.mu with a live session.
func (c *Connection) wrapTransport(op, target string, err error) error {
	if c.session != nil {
		if drained := c.session.handle.DrainErrors(); len(drained) > 0 {
			c.log.Debug().Strs("errors", drained).Str("op", op).Msg("drained protocol error stack")
		}
	}

	var te *TransportError
	if errors.As(err, &te) {
		kind := models.ErrTransport
		switch te.Code {
		case CodeInvalidObjectHandle:
			kind = models.ErrNotFound
		case CodeStoreFull:
			kind = models.ErrInsufficientSpace
		}
		return &models.BackendError{Kind: kind, Path: target, Code: te.Code, Err: err}
	}
	return models.NewBackendError(models.ErrTransport, target, err)
}

func (c *Connection) publish(ev events.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}

func (c *Connection) publishDeviceError(id string, err error) {
	c.publish(&events.DeviceEvent{
		BaseEvent: events.Base(events.EventDeviceError),
		DeviceID:  id,
		Error:     err,
	})
}
