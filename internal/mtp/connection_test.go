package mtp_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/twopane/twopane/internal/events"
	"github.com/twopane/twopane/internal/models"
	"github.com/twopane/twopane/internal/mtp"
	"github.com/twopane/twopane/internal/mtp/mtptest"
)

func newTestDevice(serial string) *mtptest.Device {
	return mtptest.NewDevice(serial, "Pixel "+serial, mtp.RawDevice{BusLocation: 1, DeviceNum: 4})
}

func TestScanReleasesEveryHandle(t *testing.T) {
	dev := newTestDevice("SER1")
	conn := mtp.NewConnection(mtptest.NewTransport(dev), nil, nil)

	found, err := conn.Scan()
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 device, got %d", len(found))
	}
	if dev.IsOpen() {
		t.Error("scan must not hold a handle past the call")
	}
	if dev.Opens() != dev.Releases() {
		t.Errorf("opens (%d) and releases (%d) must balance after scan", dev.Opens(), dev.Releases())
	}
	if conn.State() != mtp.StateDisconnected {
		t.Errorf("scan must not transition to connected, state is %s", conn.State())
	}
}

func TestScanReadsIdentityAndStorages(t *testing.T) {
	dev := newTestDevice("SER2")
	dev.AddStorage(0x20001, "SD card", 1<<35, 1<<34)
	conn := mtp.NewConnection(mtptest.NewTransport(dev), nil, nil)

	found, err := conn.Scan()
	if err != nil {
		t.Fatal(err)
	}
	info := found[0]
	if info.ID != "SER2" {
		t.Errorf("device ID should be the serial, got %s", info.ID)
	}
	if info.FriendlyName != "Pixel SER2" || info.Manufacturer == "" || info.Model == "" {
		t.Errorf("identity fields missing: %+v", info)
	}
	if len(info.Storages) != 2 {
		t.Errorf("expected 2 storage partitions, got %d", len(info.Storages))
	}
}

func TestScanNoDevicesIsNotAnError(t *testing.T) {
	conn := mtp.NewConnection(mtptest.NewTransport(), nil, nil)

	found, err := conn.Scan()
	if err != nil {
		t.Fatalf("empty scan should not error: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("expected no devices, got %d", len(found))
	}
	if conn.LastError() != nil {
		t.Errorf("lastError should stay unset, got %v", conn.LastError())
	}
}

func TestScanFallbackIdentity(t *testing.T) {
	dev := mtptest.NewDevice("", "NoSerial", mtp.RawDevice{BusLocation: 3, DeviceNum: 7})
	conn := mtp.NewConnection(mtptest.NewTransport(dev), nil, nil)

	found, err := conn.Scan()
	if err != nil {
		t.Fatal(err)
	}
	if found[0].ID != "usb:3-7" {
		t.Errorf("expected bus/device composite ID, got %s", found[0].ID)
	}
}

func TestConnectOpensSession(t *testing.T) {
	dev := newTestDevice("SER3")
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(events.EventDeviceConnected)
	conn := mtp.NewConnection(mtptest.NewTransport(dev), bus, nil)

	if err := conn.Connect("SER3"); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if conn.State() != mtp.StateConnected {
		t.Errorf("expected connected state, got %s", conn.State())
	}
	if !dev.IsOpen() {
		t.Error("session should hold the device handle")
	}
	active, ok := conn.ActiveDevice()
	if !ok || active.ID != "SER3" || len(active.Storages) == 0 {
		t.Errorf("active device wrong: %+v ok=%v", active, ok)
	}

	select {
	case ev := <-ch:
		de := ev.(*events.DeviceEvent)
		if de.DeviceID != "SER3" {
			t.Errorf("connected event for wrong device: %s", de.DeviceID)
		}
	default:
		t.Error("expected a connected event")
	}
}

func TestConnectMissingDevice(t *testing.T) {
	conn := mtp.NewConnection(mtptest.NewTransport(newTestDevice("SER4")), nil, nil)

	err := conn.Connect("GONE")
	if models.KindOf(err) != models.ErrDeviceNotPresent {
		t.Errorf("expected device_not_present, got %v", err)
	}
	if conn.State() != mtp.StateDisconnected {
		t.Errorf("failed connect must leave state disconnected, got %s", conn.State())
	}
	if conn.LastError() == nil {
		t.Error("lastError should be set after a failed connect")
	}
}

func TestConnectTwiceNeverOverlapsHandles(t *testing.T) {
	dev := newTestDevice("SER5")
	conn := mtp.NewConnection(mtptest.NewTransport(dev), nil, nil)

	if err := conn.Connect("SER5"); err != nil {
		t.Fatal(err)
	}
	// The fake transport fails any open while a handle is held, so a
	// second connect only succeeds if the first session was fully
	// released before the new handle was acquired.
	if err := conn.Connect("SER5"); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	if !dev.IsOpen() {
		t.Error("second session should be live")
	}
	if dev.Opens() != 2 || dev.Releases() != 1 {
		t.Errorf("expected 2 opens / 1 release, got %d / %d", dev.Opens(), dev.Releases())
	}
}

func TestConnectReleasesNonMatchingCandidates(t *testing.T) {
	devA := mtptest.NewDevice("AAA", "PhoneA", mtp.RawDevice{BusLocation: 1, DeviceNum: 1})
	devB := mtptest.NewDevice("BBB", "PhoneB", mtp.RawDevice{BusLocation: 1, DeviceNum: 2})
	conn := mtp.NewConnection(mtptest.NewTransport(devA, devB), nil, nil)

	if err := conn.Connect("BBB"); err != nil {
		t.Fatal(err)
	}
	if devA.IsOpen() {
		t.Error("partially matched candidate handle must be released")
	}
	if !devB.IsOpen() {
		t.Error("matched device should stay open")
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	dev := newTestDevice("SER6")
	conn := mtp.NewConnection(mtptest.NewTransport(dev), nil, nil)

	conn.Disconnect() // no session yet: still safe
	if err := conn.Connect("SER6"); err != nil {
		t.Fatal(err)
	}
	conn.Disconnect()
	conn.Disconnect()
	if dev.IsOpen() {
		t.Error("handle should be released")
	}
	if conn.State() != mtp.StateDisconnected {
		t.Errorf("expected disconnected, got %s", conn.State())
	}
	if dev.Releases() != 1 {
		t.Errorf("expected exactly 1 release, got %d", dev.Releases())
	}
}

func TestListChildrenRequiresSession(t *testing.T) {
	conn := mtp.NewConnection(mtptest.NewTransport(), nil, nil)
	_, err := conn.ListChildren(0x10001, models.RootObjectID)
	if models.KindOf(err) != models.ErrDeviceSessionUnavailable {
		t.Errorf("expected device_session_unavailable, got %v", err)
	}
}

func TestListChildrenSortedFromRoot(t *testing.T) {
	dev := newTestDevice("SER7")
	storage := dev.Storages[0].ID
	dev.AddFile(storage, mtptest.RootID, "zz.mp3", []byte("z"))
	dev.AddFolder(storage, mtptest.RootID, "DCIM")
	dev.AddFile(storage, mtptest.RootID, "Anthem.mp3", []byte("a"))
	dev.AddFolder(storage, mtptest.RootID, "android")

	conn := mtp.NewConnection(mtptest.NewTransport(dev), nil, nil)
	if err := conn.Connect("SER7"); err != nil {
		t.Fatal(err)
	}

	entries, err := conn.ListChildren(storage, models.RootObjectID)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"android", "DCIM", "Anthem.mp3", "zz.mp3"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, name := range want {
		if entries[i].Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, entries[i].Name)
		}
	}
	for _, e := range entries {
		if !e.Locator.IsDevice() || e.Locator.DeviceID != "SER7" {
			t.Errorf("entry %s carries wrong locator: %+v", e.Name, e.Locator)
		}
	}
}

func TestObjectIDRoundTrip(t *testing.T) {
	dev := newTestDevice("SER8")
	storage := dev.Storages[0].ID
	dev.AddFile(storage, mtptest.RootID, "track.mp3", []byte("audio-bytes"))

	conn := mtp.NewConnection(mtptest.NewTransport(dev), nil, nil)
	if err := conn.Connect("SER8"); err != nil {
		t.Fatal(err)
	}

	entries, err := conn.ListChildren(storage, models.RootObjectID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	// The listed object ID downloads the same object with no re-resolution.
	dest := filepath.Join(t.TempDir(), "track.mp3")
	if err := conn.Download(entries[0], dest, nil); err != nil {
		t.Fatalf("download failed: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil || string(got) != "audio-bytes" {
		t.Errorf("downloaded content wrong: %q, %v", got, err)
	}

	// And deletes it.
	if err := conn.DeleteObject(entries[0]); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	entries, err = conn.ListChildren(storage, models.RootObjectID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("object should be gone after delete, still have %d entries", len(entries))
	}
}

func TestUploadInvalidatesListing(t *testing.T) {
	dev := newTestDevice("SER9")
	storage := dev.Storages[0].ID
	conn := mtp.NewConnection(mtptest.NewTransport(dev), nil, nil)
	if err := conn.Connect("SER9"); err != nil {
		t.Fatal(err)
	}

	// Prime the listing cache with the empty root.
	if _, err := conn.ListChildren(storage, models.RootObjectID); err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(src, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	entry, err := conn.Upload(src, "note.txt", storage, models.RootObjectID, nil)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if entry.Name != "note.txt" || entry.Size != 5 {
		t.Errorf("upload entry wrong: %+v", entry)
	}

	entries, err := conn.ListChildren(storage, models.RootObjectID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "note.txt" {
		t.Errorf("fresh listing should show the upload, got %+v", entries)
	}
}

func TestCreateFolder(t *testing.T) {
	dev := newTestDevice("SERA")
	storage := dev.Storages[0].ID
	conn := mtp.NewConnection(mtptest.NewTransport(dev), nil, nil)
	if err := conn.Connect("SERA"); err != nil {
		t.Fatal(err)
	}

	folderID, err := conn.CreateFolder("Music", storage, models.RootObjectID)
	if err != nil {
		t.Fatal(err)
	}
	if folderID == 0 {
		t.Error("expected a non-zero object ID")
	}

	entries, err := conn.ListChildren(storage, models.RootObjectID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !entries[0].IsDir || entries[0].Locator.ObjectID != folderID {
		t.Errorf("folder listing wrong: %+v", entries)
	}
}

func TestUniqueNameOnDevice(t *testing.T) {
	dev := newTestDevice("SERB")
	storage := dev.Storages[0].ID
	dev.AddFile(storage, mtptest.RootID, "report.txt", []byte("1"))
	dev.AddFile(storage, mtptest.RootID, "report 1.txt", []byte("2"))

	conn := mtp.NewConnection(mtptest.NewTransport(dev), nil, nil)
	if err := conn.Connect("SERB"); err != nil {
		t.Fatal(err)
	}

	name, err := conn.UniqueName(storage, models.RootObjectID, "report.txt")
	if err != nil {
		t.Fatal(err)
	}
	if name != "report 2.txt" {
		t.Errorf("expected 'report 2.txt', got %q", name)
	}
}

func TestFailingCallDrainsErrorStack(t *testing.T) {
	dev := newTestDevice("SERC")
	storage := dev.Storages[0].ID
	conn := mtp.NewConnection(mtptest.NewTransport(dev), nil, nil)
	if err := conn.Connect("SERC"); err != nil {
		t.Fatal(err)
	}

	dev.ListErr = &mtp.TransportError{Op: "list", Code: mtp.CodeGeneralError}
	_, err := conn.ListChildren(storage, models.RootObjectID)
	if models.KindOf(err) != models.ErrTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	if drains := dev.Drains(); drains == 0 {
		t.Error("error stack must be drained after a failing call")
	}
	if pending := dev.PendingErrors(); len(pending) != 0 {
		t.Errorf("stale protocol errors left queued: %v", pending)
	}

	// A subsequent unrelated call succeeds without inherited errors.
	dev.ListErr = nil
	if _, err := conn.ListChildren(storage, models.RootObjectID); err != nil {
		t.Errorf("next call should not inherit the stale failure: %v", err)
	}
}

func TestTransportErrorClassification(t *testing.T) {
	dev := newTestDevice("SERD")
	storage := dev.Storages[0].ID
	src := filepath.Join(t.TempDir(), "big.bin")
	if err := os.WriteFile(src, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	conn := mtp.NewConnection(mtptest.NewTransport(dev), nil, nil)
	if err := conn.Connect("SERD"); err != nil {
		t.Fatal(err)
	}

	dev.SendErr = &mtp.TransportError{Op: "send", Code: mtp.CodeStoreFull}
	_, err := conn.Upload(src, "big.bin", storage, models.RootObjectID, nil)
	if models.KindOf(err) != models.ErrInsufficientSpace {
		t.Errorf("store-full should classify as insufficient_space, got %v", err)
	}

	missing := models.Entry{
		Name:    "ghost",
		Locator: models.DeviceLocator("SERD", storage, 9999, models.RootObjectID),
	}
	err = conn.Download(missing, filepath.Join(t.TempDir(), "ghost"), nil)
	if models.KindOf(err) != models.ErrNotFound {
		t.Errorf("invalid object handle should classify as not_found, got %v", err)
	}
}

func TestDownloadForWrongDevice(t *testing.T) {
	dev := newTestDevice("SERE")
	conn := mtp.NewConnection(mtptest.NewTransport(dev), nil, nil)
	if err := conn.Connect("SERE"); err != nil {
		t.Fatal(err)
	}

	foreign := models.Entry{
		Name:    "x",
		Locator: models.DeviceLocator("OTHER", 1, 2, models.RootObjectID),
	}
	err := conn.Download(foreign, filepath.Join(t.TempDir(), "x"), nil)
	if models.KindOf(err) != models.ErrDeviceSessionUnavailable {
		t.Errorf("expected device_session_unavailable, got %v", err)
	}
}
