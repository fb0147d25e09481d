package cli

import (
	"testing"

	"github.com/twopane/twopane/internal/models"
)

func TestIsDeviceArg(t *testing.T) {
	tests := []struct {
		arg  string
		want bool
	}{
		{"/home/user/file.txt", false},
		{"relative/path", false},
		{"mtp:SER123:65537:4294967295", true},
		{"mtp:SER123:65537:4294967295/IMG.jpg", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := isDeviceArg(tt.arg); got != tt.want {
			t.Errorf("isDeviceArg(%q) = %v, want %v", tt.arg, got, tt.want)
		}
	}
}

func TestSplitDeviceArg(t *testing.T) {
	loc, name, err := splitDeviceArg("mtp:SER123:65537:4294967295/IMG_0001.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if name != "IMG_0001.jpg" {
		t.Errorf("name: got %q", name)
	}
	if loc.DeviceID != "SER123" || loc.StorageID != 65537 || loc.ObjectID != models.RootObjectID {
		t.Errorf("locator wrong: %+v", loc)
	}
}

func TestSplitDeviceArgRejectsBadInput(t *testing.T) {
	bad := []string{
		"mtp:SER123:65537:4294967295",  // no name part
		"mtp:SER123:65537:4294967295/", // empty name
		"mtp:SER123:bogus:1/file.txt",  // unparsable storage ID
		"/local/path/file.txt",         // not a device locator
	}
	for _, arg := range bad {
		if _, _, err := splitDeviceArg(arg); err == nil {
			t.Errorf("splitDeviceArg(%q) should fail", arg)
		}
	}
}
