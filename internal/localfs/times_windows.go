//go:build windows

package localfs

import (
	"os"
	"syscall"
	"time"
)

// extraTimes extracts access and creation times from the Win32 file data.
func extraTimes(info os.FileInfo) (accessed, created time.Time) {
	attr, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return
	}
	accessed = time.Unix(0, attr.LastAccessTime.Nanoseconds())
	created = time.Unix(0, attr.CreationTime.Nanoseconds())
	return
}
