//go:build !linux && !windows

package localfs

import (
	"os"
	"time"
)

// extraTimes has no portable source on this platform; modification time is
// the only timestamp reported.
func extraTimes(_ os.FileInfo) (accessed, created time.Time) {
	return
}
