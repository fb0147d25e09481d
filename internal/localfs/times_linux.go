//go:build linux

package localfs

import (
	"os"
	"syscall"
	"time"
)

// extraTimes extracts access and change (best available stand-in for
// creation) times from the platform stat data. Returns zero times when the
// underlying type is unexpected.
func extraTimes(info os.FileInfo) (accessed, created time.Time) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	accessed = time.Unix(stat.Atim.Sec, stat.Atim.Nsec)
	created = time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
	return
}
