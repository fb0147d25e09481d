//go:build linux

package localfs

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/twopane/twopane/internal/models"
)

// pseudo filesystems excluded from the volume listing
var pseudoFSTypes = map[string]bool{
	"proc": true, "sysfs": true, "devtmpfs": true, "devpts": true,
	"tmpfs": true, "cgroup": true, "cgroup2": true, "securityfs": true,
	"debugfs": true, "tracefs": true, "pstore": true, "bpf": true,
	"configfs": true, "fusectl": true, "mqueue": true, "hugetlbfs": true,
	"autofs": true, "binfmt_misc": true, "overlay": true, "squashfs": true,
	"ramfs": true, "rpc_pipefs": true, "nsfs": true,
}

// Volumes enumerates mounted volumes as directory entries. The user home
// directory is always listed first; the rest come from /proc/self/mounts
// with pseudo filesystems filtered out.
func Volumes() ([]models.Entry, error) {
	var volumes []models.Entry

	if home, err := os.UserHomeDir(); err == nil {
		volumes = append(volumes, models.Entry{
			Name:    "Home",
			IsDir:   true,
			Locator: models.LocalLocator(home),
		})
	}

	f, err := os.Open("/proc/self/mounts")
	if err != nil {
		// No mount table; home alone is still a usable listing.
		return volumes, nil
	}
	defer f.Close()

	seen := map[string]bool{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mountPoint, fsType := fields[1], fields[2]
		if pseudoFSTypes[fsType] || seen[mountPoint] {
			continue
		}
		if strings.HasPrefix(mountPoint, "/proc") || strings.HasPrefix(mountPoint, "/sys") {
			continue
		}
		seen[mountPoint] = true

		name := filepath.Base(mountPoint)
		if mountPoint == "/" {
			name = "System"
		}
		// Mount points use octal escapes for spaces ("\040").
		name = strings.ReplaceAll(name, "\\040", " ")
		volumes = append(volumes, models.Entry{
			Name:    name,
			IsDir:   true,
			Locator: models.LocalLocator(strings.ReplaceAll(mountPoint, "\\040", " ")),
		})
	}
	return volumes, nil
}
