package localfs

import (
	"os"
	"path/filepath"

	"github.com/twopane/twopane/internal/util/paths"
)

// firstAvailableIn walks the numbered candidate names for name until one
// does not exist in dir.
func firstAvailableIn(dir, name string) (string, bool) {
	return paths.FirstAvailable(name, func(candidate string) bool {
		_, err := os.Lstat(filepath.Join(dir, candidate))
		return err == nil
	})
}
