//go:build !linux

package localfs

import (
	"os"

	"github.com/twopane/twopane/internal/models"
)

// Volumes enumerates browsing roots. Without an OS mount table reader the
// listing is the user home plus the filesystem root.
func Volumes() ([]models.Entry, error) {
	var volumes []models.Entry
	if home, err := os.UserHomeDir(); err == nil {
		volumes = append(volumes, models.Entry{
			Name:    "Home",
			IsDir:   true,
			Locator: models.LocalLocator(home),
		})
	}
	volumes = append(volumes, models.Entry{
		Name:    "System",
		IsDir:   true,
		Locator: models.LocalLocator("/"),
	})
	return volumes, nil
}
