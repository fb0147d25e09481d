package cli

import (
	"fmt"
	"strings"

	"github.com/twopane/twopane/internal/localfs"
	"github.com/twopane/twopane/internal/models"
)

// isDeviceArg reports whether a CLI location argument addresses a device.
func isDeviceArg(arg string) bool {
	return strings.HasPrefix(arg, "mtp:")
}

// splitDeviceArg parses "mtp:<device>:<storage>:<node>/<name>" into the node
// locator and the trailing name. The name part is required; device files and
// folders are always addressed relative to their parent node, because object
// IDs alone carry no name.
func splitDeviceArg(arg string) (models.Locator, string, error) {
	i := strings.LastIndexByte(arg, '/')
	if i < 0 || i == len(arg)-1 {
		return models.Locator{}, "", fmt.Errorf("device argument %q must be <node-locator>/<name>", arg)
	}
	loc, err := models.ParseLocator(arg[:i])
	if err != nil {
		return models.Locator{}, "", err
	}
	if !loc.IsDevice() {
		return models.Locator{}, "", fmt.Errorf("%q is not a device locator", arg[:i])
	}
	return loc, arg[i+1:], nil
}

// resolveDeviceEntry connects to the device named in a "<node>/<name>"
// argument and finds the child entry with that name.
func resolveDeviceEntry(app *app, arg string) (models.Entry, error) {
	parent, name, err := splitDeviceArg(arg)
	if err != nil {
		return models.Entry{}, err
	}
	if err := app.ensureConnected(parent.DeviceID); err != nil {
		return models.Entry{}, err
	}
	entries, err := app.conn.ListChildren(parent.StorageID, parent.ObjectID)
	if err != nil {
		return models.Entry{}, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, nil
		}
	}
	return models.Entry{}, models.NewBackendError(models.ErrNotFound, arg, nil)
}

// resolveSourceEntry maps one source argument to an entry: a stat for local
// paths, a parent listing lookup for device arguments.
func resolveSourceEntry(app *app, arg string) (models.Entry, error) {
	if isDeviceArg(arg) {
		return resolveDeviceEntry(app, arg)
	}
	return localfs.Stat(arg)
}

// parseDestination maps the destination argument to a directory/node
// locator, connecting the device session when needed.
func parseDestination(app *app, arg string) (models.Locator, error) {
	loc, err := models.ParseLocator(arg)
	if err != nil {
		return models.Locator{}, err
	}
	if loc.IsDevice() {
		if err := app.ensureConnected(loc.DeviceID); err != nil {
			return models.Locator{}, err
		}
	}
	return loc, nil
}
