package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twopane/twopane/internal/localfs"
	"github.com/twopane/twopane/internal/models"
	"github.com/twopane/twopane/internal/router"
)

// newLsCmd creates the 'ls' command.
func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [location]",
		Short: "List a local directory or device node",
		Long: `List the entries of a location, directories first, case-insensitive
name order within each group.

Examples:
  # Local directory
  twopane ls ~/Pictures

  # Storage root of a connected device
  twopane ls mtp:SER123:65537:4294967295`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			target := app.cfg.StartDirectory()
			if len(args) == 1 {
				target = args[0]
			}
			loc, err := models.ParseLocator(target)
			if err != nil {
				return err
			}

			if loc.IsDevice() {
				if err = app.ensureConnected(loc.DeviceID); err != nil {
					return err
				}
			}
			r := router.New(app.conn, app.bus, app.log, loc, app.listOptions())
			entries, err := r.Entries(loc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				kind := "-"
				size := byteSize(uint64(e.Size))
				if e.IsDir {
					kind = "d"
					size = "-"
				}
				fmt.Fprintf(out, "%s %10s  %s  %s\n", kind, size, e.ModTime.Format("2006-01-02 15:04"), e.Name)
			}
			return nil
		},
	}
	return cmd
}

// newVolumesCmd creates the 'volumes' command.
func newVolumesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "volumes",
		Short: "List mounted local volumes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			volumes, err := localfs.Volumes()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, v := range volumes {
				fmt.Fprintf(out, "%s\t%s\n", v.Name, v.Locator.Path)
			}
			return nil
		},
	}
}

// newMkdirCmd creates the 'mkdir' command.
func newMkdirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkdir <location>",
		Short: "Create a directory or device folder",
		Long: `Create a directory. Local locations take a full path; device locations
take a parent node locator with the new folder name appended.

Examples:
  twopane mkdir ~/Pictures/Trip
  twopane mkdir mtp:SER123:65537:4294967295/Trip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isDeviceArg(args[0]) {
				return localfs.Mkdir(args[0])
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			parent, name, err := splitDeviceArg(args[0])
			if err != nil {
				return err
			}
			if err := app.ensureConnected(parent.DeviceID); err != nil {
				return err
			}
			objectID, err := app.conn.CreateFolder(name, parent.StorageID, parent.ObjectID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created mtp:%s:%d:%d\n", parent.DeviceID, parent.StorageID, objectID)
			return nil
		},
	}
	return cmd
}

// newRmCmd creates the 'rm' command.
func newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <location>",
		Short: "Delete a file or folder",
		Long: `Delete an entry. Local deletions move the target to the user trash;
device deletions remove the object permanently (the protocol has no trash).

Examples:
  twopane rm ~/Downloads/old.zip
  twopane rm mtp:SER123:65537:4294967295/IMG_0001.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isDeviceArg(args[0]) {
				return localfs.Delete(args[0])
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			entry, err := resolveDeviceEntry(app, args[0])
			if err != nil {
				return err
			}
			return app.conn.DeleteObject(entry)
		},
	}
	return cmd
}
