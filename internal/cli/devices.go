package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twopane/twopane/internal/models"
)

// newDevicesCmd creates the 'devices' command.
func newDevicesCmd() *cobra.Command {
	var connectID string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List attached MTP devices",
		Long: `Scan for attached MTP devices and print their identity and storages.

Scanning opens each device only long enough to read its identity, so it is
safe to run while nothing should stay locked.

Examples:
  # List devices
  twopane devices

  # Open a session and show storage details
  twopane devices --connect SER123`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			devices, err := app.conn.Scan()
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No devices attached.")
				return nil
			}

			out := cmd.OutOrStdout()
			for _, d := range devices {
				fmt.Fprintf(out, "%s\t%s %s\t(%d storages)\n", d.ID, d.Manufacturer, d.Model, len(d.Storages))
			}

			if connectID == "" {
				return nil
			}
			if err := app.conn.Connect(connectID); err != nil {
				return err
			}
			info, _ := app.conn.ActiveDevice()
			app.notifier.DeviceConnected(info.FriendlyName)
			fmt.Fprintf(out, "\nConnected: %s (%s)\n", info.FriendlyName, info.ID)
			for _, s := range info.Storages {
				fmt.Fprintf(out, "  %d\t%s\t%s free of %s\tmtp:%s:%d:%d\n",
					s.ID, s.Description, byteSize(s.FreeSpace), byteSize(s.Capacity),
					info.ID, s.ID, models.RootObjectID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&connectID, "connect", "", "Open a session to the given device ID after scanning")

	return cmd
}

// byteSize renders a byte count with a binary unit suffix.
func byteSize(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
