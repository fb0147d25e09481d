// Package cli provides the command-line interface for twopane.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/twopane/twopane/internal/config"
	"github.com/twopane/twopane/internal/events"
	"github.com/twopane/twopane/internal/localfs"
	"github.com/twopane/twopane/internal/logging"
	"github.com/twopane/twopane/internal/mtp"
	"github.com/twopane/twopane/internal/notify"
	"github.com/twopane/twopane/internal/queue"
)

var (
	// Global flags
	cfgFile    string
	verbose    bool
	quiet      bool
	showHidden bool
	noNotify   bool

	// Global logger
	logger *logging.Logger
)

// Version information - set by main package at startup.
var (
	Version   = "v0.3.0-dev"
	BuildTime = "unknown"
)

// GetLogger returns the CLI logger, initializing it on first use.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return logger
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "twopane",
		Short: "twopane - dual-backend file browser and transfer tool",
		Long: `twopane ` + Version + ` - Built: ` + BuildTime + `
Browse and transfer files between the local filesystem and MTP devices.

Locations are given as local paths or device locators:

  /home/user/Pictures                    local directory
  mtp:<device>:<storage>:<object>        device node (object 4294967295 = storage root)

Device file arguments append the file name: mtp:SER123:65537:4294967295/IMG_0001.jpg`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			GetLogger()
			if verbose {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress bars")
	rootCmd.PersistentFlags().BoolVarP(&showHidden, "show-hidden", "a", false, "Include hidden entries in listings")
	rootCmd.PersistentFlags().BoolVar(&noNotify, "no-notify", false, "Suppress desktop notifications")

	rootCmd.Version = Version + " (" + BuildTime + ")"

	rootCmd.AddCommand(newDevicesCmd())
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newVolumesCmd())
	rootCmd.AddCommand(newMkdirCmd())
	rootCmd.AddCommand(newRmCmd())
	rootCmd.AddCommand(newCpCmd())
	rootCmd.AddCommand(newMvCmd())

	return rootCmd
}

// app bundles the explicitly constructed services every command runs
// against. Exactly one of each exists per invocation; nothing is a package
// global besides flags and the logger.
type app struct {
	cfg      *config.Config
	bus      *events.EventBus
	log      *logging.Logger
	conn     *mtp.Connection
	notifier *notify.Notifier
	q        *queue.Queue
}

// newApp loads configuration and wires the service graph:
// bus -> connection -> queue, with the notifier hanging off the queue.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if showHidden {
		cfg.Browser.ShowHidden = true
	}
	if noNotify {
		cfg.Notifications.Enabled = false
	}

	log := GetLogger()
	bus := events.NewEventBus(0)
	conn := mtp.NewConnection(mtp.SystemTransport(), bus, log)
	notifier := notify.New(cfg.Notifications, log)
	q := queue.New(&queue.Runner{
		Conn:         conn,
		SafetyMargin: cfg.SafetyMarginBytes(),
	}, bus, log, notifier)

	return &app{cfg: cfg, bus: bus, log: log, conn: conn, notifier: notifier, q: q}, nil
}

// Close releases the queue, the device session, and the bus, in that order.
func (a *app) Close() {
	a.q.Close()
	a.conn.Close()
	a.bus.Close()
}

func (a *app) listOptions() localfs.ListOptions {
	return localfs.ListOptions{IncludeHidden: a.cfg.Browser.ShowHidden}
}

// ensureConnected opens a session to id unless one is already live. A
// connect always releases the previous session first, so skipping the
// redundant reconnect keeps one argument from tearing down the session the
// previous argument just used.
func (a *app) ensureConnected(id string) error {
	if info, ok := a.conn.ActiveDevice(); ok && info.ID == id {
		return nil
	}
	return a.conn.Connect(id)
}
