// Package notify provides cross-platform desktop notifications for transfer
// outcomes. It uses github.com/gen2brain/beeep for cross-platform support.
package notify

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/twopane/twopane/internal/config"
	"github.com/twopane/twopane/internal/logging"
)

// Notifier sends desktop notifications for terminal transfer states. It
// satisfies the transfer queue's Notifier interface.
type Notifier struct {
	logger       *logging.Logger
	mu           sync.RWMutex
	enabled      bool
	showComplete bool
	showFailed   bool
}

// New creates a notifier gated by the notification configuration.
func New(cfg config.NotificationConfig, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Notifier{
		logger:       logger,
		enabled:      cfg.Enabled,
		showComplete: cfg.ShowTransferComplete,
		showFailed:   cfg.ShowTransferFailed,
	}
}

// SetEnabled enables or disables all notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// TransferComplete sends a notification for a successful transfer.
func (n *Notifier) TransferComplete(name string) {
	if !n.IsEnabled() || !n.showComplete {
		return
	}

	title := "Transfer Complete"
	message := fmt.Sprintf("\"%s\" transferred.", truncate(name, 40))

	if err := n.send(title, message); err != nil {
		n.logger.Warn().Err(err).Str("name", name).Msg("failed to send transfer complete notification")
	}
}

// TransferFailed sends a notification for a failed transfer.
func (n *Notifier) TransferFailed(name string, failure error) {
	if !n.IsEnabled() || !n.showFailed {
		return
	}

	title := "Transfer Failed"
	message := fmt.Sprintf("\"%s\" failed:\n%s", truncate(name, 40), truncate(failure.Error(), 100))

	if err := n.send(title, message); err != nil {
		n.logger.Warn().Err(err).Str("name", name).Msg("failed to send transfer failed notification")
	}
}

// DeviceConnected sends a notification when a device session opens.
func (n *Notifier) DeviceConnected(friendlyName string) {
	if !n.IsEnabled() {
		return
	}

	if err := n.send("Device Connected", truncate(friendlyName, 60)); err != nil {
		n.logger.Warn().Err(err).Msg("failed to send device connected notification")
	}
}

// send is the internal method that actually sends the notification.
func (n *Notifier) send(title, message string) error {
	// beeep.Notify is cross-platform:
	// - Windows: toast notifications
	// - macOS: NSUserNotificationCenter
	// - Linux: D-Bus notifications
	return beeep.Notify(title, message, "")
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// ShortenPath abbreviates a long path for display in notifications.
func ShortenPath(path string) string {
	const maxLen = 60

	if len(path) <= maxLen {
		return path
	}

	// Show ... + last 2 path components.
	_, file := filepath.Split(path)
	parentDir := filepath.Base(filepath.Dir(path))
	short := filepath.Join("...", parentDir, file)

	vol := filepath.VolumeName(path)
	if vol != "" && len(vol)+len(short)+1 <= maxLen {
		short = vol + string(filepath.Separator) + short
	}

	if len(short) > maxLen {
		return "..." + path[len(path)-(maxLen-3):]
	}
	return short
}
