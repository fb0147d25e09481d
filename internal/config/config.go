// Package config provides configuration management for twopane.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/ini.v1"
)

// Config is the user-editable configuration.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\twopane\twopane.conf
//   - Unix: ~/.config/twopane/twopane.conf
//
// INI format:
//
//	[browser]
//	show_hidden = false
//	start_directory =
//
//	[transfers]
//	download_folder =
//	space_safety_margin_mb = 100
//
//	[notifications]
//	enabled = true
//	show_transfer_complete = true
//	show_transfer_failed = true
type Config struct {
	Browser       BrowserConfig
	Transfers     TransferConfig
	Notifications NotificationConfig
}

// BrowserConfig contains settings for directory browsing.
type BrowserConfig struct {
	// ShowHidden includes dot-prefixed entries in listings.
	// Default: false
	ShowHidden bool `ini:"show_hidden"`

	// StartDirectory is the initial browsing location. Empty means the
	// user home directory.
	StartDirectory string `ini:"start_directory"`
}

// TransferConfig contains settings for the transfer queue.
type TransferConfig struct {
	// DownloadFolder is the default destination for device downloads.
	// Empty means the user home directory.
	DownloadFolder string `ini:"download_folder"`

	// SpaceSafetyMarginMB is the extra free space, in megabytes, required
	// beyond a transfer's size before writing to a local destination.
	// Minimum: 0, Maximum: 10240, Default: 100
	SpaceSafetyMarginMB int `ini:"space_safety_margin_mb"`
}

// NotificationConfig contains settings for desktop notifications.
type NotificationConfig struct {
	// Enabled indicates whether notifications are shown.
	// Default: true
	Enabled bool `ini:"enabled"`

	// ShowTransferComplete shows a notification when a transfer completes.
	// Default: true
	ShowTransferComplete bool `ini:"show_transfer_complete"`

	// ShowTransferFailed shows a notification when a transfer fails.
	// Default: true
	ShowTransferFailed bool `ini:"show_transfer_failed"`
}

// Validation errors
var (
	ErrInvalidSafetyMargin = errors.New("space_safety_margin_mb must be between 0 and 10240")
)

// DefaultPath returns the default path for the config file.
// - Windows: %USERPROFILE%\.config\twopane\twopane.conf
// - Unix: ~/.config/twopane/twopane.conf
func DefaultPath() (string, error) {
	var configDir string

	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		configDir = filepath.Join(userProfile, ".config", "twopane")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "twopane")
	}

	return filepath.Join(configDir, "twopane.conf"), nil
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Transfers: TransferConfig{
			SpaceSafetyMarginMB: 100,
		},
		Notifications: NotificationConfig{
			Enabled:              true,
			ShowTransferComplete: true,
			ShowTransferFailed:   true,
		},
	}
}

// Load reads configuration from an INI file.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, nil // Return defaults if we can't determine path
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // Return defaults if config doesn't exist
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	browser := iniFile.Section("browser")
	cfg.Browser.ShowHidden = browser.Key("show_hidden").MustBool(false)
	cfg.Browser.StartDirectory = browser.Key("start_directory").String()

	transfers := iniFile.Section("transfers")
	cfg.Transfers.DownloadFolder = transfers.Key("download_folder").String()
	cfg.Transfers.SpaceSafetyMarginMB = transfers.Key("space_safety_margin_mb").MustInt(100)

	notify := iniFile.Section("notifications")
	cfg.Notifications.Enabled = notify.Key("enabled").MustBool(true)
	cfg.Notifications.ShowTransferComplete = notify.Key("show_transfer_complete").MustBool(true)
	cfg.Notifications.ShowTransferFailed = notify.Key("show_transfer_failed").MustBool(true)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to an INI file.
// Creates parent directories if they don't exist.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	browser, err := iniFile.NewSection("browser")
	if err != nil {
		return fmt.Errorf("failed to create browser section: %w", err)
	}
	browser.Key("show_hidden").SetValue(fmt.Sprintf("%t", cfg.Browser.ShowHidden))
	browser.Key("start_directory").SetValue(cfg.Browser.StartDirectory)

	transfers, err := iniFile.NewSection("transfers")
	if err != nil {
		return fmt.Errorf("failed to create transfers section: %w", err)
	}
	transfers.Key("download_folder").SetValue(cfg.Transfers.DownloadFolder)
	transfers.Key("space_safety_margin_mb").SetValue(fmt.Sprintf("%d", cfg.Transfers.SpaceSafetyMarginMB))

	notify, err := iniFile.NewSection("notifications")
	if err != nil {
		return fmt.Errorf("failed to create notifications section: %w", err)
	}
	notify.Key("enabled").SetValue(fmt.Sprintf("%t", cfg.Notifications.Enabled))
	notify.Key("show_transfer_complete").SetValue(fmt.Sprintf("%t", cfg.Notifications.ShowTransferComplete))
	notify.Key("show_transfer_failed").SetValue(fmt.Sprintf("%t", cfg.Notifications.ShowTransferFailed))

	// Temporary file + rename for atomicity.
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks if the configuration is usable.
func (cfg *Config) Validate() error {
	if cfg.Transfers.SpaceSafetyMarginMB < 0 || cfg.Transfers.SpaceSafetyMarginMB > 10240 {
		return ErrInvalidSafetyMargin
	}
	return nil
}

// SafetyMarginBytes returns the transfer safety margin in bytes.
func (cfg *Config) SafetyMarginBytes() uint64 {
	return uint64(cfg.Transfers.SpaceSafetyMarginMB) << 20
}

// StartDirectory resolves the initial browsing location, falling back to the
// user home directory and then to the filesystem root.
func (cfg *Config) StartDirectory() string {
	if cfg.Browser.StartDirectory != "" {
		return cfg.Browser.StartDirectory
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return string(filepath.Separator)
}
