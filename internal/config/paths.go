package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// platformDarwin is runtime.GOOS on macOS.
const platformDarwin = "darwin"

// Application directory name used across all platforms.
const appName = "ftpfs-go"

// Config file name.
const configFileName = "config.toml"

// DefaultConfigDir returns the platform-specific directory for config files.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/ftpfs-go).
// On macOS, uses ~/Library/Application Support/ftpfs-go.
// Other platforms fall back to ~/.config/ftpfs-go.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	if runtime.GOOS == platformDarwin {
		return macOSAppSupportDir(home)
	}

	return linuxConfigDir(home)
}

// DefaultDataDir returns the platform-specific directory for application
// data (the watch ledger and its PID file).
// On Linux, respects XDG_DATA_HOME (defaults to ~/.local/share/ftpfs-go).
// On macOS, config and data share ~/Library/Application Support/ftpfs-go.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	if runtime.GOOS == platformDarwin {
		return macOSAppSupportDir(home)
	}

	return linuxDataDir(home)
}

// DefaultConfigPath returns the full path to the default config file.
// This is the fallback when neither FTPFS_GO_CONFIG nor --config is given.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

func linuxConfigDir(home string) string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".config", appName)
}

func linuxDataDir(home string) string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".local", "share", appName)
}

func macOSAppSupportDir(home string) string {
	return filepath.Join(home, "Library", "Application Support", appName)
}
