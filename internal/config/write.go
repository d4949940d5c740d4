package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// configFilePermissions is the permission mode for config files. Owner
// read/write only, since the file may carry the server password.
const configFilePermissions = 0o600

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o755

// configTemplate is the body written by "config init" below the server
// keys. Every optional setting is present as a commented-out default so
// users can discover each option without reading docs.
const configTemplate = `
# Seconds allowed for connecting and logging in
# timeout = 90

# Transfer representation: 1 = text, 2 = binary
# mode = 1

# Request passive mode after login: 1 = yes, 0 = no
# pasv = 1

# Character set of remote file names (e.g. "gbk", "shift_jis")
# encoding = "utf-8"

# Skip EPSV and use PASV directly (some NAT gateways mangle EPSV)
# disable_epsv = false

# Public URL prefix and sub-path used by "url"
# base_url = ""
# sub_path = ""

# Local scratch directory for staged transfers
# tmp_dir = ""

# Log verbosity: debug, info, warn, error
# log_level = "info"

# Log format: auto, text, json
# log_format = "auto"

# Directory holding the watch ledger and PID file
# state_dir = ""

# Full rescan schedule for "watch" (cron syntax or @every)
# rescan_schedule = "@every 15m"
`

// CreateConfig writes a new config file holding the server identity plus
// the commented template. An existing file is never overwritten. The
// password is left out; supply it via FTPFS_GO_PASSWORD or the prompt.
// The write is atomic (temp file + rename) and parent directories are
// created as needed.
func CreateConfig(path string, s ServerConfig) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	slog.Info("creating config file",
		"path", path,
		"host", s.Host,
		"port", s.Port,
		"username", s.Username,
	)

	var b strings.Builder

	b.WriteString("# ftpfs-go configuration\n\n")
	fmt.Fprintf(&b, "host = %q\n", s.Host)
	fmt.Fprintf(&b, "port = %d\n", s.Port)
	fmt.Fprintf(&b, "username = %q\n", s.Username)
	b.WriteString(configTemplate)

	return atomicWriteFile(path, []byte(b.String()))
}

// atomicWriteFile writes data to a temp file in the target directory and
// renames it into place, so a crash never leaves a half-written config.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	// Clean up the temp file on any error path.
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
