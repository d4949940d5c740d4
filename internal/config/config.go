// Package config implements configuration loading, validation, and
// platform-specific path resolution for ftpfs-go.
//
// There are two entry points. The CLI uses Resolve, which layers a
// four-step override chain (defaults -> TOML config file -> environment ->
// CLI flags). Applications that embed the storage adapter and already hold
// its settings as a key/value map (decoded JSON, a framework's disk
// settings) use FromMap instead: it accepts the same keys as the TOML file,
// coerces loosely typed values such as port "21", and returns a validated
// Config ready for ftpfs.New.
package config

import (
	"net"
	"strconv"
	"time"
)

// Transfer modes as written in config files.
const (
	ModeText   = 1
	ModeBinary = 2
)

// Config is the complete, flat configuration. All keys live at the top level
// of the TOML file; the embedded sections only group related fields in Go.
// A Config is treated as immutable once handed to a storage adapter.
type Config struct {
	ServerConfig
	StorageConfig
	LoggingConfig
	WatchConfig
}

// ServerConfig describes how to reach and authenticate with the FTP server.
// Pasv uses the 0/1 convention of the original key/value schema.
type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	Timeout     int    `toml:"timeout"` // seconds, bounds connection setup only
	Mode        int    `toml:"mode"`    // 1 = text, 2 = binary
	Pasv        int    `toml:"pasv"`    // 1 = request passive mode
	Encoding    string `toml:"encoding"`
	DisableEPSV bool   `toml:"disable_epsv"`
}

// StorageConfig controls URL construction and local scratch space.
type StorageConfig struct {
	SubPath string `toml:"sub_path"`
	BaseURL string `toml:"base_url"`
	TmpDir  string `toml:"tmp_dir"`
}

// LoggingConfig controls log output: level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// WatchConfig controls the directory mirror: where its ledger lives and how
// often it rescans the whole tree.
type WatchConfig struct {
	StateDir       string `toml:"state_dir"`
	RescanSchedule string `toml:"rescan_schedule"`
}

// Addr returns "host:port" for dialing.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ConnectTimeout returns the connection-establishment timeout.
func (s ServerConfig) ConnectTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// Binary reports whether transfers use the binary representation type.
func (s ServerConfig) Binary() bool {
	return s.Mode == ModeBinary
}

// Passive reports whether passive mode is requested after login.
func (s ServerConfig) Passive() bool {
	return s.Pasv == 1
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Empty strings and zero ports mean "not specified".
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
	Host       string // --host
	Port       int    // --port
	Username   string // --user

	// PasswordPrompt asks for the password when no layer provided one.
	// nil disables prompting.
	PasswordPrompt func(username, host string) (string, error)
}
