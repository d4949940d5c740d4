package config

// Default values for configuration options. These represent the "layer 0"
// of the override chain. The server identity (host, port, credentials) has
// no default and must be supplied.
const (
	defaultTimeout        = 90
	defaultMode           = ModeText
	defaultPasv           = 1
	defaultLogLevel       = "info"
	defaultLogFormat      = "auto"
	defaultRescanSchedule = "@every 15m"
)

// DefaultConfig returns a Config populated with all default values.
// It is the starting point for TOML decoding (so unset fields retain
// defaults) and for FromMap.
func DefaultConfig() *Config {
	return &Config{
		ServerConfig: ServerConfig{
			Timeout: defaultTimeout,
			Mode:    defaultMode,
			Pasv:    defaultPasv,
		},
		LoggingConfig: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		WatchConfig: WatchConfig{
			StateDir:       DefaultDataDir(),
			RescanSchedule: defaultRescanSchedule,
		},
	}
}
