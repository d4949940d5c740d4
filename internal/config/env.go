package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "FTPFS_GO_CONFIG"
	EnvHost     = "FTPFS_GO_HOST"
	EnvUsername = "FTPFS_GO_USERNAME"
	EnvPassword = "FTPFS_GO_PASSWORD"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // FTPFS_GO_CONFIG: override config file path
	Host       string // FTPFS_GO_HOST: server host
	Username   string // FTPFS_GO_USERNAME: login name
	Password   string // FTPFS_GO_PASSWORD: keeps secrets out of config files
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		Host:       os.Getenv(EnvHost),
		Username:   os.Getenv(EnvUsername),
		Password:   os.Getenv(EnvPassword),
	}
}
