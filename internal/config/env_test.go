package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadEnvOverrides_AllSet(t *testing.T) {
	t.Setenv(EnvConfig, "/custom/config.toml")
	t.Setenv(EnvHost, "ftp.example.com")
	t.Setenv(EnvUsername, "alice")
	t.Setenv(EnvPassword, "s3cret")

	overrides := ReadEnvOverrides()
	assert.Equal(t, "/custom/config.toml", overrides.ConfigPath)
	assert.Equal(t, "ftp.example.com", overrides.Host)
	assert.Equal(t, "alice", overrides.Username)
	assert.Equal(t, "s3cret", overrides.Password)
}

func TestReadEnvOverrides_NoneSet(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvHost, "")
	t.Setenv(EnvUsername, "")
	t.Setenv(EnvPassword, "")

	assert.Equal(t, EnvOverrides{}, ReadEnvOverrides())
}

func TestEnvVarConstants(t *testing.T) {
	assert.Equal(t, "FTPFS_GO_CONFIG", EnvConfig)
	assert.Equal(t, "FTPFS_GO_HOST", EnvHost)
	assert.Equal(t, "FTPFS_GO_USERNAME", EnvUsername)
	assert.Equal(t, "FTPFS_GO_PASSWORD", EnvPassword)
}
