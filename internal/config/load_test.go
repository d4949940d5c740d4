package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

const minimalConfig = `
host = "ftp.example.com"
port = 21
username = "alice"
password = "s3cret"
`

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
host = "ftp.example.com"
port = 2121
username = "alice"
password = "s3cret"
timeout = 30
mode = 2
pasv = 0
encoding = "gbk"
disable_epsv = true
sub_path = "uploads"
base_url = "https://cdn.example.com"
tmp_dir = "/var/tmp/ftpfs"
log_level = "debug"
log_format = "json"
state_dir = "/var/lib/ftpfs-go"
rescan_schedule = "0 * * * *"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ftp.example.com", cfg.Host)
	assert.Equal(t, 2121, cfg.Port)
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, "s3cret", cfg.Password)
	assert.Equal(t, 30, cfg.Timeout)
	assert.Equal(t, ModeBinary, cfg.Mode)
	assert.Equal(t, 0, cfg.Pasv)
	assert.Equal(t, "gbk", cfg.Encoding)
	assert.True(t, cfg.DisableEPSV)
	assert.Equal(t, "uploads", cfg.SubPath)
	assert.Equal(t, "https://cdn.example.com", cfg.BaseURL)
	assert.Equal(t, "/var/tmp/ftpfs", cfg.TmpDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/var/lib/ftpfs-go", cfg.StateDir)
	assert.Equal(t, "0 * * * *", cfg.RescanSchedule)
}

func TestLoad_MinimalConfigKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeTestConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Timeout)
	assert.Equal(t, ModeText, cfg.Mode)
	assert.Equal(t, 1, cfg.Pasv)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_InvalidTOML(t *testing.T) {
	_, err := Load(writeTestConfig(t, "host = \n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_ValidationErrorsAccumulate(t *testing.T) {
	_, err := Load(writeTestConfig(t, minimalConfig+"mode = 3\npasv = 7\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
	assert.Contains(t, err.Error(), "mode:")
	assert.Contains(t, err.Error(), "pasv:")
}

func TestResolve_NoFileUsesEnvAndCLI(t *testing.T) {
	env := EnvOverrides{
		ConfigPath: filepath.Join(t.TempDir(), "absent.toml"),
		Host:       "env.example.com",
		Username:   "env-user",
		Password:   "env-pass",
	}
	cli := CLIOverrides{Port: 2121, Username: "cli-user"}

	cfg, err := Resolve(env, cli)
	require.NoError(t, err)

	assert.Equal(t, "env.example.com", cfg.Host)
	assert.Equal(t, 2121, cfg.Port)
	assert.Equal(t, "cli-user", cfg.Username)
	assert.Equal(t, "env-pass", cfg.Password)
}

func TestResolve_CLIConfigPathWins(t *testing.T) {
	fromCLI := writeTestConfig(t, minimalConfig)
	env := EnvOverrides{ConfigPath: filepath.Join(t.TempDir(), "absent.toml")}

	cfg, err := Resolve(env, CLIOverrides{ConfigPath: fromCLI})
	require.NoError(t, err)
	assert.Equal(t, "ftp.example.com", cfg.Host)
}

func TestResolve_OverrideOrder(t *testing.T) {
	path := writeTestConfig(t, minimalConfig)

	cfg, err := Resolve(
		EnvOverrides{ConfigPath: path, Host: "env.example.com"},
		CLIOverrides{Host: "cli.example.com"},
	)
	require.NoError(t, err)
	assert.Equal(t, "cli.example.com", cfg.Host)
	assert.Equal(t, 21, cfg.Port)
}

func TestResolve_PromptsForMissingPassword(t *testing.T) {
	path := writeTestConfig(t, "host = \"h\"\nport = 21\nusername = \"bob\"\n")

	var gotUser, gotHost string

	cli := CLIOverrides{
		ConfigPath: path,
		PasswordPrompt: func(username, host string) (string, error) {
			gotUser, gotHost = username, host

			return "typed", nil
		},
	}

	cfg, err := Resolve(EnvOverrides{}, cli)
	require.NoError(t, err)
	assert.Equal(t, "typed", cfg.Password)
	assert.Equal(t, "bob", gotUser)
	assert.Equal(t, "h", gotHost)
}

func TestResolve_PromptNotCalledWhenPasswordKnown(t *testing.T) {
	path := writeTestConfig(t, minimalConfig)

	cli := CLIOverrides{
		ConfigPath: path,
		PasswordPrompt: func(string, string) (string, error) {
			t.Fatal("prompt must not run")

			return "", nil
		},
	}

	_, err := Resolve(EnvOverrides{}, cli)
	require.NoError(t, err)
}

func TestResolve_PromptError(t *testing.T) {
	path := writeTestConfig(t, "host = \"h\"\nport = 21\nusername = \"bob\"\n")
	promptErr := errors.New("no tty")

	_, err := Resolve(EnvOverrides{}, CLIOverrides{
		ConfigPath:     path,
		PasswordPrompt: func(string, string) (string, error) { return "", promptErr },
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, promptErr)
}

func TestResolve_MissingPasswordWithoutPrompt(t *testing.T) {
	path := writeTestConfig(t, "host = \"h\"\nport = 21\nusername = \"bob\"\n")

	_, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password: must not be empty")
}

func TestResolve_UnknownKeyInFile(t *testing.T) {
	path := writeTestConfig(t, minimalConfig+"pasiv = 1\n")

	_, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "pasv"`)
}
