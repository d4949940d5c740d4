package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Host = "ftp.example.com"
	cfg.Port = 21
	cfg.Username = "alice"
	cfg.Password = "s3cret"

	return cfg
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantKey string
	}{
		{"blank host", func(c *Config) { c.Host = "  " }, "host:"},
		{"port zero", func(c *Config) { c.Port = 0 }, "port:"},
		{"port too large", func(c *Config) { c.Port = 70000 }, "port:"},
		{"empty username", func(c *Config) { c.Username = "" }, "username:"},
		{"empty password", func(c *Config) { c.Password = "" }, "password:"},
		{"timeout zero", func(c *Config) { c.Timeout = 0 }, "timeout:"},
		{"mode out of range", func(c *Config) { c.Mode = 3 }, "mode:"},
		{"pasv out of range", func(c *Config) { c.Pasv = 2 }, "pasv:"},
		{"unknown encoding", func(c *Config) { c.Encoding = "klingon-8" }, "encoding:"},
		{"relative base url", func(c *Config) { c.BaseURL = "cdn.example.com/files" }, "base_url:"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level:"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format:"},
		{"bad schedule", func(c *Config) { c.RescanSchedule = "every now and then" }, "rescan_schedule:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestValidate_AcceptedOptionalValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"binary mode", func(c *Config) { c.Mode = ModeBinary }},
		{"active mode", func(c *Config) { c.Pasv = 0 }},
		{"gbk encoding", func(c *Config) { c.Encoding = "gbk" }},
		{"utf-8 encoding", func(c *Config) { c.Encoding = "utf-8" }},
		{"https base url", func(c *Config) { c.BaseURL = "https://cdn.example.com/files" }},
		{"cron schedule", func(c *Config) { c.RescanSchedule = "*/5 * * * *" }},
		{"no rescan", func(c *Config) { c.RescanSchedule = "" }},
		{"json logs", func(c *Config) { c.LogFormat = "json" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.NoError(t, Validate(cfg))
		})
	}
}

func TestValidate_ReportsEveryError(t *testing.T) {
	cfg := validConfig()
	cfg.Port = -1
	cfg.Mode = 9
	cfg.LogLevel = "loud"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port:")
	assert.Contains(t, err.Error(), "mode:")
	assert.Contains(t, err.Error(), "log_level:")
}
