package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/encoding/htmlindex"
)

// Validation range constants.
const (
	minPort    = 1
	maxPort    = 65535
	minTimeout = 1
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(&cfg.ServerConfig)...)
	errs = append(errs, validateStorage(&cfg.StorageConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateWatch(&cfg.WatchConfig)...)

	return errors.Join(errs...)
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	if strings.TrimSpace(s.Host) == "" {
		errs = append(errs, errors.New("host: must not be empty"))
	}

	if s.Port < minPort || s.Port > maxPort {
		errs = append(errs, fmt.Errorf("port: must be between %d and %d, got %d", minPort, maxPort, s.Port))
	}

	if s.Username == "" {
		errs = append(errs, errors.New("username: must not be empty"))
	}

	if s.Password == "" {
		errs = append(errs, errors.New("password: must not be empty"))
	}

	if s.Timeout < minTimeout {
		errs = append(errs, fmt.Errorf("timeout: must be >= %d, got %d", minTimeout, s.Timeout))
	}

	if s.Mode != ModeText && s.Mode != ModeBinary {
		errs = append(errs, fmt.Errorf("mode: must be %d (text) or %d (binary), got %d", ModeText, ModeBinary, s.Mode))
	}

	if s.Pasv != 0 && s.Pasv != 1 {
		errs = append(errs, fmt.Errorf("pasv: must be 0 or 1, got %d", s.Pasv))
	}

	if s.Encoding != "" {
		if _, err := htmlindex.Get(s.Encoding); err != nil {
			errs = append(errs, fmt.Errorf("encoding: unknown character set %q", s.Encoding))
		}
	}

	return errs
}

func validateStorage(s *StorageConfig) []error {
	if s.BaseURL == "" {
		return nil
	}

	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return []error{fmt.Errorf("base_url: %w", err)}
	}

	if !u.IsAbs() || u.Host == "" {
		return []error{fmt.Errorf("base_url: must be an absolute URL with a host, got %q", s.BaseURL)}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}

func validateWatch(w *WatchConfig) []error {
	if w.RescanSchedule == "" {
		return nil
	}

	if _, err := cron.ParseStandard(w.RescanSchedule); err != nil {
		return []error{fmt.Errorf("rescan_schedule: %w", err)}
	}

	return nil
}
