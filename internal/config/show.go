package config

import (
	"fmt"
	"io"
	"strings"
)

// maskedPassword stands in for the real password in rendered output.
const maskedPassword = "********"

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. This powers the "config show" command, giving
// users visibility into the effective values after all four override layers
// (defaults -> file -> env -> CLI) have been applied. The password is never
// printed.
func RenderEffective(cfg *Config, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration for %s\n\n", cfg.Addr())

	renderServerSection(ew, &cfg.ServerConfig)
	renderStorageSection(ew, &cfg.StorageConfig)
	renderLoggingSection(ew, &cfg.LoggingConfig)
	renderWatchSection(ew, &cfg.WatchConfig)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func renderServerSection(ew *errWriter, s *ServerConfig) {
	ew.printf("[server]\n")
	ew.printf("  host         = %q\n", s.Host)
	ew.printf("  port         = %d\n", s.Port)
	ew.printf("  username     = %q\n", s.Username)

	if s.Password != "" {
		ew.printf("  password     = %q\n", maskedPassword)
	}

	ew.printf("  timeout      = %d\n", s.Timeout)
	ew.printf("  mode         = %d  # %s\n", s.Mode, modeName(s.Mode))
	ew.printf("  pasv         = %d\n", s.Pasv)

	if s.Encoding != "" {
		ew.printf("  encoding     = %q\n", s.Encoding)
	}

	ew.printf("  disable_epsv = %t\n", s.DisableEPSV)
	ew.printf("\n")
}

func renderStorageSection(ew *errWriter, s *StorageConfig) {
	ew.printf("[storage]\n")
	ew.printf("  sub_path = %q\n", s.SubPath)
	ew.printf("  base_url = %q\n", s.BaseURL)
	ew.printf("  tmp_dir  = %q\n", s.TmpDir)
	ew.printf("\n")
}

func renderLoggingSection(ew *errWriter, l *LoggingConfig) {
	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", l.LogLevel)
	ew.printf("  log_format = %q\n", l.LogFormat)
	ew.printf("\n")
}

func renderWatchSection(ew *errWriter, w *WatchConfig) {
	ew.printf("[watch]\n")
	ew.printf("  state_dir       = %q\n", w.StateDir)
	ew.printf("  rescan_schedule = %q\n", w.RescanSchedule)
}

func modeName(mode int) string {
	switch mode {
	case ModeText:
		return "text"
	case ModeBinary:
		return "binary"
	default:
		return strings.ToLower(fmt.Sprintf("unknown(%d)", mode))
	}
}
