package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// requiredKeys must be present in a map handed to FromMap, even when the
// value would pass validation by accident (a zero port, say).
var requiredKeys = []string{"host", "port", "username", "password"}

// FromMap builds a validated Config from a plain key/value mapping, the form
// in which embedding applications usually carry adapter settings. Integer
// keys accept Go integers, whole floats (as produced by JSON decoding), and
// numeric strings. pasv additionally accepts a bool. Absent optional keys
// keep their defaults.
func FromMap(m map[string]any) (*Config, error) {
	var errs []error

	for _, k := range requiredKeys {
		if _, ok := m[k]; !ok {
			errs = append(errs, fmt.Errorf("%s: required key is missing", k))
		}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	cfg := DefaultConfig()

	for _, k := range keys {
		if err := assign(cfg, k, m[k]); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// assign stores one map entry into cfg.
func assign(cfg *Config, key string, v any) error {
	var err error

	switch key {
	case "host":
		cfg.Host, err = asString(v)
	case "username":
		cfg.Username, err = asString(v)
	case "password":
		cfg.Password, err = asString(v)
	case "encoding":
		cfg.Encoding, err = asString(v)
	case "sub_path":
		cfg.SubPath, err = asString(v)
	case "base_url":
		cfg.BaseURL, err = asString(v)
	case "tmp_dir":
		cfg.TmpDir, err = asString(v)
	case "log_level":
		cfg.LogLevel, err = asString(v)
	case "log_format":
		cfg.LogFormat, err = asString(v)
	case "state_dir":
		cfg.StateDir, err = asString(v)
	case "rescan_schedule":
		cfg.RescanSchedule, err = asString(v)
	case "port":
		cfg.Port, err = asInt(v)
	case "timeout":
		cfg.Timeout, err = asInt(v)
	case "mode":
		cfg.Mode, err = asInt(v)
	case "pasv":
		cfg.Pasv, err = asFlag(v)
	case "disable_epsv":
		cfg.DisableEPSV, err = asBool(v)
	default:
		return unknownKeyError(key)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	return nil
}

func asString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return "", fmt.Errorf("expected a string, got %T", v)
	}
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		if uint64(n) > math.MaxInt32 {
			return 0, fmt.Errorf("value %d out of range", n)
		}

		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("expected a whole number, got %v", n)
		}

		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("expected an integer, got %q", n)
		}

		return i, nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

// asFlag reads a 0/1 switch, accepting bools for callers that never saw the
// integer convention.
func asFlag(v any) (int, error) {
	if b, ok := v.(bool); ok {
		if b {
			return 1, nil
		}

		return 0, nil
	}

	return asInt(v)
}

func asBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("expected a boolean, got %q", b)
		}

		return parsed, nil
	default:
		n, err := asInt(v)
		if err != nil {
			return false, fmt.Errorf("expected a boolean, got %T", v)
		}

		return n != 0, nil
	}
}
