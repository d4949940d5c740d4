package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions: a silently ignored typo in "pasv" would change how every data
// connection is opened.
func Load(path string) (*Config, error) {
	cfg, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// decodeFile parses path onto a defaults-populated Config without
// validating it, so later override layers can still fill required fields.
func decodeFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadOrDefault parses a TOML config file if it exists, otherwise returns
// a Config populated with default values. This supports env-only and
// flag-only usage without any config file.
func loadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return decodeFile(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
// When the password is still empty afterwards and the caller supplied a
// PasswordPrompt, the prompt fills it. The result is fully validated.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Config, error) {
	// 1. Resolve config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Load config file (defaults if no file exists)
	cfg, err := loadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	// 3. Apply env overrides
	if env.Host != "" {
		cfg.Host = env.Host
	}

	if env.Username != "" {
		cfg.Username = env.Username
	}

	if env.Password != "" {
		cfg.Password = env.Password
	}

	// 4. Apply CLI overrides
	if cli.Host != "" {
		cfg.Host = cli.Host
	}

	if cli.Port != 0 {
		cfg.Port = cli.Port
	}

	if cli.Username != "" {
		cfg.Username = cli.Username
	}

	// 5. Interactive password as the last resort
	if cfg.Password == "" && cli.PasswordPrompt != nil {
		pw, promptErr := cli.PasswordPrompt(cfg.Username, cfg.Host)
		if promptErr != nil {
			return nil, fmt.Errorf("reading password: %w", promptErr)
		}

		cfg.Password = pw
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}
