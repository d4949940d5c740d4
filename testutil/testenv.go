// Package testutil provides shared test environment helpers for E2E tests.
// It depends only on stdlib so that E2E tests (which cannot import
// internal/) can use it.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// ServerEnv holds the FTP account E2E tests run against.
type ServerEnv struct {
	Host     string
	Port     string
	Username string
	Password string
	// Root is the remote directory tests may create and delete under.
	Root string
}

// serverVars maps each ServerEnv field to its environment variable.
var serverVars = []string{
	"FTPFS_GO_HOST",
	"FTPFS_GO_PORT",
	"FTPFS_GO_USERNAME",
	"FTPFS_GO_PASSWORD",
	"FTPFS_GO_TEST_ROOT",
}

// RequireServerEnv reads the FTP account from the environment. The test
// root guards the account: without it a test run could delete files it
// does not own, so a missing variable crashes the process.
func RequireServerEnv() ServerEnv {
	var missing []string

	for _, name := range serverVars {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", strings.Join(missing, ", "))
		fmt.Fprintln(os.Stderr, "Set them in .env or as environment variables.")
		os.Exit(1)
	}

	root := strings.TrimSpace(os.Getenv("FTPFS_GO_TEST_ROOT"))
	if root == "/" || root == "." {
		fmt.Fprintf(os.Stderr, "FATAL: FTPFS_GO_TEST_ROOT=%q would expose the whole account\n", root)
		os.Exit(1)
	}

	return ServerEnv{
		Host:     os.Getenv("FTPFS_GO_HOST"),
		Port:     os.Getenv("FTPFS_GO_PORT"),
		Username: os.Getenv("FTPFS_GO_USERNAME"),
		Password: os.Getenv("FTPFS_GO_PASSWORD"),
		Root:     root,
	}
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}
