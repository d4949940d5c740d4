package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tonimelisma/ftpfs-go/internal/config"
	"github.com/tonimelisma/ftpfs-go/internal/ftpfs"
	"github.com/tonimelisma/ftpfs-go/internal/transport"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagHost       string
	flagPort       int
	flagUser       string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
var resolvedCfg *config.Config

// newDialer builds the transport for the resolved config. Tests replace it
// with an in-memory server.
var newDialer = func(cfg *config.Config, logger *slog.Logger) (transport.Dialer, error) {
	codec, err := transport.NewNameCodec(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	return transport.NewFTPDialer(transport.DialOptions{
		DisableEPSV: cfg.DisableEPSV,
		Codec:       codec,
	}, logger), nil
}

// skipConfigCommands lists commands that must run without a complete
// configuration. Matched on CommandPath().
var skipConfigCommands = map[string]bool{
	"ftpfs-go config init": true,
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ftpfs-go",
		Short:   "FTP storage client",
		Long:    "Read, write, and mirror files on an FTP server through a file-storage interface.",
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipConfigCommands[cmd.CommandPath()] {
				return nil
			}

			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagHost, "host", "", "FTP server host")
	cmd.PersistentFlags().IntVar(&flagPort, "port", 0, "FTP server port")
	cmd.PersistentFlags().StringVar(&flagUser, "user", "", "login name")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newWriteCmd())
	cmd.AddCommand(newAppendCmd())
	cmd.AddCommand(newCatCmd())
	cmd.AddCommand(newCpCmd())
	cmd.AddCommand(newMvCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newStatCmd())
	cmd.AddCommand(newURLCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newRescanCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain and stores the result in resolvedCfg.
func loadConfig(cmd *cobra.Command) error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
	}

	if cmd.Flags().Changed("host") {
		cli.Host = flagHost
	}

	if cmd.Flags().Changed("port") {
		cli.Port = flagPort
	}

	if cmd.Flags().Changed("user") {
		cli.Username = flagUser
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		cli.PasswordPrompt = promptPassword
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(username, host string) (string, error) {
	fmt.Fprintf(os.Stderr, "Password for %s@%s: ", username, host)

	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", err
	}

	return string(pw), nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win.
func buildLogger() *slog.Logger {
	return newLogger(os.Stderr, isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
}

func newLogger(w io.Writer, terminal bool) *slog.Logger {
	level := slog.LevelInfo
	format := "auto"

	if resolvedCfg != nil {
		switch resolvedCfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = resolvedCfg.LogFormat
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" || (format == "auto" && !terminal) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// openStorage builds a FileSystem for the resolved config. The session
// connects lazily on the first operation.
func openStorage(logger *slog.Logger, observer ftpfs.Observer) (*ftpfs.FileSystem, error) {
	if resolvedCfg == nil {
		return nil, fmt.Errorf("no configuration loaded")
	}

	dialer, err := newDialer(resolvedCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating dialer: %w", err)
	}

	return ftpfs.New(resolvedCfg, dialer, logger, observer), nil
}

var errorColor = color.New(color.FgRed, color.Bold)

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	errorColor.Fprint(os.Stderr, "Error:")
	fmt.Fprintf(os.Stderr, " %v\n", err)
	os.Exit(1)
}
