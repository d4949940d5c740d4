package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ftpfs-go/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		RunE:  runConfigShow,
	}
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file (use --host, --port, --user)",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
}

// configJSON mirrors config.Config for --json output with the password
// masked.
type configJSON struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	Timeout        int    `json:"timeout"`
	Mode           int    `json:"mode"`
	Pasv           int    `json:"pasv"`
	Encoding       string `json:"encoding,omitempty"`
	DisableEPSV    bool   `json:"disable_epsv"`
	SubPath        string `json:"sub_path,omitempty"`
	BaseURL        string `json:"base_url,omitempty"`
	TmpDir         string `json:"tmp_dir,omitempty"`
	LogLevel       string `json:"log_level"`
	LogFormat      string `json:"log_format"`
	StateDir       string `json:"state_dir"`
	RescanSchedule string `json:"rescan_schedule"`
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	if flagJSON {
		c := resolvedCfg

		return printJSON(cmd.OutOrStdout(), configJSON{
			Host:           c.Host,
			Port:           c.Port,
			Username:       c.Username,
			Password:       "********",
			Timeout:        c.Timeout,
			Mode:           c.Mode,
			Pasv:           c.Pasv,
			Encoding:       c.Encoding,
			DisableEPSV:    c.DisableEPSV,
			SubPath:        c.SubPath,
			BaseURL:        c.BaseURL,
			TmpDir:         c.TmpDir,
			LogLevel:       c.LogLevel,
			LogFormat:      c.LogFormat,
			StateDir:       c.StateDir,
			RescanSchedule: c.RescanSchedule,
		})
	}

	return config.RenderEffective(resolvedCfg, cmd.OutOrStdout())
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := flagConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if path == "" {
		return fmt.Errorf("cannot determine config path; pass --config")
	}

	port := flagPort
	if port == 0 {
		port = 21
	}

	if err := config.CreateConfig(path, config.ServerConfig{
		Host:     flagHost,
		Port:     port,
		Username: flagUser,
	}); err != nil {
		return err
	}

	statusf(cmd.ErrOrStderr(), "Created %s\n", path)

	return nil
}
