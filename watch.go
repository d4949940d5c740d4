package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/ftpfs-go/internal/ledger"
	"github.com/tonimelisma/ftpfs-go/internal/metrics"
	"github.com/tonimelisma/ftpfs-go/internal/watch"
)

// State file names inside state_dir.
const (
	ledgerFileName = "ledger.db"
	pidFileName    = "watch.pid"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <local-dir> [remote-dir]",
		Short: "Mirror a local directory to the server",
		Long: `Upload a local directory tree, then keep uploading new and changed files
as they appear. A full rescan runs on the rescan_schedule cron expression.

With --delete, files removed locally are also removed from the server.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runWatch,
	}

	cmd.Flags().Bool("delete", false, "delete remote files whose local copy was removed")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9310)")
	cmd.Flags().String("rescan", "", "override rescan_schedule (cron expression, empty keeps config)")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	deleteRemote, err := cmd.Flags().GetBool("delete")
	if err != nil {
		return err
	}

	metricsAddr, err := cmd.Flags().GetString("metrics-addr")
	if err != nil {
		return err
	}

	schedule := resolvedCfg.RescanSchedule
	if cmd.Flags().Changed("rescan") {
		if schedule, err = cmd.Flags().GetString("rescan"); err != nil {
			return err
		}
	}

	remoteRoot := "."
	if len(args) > 1 {
		remoteRoot = args[1]
	}

	stateDir := resolvedCfg.StateDir
	if stateDir == "" {
		return fmt.Errorf("state_dir is not set and no default data directory is available")
	}

	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)

	cleanup, err := writePIDFile(filepath.Join(stateDir, pidFileName))
	if err != nil {
		return err
	}
	defer cleanup()

	l, err := ledger.Open(ctx, filepath.Join(stateDir, ledgerFileName), logger)
	if err != nil {
		return err
	}
	defer l.Close()

	collector := metrics.NewCollector(nil)

	fsys, err := openStorage(logger, collector)
	if err != nil {
		return err
	}
	defer fsys.Close()

	mirror, err := watch.New(fsys, l, watch.Options{
		LocalRoot:      args[0],
		RemoteRoot:     remoteRoot,
		Delete:         deleteRemote,
		RescanSchedule: schedule,
	}, logger, collector)
	if err != nil {
		return err
	}

	onHangup(ctx, logger, mirror.RequestRescan)

	statusf(cmd.ErrOrStderr(), "Watching %s -> %s (Ctrl-C to stop)\n", args[0], remoteRoot)

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)

	g.Go(func() error {
		// The metrics server follows the mirror's lifetime.
		defer stop()

		return mirror.Run(runCtx)
	})

	if metricsAddr != "" {
		g.Go(func() error {
			return collector.Serve(runCtx, metricsAddr, logger)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	statusf(cmd.ErrOrStderr(), "Stopped watching %s\n", args[0])

	return nil
}

func newRescanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rescan",
		Short: "Ask a running watch to rescan its whole tree now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if resolvedCfg.StateDir == "" {
				return fmt.Errorf("state_dir is not set and no default data directory is available")
			}

			if err := sendSIGHUP(filepath.Join(resolvedCfg.StateDir, pidFileName)); err != nil {
				return err
			}

			statusf(cmd.ErrOrStderr(), "Rescan requested\n")

			return nil
		},
	}
}
