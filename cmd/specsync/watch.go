package main

import (
	"context"
	"fmt"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/alucardeht/specsync/internal/daemon"
	"github.com/alucardeht/specsync/internal/logger"
	"github.com/alucardeht/specsync/internal/session"
	"github.com/alucardeht/specsync/internal/watcher"
)

var noWatch bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync now, then again on source changes and on a fixed interval",
	Long: `Runs one sync immediately, then watches the configured source patterns and
re-syncs once changes settle for the debounce window. A periodic sync runs
every watch.interval regardless of file activity. Only one sync runs at a
time. While running, "specsync trigger" and "specsync status" reach this
process through the control socket in state_dir. Stops on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.EnsureDirectories(); err != nil {
			return fmt.Errorf("creating state dir: %w", err)
		}

		lm := daemon.NewLifecycleManager(cfg.LockPath(), cfg.PIDPath(), cfg.SocketPath())
		if err := lm.AcquireInstanceLock(); err != nil {
			return err
		}
		defer lm.Cleanup()

		if err := lm.RegisterRunning(); err != nil {
			return fmt.Errorf("writing pid file: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
		defer stop()

		s, err := newSyncer(cfg)
		if err != nil {
			return err
		}

		if store := openHistory(cfg); store != nil {
			defer store.Close()
			s.SetRecorder(store)
		}

		sess := session.New(s, session.Options{
			Interval: cfg.Watch.Interval,
			URL:      cfg.APIDocsURL(),
			HostFile: cfg.HostFile,
		})

		if !noWatch {
			w, err := watcher.New(cfg.WatcherConfig(), sess.OnChange)
			if err != nil {
				return err
			}
			sess.SetSource(w)
		}

		ctrl := daemon.NewServer(cfg.SocketPath(), sess.Controller())
		if err := ctrl.Start(ctx); err != nil {
			logger.Warn("control socket unavailable", "error", err)
		} else {
			defer ctrl.Shutdown()
		}

		if err := sess.Run(ctx); err != nil {
			return err
		}

		logger.Info("shutting down")
		return nil
	},
}

func init() {
	watchCmd.Flags().BoolVar(&noWatch, "no-watch", false, "only run the periodic sync, without watching files")
	rootCmd.AddCommand(watchCmd)
}
