package main

import (
	"context"
	"fmt"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/alucardeht/specsync/internal/session"
)

var (
	dryRun      bool
	writeConfig bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch the API document once and update the host page",
	Long: `Fetches <base_url><docs_path>, locates the region introduced by the marker in
the host page and replaces it with the fetched document. The page is left
untouched if any stage fails. Exits 0 on success and 1 on failure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if writeConfig {
			if err := cfg.Save(cfgFile); err != nil {
				return err
			}
			stdout().Info("configuration written to %s", cfgFile)
		}

		ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
		defer stop()

		s, err := newSyncer(cfg)
		if err != nil {
			return err
		}

		if dryRun {
			plan, err := s.Plan(ctx)
			if err != nil {
				return err
			}
			if !plan.Changed() {
				stdout().Info("%s is up to date", cfg.HostFile)
				return nil
			}
			stdout().Diff(plan.Diff())
			return nil
		}

		if store := openHistory(cfg); store != nil {
			defer store.Close()
			s.SetRecorder(store)
		}

		result, err := s.Sync(ctx, session.TriggerManual)
		stdout().Result(result)
		if err != nil {
			return fmt.Errorf("%w: %v", errReported, err)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the change as a diff without writing")
	syncCmd.Flags().BoolVar(&writeConfig, "write-config", false, "save the effective configuration to --config")
	rootCmd.AddCommand(syncCmd)
}
