package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alucardeht/specsync/internal/history"
	"github.com/alucardeht/specsync/pkg/protocol"
)

var (
	historyLimit int
	historyPrune time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent sync runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if !cfg.History.Enabled {
			return fmt.Errorf("history is disabled (history.enabled: false)")
		}

		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer store.Close()

		ctx := cmd.Context()

		if historyPrune > 0 {
			n, err := store.Prune(ctx, historyPrune)
			if err != nil {
				return err
			}
			stdout().Info("removed %d runs older than %s", n, historyPrune)
		}

		runs, err := store.List(ctx, historyLimit)
		if err != nil {
			return err
		}

		summaries := make([]protocol.RunSummary, 0, len(runs))
		for _, r := range runs {
			summaries = append(summaries, protocol.RunSummary{
				ID:           r.ID,
				Trigger:      r.Trigger,
				StartedAt:    r.StartedAt,
				DurationMs:   r.Duration.Milliseconds(),
				Changed:      r.Changed,
				BytesWritten: r.BytesWritten,
				DocHash:      r.DocHash,
				Kind:         string(r.Kind),
				Error:        r.Error,
			})
		}

		stdout().Runs(summaries)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", history.DefaultLimit, "number of runs to show")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "delete runs older than this before listing")
	rootCmd.AddCommand(historyCmd)
}
