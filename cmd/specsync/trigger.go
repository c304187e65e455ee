package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/alucardeht/specsync/internal/daemon"
)

var triggerReason string

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Ask the running watcher to sync now",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := daemon.Dial(ctx, cfg.SocketPath())
		if err != nil {
			return err
		}
		defer client.Close()

		result, err := client.Trigger(ctx, triggerReason)
		if err != nil {
			return err
		}

		switch {
		case !result.Accepted:
			stdout().Info("a sync is already pending")
		case result.InFlight:
			stdout().Info("sync queued after the one in progress")
		default:
			stdout().Info("sync requested")
		}
		return nil
	},
}

func init() {
	triggerCmd.Flags().StringVar(&triggerReason, "reason", "manual", "trigger label recorded in history")
	rootCmd.AddCommand(triggerCmd)
}
