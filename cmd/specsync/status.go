package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alucardeht/specsync/internal/daemon"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the running watcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := daemon.Dial(ctx, cfg.SocketPath())
		if err != nil {
			if pid := daemon.NewPIDFile(cfg.PIDPath()).Owner(); pid > 0 {
				stdout().Info("watcher pid %d is alive but its control socket does not answer", pid)
			}
			return err
		}
		defer client.Close()

		st, err := client.Status(ctx)
		if err != nil {
			return err
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		stdout().Status(st)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the raw status object")
	rootCmd.AddCommand(statusCmd)
}
