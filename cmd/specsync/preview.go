package main

import (
	"context"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/alucardeht/specsync/internal/preview"
)

var previewAddr string

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Serve the host page and its embedded API document over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Preview.Addr = previewAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
		defer stop()

		stdout().Info("serving %s on http://%s", cfg.HostFile, cfg.Preview.Addr)

		return preview.New(preview.Config{
			Addr:     cfg.Preview.Addr,
			HostFile: cfg.HostFile,
			Marker:   cfg.Marker,
		}).Serve(ctx)
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewAddr, "addr", "", "listen address (overrides preview.addr)")
	rootCmd.AddCommand(previewCmd)
}
