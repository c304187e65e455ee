package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alucardeht/specsync/internal/document"
)

var extractOutput string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Print the API document embedded in the host page",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(cfg.HostFile)
		if err != nil {
			return err
		}
		host, err := document.DecodeHost(data)
		if err != nil {
			return fmt.Errorf("reading %s: %w", cfg.HostFile, err)
		}

		doc, region, err := document.NewLocator(cfg.Marker).Extract(host.Text)
		if err != nil {
			return err
		}

		out, err := doc.Render(cfg.Indent)
		if err != nil {
			return err
		}
		out += "\n"

		if extractOutput == "" || extractOutput == "-" {
			fmt.Fprint(os.Stdout, out)
			return nil
		}

		if err := os.WriteFile(extractOutput, []byte(out), 0644); err != nil {
			return err
		}
		stdout().Info("wrote %s (%d bytes, %s region, sha256 %s)", extractOutput, len(out), region.Shape, doc.Hash()[:12])
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "write to a file instead of stdout")
	rootCmd.AddCommand(extractCmd)
}
