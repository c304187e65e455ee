package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alucardeht/specsync/internal/config"
	"github.com/alucardeht/specsync/internal/console"
	"github.com/alucardeht/specsync/internal/document"
	"github.com/alucardeht/specsync/internal/fetch"
	"github.com/alucardeht/specsync/internal/history"
	"github.com/alucardeht/specsync/internal/logger"
	"github.com/alucardeht/specsync/internal/syncer"
)

var (
	cfgFile  string
	verbose  bool
	baseURL  string
	hostFile string
)

var rootCmd = &cobra.Command{
	Use:   "specsync",
	Short: "Mirror a running service's OpenAPI document into a static HTML page",
	Long: `specsync fetches the OpenAPI document served by a running application and
replaces the copy embedded in a static Swagger UI page, keeping the rest of
the page and its indentation intact. In watch mode it re-syncs whenever the
application's sources change and on a fixed interval.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "base URL of the running service (overrides config)")
	rootCmd.PersistentFlags().StringVar(&hostFile, "host-file", "", "HTML page holding the embedded document (overrides config)")
}

// loadConfig applies the layers in order: defaults, config file, SPECSYNC_*
// environment, command-line flags. It also configures logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = baseURL
	}
	if flags.Changed("host-file") {
		cfg.HostFile = hostFile
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	initLogging(cfg, os.Stderr)
	return cfg, nil
}

func initLogging(cfg *config.Config, w io.Writer) {
	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(cfg.Log.Level)
	logCfg.Format = cfg.Log.Format
	logCfg.Output = w
	logger.Init(logCfg)
}

func newSyncer(cfg *config.Config) (*syncer.Syncer, error) {
	client, err := fetch.New(fetch.Options{
		URL:       cfg.APIDocsURL(),
		Timeout:   cfg.Timeout,
		UserAgent: "specsync/" + Version,
	})
	if err != nil {
		return nil, err
	}

	return syncer.New(client, syncer.Options{
		HostFile: cfg.HostFile,
		Marker:   cfg.Marker,
		Rewrite:  document.RewriteOptions{Indent: cfg.Indent, Separator: cfg.Separator},
	}), nil
}

// openHistory returns nil when history is disabled or the database cannot be
// opened; a broken run log never blocks a sync.
func openHistory(cfg *config.Config) *history.Store {
	if !cfg.History.Enabled {
		return nil
	}
	if err := cfg.EnsureDirectories(); err != nil {
		logger.Warn("history disabled", "error", err)
		return nil
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logger.Warn("history disabled", "path", cfg.HistoryPath(), "error", err)
		return nil
	}
	return store
}

func stdout() *console.Printer {
	return console.New(os.Stdout)
}
