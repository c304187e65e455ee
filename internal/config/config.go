package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/alucardeht/specsync/internal/watcher"
)

const (
	DefaultConfigFile = ".specsync.yml"
	EnvPrefix         = "SPECSYNC_"
)

type WatchConfig struct {
	Root     string        `yaml:"root" koanf:"root"`
	Patterns []string      `yaml:"patterns" koanf:"patterns"`
	Ignore   []string      `yaml:"ignore" koanf:"ignore"`
	Debounce time.Duration `yaml:"debounce" koanf:"debounce"`
	Interval time.Duration `yaml:"interval" koanf:"interval"`
	Hidden   bool          `yaml:"hidden" koanf:"hidden"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" koanf:"enabled"`
	DBPath  string `yaml:"db_path" koanf:"db_path"`
}

type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

type PreviewConfig struct {
	Addr string `yaml:"addr" koanf:"addr"`
}

// Config corresponds to .specsync.yml.
type Config struct {
	BaseURL   string        `yaml:"base_url" koanf:"base_url"`
	DocsPath  string        `yaml:"docs_path" koanf:"docs_path"`
	Timeout   time.Duration `yaml:"timeout" koanf:"timeout"`
	HostFile  string        `yaml:"host_file" koanf:"host_file"`
	Marker    string        `yaml:"marker" koanf:"marker"`
	Indent    string        `yaml:"indent" koanf:"indent"`
	Separator string        `yaml:"separator" koanf:"separator"`
	StateDir  string        `yaml:"state_dir" koanf:"state_dir"`
	Watch     WatchConfig   `yaml:"watch" koanf:"watch"`
	History   HistoryConfig `yaml:"history" koanf:"history"`
	Preview   PreviewConfig `yaml:"preview" koanf:"preview"`
	Log       LogConfig     `yaml:"log" koanf:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:   "http://localhost:8080",
		DocsPath:  "/v3/api-docs",
		Timeout:   10 * time.Second,
		HostFile:  "swagger-ui-standalone.html",
		Marker:    "spec:",
		Indent:    "  ",
		Separator: ",",
		StateDir:  ".specsync",
		Watch: WatchConfig{
			Root: ".",
			Patterns: []string{
				"src/main/java/**/*.java",
				"target/classes/**/*.class",
			},
			Ignore: []string{
				"**/.git/**",
				"**/node_modules/**",
				"**/.idea/**",
				"**/*.log",
			},
			Debounce: 2 * time.Second,
			Interval: 30 * time.Second,
			Hidden:   false,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Preview: PreviewConfig{
			Addr: "127.0.0.1:8090",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (SPECSYNC_*). A double underscore in a
// variable name separates nesting levels: SPECSYNC_WATCH__INTERVAL=1m.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base_url %q: scheme must be http or https", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base_url %q: host is required", c.BaseURL)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.HostFile == "" {
		return fmt.Errorf("host_file is required")
	}
	if strings.TrimSpace(c.Marker) == "" {
		return fmt.Errorf("marker is required")
	}
	if strings.Trim(c.Indent, " \t") != "" {
		return fmt.Errorf("indent may only contain spaces and tabs")
	}
	if c.StateDir == "" {
		return fmt.Errorf("state_dir is required")
	}

	if c.Watch.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be positive")
	}
	if c.Watch.Interval < 0 {
		return fmt.Errorf("watch.interval must be non-negative")
	}
	for _, p := range append(append([]string{}, c.Watch.Patterns...), c.Watch.Ignore...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid watch pattern %q", p)
		}
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q: must be text or json", c.Log.Format)
	}

	return nil
}

// APIDocsURL joins base_url and docs_path.
func (c *Config) APIDocsURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(c.DocsPath, "/")
}

func (c *Config) LockPath() string {
	return filepath.Join(c.StateDir, "watch.lock")
}

func (c *Config) PIDPath() string {
	return filepath.Join(c.StateDir, "watch.pid")
}

func (c *Config) SocketPath() string {
	return filepath.Join(c.StateDir, "specsync.sock")
}

func (c *Config) HistoryPath() string {
	if c.History.DBPath != "" {
		return c.History.DBPath
	}
	return filepath.Join(c.StateDir, "history.db")
}

func (c *Config) EnsureDirectories() error {
	return os.MkdirAll(c.StateDir, 0700)
}

func (c *Config) WatcherConfig() watcher.WatcherConfig {
	wc := watcher.DefaultWatcherConfig()
	wc.Root = c.Watch.Root
	wc.Patterns = c.Watch.Patterns
	wc.IgnorePatterns = c.Watch.Ignore
	wc.DebounceWindow = c.Watch.Debounce
	wc.WatchHidden = c.Watch.Hidden
	if abs, err := filepath.Abs(c.HostFile); err == nil {
		wc.ExcludeFiles = []string{abs}
	}
	return wc
}
