// Package config loads mdsite's YAML configuration.
//
// Values are resolved in this order: built-in defaults, the YAML file with
// ${VAR} references expanded from the environment (after .env files are
// loaded), MDSITE_LOG_* overrides, then command-line flags applied by the
// caller before Finalize.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/mdsite/internal/discovery"
	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/paths"
	"git.home.luguber.info/inful/mdsite/internal/pipeline"
	"git.home.luguber.info/inful/mdsite/internal/render"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "mdsite.yaml"

// Config is the complete mdsite configuration.
type Config struct {
	Source       string   `yaml:"source"`
	Output       string   `yaml:"output"`
	SourceExt    string   `yaml:"source_ext"`
	OutputExt    string   `yaml:"output_ext"`
	Pipeline     []string `yaml:"pipeline"`
	Ignore       []string `yaml:"ignore,omitempty"`
	SkipPartials bool     `yaml:"skip_partials"`
	NoGitignore  bool     `yaml:"no_gitignore,omitempty"`

	Render  RenderConfig  `yaml:"render"`
	Logging LoggingConfig `yaml:"logging"`
	Watch   WatchConfig   `yaml:"watch"`
	Journal JournalConfig `yaml:"journal,omitempty"`
	NATS    NATSConfig    `yaml:"nats,omitempty"`
}

// RenderConfig mirrors render.Options.
type RenderConfig struct {
	HardWraps  bool     `yaml:"hard_wraps"`
	XHTML      bool     `yaml:"xhtml"`
	UnsafeHTML bool     `yaml:"unsafe_html"`
	Extensions []string `yaml:"extensions"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// WatchConfig tunes watch mode. Durations use Go syntax ("250ms", "10m").
type WatchConfig struct {
	Debounce       string `yaml:"debounce"`
	ResyncInterval string `yaml:"resync_interval,omitempty"` // empty disables resync
	MetricsAddr    string `yaml:"metrics_addr,omitempty"`    // empty disables /metrics
}

// JournalConfig enables the SQLite run journal when Path is set.
type JournalConfig struct {
	Path string `yaml:"path,omitempty"`
}

// NATSConfig enables event publishing when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	opts := render.DefaultOptions()
	return &Config{
		Source:       "./docs",
		Output:       "./site",
		SourceExt:    ".md",
		OutputExt:    ".html",
		Pipeline:     append([]string(nil), pipeline.DefaultSteps...),
		SkipPartials: true,
		Render: RenderConfig{
			HardWraps:  opts.HardWraps,
			XHTML:      opts.XHTML,
			UnsafeHTML: opts.UnsafeHTML,
			Extensions: []string{"gfm"},
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Watch:   WatchConfig{Debounce: "150ms"},
	}
}

// Load reads path on top of the defaults. The result still needs Finalize
// once flag overrides are applied.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(filepath.Dir(path)); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is operator supplied
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError(fmt.Sprintf("configuration file not found: %s", path)).
				WithCause(err).WithContext("path", path).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			WithContext("path", path).Build()
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse config file").
			WithContext("path", path).Build()
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadOptional loads path when it exists and falls back to the defaults
// otherwise. An explicitly requested path must exist.
func LoadOptional(path string, explicit bool) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err != nil && os.IsNotExist(err) && !explicit {
		if err := loadEnvFiles("."); err != nil {
			return nil, err
		}
		cfg := Default()
		applyEnvOverrides(cfg)
		return cfg, nil
	}
	return Load(path)
}

// Finalize normalises enumerations and validates the configuration.
func Finalize(cfg *Config) error {
	normalize(cfg)
	return Validate(cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MDSITE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = LogLevel(v)
	}
	if v := os.Getenv("MDSITE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = LogFormat(v)
	}
}

func normalize(cfg *Config) {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	cfg.SourceExt = dotted(cfg.SourceExt)
	cfg.OutputExt = dotted(cfg.OutputExt)
	for i, name := range cfg.Pipeline {
		cfg.Pipeline[i] = strings.ToLower(strings.TrimSpace(name))
	}
	for i, name := range cfg.Render.Extensions {
		cfg.Render.Extensions[i] = strings.ToLower(strings.TrimSpace(name))
	}
}

func dotted(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// Mapper returns the path mapper for the configured roots.
func (c *Config) Mapper() paths.Mapper {
	return paths.NewMapper(c.Source, c.Output, c.SourceExt, c.OutputExt)
}

// RenderOptions converts the render section.
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		HardWraps:  c.Render.HardWraps,
		XHTML:      c.Render.XHTML,
		UnsafeHTML: c.Render.UnsafeHTML,
		Extensions: append([]string(nil), c.Render.Extensions...),
	}
}

// DiscoveryOptions converts the discovery related keys.
func (c *Config) DiscoveryOptions() discovery.Options {
	return discovery.Options{
		SourceExt:    c.SourceExt,
		Ignore:       append([]string(nil), c.Ignore...),
		SkipPartials: c.SkipPartials,
		NoGitignore:  c.NoGitignore,
	}
}

// DebounceDuration parses Watch.Debounce. Validate guarantees it parses.
func (c *Config) DebounceDuration() time.Duration {
	d, _ := time.ParseDuration(c.Watch.Debounce)
	return d
}

// ResyncDuration parses Watch.ResyncInterval; zero means disabled.
func (c *Config) ResyncDuration() time.Duration {
	if c.Watch.ResyncInterval == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.Watch.ResyncInterval)
	return d
}
