// Package commands implements the mdsite command line.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/mdsite/internal/build"
	"git.home.luguber.info/inful/mdsite/internal/config"
	"git.home.luguber.info/inful/mdsite/internal/engine"
	"git.home.luguber.info/inful/mdsite/internal/events"
	"git.home.luguber.info/inful/mdsite/internal/eventstore"
	"git.home.luguber.info/inful/mdsite/internal/metrics"
	"git.home.luguber.info/inful/mdsite/internal/pipeline"
	"git.home.luguber.info/inful/mdsite/internal/render"
)

// Global carries state shared by subcommands.
type Global struct {
	Logger *slog.Logger
	// Stdout receives user-facing summaries; nil means os.Stdout.
	Stdout io.Writer
}

func (g *Global) out() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Global) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// CLI is the root command.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default mdsite.yaml when present)" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build the site once"`
	Watch   WatchCmd   `cmd:"" help:"Build, then rebuild on every source change"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
	History HistoryCmd `cmd:"" help:"Show recent runs from the run journal"`
}

// AfterApply runs after flag parsing; it installs a default logger until the
// configuration is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := config.NormalizeLogLevel(os.Getenv("MDSITE_LOG_LEVEL")).Slog()
	if c.Verbose {
		level = slog.LevelDebug
	}
	g.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(g.Logger)
	return nil
}

func (c *CLI) configPath() string {
	if c.Config == "" {
		return config.DefaultPath
	}
	return c.Config
}

// SourceFlags are shared by build and watch.
type SourceFlags struct {
	Source   string   `short:"s" help:"Source directory (overrides config)"`
	Output   string   `short:"o" help:"Output directory (overrides config)"`
	Pipeline []string `help:"Ordered pipeline steps (overrides config)" sep:","`
	Ignore   []string `help:"Extra gitignore-style patterns to skip" sep:","`
	Journal  string   `help:"Run journal database (overrides config)"`
}

func (f SourceFlags) apply(cfg *config.Config) {
	if f.Source != "" {
		cfg.Source = f.Source
	}
	if f.Output != "" {
		cfg.Output = f.Output
	}
	if len(f.Pipeline) > 0 {
		cfg.Pipeline = f.Pipeline
	}
	cfg.Ignore = append(cfg.Ignore, f.Ignore...)
	if f.Journal != "" {
		cfg.Journal.Path = f.Journal
	}
}

// loadConfig loads the configuration, applies overrides and reconfigures
// logging from it.
func loadConfig(g *Global, root *CLI, override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.LoadOptional(root.configPath(), root.Config != "")
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	if root.Verbose {
		cfg.Logging.Level = config.LogLevelDebug
	}
	if err := config.Finalize(cfg); err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: cfg.Logging.Level.Slog()}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Logging.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	g.Logger = slog.New(handler)
	slog.SetDefault(g.Logger)
	return cfg, nil
}

// stack wires engine, runner, metrics and event sinks from a configuration.
type stack struct {
	cfg      *config.Config
	engine   *engine.Engine
	runner   *build.Runner
	registry *prometheus.Registry
	recorder *metrics.PrometheusRecorder
	sink     events.Sink
}

func newStack(cfg *config.Config, logger *slog.Logger) (*stack, error) {
	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	eng, err := engine.New(cfg.Mapper(), render.NewGoldmark(cfg.RenderOptions()),
		engine.WithLogger(logger),
		engine.WithRecorder(recorder),
		engine.WithSteps(cfg.Pipeline...),
		engine.WithMemo(pipeline.NewMemo()),
	)
	if err != nil {
		return nil, err
	}

	sink, err := newSink(cfg, logger)
	if err != nil {
		return nil, err
	}

	runner := build.NewRunner(eng,
		build.WithDiscovery(cfg.DiscoveryOptions()),
		build.WithSink(sink),
		build.WithRecorder(recorder),
		build.WithLogger(logger),
	)
	return &stack{cfg: cfg, engine: eng, runner: runner, registry: registry, recorder: recorder, sink: sink}, nil
}

func newSink(cfg *config.Config, logger *slog.Logger) (events.Sink, error) {
	var sinks events.MultiSink
	if cfg.Journal.Path != "" {
		store, err := eventstore.NewSQLiteStore(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, events.NewJournalSink(store, nil))
	}
	if cfg.NATS.URL != "" {
		ns, err := events.NewNATSSink(cfg.NATS.URL, cfg.NATS.Subject, logger)
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		sinks = append(sinks, ns)
	}
	if len(sinks) == 0 {
		return events.Discard{}, nil
	}
	return sinks, nil
}

func (s *stack) Close() error {
	return s.sink.Close()
}
