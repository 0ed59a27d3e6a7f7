package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/mdsite/internal/build"
	"git.home.luguber.info/inful/mdsite/internal/config"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/metrics"
	"git.home.luguber.info/inful/mdsite/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	SourceFlags
	Debounce    string `help:"Quiet period before a batch is rebuilt (overrides config)"`
	Resync      string `help:"Full resync interval, e.g. 10m (overrides config)"`
	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address, e.g. :9464"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root, func(cfg *config.Config) {
		w.apply(cfg)
		if w.Debounce != "" {
			cfg.Watch.Debounce = w.Debounce
		}
		if w.Resync != "" {
			cfg.Watch.ResyncInterval = w.Resync
		}
		if w.MetricsAddr != "" {
			cfg.Watch.MetricsAddr = w.MetricsAddr
		}
	})
	if err != nil {
		return err
	}

	s, err := newStack(cfg, g.logger())
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if addr := cfg.Watch.MetricsAddr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, s.registry); err != nil {
				g.logger().Error("Metrics server failed", logfields.Error(err))
			}
		}()
	}

	logger := g.logger()
	watcher := watch.New(s.runner, watch.Options{
		Debounce:       cfg.DebounceDuration(),
		ResyncInterval: cfg.ResyncDuration(),
		Discovery:      cfg.DiscoveryOptions(),
		Recorder:       s.recorder,
		Logger:         logger,
		OnBatch: func(res *build.Result) {
			if res.Status != build.StatusSuccess {
				printSummary(g, res)
			}
		},
	})

	start := time.Now()
	err = watcher.Run(ctx)
	logger.Info("Watch finished", logfields.Duration(time.Since(start)))
	return err
}
