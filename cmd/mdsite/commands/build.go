package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/mdsite/internal/build"
	"git.home.luguber.info/inful/mdsite/internal/config"
	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	SourceFlags
	KeepPartials bool `help:"Export partials (files starting with _) as pages too"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root, func(cfg *config.Config) {
		b.apply(cfg)
		if b.KeepPartials {
			cfg.SkipPartials = false
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

	res, err := s.runner.Run(ctx, build.Request{Mode: build.ModeBuild})
	if err != nil {
		return err
	}
	printSummary(g, res)

	switch res.Status {
	case build.StatusSuccess:
		return nil
	case build.StatusCancelled:
		return errors.NewError(errors.CategoryRuntime, "build cancelled").Build()
	default:
		return errors.NewError(errors.CategoryRuntime, fmt.Sprintf("%d of %d documents failed", res.Failed, len(res.Documents))).
			WithContext("run_id", res.RunID).
			Build()
	}
}

func printSummary(g *Global, res *build.Result) {
	w := g.out()
	_, _ = fmt.Fprintf(w, "Run %s: %s, %d exported, %d failed in %s\n",
		res.RunID, res.Status, res.Exported, res.Failed, res.Duration.Round(time.Millisecond))
	for _, d := range res.Failures() {
		_, _ = fmt.Fprintf(w, "  %s (%s): %v\n", d.Path, d.Stage, d.Err)
	}
}
