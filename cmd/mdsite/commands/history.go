package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/mdsite/internal/eventstore"
	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Journal string `help:"Run journal database (overrides config)"`
	Limit   int    `short:"n" help:"Number of runs to show" default:"10"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root, nil)
	if err != nil {
		return err
	}
	path := cfg.Journal.Path
	if h.Journal != "" {
		path = h.Journal
	}
	if path == "" {
		return errors.ConfigError("no run journal configured (set journal.path or --journal)").Build()
	}

	store, err := eventstore.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	projection := eventstore.NewRunHistoryProjection(store, h.Limit)
	if err := projection.Rebuild(context.Background()); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tMODE\tSTATUS\tSTARTED\tDURATION\tEXPORTED\tFAILED")
	for _, run := range projection.History() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			run.RunID, run.Mode, run.Status,
			run.StartedAt.Format(time.RFC3339), run.Duration.Round(time.Millisecond),
			run.Exported, run.Failed)
	}
	return tw.Flush()
}
