package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mdsite/cmd/mdsite/commands"
	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{}

	ctx := kong.Parse(&cli,
		kong.Name("mdsite"),
		kong.Description("Incremental markdown to HTML site builder"),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	err := ctx.Run(global, &cli)
	if err != nil {
		os.Exit(errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).Report(err))
	}
}
