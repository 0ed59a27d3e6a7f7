package commands

import (
	"fmt"

	"git.home.luguber.info/inful/mdsite/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	if err := config.Init(root.configPath(), i.Force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Wrote %s\n", root.configPath())
	return nil
}
