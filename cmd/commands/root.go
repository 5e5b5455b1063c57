package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/gish1337/alm-agent/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "alm",
		Usage: "A Solana assistant agent with a skill registry and dispatch engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewWakeCommand(),
			NewServeCommand(),
			NewChatCommand(),
			NewTUICommand(),
			NewStatusCommand(),
			NewProfileCommand(),
			NewCapabilityCommand(),
			NewSecretsCommand(),
			NewMCPServeCommand(),
		},
	}
}
