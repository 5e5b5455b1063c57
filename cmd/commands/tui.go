package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/gish1337/alm-agent/clients/tui"
	wsclient "github.com/gish1337/alm-agent/clients/ws"
)

// NewTUICommand returns the tui subcommand.
func NewTUICommand() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive terminal client",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "gateway",
				Usage: "Gateway WebSocket URL",
				Value: "ws://127.0.0.1:18901/ws",
			},
		},
		Action: runTUI,
	}
}

func runTUI(_ context.Context, cmd *cli.Command) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := wsclient.Dial(ctx, cmd.String("gateway"))
	if err != nil {
		return fmt.Errorf("connect to gateway (is the agent running?): %w", err)
	}
	defer client.Close()

	app := tui.NewApp(client)
	program := tea.NewProgram(app, tea.WithAltScreen())
	_, err = program.Run()
	return err
}
