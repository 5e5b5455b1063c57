package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	almmcp "github.com/gish1337/alm-agent/internal/mcp"
)

// NewMCPServeCommand returns the mcp-serve subcommand.
func NewMCPServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "mcp-serve",
		Usage:  "Expose the agent as an MCP server (stdio)",
		Action: runMCPServe,
	}
}

func runMCPServe(_ context.Context, cmd *cli.Command) error {
	// stdout carries the MCP stdio transport: logs go to stderr only.
	setupLogging(cmd, true)
	cfg := loadConfig(cmd)

	ctx := context.Background()

	c, err := buildCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.close()

	// One refresh so network_status has a snapshot to serve.
	c.monitor.Refresh(ctx)

	server := almmcp.NewServer(almmcp.Config{
		Profile: c.profile,
		Engine:  c.engine,
		Monitor: c.monitor,
		Version: cfg.Agent.Version,
	})
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
