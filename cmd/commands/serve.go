package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/gish1337/alm-agent/internal/config"
	"github.com/gish1337/alm-agent/internal/gateway"
	"github.com/gish1337/alm-agent/internal/heartbeat"
	"github.com/gish1337/alm-agent/internal/storage"
)

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the agent: gateway, chain monitor and heartbeat",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
		},
		Action: runServe,
	}
}

func runServe(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd, false)
	cfg := loadConfig(cmd)

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = int(cmd.Int("port"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, err := buildCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.close()

	// Activity log and per-skill tally
	taskLog := storage.NewTaskLogger(config.LogsDir(), c.bus)
	defer taskLog.Close()
	tally := storage.NewSkillTally(c.bus)
	defer tally.Close()

	// Chain monitor: immediate refresh, then cron
	c.monitor.Start(ctx)

	// Heartbeat file for external liveness checks
	if cfg.Heartbeat.On() {
		writer := heartbeat.NewWriter(config.HeartbeatPath(), cfg.Heartbeat.Interval.Duration(), func() heartbeat.AgentSnapshot {
			s := c.profile.Summary()
			return heartbeat.AgentSnapshot{
				AgentID:        s.AgentID,
				Name:           s.Name,
				Reputation:     s.Reputation,
				TasksCompleted: s.TasksCompleted,
				SuccessRate:    s.SuccessRate,
			}
		})
		writer.Start()
		defer writer.Stop()
	}

	server := gateway.NewServer(gateway.Config{
		Bus:      c.bus,
		Engine:   c.engine,
		Registry: c.registry,
		Profile:  c.profile,
		Monitor:  c.monitor,
		Tally:    tally,
		Host:     cfg.Gateway.Host,
		Port:     cfg.Gateway.Port,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
