package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/gish1337/alm-agent/internal/chain"
	"github.com/gish1337/alm-agent/internal/completion"
	"github.com/gish1337/alm-agent/internal/config"
	"github.com/gish1337/alm-agent/internal/engine"
	"github.com/gish1337/alm-agent/internal/events"
	"github.com/gish1337/alm-agent/internal/profile"
	"github.com/gish1337/alm-agent/internal/registry"
	"github.com/gish1337/alm-agent/internal/secrets"
)

// setupLogging configures slog from the --debug flag. MCP mode forces
// stderr-only warnings since stdout carries the protocol.
func setupLogging(cmd *cli.Command, quiet bool) {
	level := slog.LevelInfo
	if quiet {
		level = slog.LevelWarn
	}
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig loads the config file, the .env file and decrypts any
// ENC[age:...] values. A missing config file degrades to defaults.
func loadConfig(cmd *cli.Command) *config.Config {
	if err := config.LoadDotenv(config.DotenvPath()); err != nil {
		slog.Debug("no .env loaded", "error", err)
	}

	configPath := cmd.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Warn("config not found, using defaults", "path", configPath, "error", err)
		cfg = config.Default()
	}

	if err := secrets.DecryptConfigValues(cfg, secrets.KeyPath()); err != nil {
		slog.Warn("decrypt config secrets", "error", err)
	}

	return cfg
}

// core bundles the wired agent components the serve and mcp commands share.
type core struct {
	bus      *events.Bus
	registry *registry.Registry
	profile  *profile.Manager
	engine   *engine.DispatchEngine
	monitor  *chain.Monitor
}

// buildCore wires registry, profile, chain, completion and engine from
// config and registers the local agent.
func buildCore(ctx context.Context, cfg *config.Config) (*core, error) {
	bus := events.NewBus(cfg.Events.BufferSize)

	reg := registry.New(registry.Config{
		Policy: registry.ReputationPolicy{
			Initial:        cfg.Reputation.Initial,
			SuccessDelta:   cfg.Reputation.SuccessDelta,
			FailurePenalty: cfg.Reputation.FailurePenalty,
		},
	})

	mgr := profile.NewManager(profile.Config{Registry: reg, Bus: bus})
	if cfg.Pricing.Currency != "" {
		if err := mgr.SetPricing(registry.Pricing{
			PricePerTask: cfg.Pricing.PricePerTask,
			Currency:     registry.Currency(cfg.Pricing.Currency),
		}); err != nil {
			bus.Close()
			return nil, fmt.Errorf("configure pricing: %w", err)
		}
	}

	agentID, err := mgr.Initialize(profile.Identity{
		Name:        cfg.Agent.Name,
		Description: cfg.Agent.Description,
		Version:     cfg.Agent.Version,
		PublicKey:   cfg.Agent.PublicKey,
	})
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("initialize agent: %w", err)
	}
	slog.Info("agent registered", "agent_id", agentID, "name", cfg.Agent.Name)

	rpc := chain.NewClient(chain.ClientConfig{
		Endpoint:   cfg.Chain.RPCURL,
		Commitment: cfg.Chain.Commitment,
	})
	prices := chain.NewPriceFeed(chain.PriceFeedConfig{URL: cfg.Chain.PriceURL})

	cron, err := chain.ParseCron(cfg.Chain.RefreshCron)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("parse refresh cron: %w", err)
	}
	monitor := chain.NewMonitor(chain.MonitorConfig{
		RPC:    rpc,
		Prices: prices,
		Bus:    bus,
		Cron:   cron,
	})

	commands := chain.NewCommands(chain.CommandsConfig{
		RPC:     rpc,
		Prices:  prices,
		Monitor: monitor,
	})

	completer := completion.NewService(completion.NewRegistry(cfg.Models))

	eng := engine.New(engine.Config{
		Registry:         reg,
		AgentID:          agentID,
		Commands:         commands,
		Completer:        completer,
		Bus:              bus,
		MaxMessageLength: cfg.Dispatch.MaxMessageLength,
		HistoryWindow:    cfg.Dispatch.HistoryWindow,
		SystemPrompt:     cfg.Dispatch.SystemPrompt,
	})

	return &core{
		bus:      bus,
		registry: reg,
		profile:  mgr,
		engine:   eng,
		monitor:  monitor,
	}, nil
}

// close releases the core's long-lived pieces.
func (c *core) close() {
	c.monitor.Stop()
	c.bus.Close()
}
