package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/gish1337/alm-agent/internal/config"
	"github.com/gish1337/alm-agent/internal/heartbeat"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show agent liveness and statistics from the heartbeat file",
		Action: func(_ context.Context, _ *cli.Command) error {
			status, hb, err := heartbeat.Check(config.HeartbeatPath(), 2*time.Minute)
			if err != nil {
				return fmt.Errorf("check heartbeat: %w", err)
			}

			switch status {
			case heartbeat.StatusAlive:
				fmt.Printf("Agent: ALIVE (PID %d, uptime %s)\n", hb.PID, hb.Uptime)
			case heartbeat.StatusStale:
				fmt.Printf("Agent: STALE (PID %d, last heartbeat %s ago)\n",
					hb.PID, time.Since(hb.Timestamp).Truncate(time.Second))
			case heartbeat.StatusDead:
				fmt.Println("Agent: NOT RUNNING")
				return nil
			}

			if hb != nil && hb.AgentID != "" {
				fmt.Printf("  %s (%s)\n", hb.Name, hb.AgentID)
				fmt.Printf("  Reputation: %d\n", hb.Reputation)
				fmt.Printf("  Tasks: %d completed, %.0f%% success\n",
					hb.TasksCompleted, hb.SuccessRate)
			}
			return nil
		},
	}
}
