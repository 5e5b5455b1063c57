package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/gish1337/alm-agent/internal/registry"
)

// NewCapabilityCommand returns the capability subcommand.
func NewCapabilityCommand() *cli.Command {
	return &cli.Command{
		Name:  "capability",
		Usage: "Manage the running agent's capabilities",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a capability to the profile",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					gatewayFlag(),
					&cli.StringFlag{
						Name:  "description",
						Usage: "What the capability does",
					},
					&cli.StringFlag{
						Name:  "version",
						Usage: "Capability version",
						Value: "1.0.0",
					},
					&cli.BoolFlag{
						Name:  "disabled",
						Usage: "Add the capability disabled",
					},
				},
				Action: runCapabilityAdd,
			},
			{
				Name:      "toggle",
				Usage:     "Enable or disable a capability",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					gatewayFlag(),
					&cli.BoolFlag{
						Name:  "off",
						Usage: "Disable instead of enable",
					},
				},
				Action: runCapabilityToggle,
			},
		},
	}
}

func runCapabilityAdd(_ context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: alm capability add <name>")
	}

	body, err := json.Marshal(registry.AgentCapability{
		Name:        name,
		Description: cmd.String("description"),
		Version:     cmd.String("version"),
		Enabled:     !cmd.Bool("disabled"),
	})
	if err != nil {
		return err
	}

	resp, err := gatewayDo(http.MethodPost, cmd.String("gateway")+"/api/agent/capabilities", body)
	if err != nil {
		return err
	}

	var summary struct {
		Capabilities int `json:"capabilities"`
		Enabled      int `json:"enabled"`
	}
	if err := json.Unmarshal(resp, &summary); err == nil {
		fmt.Printf("Added %q (%d capabilities, %d enabled)\n", name, summary.Capabilities, summary.Enabled)
		return nil
	}
	fmt.Printf("Added %q\n", name)
	return nil
}

func runCapabilityToggle(_ context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: alm capability toggle <name>")
	}

	enabled := !cmd.Bool("off")
	body, err := json.Marshal(map[string]bool{"enabled": enabled})
	if err != nil {
		return err
	}

	if _, err := gatewayDo(http.MethodPatch, cmd.String("gateway")+"/api/agent/capabilities/"+name, body); err != nil {
		return err
	}

	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	fmt.Printf("Capability %q %s\n", name, state)
	return nil
}

// gatewayDo sends a JSON request to the gateway and returns the body.
func gatewayDo(method, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reach gateway (is the agent running?): %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, gatewayError(resp.StatusCode, respBody)
	}
	return respBody, nil
}
