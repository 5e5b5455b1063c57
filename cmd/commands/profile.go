package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
)

func gatewayFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "gateway",
		Usage: "Gateway base URL",
		Value: "http://127.0.0.1:18901",
	}
}

// NewProfileCommand returns the profile subcommand.
func NewProfileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Inspect the running agent's profile",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the agent summary",
				Flags: []cli.Flag{gatewayFlag()},
				Action: func(_ context.Context, cmd *cli.Command) error {
					return printGatewayJSON(cmd.String("gateway") + "/api/agent")
				},
			},
			{
				Name:  "export",
				Usage: "Print the OpenClaw marketplace manifest",
				Flags: []cli.Flag{gatewayFlag()},
				Action: func(_ context.Context, cmd *cli.Command) error {
					return printGatewayJSON(cmd.String("gateway") + "/api/agent/export")
				},
			},
		},
	}
}

// printGatewayJSON fetches a gateway endpoint and pretty-prints the body.
func printGatewayJSON(url string) error {
	body, err := gatewayGet(url)
	if err != nil {
		return err
	}

	var pretty json.RawMessage = body
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		fmt.Println(string(body))
		return nil
	}
	fmt.Println(string(out))
	return nil
}

func gatewayGet(url string) ([]byte, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("reach gateway (is the agent running?): %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, gatewayError(resp.StatusCode, body)
	}
	return body, nil
}

func gatewayError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return fmt.Errorf("gateway: %s (HTTP %d)", payload.Error, status)
	}
	return fmt.Errorf("gateway returned HTTP %d", status)
}
