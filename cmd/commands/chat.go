package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	wsclient "github.com/gish1337/alm-agent/clients/ws"
	wsprotocol "github.com/gish1337/alm-agent/internal/gateway/ws"
)

// NewChatCommand returns the chat subcommand.
func NewChatCommand() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Send a message to the agent and print the reply (no message = interactive)",
		ArgsUsage: "[message]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "gateway",
				Usage: "Gateway WebSocket URL",
				Value: "ws://127.0.0.1:18901/ws",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "Response timeout in seconds",
				Value: 120,
			},
		},
		Action: runChat,
	}
}

func runChat(_ context.Context, cmd *cli.Command) error {
	timeout := time.Duration(cmd.Int("timeout")) * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := wsclient.Dial(ctx, cmd.String("gateway"))
	if err != nil {
		return fmt.Errorf("connect to gateway: %w", err)
	}
	defer client.Close()

	if message := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " ")); message != "" {
		reply, err := roundTrip(client, message, nil, timeout)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	}

	// Interactive loop: each turn carries the prior exchanges.
	fmt.Fprintln(os.Stderr, "Connected. Type a message, /help for commands, ctrl+d to leave.")
	var history []wsprotocol.Turn
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(os.Stderr)
			return scanner.Err()
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}

		reply, err := roundTrip(client, message, history, timeout)
		if err != nil {
			return err
		}
		fmt.Println(reply)

		history = append(history,
			wsprotocol.Turn{Role: "user", Content: message},
			wsprotocol.Turn{Role: "assistant", Content: reply},
		)
	}
}

// roundTrip sends one message and waits for its response frame, skipping
// interleaved event broadcasts.
func roundTrip(client *wsclient.Client, message string, history []wsprotocol.Turn, timeout time.Duration) (string, error) {
	id, err := client.SendMessage(message, history)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		frame, err := client.ReadFrame()
		if err != nil {
			return "", fmt.Errorf("read frame: %w", err)
		}

		if frame.Type != wsprotocol.FrameTypeResponse || frame.ID != id {
			continue
		}
		if frame.OK != nil && !*frame.OK {
			return "", fmt.Errorf("agent error: %s", frame.Error)
		}

		var payload wsprotocol.ReplyPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			return "", fmt.Errorf("decode reply: %w", err)
		}
		return payload.Reply, nil
	}
	return "", fmt.Errorf("timeout waiting for response")
}
