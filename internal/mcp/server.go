// Package mcp exposes the agent over the Model Context Protocol so MCP
// hosts can classify messages, chat through the dispatch engine and read
// the agent's profile and network snapshot as tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gish1337/alm-agent/internal/chain"
	"github.com/gish1337/alm-agent/internal/classify"
	"github.com/gish1337/alm-agent/internal/engine"
	"github.com/gish1337/alm-agent/internal/profile"
)

// Dispatcher routes one chat message to a reply.
type Dispatcher interface {
	Process(ctx context.Context, message string, history []engine.Turn) string
}

// statusSource serves the cached chain snapshot.
type statusSource interface {
	Snapshot() (chain.StatusSnapshot, bool)
}

// Config wires the MCP server. Profile is required; Engine and Monitor
// are optional and their tools answer with an explanation when missing.
type Config struct {
	Profile *profile.Manager
	Engine  Dispatcher
	Monitor statusSource
	Version string
}

// NewServer creates an MCP server exposing the agent's tools.
func NewServer(cfg Config) *mcpsdk.Server {
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}

	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "alm-agent",
		Version: version,
	}, nil)

	server.AddTool(&mcpsdk.Tool{
		Name:        "agent_summary",
		Description: "Read the local agent's profile: identity, capabilities, reputation and task statistics.",
		InputSchema: objectSchema(nil, nil),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return jsonResult(cfg.Profile.Summary())
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        "classify_message",
		Description: "Classify a message into one of the agent's skills (Balance Checker, Transaction Analyzer, Price Monitor, Network Status) or none.",
		InputSchema: objectSchema(map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "The message to classify",
			},
		}, []string{"message"}),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var params struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return errorResult(fmt.Sprintf("invalid arguments: %v", err))
		}

		skill := classify.Classify(params.Message)
		return jsonResult(map[string]any{
			"skill":   string(skill),
			"matched": skill.Known(),
		})
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        "chat",
		Description: "Send a message through the agent's dispatch engine: direct commands run against the chain, everything else goes to the language model.",
		InputSchema: objectSchema(map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "The message to dispatch",
			},
		}, []string{"message"}),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		if cfg.Engine == nil {
			return errorResult("dispatch engine not available")
		}

		var params struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return errorResult(fmt.Sprintf("invalid arguments: %v", err))
		}

		reply := cfg.Engine.Process(ctx, params.Message, nil)
		return textResult(reply)
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        "network_status",
		Description: "Read the cached Solana network snapshot: health, slot, throughput and SOL price.",
		InputSchema: objectSchema(nil, nil),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		if cfg.Monitor == nil {
			return errorResult("chain monitor not available")
		}

		snap, fresh := cfg.Monitor.Snapshot()
		if !fresh {
			return errorResult("no fresh network snapshot; the monitor has not refreshed recently")
		}
		return jsonResult(snap)
	})

	slog.Debug("mcp server built", "tools", 4)
	return server
}

// objectSchema builds a JSON Schema object with the given properties.
func objectSchema(props map[string]any, required []string) map[string]any {
	if props == nil {
		props = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func textResult(text string) (*mcpsdk.CallToolResult, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}, nil
}

func jsonResult(v any) (*mcpsdk.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("marshal result: %v", err))
	}
	return textResult(string(data))
}

func errorResult(msg string) (*mcpsdk.CallToolResult, error) {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: msg}},
	}, nil
}
