// Package engine routes incoming chat messages: guard checks first, then
// direct command execution with task recording, then LLM completion as
// the fallback.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gish1337/alm-agent/internal/classify"
	"github.com/gish1337/alm-agent/internal/events"
	"github.com/gish1337/alm-agent/internal/registry"
)

const (
	// DefaultMaxMessageLength bounds accepted input, in runes.
	DefaultMaxMessageLength = 2000

	// DefaultHistoryWindow is how many trailing history turns reach the model.
	DefaultHistoryWindow = 10

	// descriptionLimit bounds recorded task descriptions, in runes.
	descriptionLimit = 80
)

const defaultSystemPrompt = "You are ALM, a Solana assistant agent. Answer briefly and precisely. " +
	"You can check balances, summarize transactions, report prices and network health when asked; " +
	"for anything else, be a helpful general assistant. Never invent on-chain data: if you do not " +
	"have a value, point at the command that provides it."

const (
	emptyGuidance = "I didn't catch anything there. Ask me about balances, transactions, prices " +
		"or network status, or type /help for the direct commands."
	completionErrPrefix = "I couldn't reach the language model: "
)

// Turn is one prior exchange in the conversation history.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// CommandResult is what a command execution produced. Message is always
// user-facing, whether or not the command succeeded.
type CommandResult struct {
	Message string
	Success bool
}

// CommandRunner recognizes and executes direct commands.
type CommandRunner interface {
	IsCommand(text string) bool
	Execute(ctx context.Context, text string) CommandResult
}

// Completer produces a model completion for non-command messages.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, turns []Turn) (string, error)
}

// Config wires a DispatchEngine. Registry, AgentID, Commands, Completer
// and Bus are all optional: a missing piece degrades the matching path
// instead of failing construction.
type Config struct {
	Registry  *registry.Registry
	AgentID   string
	Commands  CommandRunner
	Completer Completer
	Bus       *events.Bus

	MaxMessageLength int
	HistoryWindow    int
	SystemPrompt     string
}

func applyDefaults(cfg *Config) {
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
}

// DispatchEngine routes one message at a time. Process never returns an
// error: every failure path degrades to user-visible text.
type DispatchEngine struct {
	registry  *registry.Registry
	agentID   string
	commands  CommandRunner
	completer Completer
	bus       *events.Bus

	maxLen        int
	historyWindow int
	systemPrompt  string
}

// New creates a DispatchEngine.
func New(cfg Config) *DispatchEngine {
	applyDefaults(&cfg)
	return &DispatchEngine{
		registry:      cfg.Registry,
		agentID:       cfg.AgentID,
		commands:      cfg.Commands,
		completer:     cfg.Completer,
		bus:           cfg.Bus,
		maxLen:        cfg.MaxMessageLength,
		historyWindow: cfg.HistoryWindow,
		systemPrompt:  cfg.SystemPrompt,
	}
}

// Process handles one user message and returns the reply text.
func (e *DispatchEngine) Process(ctx context.Context, message string, history []Turn) string {
	started := time.Now()
	length := utf8.RuneCountInString(message)

	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		e.publish(events.MessageProcessedPayload{
			Route:    events.RouteGuidance,
			Length:   length,
			Duration: time.Since(started),
		})
		return emptyGuidance
	}

	if length > e.maxLen {
		e.publish(events.MessageProcessedPayload{
			Route:    events.RouteGuidance,
			Length:   length,
			Duration: time.Since(started),
		})
		return fmt.Sprintf("That message is too long for me to handle (the limit is %d characters). Please trim it down.", e.maxLen)
	}

	if e.commands != nil && e.commands.IsCommand(trimmed) {
		result := e.commands.Execute(ctx, trimmed)

		// Tag the original message, not the command output, and fold the
		// outcome into the agent's record. Recording must never change
		// what the user sees.
		skill := classify.Classify(message)
		if skill.Known() {
			e.recordOutcome(trimmed, skill, result.Success)
		}

		e.publish(events.MessageProcessedPayload{
			Route:    events.RouteCommand,
			Skill:    string(skill),
			Success:  result.Success,
			Length:   length,
			Duration: time.Since(started),
		})
		return tidy(result.Message)
	}

	reply, err := e.complete(ctx, trimmed, history)
	if err != nil {
		slog.Warn("completion failed", "error", err)
		e.publish(events.MessageProcessedPayload{
			Route:    events.RouteCompletion,
			Length:   length,
			Duration: time.Since(started),
			Error:    err.Error(),
		})
		return completionErrPrefix + err.Error()
	}

	e.publish(events.MessageProcessedPayload{
		Route:    events.RouteCompletion,
		Success:  true,
		Length:   length,
		Duration: time.Since(started),
	})
	return tidy(reply)
}

func (e *DispatchEngine) complete(ctx context.Context, message string, history []Turn) (string, error) {
	if e.completer == nil {
		return "", fmt.Errorf("no completion backend configured")
	}

	turns := lastTurns(history, e.historyWindow)
	turns = append(turns, Turn{Role: "user", Content: message})
	return e.completer.Complete(ctx, e.systemPrompt, turns)
}

// recordOutcome updates the local agent's statistics. All failure modes
// here (no registry wired, unknown agent) are silent: dispatch results
// must not depend on bookkeeping.
func (e *DispatchEngine) recordOutcome(message string, skill classify.Skill, success bool) {
	if e.registry == nil || e.agentID == "" {
		return
	}

	desc := truncate(message, descriptionLimit)
	e.registry.RecordTask(e.agentID, desc, string(skill), success)

	if p, ok := e.registry.Get(e.agentID); ok {
		e.bus.Publish(events.NewTypedEventForAgent(events.SourceEngine, events.TaskRecordedPayload{
			AgentID:     e.agentID,
			Description: desc,
			Skill:       string(skill),
			Success:     success,
			Reputation:  p.Reputation,
			SuccessRate: p.SuccessRate,
		}, e.agentID))
	}
}

func (e *DispatchEngine) publish(payload events.MessageProcessedPayload) {
	e.bus.Publish(events.NewTypedEvent(events.SourceEngine, payload))
}

func lastTurns(history []Turn, n int) []Turn {
	if len(history) <= n {
		return append([]Turn(nil), history...)
	}
	return append([]Turn(nil), history[len(history)-n:]...)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// tidy trims the reply and collapses runs of blank lines that chatty
// models tend to leave behind.
func tidy(s string) string {
	return blankRuns.ReplaceAllString(strings.TrimSpace(s), "\n\n")
}
