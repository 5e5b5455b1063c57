package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gish1337/alm-agent/internal/events"
	"github.com/gish1337/alm-agent/internal/registry"
)

type fakeCommands struct {
	isCommandCalls int
	executeCalls   int
	result         CommandResult
}

func (f *fakeCommands) IsCommand(text string) bool {
	f.isCommandCalls++
	return strings.HasPrefix(text, "/")
}

func (f *fakeCommands) Execute(_ context.Context, _ string) CommandResult {
	f.executeCalls++
	return f.result
}

type fakeCompleter struct {
	calls      int
	gotSystem  string
	gotTurns   []Turn
	reply      string
	err        error
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt string, turns []Turn) (string, error) {
	f.calls++
	f.gotSystem = systemPrompt
	f.gotTurns = turns
	return f.reply, f.err
}

func newTestRegistry(t *testing.T) (*registry.Registry, string) {
	t.Helper()
	reg := registry.New(registry.Config{})
	id, err := reg.Register(registry.AgentInfo{Name: "Test Agent", Version: "1.0.0"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return reg, id
}

func TestProcessEmptyMessage(t *testing.T) {
	reg, id := newTestRegistry(t)
	commands := &fakeCommands{}
	completer := &fakeCompleter{reply: "should not be called"}

	eng := New(Config{Registry: reg, AgentID: id, Commands: commands, Completer: completer})

	for _, msg := range []string{"", "   ", "\n\t  "} {
		got := eng.Process(context.Background(), msg, nil)
		if !strings.Contains(got, "didn't catch anything") {
			t.Errorf("Process(%q) = %q, want guidance", msg, got)
		}
	}

	if commands.isCommandCalls != 0 || commands.executeCalls != 0 {
		t.Error("empty messages must not reach the command runner")
	}
	if completer.calls != 0 {
		t.Error("empty messages must not reach the completer")
	}
	if p, _ := reg.Get(id); p.TasksCompleted != 0 || p.Reputation != 50 {
		t.Errorf("empty messages must not mutate the registry: tasks=%d rep=%d", p.TasksCompleted, p.Reputation)
	}
}

func TestProcessOverLongMessage(t *testing.T) {
	commands := &fakeCommands{}
	completer := &fakeCompleter{}
	eng := New(Config{Commands: commands, Completer: completer, MaxMessageLength: 10})

	got := eng.Process(context.Background(), strings.Repeat("x", 11), nil)
	if !strings.Contains(got, "too long") || !strings.Contains(got, "10") {
		t.Errorf("expected limit message naming the limit, got %q", got)
	}

	if commands.isCommandCalls != 0 || completer.calls != 0 {
		t.Error("over-limit messages must not reach any collaborator")
	}
}

func TestProcessLimitCountsRunesNotBytes(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	eng := New(Config{Completer: completer, MaxMessageLength: 10})

	// 10 multibyte runes: within the limit even though the byte count is 30.
	got := eng.Process(context.Background(), strings.Repeat("界", 10), nil)
	if got != "ok" {
		t.Errorf("expected rune-counted message to pass, got %q", got)
	}
}

func TestProcessCommandSuccess(t *testing.T) {
	reg, id := newTestRegistry(t)
	commands := &fakeCommands{result: CommandResult{Message: "Balance: 1.5 SOL", Success: true}}
	eng := New(Config{Registry: reg, AgentID: id, Commands: commands})

	got := eng.Process(context.Background(), "/balance 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", nil)
	if got != "Balance: 1.5 SOL" {
		t.Errorf("expected command output, got %q", got)
	}

	p, _ := reg.Get(id)
	if p.TasksCompleted != 1 {
		t.Errorf("expected 1 completed task, got %d", p.TasksCompleted)
	}
	if p.Reputation != 51 {
		t.Errorf("expected reputation 51 after success, got %d", p.Reputation)
	}
	if p.SuccessRate != 100 {
		t.Errorf("expected success rate 100, got %f", p.SuccessRate)
	}
}

func TestProcessCommandFailure(t *testing.T) {
	reg, id := newTestRegistry(t)
	commands := &fakeCommands{result: CommandResult{Message: "That doesn't look like a valid address.", Success: false}}
	eng := New(Config{Registry: reg, AgentID: id, Commands: commands})

	got := eng.Process(context.Background(), "/balance not-an-address", nil)
	if got != "That doesn't look like a valid address." {
		t.Errorf("recording must not change the reply, got %q", got)
	}

	p, _ := reg.Get(id)
	if p.TasksCompleted != 1 {
		t.Errorf("expected the failure recorded, got %d tasks", p.TasksCompleted)
	}
	if p.Reputation != 48 {
		t.Errorf("expected reputation 48 after failure, got %d", p.Reputation)
	}
	if p.SuccessRate != 0 {
		t.Errorf("expected success rate 0, got %f", p.SuccessRate)
	}
}

func TestProcessCommandFailurePublishesOutcome(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()

	got := make(chan events.MessageProcessedPayload, 1)
	bus.Subscribe(func(e events.Event) {
		if p, ok := events.GetMessageProcessedPayload(e); ok {
			got <- p
		}
	}, events.EventMessageProcessed)

	commands := &fakeCommands{result: CommandResult{Message: "no such wallet", Success: false}}
	eng := New(Config{Commands: commands, Bus: bus})
	eng.Process(context.Background(), "/balance bogus", nil)

	select {
	case p := <-got:
		if p.Route != events.RouteCommand {
			t.Errorf("expected command route, got %s", p.Route)
		}
		if p.Success {
			t.Error("expected the command failure reflected in the payload")
		}
		if p.Skill != "Balance Checker" {
			t.Errorf("expected skill tag, got %q", p.Skill)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("processed event never published")
	}
}

func TestProcessCommandWithoutSkillNotRecorded(t *testing.T) {
	reg, id := newTestRegistry(t)
	commands := &fakeCommands{result: CommandResult{Message: "commands: /balance /price ...", Success: true}}
	eng := New(Config{Registry: reg, AgentID: id, Commands: commands})

	// /help carries no skill keyword, so no task outcome is recorded.
	eng.Process(context.Background(), "/help", nil)

	if p, _ := reg.Get(id); p.TasksCompleted != 0 {
		t.Errorf("unclassified commands must not record tasks, got %d", p.TasksCompleted)
	}
}

func TestProcessCompletionFallback(t *testing.T) {
	reg, id := newTestRegistry(t)
	commands := &fakeCommands{}
	completer := &fakeCompleter{reply: "Solana is a blockchain."}
	eng := New(Config{Registry: reg, AgentID: id, Commands: commands, Completer: completer})

	history := make([]Turn, 0, 14)
	for i := 0; i < 14; i++ {
		history = append(history, Turn{Role: "user", Content: "older"})
	}

	got := eng.Process(context.Background(), "what is solana?", history)
	if got != "Solana is a blockchain." {
		t.Errorf("expected completion reply, got %q", got)
	}

	if completer.gotSystem == "" {
		t.Error("expected a system prompt to reach the completer")
	}
	// 10 history turns plus the current message.
	if len(completer.gotTurns) != 11 {
		t.Errorf("expected 11 turns (windowed history + message), got %d", len(completer.gotTurns))
	}
	if last := completer.gotTurns[len(completer.gotTurns)-1]; last.Content != "what is solana?" {
		t.Errorf("expected current message last, got %q", last.Content)
	}

	// Completions never touch the task record.
	if p, _ := reg.Get(id); p.TasksCompleted != 0 {
		t.Errorf("completions must not record tasks, got %d", p.TasksCompleted)
	}
}

func TestProcessCompletionConfiguredWindow(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	eng := New(Config{Commands: &fakeCommands{}, Completer: completer, HistoryWindow: 2})

	history := []Turn{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "second"},
		{Role: "user", Content: "third"},
	}
	eng.Process(context.Background(), "latest", history)

	// 2 trailing history turns plus the current message.
	if len(completer.gotTurns) != 3 {
		t.Fatalf("expected 3 turns with window 2, got %d", len(completer.gotTurns))
	}
	if completer.gotTurns[0].Content != "second" {
		t.Errorf("expected oldest kept turn %q, got %q", "second", completer.gotTurns[0].Content)
	}
}

func TestProcessCompletionError(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("connection error: dial tcp")}
	eng := New(Config{Commands: &fakeCommands{}, Completer: completer})

	got := eng.Process(context.Background(), "hello there", nil)
	if !strings.Contains(got, "couldn't reach the language model") {
		t.Errorf("expected degraded completion error text, got %q", got)
	}
	if !strings.Contains(got, "connection error") {
		t.Errorf("expected underlying cause surfaced, got %q", got)
	}
}

func TestProcessNoCompleterConfigured(t *testing.T) {
	eng := New(Config{})

	got := eng.Process(context.Background(), "hello", nil)
	if !strings.Contains(got, "couldn't reach the language model") {
		t.Errorf("expected degraded reply without completer, got %q", got)
	}
}

func TestProcessReputationClampedAtZero(t *testing.T) {
	reg, id := newTestRegistry(t)
	commands := &fakeCommands{result: CommandResult{Message: "failed", Success: false}}
	eng := New(Config{Registry: reg, AgentID: id, Commands: commands})

	// 30 failures at -2 each would go below zero without clamping.
	for i := 0; i < 30; i++ {
		eng.Process(context.Background(), "/balance bad", nil)
	}

	if p, _ := reg.Get(id); p.Reputation != 0 {
		t.Errorf("expected reputation clamped at 0, got %d", p.Reputation)
	}
}

func TestTidyCollapsesBlankRuns(t *testing.T) {
	completer := &fakeCompleter{reply: "line one\n\n\n\nline two\n\n"}
	eng := New(Config{Completer: completer})

	got := eng.Process(context.Background(), "hi", nil)
	if got != "line one\n\nline two" {
		t.Errorf("expected tidied reply, got %q", got)
	}
}

func TestLastTurns(t *testing.T) {
	history := []Turn{{Content: "a"}, {Content: "b"}, {Content: "c"}}

	got := lastTurns(history, 2)
	if len(got) != 2 || got[0].Content != "b" || got[1].Content != "c" {
		t.Errorf("lastTurns = %v", got)
	}

	got = lastTurns(history, 5)
	if len(got) != 3 {
		t.Errorf("expected whole history when under window, got %d", len(got))
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo wörld", 5); got != "héllo" {
		t.Errorf("truncate must count runes, got %q", got)
	}
	if got := truncate("short", 80); got != "short" {
		t.Errorf("truncate must not pad, got %q", got)
	}
}
