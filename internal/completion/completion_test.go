package completion

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/gish1337/alm-agent/internal/config"
	"github.com/gish1337/alm-agent/internal/engine"
)

func TestResolveAuth_DirectAPIKey(t *testing.T) {
	cfg := config.ProviderConfig{
		Driver: "anthropic",
		Auth:   config.AuthConfig{APIKey: "sk-ant-test-123"},
	}
	auth, err := ResolveAuth(cfg)
	if err != nil {
		t.Fatalf("ResolveAuth: %v", err)
	}
	if auth.Kind != AuthAPIKey {
		t.Fatalf("expected AuthAPIKey, got %d", auth.Kind)
	}
	if auth.Value != "sk-ant-test-123" {
		t.Fatalf("expected value %q, got %q", "sk-ant-test-123", auth.Value)
	}
}

func TestResolveAuth_BearerTokenWinsOverKey(t *testing.T) {
	cfg := config.ProviderConfig{
		Driver: "anthropic",
		Auth: config.AuthConfig{
			APIKey: "sk-ant-test-123",
			Token:  "bearer-token-xyz",
		},
	}
	auth, err := ResolveAuth(cfg)
	if err != nil {
		t.Fatalf("ResolveAuth: %v", err)
	}
	if auth.Kind != AuthBearerToken {
		t.Fatalf("expected AuthBearerToken, got %d", auth.Kind)
	}
	if auth.Value != "bearer-token-xyz" {
		t.Fatalf("expected value %q, got %q", "bearer-token-xyz", auth.Value)
	}
}

func TestResolveAuth_EnvVarSyntax(t *testing.T) {
	t.Setenv("MY_CUSTOM_KEY", "custom-api-key-value")

	cfg := config.ProviderConfig{
		Driver: "mistral",
		Auth:   config.AuthConfig{APIKey: "${MY_CUSTOM_KEY}"},
	}
	auth, err := ResolveAuth(cfg)
	if err != nil {
		t.Fatalf("ResolveAuth: %v", err)
	}
	if auth.Value != "custom-api-key-value" {
		t.Fatalf("expected value %q, got %q", "custom-api-key-value", auth.Value)
	}
}

func TestResolveAuth_DriverDefaultEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-anthropic-key")

	cfg := config.ProviderConfig{Driver: "anthropic"}
	auth, err := ResolveAuth(cfg)
	if err != nil {
		t.Fatalf("ResolveAuth: %v", err)
	}
	if auth.Value != "env-anthropic-key" {
		t.Fatalf("expected value %q, got %q", "env-anthropic-key", auth.Value)
	}
}

func TestResolveAuth_NothingSet(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	os.Unsetenv("ANTHROPIC_API_KEY")

	cfg := config.ProviderConfig{Driver: "anthropic"}
	_, err := ResolveAuth(cfg)
	if err == nil {
		t.Fatal("expected error when no auth is available")
	}
	if !strings.Contains(err.Error(), "ANTHROPIC_API_KEY not set") {
		t.Fatalf("expected 'ANTHROPIC_API_KEY not set' error, got %v", err)
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg := NewRegistry(config.ModelsConfig{
		Default:   "main",
		Providers: map[string]config.ProviderConfig{},
	})

	_, err := reg.Get(context.Background(), "nonexistent")
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected 'not found' error, got %v", err)
	}
}

func TestRegistry_NoDefault(t *testing.T) {
	reg := NewRegistry(config.ModelsConfig{})

	_, err := reg.Default(context.Background())
	if err == nil {
		t.Fatal("expected error without default provider")
	}
}

func TestCreateModel_UnknownDriver(t *testing.T) {
	cfg := config.ProviderConfig{Driver: "unknown-driver"}
	_, err := CreateModel(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "unknown driver") {
		t.Fatalf("expected 'unknown driver' error, got %v", err)
	}
}

// fakeChatModel records the messages it was asked to generate from.
type fakeChatModel struct {
	received []*schema.Message
	reply    string
	err      error
}

func (f *fakeChatModel) Generate(_ context.Context, messages []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.received = messages
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

type fakeModelSource struct {
	m   model.BaseChatModel
	err error
}

func (f *fakeModelSource) Default(context.Context) (model.BaseChatModel, error) {
	return f.m, f.err
}

func TestServiceComplete(t *testing.T) {
	fake := &fakeChatModel{reply: "the answer"}
	svc := NewService(&fakeModelSource{m: fake})

	turns := []engine.Turn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "what's up?"},
	}
	got, err := svc.Complete(context.Background(), "be terse", turns)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "the answer" {
		t.Errorf("expected reply text, got %q", got)
	}

	if len(fake.received) != 4 {
		t.Fatalf("expected 4 messages (system + 3 turns), got %d", len(fake.received))
	}
	if fake.received[0].Role != schema.System || fake.received[0].Content != "be terse" {
		t.Errorf("expected leading system message, got %+v", fake.received[0])
	}
	if fake.received[2].Role != schema.Assistant {
		t.Errorf("expected assistant role preserved, got %s", fake.received[2].Role)
	}
}

func TestServiceComplete_ModelError(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("429 too many requests")}
	svc := NewService(&fakeModelSource{m: fake})

	_, err := svc.Complete(context.Background(), "", []engine.Turn{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("expected HandleError mapping, got %v", err)
	}
}

func TestServiceComplete_RegistryError(t *testing.T) {
	svc := NewService(&fakeModelSource{err: errors.New("no default model configured")})

	_, err := svc.Complete(context.Background(), "", nil)
	if err == nil {
		t.Fatal("expected error when the registry has no default")
	}
}

func TestHandleError(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"401 unauthorized", "authentication failed"},
		{"429 rate limit exceeded", "rate limited"},
		{"context length exceeded", "context too long"},
		{"model not found", "model not found"},
		{"dial tcp: connection refused", "connection error"},
	}
	for _, tc := range cases {
		got := HandleError(errors.New(tc.in))
		if !strings.Contains(got.Error(), tc.want) {
			t.Errorf("HandleError(%q) = %v, want prefix %q", tc.in, got, tc.want)
		}
	}
	if HandleError(nil) != nil {
		t.Error("HandleError(nil) must be nil")
	}
}
