package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/gish1337/alm-agent/internal/engine"
)

// chatModelSource resolves the model a completion runs against. The
// Registry satisfies it; tests supply a fake.
type chatModelSource interface {
	Default(ctx context.Context) (model.BaseChatModel, error)
}

// Service adapts the model registry to the engine's Completer contract.
type Service struct {
	models chatModelSource
}

// NewService creates a Service over a model registry.
func NewService(models chatModelSource) *Service {
	return &Service{models: models}
}

// Complete runs one chat completion: system prompt plus the trailing
// conversation turns, answering with the assistant text.
func (s *Service) Complete(ctx context.Context, systemPrompt string, turns []engine.Turn) (string, error) {
	chatModel, err := s.models.Default(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve model: %w", err)
	}

	messages := make([]*schema.Message, 0, len(turns)+1)
	if systemPrompt != "" {
		messages = append(messages, schema.SystemMessage(systemPrompt))
	}
	for _, turn := range turns {
		switch strings.ToLower(turn.Role) {
		case "assistant":
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		default:
			messages = append(messages, schema.UserMessage(turn.Content))
		}
	}

	resp, err := chatModel.Generate(ctx, messages)
	if err != nil {
		return "", HandleError(err)
	}
	return resp.Content, nil
}

var _ engine.Completer = (*Service)(nil)
