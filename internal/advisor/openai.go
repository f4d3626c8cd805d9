package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// OpenAIProvider generates advisor replies through the OpenAI chat API.
type OpenAIProvider struct {
	llm     *openai.LLM
	model   string
	timeout time.Duration
}

func NewOpenAIProvider(apiKey, model string, timeout time.Duration) (*OpenAIProvider, error) {
	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	return &OpenAIProvider{
		llm:     llm,
		model:   model,
		timeout: timeout,
	}, nil
}

func (p *OpenAIProvider) Reply(ctx context.Context, message string, history []Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, SystemPrompt),
	}
	for _, turn := range history {
		switch turn.Role {
		case RoleUser:
			content = append(content, llms.TextParts(schema.ChatMessageTypeHuman, turn.Text))
		case RoleAssistant:
			content = append(content, llms.TextParts(schema.ChatMessageTypeAI, turn.Text))
		}
	}
	content = append(content, llms.TextParts(schema.ChatMessageTypeHuman, message))

	// Low temperature keeps the JSON envelope stable.
	resp, err := p.llm.GenerateContent(ctx, content,
		llms.WithTemperature(0.1),
		llms.WithMaxTokens(1000),
	)
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}
