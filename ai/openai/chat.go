package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/inquirit/ai"
	"github.com/poiesic/inquirit/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrNoChoices is returned when the model answers with an empty choice list.
var ErrNoChoices = errors.New("model returned no choices")

// ChatModel implements ai.LanguageModel using OpenAI-compatible chat APIs.
type ChatModel struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

func newChatModel(config *ai.Config) (*ChatModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(token(config.APIKey)),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return wrapModel(client, config.Temperature), nil
}

func wrapModel(client llms.Model, temperature float64) *ChatModel {
	return &ChatModel{
		client:      client,
		temperature: temperature,
		logger:      slog.Default().With("component", "openai-chat"),
	}
}

// NewChatModel creates a new language model using the provided configuration.
//
// Returns ai.LanguageModel interface to enforce abstraction.
func NewChatModel(config *ai.Config) (ai.LanguageModel, error) {
	return newChatModel(config)
}

// Generate renders the prompt as system, history and human messages and
// returns the first choice's text.
func (m *ChatModel) Generate(ctx context.Context, prompt ai.Prompt) (string, error) {
	content := buildMessages(prompt)

	m.logger.Debug("generating completion", "messages", len(content))
	response, err := m.client.GenerateContent(ctx, content, llms.WithTemperature(m.temperature))
	if err != nil {
		m.logger.Error("failed to generate content", "err", err)
		return "", fmt.Errorf("%w: chat completion: %w", core.ErrTransport, err)
	}
	if len(response.Choices) < 1 {
		return "", ErrNoChoices
	}
	return response.Choices[0].Content, nil
}

func buildMessages(prompt ai.Prompt) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(prompt.History)+2)
	if prompt.Instructions != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, prompt.Instructions))
	}
	for _, turn := range prompt.History {
		role := llms.ChatMessageTypeHuman
		if turn.Speaker == core.SpeakerTypeAI {
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, turn.Content))
	}
	return append(content, llms.TextParts(llms.ChatMessageTypeHuman, prompt.Input))
}
