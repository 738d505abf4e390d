// Package llm builds langchaingo chat models from resolved configuration
// and provides the call helpers the agent workflows share.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"workmate/internal/config"
)

// ErrEmptyResponse is returned when the model produced no choices.
var ErrEmptyResponse = errors.New("llm: empty response")

// New constructs an OpenAI-backed chat model from the given client
// parameters. No network traffic happens here; the key is only attached
// to the client.
func New(cfg config.LLMConfig) (llms.Model, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: missing OpenAI API key")
	}
	model, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("llm: create client: %w", err)
	}
	return model, nil
}

// Generate runs a single-prompt completion at the given temperature.
func Generate(ctx context.Context, model llms.Model, prompt string, temperature float64) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, model, prompt,
		llms.WithTemperature(temperature))
}

// GenerateWithSystem runs a system + user message pair, the calling
// convention every workflow node uses.
func GenerateWithSystem(ctx context.Context, model llms.Model, system, user string, temperature float64) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, user),
	}
	resp, err := model.GenerateContent(ctx, messages, llms.WithTemperature(temperature))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}
