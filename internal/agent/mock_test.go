package agent

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"workmate/internal/config"
)

// MockLLM replays canned responses in order and records every prompt it saw.
type MockLLM struct {
	responses   []string
	currentIdx  int
	returnError error
	prompts     []string
}

func (m *MockLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.returnError != nil {
		return nil, m.returnError
	}
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				m.prompts = append(m.prompts, tc.Text)
			}
		}
	}
	content := "default response"
	if m.currentIdx < len(m.responses) {
		content = m.responses[m.currentIdx]
		m.currentIdx++
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}, nil
}

func (m *MockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

// sawPrompt reports whether any recorded prompt contains the substring.
func (m *MockLLM) sawPrompt(substr string) bool {
	for _, p := range m.prompts {
		if strings.Contains(p, substr) {
			return true
		}
	}
	return false
}

// testSettings returns a Settings value like Load would produce for an
// environment holding only the API key.
func testSettings() *config.Settings {
	return &config.Settings{
		OpenAIAPIKey:     "sk-test",
		LangsmithProject: "workmate-backend",
		JWTAlgorithm:     "HS256",
		JWTExpireMinutes: 30,
		AWSRegion:        "us-east-1",
		AppEnv:           config.AppEnvDevelopment,
		Debug:            true,
		LogLevel:         "INFO",
		Port:             8000,
		DefaultModel:     "gpt-4o-mini",
		AdvancedModel:    "gpt-4o",
		Temperature:      0.1,
		MaxIterations:    10,
	}
}
