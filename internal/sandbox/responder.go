package sandbox

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/workbench-ai/cli/internal/models"
)

// Responder produces the assistant's reply for a new user message
type Responder interface {
	Respond(ctx context.Context, history []models.Message, content string) (string, error)
}

// StaticResponder answers without a model behind it. It keeps the sandbox
// usable offline and with no API key configured.
type StaticResponder struct{}

func (StaticResponder) Respond(_ context.Context, history []models.Message, content string) (string, error) {
	return fmt.Sprintf(
		"Sandbox reply to %q. This chat has %d earlier messages. Set sandbox.openai_key in the config for model-backed answers.",
		content, len(history),
	), nil
}

// OpenAIResponder generates replies through the OpenAI chat completion API
type OpenAIResponder struct {
	client *openai.Client
	model  string
}

// NewOpenAIResponder creates a responder for the given API key and model
func NewOpenAIResponder(apiKey, model string) *OpenAIResponder {
	return &OpenAIResponder{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (r *OpenAIResponder) Respond(ctx context.Context, history []models.Message, content string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "You are a concise assistant inside a project workspace. Answer using the conversation so far.",
		},
	}
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
