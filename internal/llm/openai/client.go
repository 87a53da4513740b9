package openai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	sdk "github.com/sashabaranov/go-openai"

	"fundingsense-backend/internal/llm"
	"fundingsense-backend/internal/shared/telemetry"
)

// DefaultModel is used when LLM_MODEL is empty.
const DefaultModel = sdk.GPT4oMini

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	client *sdk.Client
	model  string
}

// NewClient constructs a new OpenAI client. baseURL may point at any
// OpenAI-compatible endpoint.
func NewClient(apiKey, model, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, eris.New("openai: OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	clientConfig := sdk.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		clientConfig.BaseURL = baseURL
	}
	return &Client{
		client: sdk.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Complete sends one JSON-mode chat completion. There are no retries.
func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error) {
	messages := make([]sdk.ChatCompletionMessage, 0, len(prompt.Messages)+1)
	if strings.TrimSpace(prompt.System) != "" {
		messages = append(messages, sdk.ChatCompletionMessage{Role: sdk.ChatMessageRoleSystem, Content: prompt.System})
	}
	for _, m := range prompt.Messages {
		role := sdk.ChatMessageRoleUser
		if m.Role == llm.RoleAssistant {
			role = sdk.ChatMessageRoleAssistant
		}
		messages = append(messages, sdk.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, sdk.ChatCompletionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: prompt.Tokens(),
		ResponseFormat: &sdk.ChatCompletionResponseFormat{
			Type: sdk.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "openai: create chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.Wrap(llm.ErrEmptyResponse, "openai: no choices")
	}

	telemetry.Info("llm.response", map[string]any{
		"provider":          "openai",
		"model":             c.model,
		"prompt":            prompt.Name,
		"prompt_hash":       prompt.Hash(),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"total_tokens":      resp.Usage.TotalTokens,
	})

	raw, err := llm.ParseJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, eris.Wrap(err, "openai: parse content")
	}
	return raw, nil
}

var _ llm.Client = (*Client)(nil)
