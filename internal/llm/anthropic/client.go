package anthropic

import (
	"context"
	"encoding/json"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"fundingsense-backend/internal/llm"
	"fundingsense-backend/internal/shared/telemetry"
)

// DefaultModel is used when LLM_MODEL is empty.
const DefaultModel = "claude-haiku-4-5-20251001"

// Client implements llm.Client using the Anthropic Messages API.
type Client struct {
	client sdk.Client
	model  string
}

// NewClient creates a client backed by the SDK. SDK retries are disabled so
// a failing backend falls straight through to the deterministic report.
func NewClient(apiKey, model string, opts ...option.RequestOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, eris.New("anthropic: ANTHROPIC_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	return &Client{
		client: sdk.NewClient(append(base, opts...)...),
		model:  model,
	}, nil
}

func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(prompt.Tokens()),
		Messages:  toSDKMessages(prompt.Messages),
	}
	if strings.TrimSpace(prompt.System) != "" {
		params.System = []sdk.TextBlockParam{{Text: prompt.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}

	telemetry.Info("llm.response", map[string]any{
		"provider":      "anthropic",
		"model":         c.model,
		"prompt":        prompt.Name,
		"prompt_hash":   prompt.Hash(),
		"input_tokens":  msg.Usage.InputTokens,
		"output_tokens": msg.Usage.OutputTokens,
		"stop_reason":   string(msg.StopReason),
	})

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	raw, err := llm.ParseJSON(b.String())
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: parse content")
	}
	return raw, nil
}

func toSDKMessages(msgs []llm.Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(msgs))
	for i, m := range msgs {
		block := sdk.NewTextBlock(m.Content)
		switch m.Role {
		case llm.RoleAssistant:
			out[i] = sdk.NewAssistantMessage(block)
		default:
			out[i] = sdk.NewUserMessage(block)
		}
	}
	return out
}

var _ llm.Client = (*Client)(nil)
