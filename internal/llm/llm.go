package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Client abstracts the generation backend. Complete submits a prompt and
// returns the model's JSON document.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (json.RawMessage, error)
}

// Role is the speaker of a prompt message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversational turn sent to the backend.
type Message struct {
	Role    Role
	Content string
}

// Prompt is a provider-neutral completion request. System carries the
// instructions; Messages carry the conversation, ending with the user turn.
type Prompt struct {
	Name      string
	System    string
	Messages  []Message
	MaxTokens int
}

// DefaultMaxTokens bounds completions when a prompt does not set MaxTokens.
const DefaultMaxTokens = 2048

var (
	// ErrNotConfigured is returned by the placeholder client.
	ErrNotConfigured = eris.New("llm: generation backend not configured")
	// ErrInvalidJSON is returned when the backend reply is not a JSON document.
	ErrInvalidJSON = eris.New("llm: invalid JSON from backend")
	// ErrEmptyResponse is returned when the backend reply carries no content.
	ErrEmptyResponse = eris.New("llm: empty response")
)

// PlaceholderClient stands in when no provider is configured.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(context.Context, Prompt) (json.RawMessage, error) {
	return nil, ErrNotConfigured
}

// ParseJSON trims whitespace and markdown code fences from a model reply and
// checks that what remains is valid JSON.
func ParseJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyResponse
	}
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}
	if !json.Valid([]byte(content)) {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(content), nil
}

// Hash returns a stable digest of the prompt text for log correlation.
func (p Prompt) Hash() string {
	var b strings.Builder
	b.WriteString("system: ")
	b.WriteString(p.System)
	for _, m := range p.Messages {
		b.WriteString("\n\n")
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Tokens returns p.MaxTokens or DefaultMaxTokens.
func (p Prompt) Tokens() int {
	if p.MaxTokens > 0 {
		return p.MaxTokens
	}
	return DefaultMaxTokens
}
