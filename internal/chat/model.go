package chat

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"fundingsense-backend/internal/evidence"
	"fundingsense-backend/internal/llm"
)

// MaxMessageLength bounds a chat message in characters.
const MaxMessageLength = 4000

// Turn is one persisted chat message.
type Turn struct {
	ID        string          `json:"id"`
	Role      llm.Role        `json:"role"`
	Content   string          `json:"content"`
	Sources   []evidence.Unit `json:"sources,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Request is one chat question.
type Request struct {
	Message    string `json:"message"`
	UserID     string `json:"user_id,omitempty"`
	Language   string `json:"language,omitempty"`
	PriorTurns []Turn `json:"prior_turns,omitempty"`
}

// Validate trims the request in place and checks it.
func (r *Request) Validate() error {
	r.Message = strings.TrimSpace(r.Message)
	r.UserID = strings.TrimSpace(r.UserID)
	r.Language = strings.TrimSpace(r.Language)
	if r.Message == "" {
		return eris.Wrap(ErrInvalidRequest, "message is required")
	}
	if n := utf8.RuneCountInString(r.Message); n > MaxMessageLength {
		return eris.Wrapf(ErrInvalidRequest, "message is %d characters, max %d", n, MaxMessageLength)
	}
	for i, t := range r.PriorTurns {
		if t.Role != llm.RoleUser && t.Role != llm.RoleAssistant {
			return eris.Wrapf(ErrInvalidRequest, "prior_turns[%d]: unknown role %q", i, t.Role)
		}
	}
	return nil
}

// Response is a grounded answer. Sources only holds retrieved evidence.
type Response struct {
	Answer  string          `json:"answer"`
	Sources []evidence.Unit `json:"sources"`
}
