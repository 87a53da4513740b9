package generation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"fundingsense-backend/internal/evidence"
	"fundingsense-backend/internal/llm"
)

func retrieved() []evidence.Unit {
	return []evidence.Unit{
		{ID: "ev_1", Title: "Northwind Capital backs Lisbon payments firm"},
		{ID: "ev_2", Title: "Harbor Ventures fund filing"},
	}
}

func TestAnswerWithoutEvidenceSkipsBackend(t *testing.T) {
	client := replying(`{"answer":"made up","sources":["ev_9"]}`)
	got := New(client, time.Second).Answer(context.Background(), Question{Message: "Who funds fusion?"})

	assert.Equal(t, NoEvidenceAnswer, got.Text)
	assert.Empty(t, got.Sources)
	assert.Equal(t, int32(0), client.calls.Load())
}

func TestAnswerFiltersCitations(t *testing.T) {
	var prompt llm.Prompt
	client := &fakeClient{fn: func(ctx context.Context, p llm.Prompt) (json.RawMessage, error) {
		prompt = p
		return json.RawMessage(`{"answer":"Northwind led a Series A.","sources":["ev_1","ev_404","ev_1"]}`), nil
	}}
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "Which investors do fintech?"},
		{Role: llm.RoleAssistant, Content: "Northwind and Harbor."},
	}
	got := New(client, time.Second).Answer(context.Background(), Question{
		Message:  "What did Northwind do?",
		History:  history,
		Evidence: retrieved(),
	})

	assert.False(t, got.Fallback)
	assert.Equal(t, "Northwind led a Series A.", got.Text)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "ev_1", got.Sources[0].ID)

	require.Len(t, prompt.Messages, 3)
	assert.Equal(t, history, prompt.Messages[:2])
	assert.Contains(t, prompt.Messages[2].Content, "What did Northwind do?")
	assert.Contains(t, prompt.Messages[2].Content, "ev_2")
}

func TestAnswerFallbackListsRetrievedTitles(t *testing.T) {
	got := New(failing(errors.New("connection reset")), time.Second).Answer(context.Background(), Question{
		Message:  "Who invests in payments?",
		Evidence: retrieved(),
	})

	assert.True(t, got.Fallback)
	assert.Contains(t, got.Text, "Northwind Capital backs Lisbon payments firm; Harbor Ventures fund filing")
	assert.Len(t, got.Sources, 2)
}

func TestAnswerEmptyReplyFallsBack(t *testing.T) {
	got := New(replying(`{"answer":"  ","sources":["ev_1"]}`), time.Second).Answer(context.Background(), Question{
		Message:  "q",
		Evidence: retrieved(),
	})
	assert.True(t, got.Fallback)
}

func TestTranslate(t *testing.T) {
	ctx := context.Background()

	client := replying(`{"text":"Hola"}`)
	g := New(client, time.Second)
	assert.Equal(t, "Hello", g.Translate(ctx, "Hello", "en"))
	assert.Equal(t, "Hello", g.Translate(ctx, "Hello", ""))
	assert.Equal(t, int32(0), client.calls.Load())
	assert.Equal(t, "Hola", g.Translate(ctx, "Hello", "Spanish"))

	assert.Equal(t, "Hello", New(failing(errors.New("down")), time.Second).Translate(ctx, "Hello", "es"))
	assert.Equal(t, "Hello", New(replying(`{"text":""}`), time.Second).Translate(ctx, "Hello", "es"))
	assert.Equal(t, "Hello", New(nil, time.Second).Translate(ctx, "Hello", "fr"))
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "es", NormalizeLanguage("Spanish").String())
	assert.Equal(t, "fr", NormalizeLanguage(" fr ").String())
	assert.Equal(t, "pt-BR", NormalizeLanguage("pt-BR").String())
	assert.Equal(t, "en", NormalizeLanguage("").String())
	assert.Equal(t, "en", NormalizeLanguage("!!not a language!!").String())

	assert.True(t, IsEnglish(NormalizeLanguage("en-GB")))
	assert.False(t, IsEnglish(language.German))
	assert.Equal(t, "German", LanguageName(language.German))
	assert.Equal(t, "Portuguese", LanguageName(NormalizeLanguage("pt-BR")))
}
