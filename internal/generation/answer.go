package generation

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"fundingsense-backend/internal/evidence"
	"fundingsense-backend/internal/llm"
	"fundingsense-backend/internal/shared/telemetry"
)

// NoEvidenceAnswer is returned when retrieval found nothing to ground on.
const NoEvidenceAnswer = "I could not find evidence in the knowledge base that answers this question, so I cannot answer it reliably."

// Question is one question-answering request.
type Question struct {
	Message  string
	History  []llm.Message
	Evidence []evidence.Unit
	Language string
}

// Answer is a grounded reply. Sources only ever holds retrieved units.
type Answer struct {
	Text     string          `json:"answer"`
	Sources  []evidence.Unit `json:"sources"`
	Fallback bool            `json:"-"`
}

type answerInput struct {
	Question string          `json:"question"`
	Evidence []evidence.Unit `json:"evidence"`
}

type rawAnswer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Answer replies to q using only q.Evidence. Without evidence the backend is
// not called.
func (g *Generator) Answer(ctx context.Context, q Question) Answer {
	if len(q.Evidence) == 0 {
		return Answer{Text: g.Translate(ctx, NoEvidenceAnswer, q.Language), Sources: []evidence.Unit{}}
	}
	if g.client == nil {
		return g.fallbackAnswer(q, eris.Wrap(ErrGenerationUnavailable, "no client"))
	}

	input, err := json.Marshal(answerInput{Question: q.Message, Evidence: q.Evidence})
	if err != nil {
		return g.fallbackAnswer(q, eris.Wrap(err, "generation: marshal question"))
	}
	messages := make([]llm.Message, 0, len(q.History)+1)
	messages = append(messages, q.History...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: string(input)})

	raw, err := g.complete(ctx, llm.Prompt{
		Name:      llm.PromptAnswer,
		System:    systemPrompt(llm.PromptAnswer, NormalizeLanguage(q.Language)),
		Messages:  messages,
		MaxTokens: 1024,
	})
	if err != nil {
		return g.fallbackAnswer(q, err)
	}

	var parsed rawAnswer
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return g.fallbackAnswer(q, eris.Wrapf(ErrGenerationMalformed, "decode answer: %v", err))
	}
	text := strings.TrimSpace(parsed.Answer)
	if text == "" {
		return g.fallbackAnswer(q, eris.Wrap(ErrGenerationMalformed, "empty answer"))
	}
	return Answer{Text: text, Sources: citedUnits(parsed.Sources, q.Evidence)}
}

// citedUnits resolves cited ids against the retrieved set, dropping anything
// that was not retrieved.
func citedUnits(ids []string, retrieved []evidence.Unit) []evidence.Unit {
	byID := make(map[string]evidence.Unit, len(retrieved))
	for _, u := range retrieved {
		byID[u.ID] = u
	}
	out := []evidence.Unit{}
	seen := map[string]bool{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		u, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, u)
	}
	return out
}

func (g *Generator) fallbackAnswer(q Question, cause error) Answer {
	telemetry.Warn("generation.fallback", map[string]any{
		"mode":  llm.PromptAnswer,
		"error": cause,
	})
	titles := make([]string, 0, len(q.Evidence))
	for _, u := range q.Evidence {
		titles = append(titles, u.Title)
	}
	sources := make([]evidence.Unit, 0, len(q.Evidence))
	for _, u := range q.Evidence {
		sources = append(sources, u.Clone())
	}
	return Answer{
		Text:     "I could not generate a full answer right now. The most relevant evidence is: " + strings.Join(titles, "; ") + ".",
		Sources:  sources,
		Fallback: true,
	}
}

type rawTranslation struct {
	Text string `json:"text"`
}

// Translate renders text in lang. English targets, empty text and any
// backend failure return text unchanged.
func (g *Generator) Translate(ctx context.Context, text, lang string) string {
	tag := NormalizeLanguage(lang)
	if strings.TrimSpace(text) == "" || IsEnglish(tag) || g.client == nil {
		return text
	}
	raw, err := g.complete(ctx, llm.Prompt{
		Name:     llm.PromptTranslate,
		System:   systemPrompt(llm.PromptTranslate, tag),
		Messages: []llm.Message{{Role: llm.RoleUser, Content: text}},
	})
	if err != nil {
		telemetry.Warn("generation.fallback", map[string]any{"mode": llm.PromptTranslate, "error": err})
		return text
	}
	var parsed rawTranslation
	if err := json.Unmarshal(raw, &parsed); err != nil || strings.TrimSpace(parsed.Text) == "" {
		return text
	}
	return parsed.Text
}
