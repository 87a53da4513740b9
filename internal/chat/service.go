package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"fundingsense-backend/internal/evidence"
	"fundingsense-backend/internal/generation"
	"fundingsense-backend/internal/llm"
	"fundingsense-backend/internal/shared/metrics"
	"fundingsense-backend/internal/shared/telemetry"
)

const (
	// DefaultTopK is the retrieval depth for a chat question.
	DefaultTopK = 5
	// DefaultHistoryWindow is how many prior turns are sent with a question.
	DefaultHistoryWindow = 6
)

// Service answers questions grounded in retrieved evidence.
type Service struct {
	EvidenceStore evidence.Store
	Generator     *generation.Generator
	Repo          Repo
	HistoryWindow int
	TopK          int

	now   func() time.Time
	newID func() string
}

// NewService wires the chat collaborators.
func NewService(store evidence.Store, generator *generation.Generator, repo Repo, historyWindow int) *Service {
	if generator == nil {
		generator = generation.New(nil, 0)
	}
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	return &Service{
		EvidenceStore: store,
		Generator:     generator,
		Repo:          repo,
		HistoryWindow: historyWindow,
		TopK:          DefaultTopK,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}
}

// Handle answers req. Retrieval and generation failures degrade the answer;
// only invalid input, cancellation or a persistence error is returned.
func (s *Service) Handle(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}

	prior := req.PriorTurns
	if len(prior) == 0 && req.UserID != "" && s.Repo != nil {
		history, err := s.Repo.History(ctx, req.UserID)
		if err != nil {
			return Response{}, eris.Wrap(err, "chat: load history")
		}
		prior = history
	}
	prior = lastTurns(prior, s.HistoryWindow)

	var units []evidence.Unit
	available := true
	scored, err := s.EvidenceStore.Search(ctx, req.Message, evidence.Filters{}, s.topK())
	if err != nil {
		available = false
		metrics.IncRetrievalUnavailable()
	} else {
		units = evidence.Units(scored)
	}

	answer := s.Generator.Answer(ctx, generation.Question{
		Message:  req.Message,
		History:  toMessages(prior),
		Evidence: units,
		Language: req.Language,
	})
	if err := ctx.Err(); err != nil {
		return Response{}, eris.Wrap(err, "chat: request abandoned")
	}

	if req.UserID != "" && s.Repo != nil {
		asked := s.now()
		turns := []Turn{
			{ID: s.newID(), Role: llm.RoleUser, Content: req.Message, Timestamp: asked},
			{ID: s.newID(), Role: llm.RoleAssistant, Content: answer.Text, Sources: answer.Sources, Timestamp: s.now()},
		}
		if err := s.Repo.Append(ctx, req.UserID, turns...); err != nil {
			return Response{}, eris.Wrap(err, "chat: persist turns")
		}
	}

	metrics.IncChatAnswers()
	telemetry.Info("chat.answer", map[string]any{
		"request_id":          telemetry.RequestID(ctx),
		"user_id":             req.UserID,
		"retrieved":           len(units),
		"retrieval_available": available,
		"sources":             len(answer.Sources),
		"prior_turns":         len(prior),
		"generation_fallback": answer.Fallback,
	})
	return Response{Answer: answer.Text, Sources: answer.Sources}, nil
}

// History returns the persisted transcript for userID.
func (s *Service) History(ctx context.Context, userID string) ([]Turn, error) {
	if userID == "" {
		return nil, eris.Wrap(ErrInvalidRequest, "user id is required")
	}
	if s.Repo == nil {
		return []Turn{}, nil
	}
	return s.Repo.History(ctx, userID)
}

func (s *Service) topK() int {
	if s.TopK <= 0 {
		return DefaultTopK
	}
	return s.TopK
}

func lastTurns(turns []Turn, n int) []Turn {
	if n > 0 && len(turns) > n {
		return turns[len(turns)-n:]
	}
	return turns
}

func toMessages(turns []Turn) []llm.Message {
	out := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, llm.Message{Role: t.Role, Content: t.Content})
	}
	return out
}
