package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fundingsense-backend/internal/evidence"
	"fundingsense-backend/internal/generation"
	"fundingsense-backend/internal/llm"
	"fundingsense-backend/internal/reasoning"
)

var (
	unitFintechEU = evidence.Unit{
		ID:            "ev_fin_eu",
		SourceType:    evidence.SourceNews,
		Title:         "Northwind leads Series A in Berlin payments startup",
		SourceName:    "EU Startups",
		PublishedYear: 2024,
		Sector:        "Fintech",
		Geography:     "Europe",
		Investors:     []string{"Northwind Ventures"},
		Content:       "Northwind Ventures led a Series A round in a B2B payments startup in Berlin.",
		UsageTags:     []string{"deal"},
	}
	unitAgriKenya = evidence.Unit{
		ID:            "ev_agri_ke",
		SourceType:    evidence.SourceFiling,
		Title:         "Savanna Capital backs Nairobi agritech marketplace",
		SourceName:    "Disrupt Africa",
		PublishedYear: 2023,
		Sector:        "AgriTech",
		Geography:     "Africa",
		Investors:     []string{"Savanna Capital"},
		Content:       "Savanna Capital backed a seed-stage agritech marketplace for farmers in Kenya.",
		UsageTags:     []string{"deal"},
	}
)

func newIndex(t *testing.T, units ...evidence.Unit) *evidence.Index {
	t.Helper()
	idx := evidence.NewIndex(nil)
	for _, u := range units {
		require.NoError(t, idx.Save(context.Background(), u))
	}
	return idx
}

func newTestService(t *testing.T, store evidence.Store, client llm.Client, timeout time.Duration) (*Service, *MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	svc := NewService(store, reasoning.NewValidator(reasoning.DefaultThresholds()), generation.New(client, timeout), repo, 15)
	return svc, repo
}

type unavailableStore struct {
	evidence.Store
}

func (unavailableStore) Search(ctx context.Context, query string, filters evidence.Filters, topK int) ([]evidence.Scored, error) {
	return nil, evidence.ErrRetrievalUnavailable
}

type funcClient func(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error)

func (f funcClient) Complete(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error) {
	return f(ctx, prompt)
}

// hangingClient ignores its context and never answers within a test.
func hangingClient() llm.Client {
	return funcClient(func(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error) {
		time.Sleep(5 * time.Second)
		return nil, errors.New("too late")
	})
}

type failingRepo struct {
	Repo
}

func (failingRepo) Create(context.Context, Analysis) error {
	return errors.New("disk full")
}
