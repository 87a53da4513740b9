package evidence

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedderDeterministicAndNormalized(t *testing.T) {
	ctx := context.Background()
	h := HashEmbedder{}

	a, err := h.Embed(ctx, "Fintech payments across Europe")
	require.NoError(t, err)
	b, err := h.Embed(ctx, "fintech PAYMENTS across europe")
	require.NoError(t, err)

	assert.Len(t, a, HashDimension)
	assert.Equal(t, a, b)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
	assert.InDelta(t, 1.0, cosine(a, b), 1e-6)
}

func TestHashEmbedderRanksSharedTerms(t *testing.T) {
	ctx := context.Background()
	h := HashEmbedder{}
	q, _ := h.Embed(ctx, "fintech payments")
	related, _ := h.Embed(ctx, "fintech payments europe")
	unrelated, _ := h.Embed(ctx, "agriculture drones kenya")

	assert.Greater(t, cosine(q, related), cosine(q, unrelated))
}

func TestHashEmbedderEmptyText(t *testing.T) {
	vec, err := HashEmbedder{Dimension: 8}.Embed(context.Background(), "the and of")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), vec)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"seed", "stage", "b2b", "saas", "kenya"}, Tokenize("Seed-stage B2B SaaS in Kenya!"))
}

type countingEmbedder struct {
	calls atomic.Int32
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return []float32{float32(len(text))}, nil
}

func TestCachedEmbedderMemoizes(t *testing.T) {
	next := &countingEmbedder{}
	c := NewCachedEmbedder(next, time.Minute, time.Minute)
	ctx := context.Background()

	first, err := c.Embed(ctx, "fintech")
	require.NoError(t, err)
	second, err := c.Embed(ctx, "fintech")
	require.NoError(t, err)
	_, err = c.Embed(ctx, "agritech!")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestOpenAIEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],"model":"text-embedding-3-small"}`))
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder("test-key", server.URL, "")
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "fintech")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)
}

func TestOpenAIEmbedderErrorSurfacesAsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder("test-key", server.URL, "")
	require.NoError(t, err)

	idx := NewIndex(e)
	_, err = idx.Search(context.Background(), "fintech", Filters{}, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
}

func TestNewOpenAIEmbedderRequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder("", "", "")
	require.Error(t, err)
}
