package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder builds an embedder. An empty model selects
// text-embedding-3-small.
func NewOpenAIEmbedder(apiKey, baseURL, model string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, eris.New("evidence: OpenAI API key is required for embeddings")
	}
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	m := openai.EmbeddingModel(model)
	if model == "" {
		m = openai.SmallEmbedding3
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		model:  m,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, eris.Wrap(err, "evidence: create embedding")
	}
	if len(resp.Data) == 0 {
		return nil, eris.New("evidence: empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

// CachedEmbedder memoizes another embedder. Vectors are keyed by a hash of
// the input text and expire after the configured TTL.
type CachedEmbedder struct {
	next  Embedder
	cache *gocache.Cache
}

// NewCachedEmbedder wraps next with an expiring in-memory cache.
func NewCachedEmbedder(next Embedder, ttl, cleanup time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		next:  next,
		cache: gocache.New(ttl, cleanup),
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(text))
	key := hex.EncodeToString(sum[:])
	if val, found := c.cache.Get(key); found {
		return val.([]float32), nil
	}
	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, vec)
	return vec, nil
}
