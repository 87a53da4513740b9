package evidence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"fundingsense-backend/internal/shared/telemetry"
)

// Backing persists indexed units so the index can be rebuilt on start.
type Backing interface {
	Put(ctx context.Context, unit Unit) error
	LoadAll(ctx context.Context) ([]Unit, error)
}

type entry struct {
	unit   Unit
	vector []float32
	seq    uint64
}

// Index is an in-memory vector index over evidence units. Entries are
// replaced wholesale on upsert and never mutated, so searches read a
// consistent snapshot under a shared lock.
type Index struct {
	embedder Embedder
	backing  Backing
	timeout  time.Duration

	mu      sync.RWMutex
	entries map[string]*entry
	seq     uint64
}

// Option customizes an Index.
type Option func(*Index)

// WithBacking persists every saved unit to b.
func WithBacking(b Backing) Option {
	return func(x *Index) { x.backing = b }
}

// WithTimeout bounds each search.
func WithTimeout(d time.Duration) Option {
	return func(x *Index) { x.timeout = d }
}

// NewIndex builds an empty index. A nil embedder falls back to HashEmbedder.
func NewIndex(embedder Embedder, opts ...Option) *Index {
	if embedder == nil {
		embedder = HashEmbedder{}
	}
	x := &Index{
		embedder: embedder,
		entries:  map[string]*entry{},
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Load re-indexes every unit held by the backing store.
func (x *Index) Load(ctx context.Context) error {
	if x.backing == nil {
		return nil
	}
	units, err := x.backing.LoadAll(ctx)
	if err != nil {
		return eris.Wrap(err, "evidence: load backing")
	}
	for _, u := range units {
		if err := x.index(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

// Save validates and upserts unit. Re-saving an identical unit leaves search
// results unchanged.
func (x *Index) Save(ctx context.Context, unit Unit) error {
	if err := unit.Validate(); err != nil {
		return err
	}
	if x.backing != nil {
		if err := x.backing.Put(ctx, unit); err != nil {
			return eris.Wrapf(err, "evidence: persist %s", unit.ID)
		}
	}
	return x.index(ctx, unit)
}

func (x *Index) index(ctx context.Context, unit Unit) error {
	vec, err := x.embedder.Embed(ctx, unit.Document())
	if err != nil {
		return eris.Wrapf(err, "evidence: embed %s", unit.ID)
	}
	e := &entry{unit: unit.Clone(), vector: vec}

	x.mu.Lock()
	x.seq++
	e.seq = x.seq
	x.entries[unit.ID] = e
	x.mu.Unlock()
	return nil
}

// Search ranks units against query. Any failure reaching the embedding
// backend is reported as ErrRetrievalUnavailable.
func (x *Index) Search(ctx context.Context, query string, filters Filters, topK int) ([]Scored, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if x.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}

	qvec, err := x.embedder.Embed(ctx, query)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		telemetry.Warn("retrieval.unavailable", map[string]any{"error": err})
		return nil, eris.Wrapf(ErrRetrievalUnavailable, "search: %v", err)
	}

	x.mu.RLock()
	results := make([]Scored, 0, len(x.entries))
	for _, e := range x.entries {
		if !filters.match(e.unit) {
			continue
		}
		score := cosine(qvec, e.vector)
		if score <= 0 {
			continue
		}
		results = append(results, Scored{Unit: e.unit.Clone(), Score: score})
	}
	x.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Unit.PublishedYear != b.Unit.PublishedYear {
			return a.Unit.PublishedYear > b.Unit.PublishedYear
		}
		return a.Unit.ID < b.Unit.ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// ListAll returns up to limit units, most recently ingested first.
func (x *Index) ListAll(ctx context.Context, limit int) ([]Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrapf(ErrRetrievalUnavailable, "list: %v", err)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	x.mu.RLock()
	entries := make([]*entry, 0, len(x.entries))
	for _, e := range x.entries {
		entries = append(entries, e)
	}
	x.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq > entries[j].seq })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]Unit, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.unit.Clone())
	}
	return out, nil
}

// Count reports the number of indexed units.
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

var _ Store = (*Index)(nil)
