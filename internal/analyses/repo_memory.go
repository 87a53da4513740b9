package analyses

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu    sync.RWMutex
	byID  map[string]Analysis
	order []string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Analysis)}
}

// Create stores the analysis. Ids are never overwritten.
func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[analysis.ID]; exists {
		return eris.Errorf("analyses: duplicate id %s", analysis.ID)
	}
	r.order = append(r.order, analysis.ID)
	r.byID[analysis.ID] = analysis
	return nil
}

// List returns analyses newest first.
func (r *MemoryRepo) List(ctx context.Context, userID string) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Analysis, 0, len(r.order))
	for _, id := range r.order {
		if a := r.byID[id]; visibleTo(a, userID) {
			out = append(out, a)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// GetByID returns an analysis by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, analysisID, userID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	analysis, ok := r.byID[analysisID]
	if !ok || !visibleTo(analysis, userID) {
		return Analysis{}, ErrNotFound
	}
	return analysis, nil
}

// sortNewestFirst orders by creation time, keeping insertion order reversed
// for equal timestamps.
func sortNewestFirst(list []Analysis) {
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

var _ Repo = (*MemoryRepo)(nil)
