package chat

import (
	"context"
	"sync"
)

// MemoryRepo keeps transcripts in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu     sync.RWMutex
	byUser map[string][]Turn
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byUser: make(map[string][]Turn)}
}

// Append adds turns to the user's transcript.
func (r *MemoryRepo) Append(ctx context.Context, userID string, turns ...Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[userID] = append(r.byUser[userID], turns...)
	return nil
}

// History returns a copy of the user's transcript.
func (r *MemoryRepo) History(ctx context.Context, userID string) ([]Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Turn{}, r.byUser[userID]...), nil
}

var _ Repo = (*MemoryRepo)(nil)
