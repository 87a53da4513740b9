package analyses

import "context"

// Repo persists completed analyses. Records are append-only.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) error
	// List returns the user's analyses newest first, or every analysis when
	// userID is empty.
	List(ctx context.Context, userID string) ([]Analysis, error)
	// GetByID returns ErrNotFound when the id is unknown or, for a non-empty
	// userID, owned by someone else.
	GetByID(ctx context.Context, analysisID, userID string) (Analysis, error)
}

func visibleTo(a Analysis, userID string) bool {
	return userID == "" || a.UserID == userID
}
