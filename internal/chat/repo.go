package chat

import "context"

// Repo persists chat transcripts per user. Turns are append-only.
type Repo interface {
	Append(ctx context.Context, userID string, turns ...Turn) error
	// History returns the user's turns oldest first.
	History(ctx context.Context, userID string) ([]Turn, error)
}
