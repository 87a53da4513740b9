package chat

import (
	"context"

	"github.com/rotisserie/eris"

	"fundingsense-backend/internal/shared/storage/filelog"
	"fundingsense-backend/internal/shared/storage/object"
)

// DefaultFileKey is the object key of the chat transcript document.
const DefaultFileKey = "chat_history.json"

// FileRepo keeps all transcripts in one JSON object keyed by user id.
type FileRepo struct {
	doc *filelog.Document[map[string][]Turn]
}

// NewFileRepo stores transcripts under key in store.
func NewFileRepo(store object.ObjectStore, key string) *FileRepo {
	if key == "" {
		key = DefaultFileKey
	}
	return &FileRepo{doc: filelog.New[map[string][]Turn](store, key)}
}

// Append adds turns to the user's transcript and rewrites the document.
func (r *FileRepo) Append(ctx context.Context, userID string, turns ...Turn) error {
	err := r.doc.Update(ctx, func(sessions *map[string][]Turn) error {
		if *sessions == nil {
			*sessions = map[string][]Turn{}
		}
		(*sessions)[userID] = append((*sessions)[userID], turns...)
		return nil
	})
	return eris.Wrap(err, "chat: append")
}

// History returns a copy of the user's transcript.
func (r *FileRepo) History(ctx context.Context, userID string) ([]Turn, error) {
	var out []Turn
	err := r.doc.View(ctx, func(sessions map[string][]Turn) error {
		out = append([]Turn{}, sessions[userID]...)
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "chat: history")
	}
	return out, nil
}

var _ Repo = (*FileRepo)(nil)
