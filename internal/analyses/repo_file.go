package analyses

import (
	"context"

	"github.com/rotisserie/eris"

	"fundingsense-backend/internal/shared/storage/filelog"
	"fundingsense-backend/internal/shared/storage/object"
)

// DefaultFileKey is the object key of the analyses log.
const DefaultFileKey = "analyses.json"

// FileRepo keeps every analysis in one JSON array document, rewritten on
// each append.
type FileRepo struct {
	doc *filelog.Document[[]Analysis]
}

// NewFileRepo stores the log under key in store.
func NewFileRepo(store object.ObjectStore, key string) *FileRepo {
	if key == "" {
		key = DefaultFileKey
	}
	return &FileRepo{doc: filelog.New[[]Analysis](store, key)}
}

// Create appends the analysis to the log.
func (r *FileRepo) Create(ctx context.Context, analysis Analysis) error {
	err := r.doc.Update(ctx, func(list *[]Analysis) error {
		for _, existing := range *list {
			if existing.ID == analysis.ID {
				return eris.Errorf("analyses: duplicate id %s", analysis.ID)
			}
		}
		*list = append(*list, analysis)
		return nil
	})
	return eris.Wrap(err, "analyses: append")
}

// List returns analyses newest first.
func (r *FileRepo) List(ctx context.Context, userID string) ([]Analysis, error) {
	var out []Analysis
	err := r.doc.View(ctx, func(list []Analysis) error {
		out = make([]Analysis, 0, len(list))
		for _, a := range list {
			if visibleTo(a, userID) {
				out = append(out, a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "analyses: list")
	}
	sortNewestFirst(out)
	return out, nil
}

// GetByID returns an analysis by its ID.
func (r *FileRepo) GetByID(ctx context.Context, analysisID, userID string) (Analysis, error) {
	var (
		found Analysis
		ok    bool
	)
	err := r.doc.View(ctx, func(list []Analysis) error {
		for _, a := range list {
			if a.ID == analysisID {
				found, ok = a, true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return Analysis{}, eris.Wrap(err, "analyses: get")
	}
	if !ok || !visibleTo(found, userID) {
		return Analysis{}, ErrNotFound
	}
	return found, nil
}

var _ Repo = (*FileRepo)(nil)
