package evidence

import (
	"context"

	"github.com/rotisserie/eris"
)

var (
	// ErrRetrievalUnavailable signals that the index or its embedding backend
	// could not answer. It is distinct from an empty result.
	ErrRetrievalUnavailable = eris.New("evidence: retrieval unavailable")
	// ErrInvalidUnit is returned by Save for units missing required fields.
	ErrInvalidUnit = eris.New("evidence: invalid unit")
)

const (
	DefaultTopK      = 10
	DefaultListLimit = 50
)

// Store is the evidence repository contract used by the orchestrators.
type Store interface {
	// Search returns at most topK units ordered by descending relevance, then
	// newer published year, then evidence id.
	Search(ctx context.Context, query string, filters Filters, topK int) ([]Scored, error)
	// ListAll returns the most recently ingested units first.
	ListAll(ctx context.Context, limit int) ([]Unit, error)
	// Save upserts a unit by id.
	Save(ctx context.Context, unit Unit) error
	// Count reports how many units are indexed.
	Count() int
}
