package object

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned by Open when no object exists under the key.
var ErrNotFound = eris.New("object: not found")

// ObjectStore saves and retrieves whole objects by key.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
