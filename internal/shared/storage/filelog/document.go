// Package filelog keeps a JSON document in an object store. The document is
// loaded once, held in memory and rewritten in full after every change.
package filelog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/rotisserie/eris"

	"fundingsense-backend/internal/shared/storage/object"
)

// Document is a JSON value of type T persisted under a single key.
// It is safe for concurrent use.
type Document[T any] struct {
	store object.ObjectStore
	key   string

	mu     sync.Mutex
	loaded bool
	value  T
}

// New returns a document stored at key. Nothing is read until first use.
func New[T any](store object.ObjectStore, key string) *Document[T] {
	return &Document[T]{store: store, key: key}
}

// View calls fn with the current value while holding the document lock.
// fn must not retain references into the value.
func (d *Document[T]) View(ctx context.Context, fn func(T) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureLoaded(ctx); err != nil {
		return err
	}
	return fn(d.value)
}

// Update applies fn to the value and writes the result back. If fn or the
// write fails the in-memory copy is discarded and reloaded on next use.
func (d *Document[T]) Update(ctx context.Context, fn func(*T) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureLoaded(ctx); err != nil {
		return err
	}
	if err := fn(&d.value); err != nil {
		d.reset()
		return err
	}
	if err := d.write(ctx); err != nil {
		d.reset()
		return err
	}
	return nil
}

func (d *Document[T]) reset() {
	var zero T
	d.value = zero
	d.loaded = false
}

func (d *Document[T]) ensureLoaded(ctx context.Context) error {
	if d.loaded {
		return nil
	}
	rc, err := d.store.Open(ctx, d.key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			d.loaded = true
			return nil
		}
		return eris.Wrapf(err, "filelog: open %s", d.key)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return eris.Wrapf(err, "filelog: read %s", d.key)
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &d.value); err != nil {
			return eris.Wrapf(err, "filelog: decode %s", d.key)
		}
	}
	d.loaded = true
	return nil
}

func (d *Document[T]) write(ctx context.Context) error {
	body, err := json.MarshalIndent(d.value, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "filelog: encode %s", d.key)
	}
	if _, err := d.store.Put(ctx, d.key, "application/json", bytes.NewReader(body)); err != nil {
		return eris.Wrapf(err, "filelog: write %s", d.key)
	}
	return nil
}
