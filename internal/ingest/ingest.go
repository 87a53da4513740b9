package ingest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"fundingsense-backend/internal/evidence"
	"fundingsense-backend/internal/extract"
	"fundingsense-backend/internal/shared/telemetry"
)

// DefaultWorkers bounds concurrent file processing.
const DefaultWorkers = 4

// Saver receives parsed units. evidence.Index satisfies it.
type Saver interface {
	Save(ctx context.Context, unit evidence.Unit) error
}

// Failure records one file that could not be ingested.
type Failure struct {
	Path string
	Err  error
}

// Summary reports the outcome of a run.
type Summary struct {
	Indexed  int
	Skipped  int
	Failures []Failure
}

// Ingester walks a directory tree and saves every evidence document in it.
type Ingester struct {
	Store   Saver
	Workers int
}

// New constructs an Ingester.
func New(store Saver, workers int) *Ingester {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Ingester{Store: store, Workers: workers}
}

// Run ingests every .md and .pdf file under root. Failures of individual
// files are logged and reported in the summary; only a missing root or a
// cancelled context fails the run.
func (in *Ingester) Run(ctx context.Context, root string) (Summary, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Summary{}, eris.Wrapf(err, "ingest: data root %s", root)
	}
	if !info.IsDir() {
		return Summary{}, eris.Errorf("ingest: data root %s is not a directory", root)
	}

	paths, err := collect(root)
	if err != nil {
		return Summary{}, err
	}

	var (
		mu      sync.Mutex
		summary Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.Workers)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			unit, err := in.ingestFile(gctx, path)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrNoFrontMatter):
				summary.Skipped++
				telemetry.Warn("ingest.skipped", map[string]any{"path": path, "reason": "no front matter"})
			case err != nil:
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				summary.Failures = append(summary.Failures, Failure{Path: path, Err: err})
				telemetry.Error("ingest.failed", map[string]any{"path": path, "error": err})
			default:
				summary.Indexed++
				telemetry.Info("ingest.indexed", map[string]any{
					"path":        path,
					"evidence_id": unit.ID,
					"title":       unit.Title,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, eris.Wrap(err, "ingest: run aborted")
	}

	sort.Slice(summary.Failures, func(i, j int) bool { return summary.Failures[i].Path < summary.Failures[j].Path })
	telemetry.Info("ingest.complete", map[string]any{
		"root":    root,
		"indexed": summary.Indexed,
		"skipped": summary.Skipped,
		"failed":  len(summary.Failures),
	})
	return summary, nil
}

func (in *Ingester) ingestFile(ctx context.Context, path string) (evidence.Unit, error) {
	var (
		unit evidence.Unit
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md":
		unit, err = loadMarkdown(path)
	case ".pdf":
		unit, err = loadPDF(ctx, path)
	}
	if err != nil {
		return evidence.Unit{}, err
	}
	if err := in.Store.Save(ctx, unit); err != nil {
		return evidence.Unit{}, eris.Wrapf(err, "ingest: save %s", unit.ID)
	}
	return unit, nil
}

func loadMarkdown(path string) (evidence.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return evidence.Unit{}, eris.Wrapf(err, "ingest: read %s", path)
	}
	rawMeta, body, err := SplitFrontMatter(data)
	if err != nil {
		return evidence.Unit{}, err
	}
	meta, err := ParseMetadata(rawMeta)
	if err != nil {
		return evidence.Unit{}, err
	}
	return BuildUnit(path, meta, string(body))
}

// loadPDF extracts the pdf text and reads metadata from a sibling
// <name>.yaml file when one exists.
func loadPDF(ctx context.Context, path string) (evidence.Unit, error) {
	text, err := extract.File(ctx, path)
	if err != nil {
		return evidence.Unit{}, err
	}
	var meta Metadata
	sidecar := strings.TrimSuffix(path, filepath.Ext(path)) + ".yaml"
	raw, err := os.ReadFile(sidecar)
	switch {
	case err == nil:
		if meta, err = ParseMetadata(raw); err != nil {
			return evidence.Unit{}, eris.Wrapf(err, "ingest: %s", sidecar)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return evidence.Unit{}, eris.Wrapf(err, "ingest: read %s", sidecar)
	}
	return BuildUnit(path, meta, text)
}

func collect(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".pdf":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: walk %s", root)
	}
	sort.Strings(paths)
	return paths, nil
}
