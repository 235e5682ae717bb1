package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gerunddev/orgnode/internal/config"
	"github.com/gerunddev/orgnode/internal/logger"
	"github.com/gerunddev/orgnode/internal/state"
	"github.com/gerunddev/orgnode/parser"
)

// Indexer keeps the state file in step with an org directory
type Indexer struct {
	config *config.Config
	state  *state.State
	log    *logger.Logger
}

// NewIndexer creates a new indexer instance
func NewIndexer(cfg *config.Config, st *state.State) *Indexer {
	return &Indexer{
		config: cfg,
		state:  st,
		log:    logger.Discard(),
	}
}

// SetLogger sets the logger for the indexer
func (ix *Indexer) SetLogger(l *logger.Logger) {
	ix.log = l
}

// Result represents the result of an index run
type Result struct {
	FilesIndexed int
	Skipped      int
	Pruned       int
	Duplicates   []string
	Errors       []error
	StartTime    time.Time
	EndTime      time.Time
}

type parsed struct {
	path string
	doc  *parser.Document
	err  error
}

// Index scans dir for .org files, parses the ones that changed since the last
// run and records them in state. Per-file failures are collected in the result;
// only cancellation or an unreadable directory aborts the run.
func (ix *Indexer) Index(ctx context.Context, dir string) (*Result, error) {
	result := &Result{
		StartTime: time.Now(),
	}
	ix.log.IndexStarted(dir)

	files, err := ScanDirectory(dir, ".org", ix.config.IsExcluded)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	seen := make(map[string]bool, len(files))
	var changed []string
	for _, path := range files {
		seen[path] = true
		ok, err := ix.state.HasChanged(path)
		if err != nil {
			ix.log.FileError(path, err)
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if !ok {
			ix.log.Skipped(path, "unchanged")
			result.Skipped++
			continue
		}
		changed = append(changed, path)
	}

	// Forget deleted files first so their IDs are not reported as duplicates.
	result.Pruned = ix.state.Prune(seen)

	docs, err := ix.parseAll(ctx, changed)
	if err != nil {
		return nil, err
	}

	// State is not safe for concurrent use, so updates happen here in scan order.
	for _, p := range docs {
		if p.err != nil {
			ix.log.FileError(p.path, p.err)
			result.Errors = append(result.Errors, p.err)
			continue
		}
		if err := ix.record(p.path, p.doc, result); err != nil {
			ix.log.StateError("update", err)
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", p.path, err))
			continue
		}
		result.FilesIndexed++
	}

	result.EndTime = time.Now()
	ix.log.IndexCompleted(result.FilesIndexed, result.Skipped, len(result.Errors), result.EndTime.Sub(result.StartTime))
	return result, nil
}

func (ix *Indexer) parseAll(ctx context.Context, paths []string) ([]parsed, error) {
	out := make([]parsed, len(paths))
	p := ix.config.Parser(ix.log.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.config.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			doc, err := p.ParseFile(path)
			out[i] = parsed{path: path, doc: doc, err: err}
			if err == nil {
				ix.log.ParseCompleted(path, len(doc.Nodes), time.Since(start))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (ix *Indexer) record(path string, doc *parser.Document, result *Result) error {
	todos := 0
	ids := make(map[string]string)
	for _, n := range doc.Nodes {
		if n.Todo() != "" {
			todos++
		}
		id := n.Property("ID")
		if id == "" {
			continue
		}
		if prev, ok := ids[id]; ok {
			ix.log.DuplicateID(id, path+"::"+prev, path+"::"+n.Heading())
			result.Duplicates = append(result.Duplicates, id)
			continue
		}
		if owner, heading, ok := ix.state.Owner(id); ok && owner != path {
			ix.log.DuplicateID(id, owner+"::"+heading, path+"::"+n.Heading())
			result.Duplicates = append(result.Duplicates, id)
		}
		ids[id] = n.Heading()
	}
	return ix.state.Update(path, len(doc.Nodes), todos, ids)
}

// ScanDirectory scans a directory for files with given extension, skipping
// files for which excluded reports true. A nil excluded keeps every file.
func ScanDirectory(dir string, ext string, excluded func(path string) bool) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || filepath.Ext(path) != ext {
			return nil
		}
		if excluded != nil && excluded(path) {
			return nil
		}
		files = append(files, path)

		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// String returns a human-readable summary of the index result
func (r *Result) String() string {
	duration := r.EndTime.Sub(r.StartTime)
	return fmt.Sprintf(
		"Index complete: %d files indexed, %d unchanged, %d removed, %d duplicate ids, %d errors (took %v)",
		r.FilesIndexed,
		r.Skipped,
		r.Pruned,
		len(r.Duplicates),
		len(r.Errors),
		duration.Round(time.Millisecond),
	)
}
