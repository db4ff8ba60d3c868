package tracker

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/cadenza-music/cadenza/internal/importer"
	"github.com/cadenza-music/cadenza/internal/shared"
	"github.com/cadenza-music/cadenza/internal/vfs"
)

// Engine orchestrates scanning, importing, untracking, purging, and
// relocating for one collection.
//
// All operations are long-running and I/O bound; callers dispatch them on
// background goroutines and consume results asynchronously.
type Engine struct {
	repo       Repository
	importer   importer.Importer
	resolver   vfs.Resolver
	logger     *log.Logger
	limiter    *rate.Limiter
	collection string
}

// EngineOpts contains the dependencies for creating an Engine.
type EngineOpts struct {
	Repository Repository
	Importer   importer.Importer
	Resolver   vfs.Resolver
	Logger     *log.Logger
	Collection string // collection UID owning all rows the engine touches

	// ScanRate bounds directory visits per second during scans.
	// Zero disables throttling.
	ScanRate int
}

// NewEngine creates an Engine with the provided dependencies.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	var limiter *rate.Limiter
	if opts.ScanRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.ScanRate), opts.ScanRate)
	}
	return &Engine{
		repo:       opts.Repository,
		importer:   opts.Importer,
		resolver:   opts.Resolver,
		logger:     opts.Logger,
		limiter:    limiter,
		collection: opts.Collection,
	}
}

// Status aggregates per-status directory counts for the subtree under root.
// Safe to call concurrently with a running operation.
func (e *Engine) Status(ctx context.Context, root string) (DirectoryCounts, error) {
	rel, err := normalizeRoot(root)
	if err != nil {
		return DirectoryCounts{}, err
	}
	counts, err := e.repo.CountStatusesUnder(ctx, e.collection, rel)
	if err != nil {
		return DirectoryCounts{}, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	return counts, nil
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full, skip this update
	}
}

// absolutePath resolves a content path to its local filesystem location.
func (e *Engine) absolutePath(p string) (string, error) {
	loc, err := e.resolver.PathToLocation(p)
	if err != nil {
		return "", err
	}
	return vfs.FilesystemPath(loc)
}

// normalizeRoot validates and normalizes a collection-relative root path.
// The empty string addresses the whole collection.
func normalizeRoot(root string) (string, error) {
	root = strings.Trim(root, "/")
	if root == "" {
		return "", nil
	}
	clean := path.Clean(root)
	if clean == "." {
		return "", nil
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: root %q escapes the collection", shared.ErrInvalidInput, root)
	}
	return clean, nil
}
