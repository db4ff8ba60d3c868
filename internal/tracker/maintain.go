package tracker

import (
	"context"
	"fmt"

	"github.com/cadenza-music/cadenza/internal/shared"
)

// Untrack deletes tracking records under root, optionally restricted to the
// given statuses. Media sources and tracks are never touched; they remain
// reachable by direct lookup only, until purged.
func (e *Engine) Untrack(ctx context.Context, root string, filter []DirTrackingStatus, progress chan<- ProgressUpdate) (*UntrackOutcome, error) {
	rel, err := normalizeRoot(root)
	if err != nil {
		return nil, err
	}

	var count int
	err = e.repo.WithBatch(ctx, e.collection, func(ctx context.Context) error {
		count, err = e.repo.DeleteTrackedUnder(ctx, e.collection, rel, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	e.sendProgress(progress, untrackUpdate(rel, count))
	return &UntrackOutcome{Root: rel, Untracked: count}, nil
}

// PurgeOrphaned deletes media sources under root whose directory is tracked
// as orphaned, cascading to tracks with no other source, and drops the
// orphaned tracking records.
func (e *Engine) PurgeOrphaned(ctx context.Context, root string, progress chan<- ProgressUpdate) (*PurgeOutcome, error) {
	return e.purge(ctx, root, progress, e.repo.PurgeOrphanedSources)
}

// PurgeUntracked deletes media sources under root that have no tracking
// record at all, typically right after an untrack.
func (e *Engine) PurgeUntracked(ctx context.Context, root string, progress chan<- ProgressUpdate) (*PurgeOutcome, error) {
	return e.purge(ctx, root, progress, e.repo.PurgeUntrackedSources)
}

func (e *Engine) purge(ctx context.Context, root string, progress chan<- ProgressUpdate, fn func(ctx context.Context, collectionID, root string) (int, error)) (*PurgeOutcome, error) {
	rel, err := normalizeRoot(root)
	if err != nil {
		return nil, err
	}

	var count int
	err = e.repo.WithBatch(ctx, e.collection, func(ctx context.Context) error {
		count, err = fn(ctx, e.collection, rel)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	e.sendProgress(progress, purgeUpdate(rel, count))
	return &PurgeOutcome{Purged: count}, nil
}

// Relocate rewrites the path prefix of every media source and tracking
// record under oldPrefix, preserving digests, UIDs, and revisions. A
// newPrefix that already holds rows is rejected to prevent collisions.
// Returns the number of rewritten rows.
func (e *Engine) Relocate(ctx context.Context, oldPrefix, newPrefix string, progress chan<- ProgressUpdate) (int, error) {
	oldRel, err := normalizeRoot(oldPrefix)
	if err != nil {
		return 0, err
	}
	newRel, err := normalizeRoot(newPrefix)
	if err != nil {
		return 0, err
	}
	if oldRel == "" || newRel == "" {
		return 0, fmt.Errorf("%w: relocate prefixes must not address the collection root", shared.ErrInvalidInput)
	}
	if oldRel == newRel {
		return 0, fmt.Errorf("%w: relocate prefixes are identical", shared.ErrInvalidInput)
	}

	sources, err := e.repo.CountSourcesUnder(ctx, e.collection, newRel)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	tracked, err := e.repo.CountTrackedUnder(ctx, e.collection, newRel)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	if sources > 0 || tracked > 0 {
		return 0, fmt.Errorf("%w: %s already holds catalog rows", shared.ErrInvalidInput, newRel)
	}

	var total int
	err = e.repo.WithBatch(ctx, e.collection, func(ctx context.Context) error {
		ns, err := e.repo.RelocateSources(ctx, e.collection, oldRel, newRel)
		if err != nil {
			return err
		}
		nt, err := e.repo.RelocateTracked(ctx, e.collection, oldRel, newRel)
		if err != nil {
			return err
		}
		total = ns + nt
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	e.sendProgress(progress, relocateUpdate(oldRel, newRel, total))
	return total, nil
}
