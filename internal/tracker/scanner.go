package tracker

import (
	"context"
	"fmt"
	"os"
	"path"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cadenza-music/cadenza/internal/shared"
)

const defaultScanWorkers = 4

// ScanOptions configures a scan operation.
type ScanOptions struct {
	// MaxDepth limits how many levels below the root are visited.
	// 1 visits the root and its immediate subdirectories; 0 means unlimited.
	MaxDepth int

	// Workers is the number of concurrent digest workers. Defaults to 4.
	Workers int
}

// dirJob carries one visited directory to the digest workers.
type dirJob struct {
	path    string // collection-relative
	entries []EntryMeta
}

// Scan walks the tree under root, digests each directory's immediate
// listing, classifies it against the stored tracking state, and persists the
// new (digest, status) pair per directory in its own batch.
//
// After a full traversal, previously tracked directories that were not
// visited are swept as Orphaned; depth-limited scans skip the sweep, since
// directories beyond the depth cutoff still exist.
// Cancellation is polled between directories; on abort
// the outcome carries [Aborted] and the counts accumulated so far, and every
// directory committed before the abort remains valid. Re-running a scan
// after a partial run is idempotent.
//
// Only a failure to access the root itself aborts the whole operation;
// unreadable subdirectories are logged and skipped.
func (e *Engine) Scan(ctx context.Context, root string, opts ScanOptions, progress chan<- ProgressUpdate) (*ScanOutcome, error) {
	rel, err := normalizeRoot(root)
	if err != nil {
		return nil, err
	}

	absRoot, err := e.absolutePath(rel)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(absRoot); err != nil {
		return nil, fmt.Errorf("%w: cannot access scan root %s: %v", shared.ErrIO, absRoot, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%w: scan root %s is not a directory", shared.ErrInvalidInput, absRoot)
	}

	outcome := &ScanOutcome{Root: rel, Completion: Finished}

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultScanWorkers
	}

	var (
		mu     sync.Mutex
		counts DirectoryCounts
		step   int
	)

	jobs := make(chan dirJob)
	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			for job := range jobs {
				if gctx.Err() != nil {
					continue // drain remaining jobs after cancellation
				}
				status, err := e.scanDirectory(gctx, job)
				if err != nil {
					// Storage faults abort the in-flight batch only.
					e.logger.Error("failed to commit directory state", "path", job.path, "err", err)
					continue
				}
				mu.Lock()
				counts.Add(status)
				step++
				update := scanDirUpdate(step, job.path, status, counts)
				mu.Unlock()
				e.sendProgress(progress, update)
			}
			return nil
		})
	}

	type queuedDir struct {
		path  string
		depth int
	}

	visited := make(map[string]bool)
	queue := []queuedDir{{path: rel}}
	aborted := false

	for len(queue) > 0 {
		if ctx.Err() != nil {
			aborted = true
			break
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				aborted = true
				break
			}
		}

		cur := queue[0]
		queue = queue[1:]

		absDir, err := e.absolutePath(cur.path)
		if err != nil {
			e.logger.Warn("skipping unresolvable directory", "path", cur.path, "err", err)
			visited[cur.path] = true // skipped, not gone: keep it out of the orphan sweep
			continue
		}
		entries, err := ReadEntryMeta(absDir)
		if err != nil {
			e.logger.Warn("skipping unreadable directory", "path", cur.path, "err", err)
			visited[cur.path] = true
			continue
		}

		visited[cur.path] = true
		jobs <- dirJob{path: cur.path, entries: entries}

		if opts.MaxDepth == 0 || cur.depth < opts.MaxDepth {
			for _, entry := range entries {
				if entry.IsDir {
					queue = append(queue, queuedDir{path: path.Join(cur.path, entry.Name), depth: cur.depth + 1})
				}
			}
		}
	}

	close(jobs)
	g.Wait() // workers only log per-directory faults

	if !aborted && ctx.Err() != nil {
		aborted = true
	}

	// A depth-limited traversal leaves deeper tracked directories unvisited
	// even though they still exist, so the sweep only runs on full scans.
	if !aborted && opts.MaxDepth == 0 {
		swept, err := e.sweepOrphans(ctx, rel, visited, &counts, progress)
		if err != nil {
			return nil, err
		}
		aborted = swept
	}

	outcome.Directories = counts
	if aborted {
		outcome.Completion = Aborted
	}
	return outcome, nil
}

// scanDirectory digests one listing and commits the classified state as a
// single batch.
func (e *Engine) scanDirectory(ctx context.Context, job dirJob) (DirTrackingStatus, error) {
	digest := DirectoryDigest(job.entries)

	var status DirTrackingStatus
	err := e.repo.WithBatch(ctx, e.collection, func(ctx context.Context) error {
		prior, err := e.repo.LoadDirState(ctx, e.collection, job.path)
		if err != nil {
			return err
		}
		status = Classify(prior, digest)
		return e.repo.SaveDirState(ctx, e.collection, job.path, DirState{Digest: digest, Status: status})
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	return status, nil
}

// sweepOrphans marks previously tracked directories that the pass did not
// visit as Orphaned. Returns true if the sweep was cut short by cancellation.
func (e *Engine) sweepOrphans(ctx context.Context, root string, visited map[string]bool, counts *DirectoryCounts, progress chan<- ProgressUpdate) (bool, error) {
	tracked, err := e.repo.ListTrackedUnder(ctx, e.collection, root)
	if err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	var missing []string
	for _, p := range tracked {
		if !visited[p] {
			missing = append(missing, p)
		}
	}

	for i, p := range missing {
		if ctx.Err() != nil {
			return true, nil
		}
		err := e.repo.WithBatch(ctx, e.collection, func(ctx context.Context) error {
			return e.repo.UpdateDirStatus(ctx, e.collection, p, StatusOrphaned)
		})
		if err != nil {
			e.logger.Error("failed to mark directory orphaned", "path", p, "err", err)
			continue
		}
		counts.Orphaned++
		e.sendProgress(progress, orphanUpdate(i+1, len(missing), p))
	}
	return false, nil
}
