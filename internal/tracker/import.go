package tracker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"

	"github.com/cadenza-music/cadenza/internal/importer"
	"github.com/cadenza-music/cadenza/internal/models"
	"github.com/cadenza-music/cadenza/internal/shared"
)

// SyncMode is the policy controlling whether a changed file triggers
// metadata re-import.
type SyncMode int

const (
	// SyncOnce never re-imports a file that already has a media source.
	SyncOnce SyncMode = iota
	// SyncModified re-imports when the file digest differs and the track has
	// no unsaved local edits (its revision equals the last-synchronized one).
	SyncModified
	// SyncModifiedResync re-imports when the file digest differs, regardless
	// of local edits.
	SyncModifiedResync
	// SyncAlways re-imports unconditionally.
	SyncAlways
)

func (m SyncMode) String() string {
	switch m {
	case SyncOnce:
		return "once"
	case SyncModified:
		return "modified"
	case SyncModifiedResync:
		return "modified-resync"
	case SyncAlways:
		return "always"
	default:
		return ""
	}
}

// ParseSyncMode parses the string form of a SyncMode.
func ParseSyncMode(s string) (SyncMode, error) {
	switch s {
	case "once":
		return SyncOnce, nil
	case "modified":
		return SyncModified, nil
	case "modified-resync":
		return SyncModifiedResync, nil
	case "always":
		return SyncAlways, nil
	default:
		return 0, fmt.Errorf("%w: unknown sync mode %q", shared.ErrInvalidFlag, s)
	}
}

// ImportOptions configures an import operation.
type ImportOptions struct {
	Mode   SyncMode
	Config importer.Config
}

// importDecision is the outcome of applying the SyncMode policy to one file.
type importDecision int

const (
	decisionImport importDecision = iota
	decisionUnchanged
	decisionSkip
)

// decideReimport applies the SyncMode policy table.
func decideReimport(mode SyncMode, src *models.MediaSource, existing *models.Track, digest []byte) importDecision {
	if src == nil {
		return decisionImport
	}
	if mode == SyncAlways {
		return decisionImport
	}
	if bytes.Equal(src.Digest, digest) {
		return decisionUnchanged
	}
	switch mode {
	case SyncOnce:
		return decisionSkip
	case SyncModified:
		if src.SyncedRevision != nil && existing != nil && existing.Revision == *src.SyncedRevision {
			return decisionImport
		}
		// Unsaved local edits win over the changed file.
		return decisionSkip
	default: // SyncModifiedResync
		return decisionImport
	}
}

// Import processes every directory with pending status under root: lists its
// files, applies the SyncMode policy, invokes the importer, and commits the
// resulting track and media-source mutations one file per batch.
//
// Single-file failures are recorded in the outcome and never abort the
// batch. A directory whose files all succeeded is confirmed Current; one
// with failures or intentional skips is left Outdated so the next pass
// retries only the outstanding work.
func (e *Engine) Import(ctx context.Context, root string, opts ImportOptions, progress chan<- ProgressUpdate) (*ImportOutcome, error) {
	rel, err := normalizeRoot(root)
	if err != nil {
		return nil, err
	}

	outcome := &ImportOutcome{Root: rel, Completion: Finished}
	if ctx.Err() != nil {
		outcome.Completion = Aborted
		return outcome, nil
	}

	pending, err := e.repo.ListPendingUnder(ctx, e.collection, rel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	fileStep := 0
	for i, dir := range pending {
		if ctx.Err() != nil {
			outcome.Completion = Aborted
			break
		}

		state, err := e.repo.LoadDirState(ctx, e.collection, dir)
		if err != nil {
			e.logger.Error("failed to load directory state", "path", dir, "err", err)
			outcome.Directories.Skipped++
			continue
		}
		if state == nil {
			// Untracked since the scan that listed it.
			outcome.Directories.Untracked++
			continue
		}

		confirmed, aborted := e.importDirectory(ctx, dir, opts, outcome, progress, &fileStep)
		if aborted {
			outcome.Completion = Aborted
			break
		}
		e.sendProgress(progress, importDirUpdate(i+1, len(pending), dir, confirmed))
	}

	return outcome, nil
}

// importDirectory processes one pending directory's files and confirms or
// keeps its tracking status. Returns whether the directory was confirmed
// Current and whether cancellation interrupted it.
func (e *Engine) importDirectory(ctx context.Context, dir string, opts ImportOptions, outcome *ImportOutcome, progress chan<- ProgressUpdate, step *int) (confirmed, aborted bool) {
	absDir, err := e.absolutePath(dir)
	if err != nil {
		e.logger.Warn("skipping unresolvable directory", "path", dir, "err", err)
		outcome.Directories.Skipped++
		return false, false
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		e.logger.Warn("skipping unreadable directory", "path", dir, "err", err)
		e.keepOutstanding(ctx, dir)
		outcome.Directories.Skipped++
		return false, false
	}

	allOK := true
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ctx.Err() != nil {
			return false, true
		}
		if !e.importFile(ctx, path.Join(dir, entry.Name()), opts, outcome, progress, step) {
			allOK = false
		}
	}

	status := StatusCurrent
	if !allOK {
		status = StatusOutdated
	}
	err = e.repo.WithBatch(ctx, e.collection, func(ctx context.Context) error {
		return e.repo.UpdateDirStatus(ctx, e.collection, dir, status)
	})
	if err != nil {
		e.logger.Error("failed to update directory status", "path", dir, "err", err)
		outcome.Directories.Skipped++
		return false, false
	}

	if allOK {
		outcome.Directories.Confirmed++
	} else {
		outcome.Directories.Skipped++
	}
	return allOK, false
}

// keepOutstanding marks a directory Outdated so the next pass retries it.
func (e *Engine) keepOutstanding(ctx context.Context, dir string) {
	err := e.repo.WithBatch(ctx, e.collection, func(ctx context.Context) error {
		return e.repo.UpdateDirStatus(ctx, e.collection, dir, StatusOutdated)
	})
	if err != nil {
		e.logger.Error("failed to mark directory outdated", "path", dir, "err", err)
	}
}

// importFile processes a single file. Returns false when the file leaves
// outstanding work in its directory (failure or intentional skip).
func (e *Engine) importFile(ctx context.Context, cpath string, opts ImportOptions, outcome *ImportOutcome, progress chan<- ProgressUpdate, step *int) bool {
	*step++

	recordIssue := func(messages ...string) {
		outcome.Issues = append(outcome.Issues, FileIssue{Path: cpath, Messages: messages})
	}

	absPath, err := e.absolutePath(cpath)
	if err != nil {
		outcome.Tracks.Failed++
		recordIssue(err.Error())
		return false
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		outcome.Tracks.Failed++
		recordIssue(fmt.Sprintf("read failed: %v", err))
		e.sendProgress(progress, importFileUpdate(*step, cpath, "failed"))
		return false
	}
	digest := FileDigestBytes(data)

	src, err := e.repo.LoadSourceByPath(ctx, e.collection, cpath)
	if err != nil {
		outcome.Tracks.Failed++
		recordIssue(fmt.Sprintf("storage: %v", err))
		return false
	}
	var existing *models.Track
	if src != nil {
		existing, err = e.repo.LoadTrackBySourcePath(ctx, e.collection, cpath)
		if err != nil {
			outcome.Tracks.Failed++
			recordIssue(fmt.Sprintf("storage: %v", err))
			return false
		}
	}

	switch decideReimport(opts.Mode, src, existing, digest) {
	case decisionUnchanged:
		outcome.Tracks.Unchanged++
		e.sendProgress(progress, importFileUpdate(*step, cpath, "unchanged"))
		return true
	case decisionSkip:
		outcome.Tracks.Skipped++
		e.sendProgress(progress, importFileUpdate(*step, cpath, "skipped"))
		return false
	}

	result, err := e.importer.Import(data, existing, opts.Config)
	if err != nil {
		outcome.Tracks.Failed++
		recordIssue(err.Error())
		e.sendProgress(progress, importFileUpdate(*step, cpath, "failed"))
		return false
	}
	if len(result.Issues) > 0 {
		recordIssue(result.Issues...)
	}
	if result.Track == nil {
		// Importer declined the file; it never blocks its directory.
		outcome.Tracks.NotImported++
		e.sendProgress(progress, importFileUpdate(*step, cpath, "not imported"))
		return true
	}

	if err := result.Track.Validate(); err != nil {
		if existing != nil {
			outcome.Tracks.NotUpdated++
		} else {
			outcome.Tracks.NotCreated++
		}
		recordIssue(err.Error())
		e.sendProgress(progress, importFileUpdate(*step, cpath, "rejected"))
		return false
	}

	track := result.Track
	if existing != nil {
		// Merge preserves the UID across re-imports.
		existing.MergeFrom(result.Track)
		existing.Bump()
		track = existing
	}

	source := src
	if source == nil {
		source = models.NewMediaSource(e.collection, cpath, digest, result.ContentType)
	} else {
		source.Digest = digest
		source.ContentType = result.ContentType
	}
	source.Audio = result.Audio
	source.ArtworkURI = result.ArtworkURI
	source.MarkSynchronized(track.Revision)
	track.SourceID = source.ID

	err = e.repo.WithBatch(ctx, e.collection, func(ctx context.Context) error {
		if err := e.repo.SaveSource(ctx, source); err != nil {
			return err
		}
		return e.repo.SaveTrack(ctx, track)
	})
	if err != nil {
		outcome.Tracks.Failed++
		recordIssue(fmt.Sprintf("storage: %v", err))
		e.sendProgress(progress, importFileUpdate(*step, cpath, "failed"))
		return false
	}

	if existing != nil {
		outcome.Tracks.Updated++
		e.sendProgress(progress, importFileUpdate(*step, cpath, "updated"))
	} else {
		outcome.Tracks.Created++
		e.sendProgress(progress, importFileUpdate(*step, cpath, "created"))
	}
	return true
}
