package tracker

import (
	"context"

	"github.com/cadenza-music/cadenza/internal/models"
)

// DirTrackingAccess persists the per-directory change-detection state.
//
// Paths are collection-relative, slash separated; the empty string denotes
// the collection root. Prefix arguments match a directory and everything
// below it.
type DirTrackingAccess interface {
	// LoadDirState returns the stored state for a directory, or (nil, nil)
	// when the directory was never tracked.
	LoadDirState(ctx context.Context, collectionID, path string) (*DirState, error)

	// SaveDirState inserts or replaces the stored state for a directory.
	SaveDirState(ctx context.Context, collectionID, path string, state DirState) error

	// UpdateDirStatus rewrites only the status of a tracked directory.
	UpdateDirStatus(ctx context.Context, collectionID, path string, status DirTrackingStatus) error

	// ListTrackedUnder returns the paths of all tracked directories under root.
	ListTrackedUnder(ctx context.Context, collectionID, root string) ([]string, error)

	// ListPendingUnder returns the paths of directories requiring import work
	// (status Added or Modified) under root, sorted by path.
	ListPendingUnder(ctx context.Context, collectionID, root string) ([]string, error)

	// DeleteTrackedUnder removes tracking records under root. A non-empty
	// filter restricts deletion to records in one of the given statuses.
	// Returns the number of records removed.
	DeleteTrackedUnder(ctx context.Context, collectionID, root string, filter []DirTrackingStatus) (int, error)

	// CountStatusesUnder aggregates per-status directory counts under root.
	CountStatusesUnder(ctx context.Context, collectionID, root string) (DirectoryCounts, error)

	// CountTrackedUnder counts tracking records under root.
	CountTrackedUnder(ctx context.Context, collectionID, root string) (int, error)

	// RelocateTracked rewrites the path prefix of every tracking record under
	// oldPrefix. Returns the number of rewritten records.
	RelocateTracked(ctx context.Context, collectionID, oldPrefix, newPrefix string) (int, error)
}

// MediaSourceAccess persists media sources and implements the purge and
// relocate predicates over path prefixes.
type MediaSourceAccess interface {
	// LoadSourceByPath returns the media source at a content path, or
	// (nil, nil) when absent.
	LoadSourceByPath(ctx context.Context, collectionID, path string) (*models.MediaSource, error)

	// SaveSource inserts or updates a media source keyed by (collection, path).
	SaveSource(ctx context.Context, src *models.MediaSource) error

	// PurgeOrphanedSources deletes media sources under root whose directory
	// is tracked as orphaned, cascading to tracks that have no other source,
	// and drops the orphaned tracking records. Returns sources deleted.
	PurgeOrphanedSources(ctx context.Context, collectionID, root string) (int, error)

	// PurgeUntrackedSources deletes media sources under root whose directory
	// has no tracking record at all, cascading to their tracks. Returns
	// sources deleted.
	PurgeUntrackedSources(ctx context.Context, collectionID, root string) (int, error)

	// CountSourcesUnder counts media sources under root.
	CountSourcesUnder(ctx context.Context, collectionID, root string) (int, error)

	// RelocateSources rewrites the path prefix of every media source under
	// oldPrefix, preserving digests and identities. Returns rewritten rows.
	RelocateSources(ctx context.Context, collectionID, oldPrefix, newPrefix string) (int, error)
}

// TrackAccess loads and persists track entities.
type TrackAccess interface {
	// LoadTrackBySourcePath returns the track whose media source sits at the
	// given content path, or (nil, nil) when absent.
	LoadTrackBySourcePath(ctx context.Context, collectionID, path string) (*models.Track, error)

	// SaveTrack inserts or updates a track by UID.
	SaveTrack(ctx context.Context, track *models.Track) error
}

// Repository is the persistence contract consumed by the engine, segregated
// by capability so any backend (relational, embedded KV, in-memory) can
// implement it.
type Repository interface {
	DirTrackingAccess
	MediaSourceAccess
	TrackAccess

	// WithBatch runs fn inside one atomic unit of work while holding the
	// collection's writer lock. The engine commits bounded batches (one
	// directory, or one file's track+source pair) so that cancellation or a
	// storage fault loses at most the in-flight batch. Accessor calls made
	// with the context passed to fn join the batch's transaction.
	WithBatch(ctx context.Context, collectionID string, fn func(ctx context.Context) error) error
}
