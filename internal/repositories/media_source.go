package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"unicode/utf8"

	"github.com/cadenza-music/cadenza/internal/models"
)

// sourceDir returns the directory component of a content path, "" for the
// collection root.
func sourceDir(p string) string {
	dir := path.Dir(p)
	if dir == "." {
		return ""
	}
	return dir
}

// LoadSourceByPath retrieves a media source by content path, returning
// (nil, nil) when absent.
func (c *Catalog) LoadSourceByPath(ctx context.Context, collectionID, contentPath string) (*models.MediaSource, error) {
	query := `
		SELECT id, collection_id, path, digest, content_type,
		       channels, sample_rate, bitrate, duration_ms,
		       artwork_uri, synced_revision, collected_at, synchronized_at
		FROM media_sources
		WHERE collection_id = ? AND path = ?
	`

	var (
		src            models.MediaSource
		channels       sql.NullInt64
		sampleRate     sql.NullInt64
		bitrate        sql.NullInt64
		durationMs     sql.NullInt64
		artworkURI     sql.NullString
		syncedRevision sql.NullInt64
		synchronizedAt sql.NullTime
	)

	err := c.conn(ctx).QueryRowContext(ctx, query, collectionID, contentPath).Scan(
		&src.ID, &src.CollectionID, &src.Path, &src.Digest, &src.ContentType,
		&channels, &sampleRate, &bitrate, &durationMs,
		&artworkURI, &syncedRevision, &src.CollectedAt, &synchronizedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load media source: %w", err)
	}

	src.Audio = models.AudioProperties{
		Channels:   int(channels.Int64),
		SampleRate: int(sampleRate.Int64),
		Bitrate:    int(bitrate.Int64),
		DurationMs: int(durationMs.Int64),
	}
	src.ArtworkURI = artworkURI.String
	if syncedRevision.Valid {
		rev := int(syncedRevision.Int64)
		src.SyncedRevision = &rev
	}
	if synchronizedAt.Valid {
		t := synchronizedAt.Time
		src.SynchronizedAt = &t
	}
	return &src, nil
}

// SaveSource inserts or updates a media source keyed by (collection, path).
func (c *Catalog) SaveSource(ctx context.Context, src *models.MediaSource) error {
	if err := src.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO media_sources (
			id, collection_id, path, dir_path, digest, content_type,
			channels, sample_rate, bitrate, duration_ms,
			artwork_uri, synced_revision, collected_at, synchronized_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection_id, path) DO UPDATE SET
			digest = excluded.digest,
			content_type = excluded.content_type,
			channels = excluded.channels,
			sample_rate = excluded.sample_rate,
			bitrate = excluded.bitrate,
			duration_ms = excluded.duration_ms,
			artwork_uri = excluded.artwork_uri,
			synced_revision = excluded.synced_revision,
			synchronized_at = excluded.synchronized_at
	`

	var syncedRevision any
	if src.SyncedRevision != nil {
		syncedRevision = *src.SyncedRevision
	}
	var synchronizedAt any
	if src.SynchronizedAt != nil {
		synchronizedAt = *src.SynchronizedAt
	}

	_, err := c.conn(ctx).ExecContext(ctx, query,
		src.ID, src.CollectionID, src.Path, sourceDir(src.Path), src.Digest, src.ContentType,
		src.Audio.Channels, src.Audio.SampleRate, src.Audio.Bitrate, src.Audio.DurationMs,
		src.ArtworkURI, syncedRevision, src.CollectedAt, synchronizedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save media source: %w", err)
	}
	return nil
}

// PurgeOrphanedSources deletes media sources under root whose directory is
// tracked as orphaned, cascading to their tracks, then drops the orphaned
// tracking records.
func (c *Catalog) PurgeOrphanedSources(ctx context.Context, collectionID, root string) (int, error) {
	clause, args := prefixClause("path", root)
	cond := fmt.Sprintf(`
		collection_id = ? AND %s AND EXISTS (
			SELECT 1 FROM dir_tracking t
			WHERE t.collection_id = media_sources.collection_id
			  AND t.path = media_sources.dir_path
			  AND t.status = 'orphaned'
		)
	`, clause)
	condArgs := append([]any{collectionID}, args...)

	count, err := c.purgeSources(ctx, cond, condArgs)
	if err != nil {
		return 0, err
	}

	trackingClause, trackingArgs := prefixClause("path", root)
	query := fmt.Sprintf(`
		DELETE FROM dir_tracking
		WHERE collection_id = ? AND status = 'orphaned' AND %s
	`, trackingClause)
	if _, err := c.conn(ctx).ExecContext(ctx, query, append([]any{collectionID}, trackingArgs...)...); err != nil {
		return 0, fmt.Errorf("failed to drop orphaned tracking records: %w", err)
	}

	return count, nil
}

// PurgeUntrackedSources deletes media sources under root whose directory has
// no tracking record at all, cascading to their tracks.
func (c *Catalog) PurgeUntrackedSources(ctx context.Context, collectionID, root string) (int, error) {
	clause, args := prefixClause("path", root)
	cond := fmt.Sprintf(`
		collection_id = ? AND %s AND NOT EXISTS (
			SELECT 1 FROM dir_tracking t
			WHERE t.collection_id = media_sources.collection_id
			  AND t.path = media_sources.dir_path
		)
	`, clause)

	return c.purgeSources(ctx, cond, append([]any{collectionID}, args...))
}

// purgeSources deletes tracks referencing the condemned sources, then the
// sources themselves, inside the caller's batch.
func (c *Catalog) purgeSources(ctx context.Context, cond string, args []any) (int, error) {
	conn := c.conn(ctx)

	trackQuery := fmt.Sprintf(`
		DELETE FROM tracks
		WHERE source_id IN (SELECT id FROM media_sources WHERE %s)
	`, cond)
	if _, err := conn.ExecContext(ctx, trackQuery, args...); err != nil {
		return 0, fmt.Errorf("failed to purge tracks: %w", err)
	}

	sourceQuery := fmt.Sprintf("DELETE FROM media_sources WHERE %s", cond)
	result, err := conn.ExecContext(ctx, sourceQuery, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge media sources: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(rows), nil
}

// CountSourcesUnder counts media sources under root.
func (c *Catalog) CountSourcesUnder(ctx context.Context, collectionID, root string) (int, error) {
	clause, args := prefixClause("path", root)
	query := fmt.Sprintf("SELECT COUNT(*) FROM media_sources WHERE collection_id = ? AND %s", clause)

	var count int
	if err := c.conn(ctx).QueryRowContext(ctx, query, append([]any{collectionID}, args...)...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count media sources: %w", err)
	}
	return count, nil
}

// RelocateSources rewrites the path prefix of media sources under oldPrefix,
// preserving digests and identities.
func (c *Catalog) RelocateSources(ctx context.Context, collectionID, oldPrefix, newPrefix string) (int, error) {
	clause, args := prefixClause("path", oldPrefix)
	query := fmt.Sprintf(`
		UPDATE media_sources
		SET path = ? || substr(path, ?),
		    dir_path = CASE
				WHEN dir_path = ? THEN ?
				WHEN dir_path LIKE ? THEN ? || substr(dir_path, ?)
				ELSE dir_path
		    END
		WHERE collection_id = ? AND %s
	`, clause)

	// substr counts characters, not bytes.
	chop := utf8.RuneCountInString(oldPrefix) + 1
	queryArgs := append([]any{
		newPrefix, chop,
		oldPrefix, newPrefix,
		oldPrefix + "/%", newPrefix, chop,
		collectionID,
	}, args...)

	result, err := c.conn(ctx).ExecContext(ctx, query, queryArgs...)
	if err != nil {
		return 0, fmt.Errorf("failed to relocate media sources: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(rows), nil
}
