package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cadenza-music/cadenza/internal/models"
)

// LoadTrackBySourcePath retrieves the track whose media source lives at the
// given content path, returning (nil, nil) when absent.
func (c *Catalog) LoadTrackBySourcePath(ctx context.Context, collectionID, contentPath string) (*models.Track, error) {
	query := `
		SELECT t.id, t.sequence, t.revision, t.source_id,
		       t.title, t.artist, t.album, t.genre,
		       t.release_year, t.duration_ms, t.key_signature, t.bpm, t.tags,
		       t.created_at, t.updated_at
		FROM tracks t
		JOIN media_sources s ON s.id = t.source_id
		WHERE s.collection_id = ? AND s.path = ?
	`

	row := c.conn(ctx).QueryRowContext(ctx, query, collectionID, contentPath)
	track, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load track: %w", err)
	}
	return track, nil
}

// SaveTrack inserts or updates a track. New tracks are assigned the next
// catalog-wide sequence number.
func (c *Catalog) SaveTrack(ctx context.Context, track *models.Track) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if track.Sequence == 0 {
		seq, err := c.NextSequence(ctx, "tracks")
		if err != nil {
			return err
		}
		track.Sequence = seq
	}

	query := `
		INSERT INTO tracks (
			id, sequence, revision, source_id,
			title, artist, album, genre,
			release_year, duration_ms, key_signature, bpm, tags,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			revision = excluded.revision,
			source_id = excluded.source_id,
			title = excluded.title,
			artist = excluded.artist,
			album = excluded.album,
			genre = excluded.genre,
			release_year = excluded.release_year,
			duration_ms = excluded.duration_ms,
			key_signature = excluded.key_signature,
			bpm = excluded.bpm,
			tags = excluded.tags,
			updated_at = excluded.updated_at
	`

	var sourceID any
	if track.SourceID != "" {
		sourceID = track.SourceID
	}

	_, err := c.conn(ctx).ExecContext(ctx, query,
		track.ID, track.Sequence, track.Revision, sourceID,
		track.Title, track.Artist, track.Album, track.Genre,
		track.ReleaseYear, track.DurationMs, track.KeySignature, track.BPM,
		strings.Join(track.Tags, ","),
		track.CreatedAt, track.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save track: %w", err)
	}
	return nil
}

// scanTrack reads a track row, tolerating NULLs from the optional columns.
func scanTrack(row *sql.Row) (*models.Track, error) {
	var (
		track        models.Track
		sourceID     sql.NullString
		artist       sql.NullString
		album        sql.NullString
		genre        sql.NullString
		releaseYear  sql.NullInt64
		durationMs   sql.NullInt64
		keySignature sql.NullString
		bpm          sql.NullFloat64
		tags         sql.NullString
	)

	err := row.Scan(
		&track.ID, &track.Sequence, &track.Revision, &sourceID,
		&track.Title, &artist, &album, &genre,
		&releaseYear, &durationMs, &keySignature, &bpm, &tags,
		&track.CreatedAt, &track.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	track.SourceID = sourceID.String
	track.Artist = artist.String
	track.Album = album.String
	track.Genre = genre.String
	track.ReleaseYear = int(releaseYear.Int64)
	track.DurationMs = int(durationMs.Int64)
	track.KeySignature = keySignature.String
	track.BPM = bpm.Float64
	if tags.String != "" {
		track.Tags = strings.Split(tags.String, ",")
	}
	return &track, nil
}
