package models

import (
	"fmt"
	"time"

	"github.com/cadenza-music/cadenza/internal/shared"
)

// Track holds the music metadata merged from imports.
//
// Identity is a stable UID plus a monotonically increasing revision. The UID
// is preserved across re-imports of the same file; the revision strictly
// increases on every persisted mutation. A track may outlive its media
// source, in which case SourceID is empty until the track is purged.
type Track struct {
	ID           string
	Sequence     int
	Revision     int
	SourceID     string
	Title        string
	Artist       string
	Album        string
	Genre        string
	ReleaseYear  int
	DurationMs   int
	KeySignature string
	BPM          float64
	Tags         []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewTrack creates a Track at revision 1 with a generated UID.
func NewTrack(title string) *Track {
	now := time.Now()
	return &Track{
		ID:        shared.GenerateID(),
		Revision:  1,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the track's data and returns an error if invalid.
func (t *Track) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("%w: track title is required", shared.ErrInvalidInput)
	}
	if t.Revision < 1 {
		return fmt.Errorf("%w: track revision must be positive", shared.ErrInvalidInput)
	}
	if t.BPM < 0 {
		return fmt.Errorf("%w: track BPM must not be negative", shared.ErrInvalidInput)
	}
	return nil
}

// Bump increments the revision ahead of a persisted mutation.
func (t *Track) Bump() {
	t.Revision++
	t.UpdatedAt = time.Now()
}

// MergeFrom copies metadata from an imported track while preserving the
// receiver's UID, sequence, and revision counters. Empty imported fields
// leave the existing values untouched.
func (t *Track) MergeFrom(imported *Track) {
	if imported.Title != "" {
		t.Title = imported.Title
	}
	if imported.Artist != "" {
		t.Artist = imported.Artist
	}
	if imported.Album != "" {
		t.Album = imported.Album
	}
	if imported.Genre != "" {
		t.Genre = imported.Genre
	}
	if imported.ReleaseYear != 0 {
		t.ReleaseYear = imported.ReleaseYear
	}
	if imported.DurationMs != 0 {
		t.DurationMs = imported.DurationMs
	}
	if imported.KeySignature != "" {
		t.KeySignature = imported.KeySignature
	}
	if imported.BPM != 0 {
		t.BPM = imported.BPM
	}
	if len(imported.Tags) > 0 {
		t.Tags = imported.Tags
	}
}
