// package models defines the data model for the music catalog
package models

import (
	"fmt"
	"time"

	"github.com/cadenza-music/cadenza/internal/shared"
)

// Collection is a named library root. All catalog rows hang off a collection.
type Collection struct {
	ID        string
	Sequence  int
	Title     string
	RootPath  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCollection creates a Collection with a generated UID and timestamps.
func NewCollection(title, rootPath string) *Collection {
	now := time.Now()
	return &Collection{
		ID:        shared.GenerateID(),
		Title:     title,
		RootPath:  rootPath,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the collection's data and returns an error if invalid.
func (c *Collection) Validate() error {
	if c.Title == "" {
		return fmt.Errorf("%w: collection title is required", shared.ErrInvalidInput)
	}
	if c.RootPath == "" {
		return fmt.Errorf("%w: collection root path is required", shared.ErrInvalidInput)
	}
	return nil
}

// AudioProperties holds the technical attributes extracted from a file.
type AudioProperties struct {
	Channels   int
	SampleRate int
	Bitrate    int
	DurationMs int
}

// MediaSource is one physical file's content-addressed identity.
//
// Identity is (collection, content path); the path is stored relative to the
// collection root, slash separated. The digest changes only together with a
// re-import. SyncedRevision records the track revision the file contents were
// last synchronized with; nil means never synchronized.
type MediaSource struct {
	ID             string
	CollectionID   string
	Path           string
	Digest         []byte
	ContentType    string
	Audio          AudioProperties
	ArtworkURI     string
	SyncedRevision *int
	CollectedAt    time.Time
	SynchronizedAt *time.Time
}

// NewMediaSource creates a MediaSource with a generated UID and collected timestamp.
func NewMediaSource(collectionID, path string, digest []byte, contentType string) *MediaSource {
	return &MediaSource{
		ID:           shared.GenerateID(),
		CollectionID: collectionID,
		Path:         path,
		Digest:       digest,
		ContentType:  contentType,
		CollectedAt:  time.Now(),
	}
}

// Validate checks the media source's data and returns an error if invalid.
func (s *MediaSource) Validate() error {
	if s.CollectionID == "" {
		return fmt.Errorf("%w: media source collection is required", shared.ErrInvalidInput)
	}
	if s.Path == "" {
		return fmt.Errorf("%w: media source path is required", shared.ErrInvalidInput)
	}
	if len(s.Digest) == 0 {
		return fmt.Errorf("%w: media source digest is required", shared.ErrInvalidInput)
	}
	return nil
}

// MarkSynchronized records that the source's contents are synchronized with
// the given track revision.
func (s *MediaSource) MarkSynchronized(revision int) {
	now := time.Now()
	s.SyncedRevision = &revision
	s.SynchronizedAt = &now
}

// DirTracking is the persisted change-detection state for one directory.
type DirTracking struct {
	CollectionID string
	Path         string
	Digest       []byte
	Status       string
	UpdatedAt    time.Time
}
