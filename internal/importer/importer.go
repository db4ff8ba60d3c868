// package importer extracts track metadata from media file bytes
package importer

import (
	"github.com/cadenza-music/cadenza/internal/models"
)

// Config controls metadata extraction.
type Config struct {
	// ParseArtwork extracts an artwork reference from embedded pictures.
	ParseArtwork bool
}

// Result is the outcome of importing one file.
//
// Track is nil when the importer declined the file. Issues are non-fatal
// diagnostics recorded alongside whatever metadata could be extracted.
type Result struct {
	Track       *models.Track
	ContentType string
	Audio       models.AudioProperties
	ArtworkURI  string
	Issues      []string
}

// Importer extracts structured metadata from raw file bytes.
//
// existing is the already-cataloged track for this file, or nil on first
// import; implementations may use it to seed fields the file itself does not
// carry. A hard error fails only this file, never the batch.
type Importer interface {
	Import(data []byte, existing *models.Track, cfg Config) (*Result, error)
}
