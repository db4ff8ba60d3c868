package importer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/cadenza-music/cadenza/internal/models"
	"github.com/cadenza-music/cadenza/internal/shared"
)

// ID3Importer reads ID3v2 tags from MP3 byte streams.
type ID3Importer struct{}

// NewID3Importer creates a new ID3Importer.
func NewID3Importer() *ID3Importer {
	return &ID3Importer{}
}

// Import parses the ID3v2 tag and builds a track from its frames.
//
// Non-MP3 byte streams are declined. Malformed optional frames (year, BPM,
// length) are recorded as issues and skipped; a missing title is an issue
// too and surfaces as a validation rejection upstream.
func (imp *ID3Importer) Import(data []byte, existing *models.Track, cfg Config) (*Result, error) {
	if !looksLikeMP3(data) {
		return &Result{}, nil
	}

	tag, err := id3v2.ParseReader(bytes.NewReader(data), id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrImport, err)
	}

	var issues []string

	title := strings.TrimSpace(tag.Title())
	if title == "" {
		issues = append(issues, "missing title frame")
	}

	track := models.NewTrack(title)
	track.Artist = strings.TrimSpace(tag.Artist())
	track.Album = strings.TrimSpace(tag.Album())
	track.Genre = strings.TrimSpace(tag.Genre())

	if year := strings.TrimSpace(tag.Year()); year != "" {
		if y, err := strconv.Atoi(year); err == nil {
			track.ReleaseYear = y
		} else {
			issues = append(issues, fmt.Sprintf("malformed year frame: %q", year))
		}
	}

	if bpm := textFrame(tag, "TBPM"); bpm != "" {
		if v, err := strconv.ParseFloat(bpm, 64); err == nil && v >= 0 {
			track.BPM = v
		} else {
			issues = append(issues, fmt.Sprintf("malformed BPM frame: %q", bpm))
		}
	}

	track.KeySignature = textFrame(tag, "TKEY")

	audio := models.AudioProperties{}
	if length := textFrame(tag, "TLEN"); length != "" {
		if ms, err := strconv.Atoi(length); err == nil && ms >= 0 {
			track.DurationMs = ms
			audio.DurationMs = ms
		} else {
			issues = append(issues, fmt.Sprintf("malformed length frame: %q", length))
		}
	}

	result := &Result{
		Track:       track,
		ContentType: "audio/mpeg",
		Audio:       audio,
		Issues:      issues,
	}

	if cfg.ParseArtwork {
		result.ArtworkURI = artworkRef(tag)
	}

	return result, nil
}

// textFrame returns the trimmed text of a single text frame, or "".
func textFrame(tag *id3v2.Tag, id string) string {
	return strings.TrimSpace(tag.GetTextFrame(id).Text)
}

// artworkRef builds an opaque reference for the first attached picture.
func artworkRef(tag *id3v2.Tag) string {
	frames := tag.GetFrames(tag.CommonID("Attached picture"))
	for _, f := range frames {
		if pic, ok := f.(id3v2.PictureFrame); ok {
			return fmt.Sprintf("embedded:apic;%s", pic.MimeType)
		}
	}
	return ""
}

// looksLikeMP3 sniffs for an ID3v2 header or a bare MPEG frame sync.
func looksLikeMP3(data []byte) bool {
	if len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")) {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}
