package importer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bogem/id3v2"

	"github.com/cadenza-music/cadenza/internal/shared"
)

// taggedMP3 renders an ID3v2 tag to bytes, optionally followed by payload.
func taggedMP3(t *testing.T, build func(tag *id3v2.Tag)) []byte {
	t.Helper()
	tag := id3v2.NewEmptyTag()
	build(tag)
	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		t.Fatalf("failed to render tag: %v", err)
	}
	return buf.Bytes()
}

func TestID3Importer(t *testing.T) {
	imp := NewID3Importer()

	t.Run("ExtractsMetadataFrames", func(t *testing.T) {
		data := taggedMP3(t, func(tag *id3v2.Tag) {
			tag.SetTitle("Whole Lotta Love")
			tag.SetArtist("Led Zeppelin")
			tag.SetAlbum("Led Zeppelin II")
			tag.SetGenre("Rock")
			tag.AddTextFrame(tag.CommonID("Year"), id3v2.EncodingUTF8, "1969")
			tag.AddTextFrame("TBPM", id3v2.EncodingUTF8, "89.5")
			tag.AddTextFrame("TKEY", id3v2.EncodingUTF8, "Em")
			tag.AddTextFrame("TLEN", id3v2.EncodingUTF8, "334000")
		})

		result, err := imp.Import(data, nil, Config{})
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if result.Track == nil {
			t.Fatal("expected a track")
		}
		if result.ContentType != "audio/mpeg" {
			t.Errorf("expected audio/mpeg, got %s", result.ContentType)
		}
		if len(result.Issues) != 0 {
			t.Errorf("expected no issues, got %v", result.Issues)
		}

		track := result.Track
		if track.Title != "Whole Lotta Love" {
			t.Errorf("wrong title: %s", track.Title)
		}
		if track.Artist != "Led Zeppelin" {
			t.Errorf("wrong artist: %s", track.Artist)
		}
		if track.Album != "Led Zeppelin II" {
			t.Errorf("wrong album: %s", track.Album)
		}
		if track.Genre != "Rock" {
			t.Errorf("wrong genre: %s", track.Genre)
		}
		if track.ReleaseYear != 1969 {
			t.Errorf("wrong year: %d", track.ReleaseYear)
		}
		if track.BPM != 89.5 {
			t.Errorf("wrong BPM: %f", track.BPM)
		}
		if track.KeySignature != "Em" {
			t.Errorf("wrong key: %s", track.KeySignature)
		}
		if track.DurationMs != 334000 {
			t.Errorf("wrong duration: %d", track.DurationMs)
		}
		if result.Audio.DurationMs != 334000 {
			t.Errorf("wrong audio duration: %d", result.Audio.DurationMs)
		}
	})

	t.Run("MissingTitleIsAnIssueNotAnError", func(t *testing.T) {
		data := taggedMP3(t, func(tag *id3v2.Tag) {
			tag.SetArtist("Unknown Artist")
		})

		result, err := imp.Import(data, nil, Config{})
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if result.Track == nil || result.Track.Title != "" {
			t.Errorf("expected track with empty title, got %+v", result.Track)
		}
		if len(result.Issues) != 1 {
			t.Errorf("expected the missing-title issue, got %v", result.Issues)
		}
	})

	t.Run("MalformedOptionalFramesAreSkipped", func(t *testing.T) {
		data := taggedMP3(t, func(tag *id3v2.Tag) {
			tag.SetTitle("Song")
			tag.AddTextFrame(tag.CommonID("Year"), id3v2.EncodingUTF8, "19xx")
			tag.AddTextFrame("TBPM", id3v2.EncodingUTF8, "fast")
			tag.AddTextFrame("TLEN", id3v2.EncodingUTF8, "-5")
		})

		result, err := imp.Import(data, nil, Config{})
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if result.Track.ReleaseYear != 0 || result.Track.BPM != 0 || result.Track.DurationMs != 0 {
			t.Errorf("malformed frames must not set fields: %+v", result.Track)
		}
		if len(result.Issues) != 3 {
			t.Errorf("expected 3 issues, got %v", result.Issues)
		}
	})

	t.Run("ArtworkParsedOnlyWhenConfigured", func(t *testing.T) {
		data := taggedMP3(t, func(tag *id3v2.Tag) {
			tag.SetTitle("Song")
			tag.AddAttachedPicture(id3v2.PictureFrame{
				Encoding:    id3v2.EncodingUTF8,
				MimeType:    "image/jpeg",
				PictureType: id3v2.PTFrontCover,
				Picture:     []byte{0xFF, 0xD8, 0xFF},
			})
		})

		result, err := imp.Import(data, nil, Config{})
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if result.ArtworkURI != "" {
			t.Errorf("artwork should be skipped by default, got %s", result.ArtworkURI)
		}

		result, err = imp.Import(data, nil, Config{ParseArtwork: true})
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if result.ArtworkURI != "embedded:apic;image/jpeg" {
			t.Errorf("wrong artwork reference: %s", result.ArtworkURI)
		}
	})

	t.Run("DeclinesNonMP3Data", func(t *testing.T) {
		result, err := imp.Import([]byte("plain text, not audio"), nil, Config{})
		if err != nil {
			t.Fatalf("declining must not error: %v", err)
		}
		if result.Track != nil {
			t.Errorf("expected no track, got %+v", result.Track)
		}
	})

	t.Run("CorruptTagIsAnImportError", func(t *testing.T) {
		// Synchsafe size bytes must keep the high bit clear; 0xFF cannot
		// parse as a tag header.
		data := []byte{'I', 'D', '3', 4, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF}

		_, err := imp.Import(data, nil, Config{})
		if !errors.Is(err, shared.ErrImport) {
			t.Errorf("expected import error, got %v", err)
		}
	})
}
