// Package importer turns raw file bytes into structured track metadata.
//
// The [Importer] contract is consumed by the tracker engine: given a file's
// bytes and the existing track (if any), an implementation either produces a
// [Result] with a fresh [models.Track], declines the file (nil track, nil
// error), or fails. Issues carried in the result are non-fatal diagnostics,
// e.g. a malformed frame; they never fail the surrounding batch.
//
// [ID3Importer] is the default implementation, reading ID3v2 tags from MP3
// files via bogem/id3v2. Anything that does not look like an MP3 stream is
// declined so that artwork files and cue sheets in a music directory do not
// block their directory from being confirmed.
package importer
