package tracker_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cadenza-music/cadenza/internal/importer"
	"github.com/cadenza-music/cadenza/internal/models"
	"github.com/cadenza-music/cadenza/internal/tracker"
)

func TestImport(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesTracksAndConfirmsDirectories", func(t *testing.T) {
		h := setupHarness(t)
		h.write(t, "albums/a.mp3", "Song A")
		h.write(t, "albums/b.mp3", "Song B")
		h.scan(t)

		outcome := h.importAll(t, tracker.SyncModifiedResync)

		if outcome.Completion != tracker.Finished {
			t.Errorf("expected finished, got %s", outcome.Completion)
		}
		if outcome.Tracks.Created != 2 {
			t.Errorf("expected 2 created tracks, got %+v", outcome.Tracks)
		}
		// Root and albums both confirmed.
		if outcome.Directories.Confirmed != 2 {
			t.Errorf("expected 2 confirmed directories, got %+v", outcome.Directories)
		}
		if h.status(t, "albums") != tracker.StatusCurrent {
			t.Error("imported directory should be confirmed current")
		}

		track, err := h.catalog.LoadTrackBySourcePath(ctx, h.collection, "albums/a.mp3")
		if err != nil {
			t.Fatalf("failed to load track: %v", err)
		}
		if track == nil || track.Title != "Song A" {
			t.Errorf("expected imported track Song A, got %+v", track)
		}
		if track.Revision != 1 {
			t.Errorf("new track should be at revision 1, got %d", track.Revision)
		}
	})

	t.Run("SecondImportHasNothingPending", func(t *testing.T) {
		h := setupHarness(t)
		h.write(t, "albums/a.mp3", "Song A")
		h.scan(t)
		h.importAll(t, tracker.SyncModifiedResync)

		calls := h.importer.Calls
		outcome := h.importAll(t, tracker.SyncModifiedResync)

		if outcome.Tracks.Created != 0 || outcome.Tracks.Updated != 0 {
			t.Errorf("confirmed directories should not be revisited: %+v", outcome.Tracks)
		}
		if h.importer.Calls != calls {
			t.Error("importer should not run when nothing is pending")
		}
	})

	t.Run("UnchangedFileSkipsImporter", func(t *testing.T) {
		h := setupHarness(t)
		h.write(t, "albums/a.mp3", "Song A")
		h.write(t, "albums/b.mp3", "Song B")
		h.scan(t)
		h.importAll(t, tracker.SyncModifiedResync)

		h.write(t, "albums/b.mp3", "Song B take two")
		h.scan(t)

		calls := h.importer.Calls
		outcome := h.importAll(t, tracker.SyncModifiedResync)

		if outcome.Tracks.Unchanged != 1 {
			t.Errorf("expected 1 unchanged track, got %+v", outcome.Tracks)
		}
		if outcome.Tracks.Updated != 1 {
			t.Errorf("expected 1 updated track, got %+v", outcome.Tracks)
		}
		if h.importer.Calls != calls+1 {
			t.Errorf("expected exactly 1 importer call, got %d", h.importer.Calls-calls)
		}
	})

	t.Run("ReimportPreservesUIDAndBumpsRevision", func(t *testing.T) {
		h := setupHarness(t)
		h.write(t, "albums/a.mp3", "Song A")
		h.scan(t)
		h.importAll(t, tracker.SyncModifiedResync)

		original, err := h.catalog.LoadTrackBySourcePath(ctx, h.collection, "albums/a.mp3")
		if err != nil {
			t.Fatalf("failed to load track: %v", err)
		}

		h.write(t, "albums/a.mp3", "Song A remastered")
		h.scan(t)
		h.importAll(t, tracker.SyncModifiedResync)

		updated, err := h.catalog.LoadTrackBySourcePath(ctx, h.collection, "albums/a.mp3")
		if err != nil {
			t.Fatalf("failed to load track: %v", err)
		}
		if updated.ID != original.ID {
			t.Error("re-import must preserve the track UID")
		}
		if updated.Revision != original.Revision+1 {
			t.Errorf("expected revision %d, got %d", original.Revision+1, updated.Revision)
		}
		if updated.Title != "Song A remastered" {
			t.Errorf("expected merged title, got %s", updated.Title)
		}
	})

	t.Run("SyncOnceNeverReimports", func(t *testing.T) {
		h := setupHarness(t)
		h.write(t, "albums/a.mp3", "Song A")
		h.scan(t)
		h.importAll(t, tracker.SyncOnce)

		h.write(t, "albums/a.mp3", "Song A changed")
		h.scan(t)

		outcome := h.importAll(t, tracker.SyncOnce)
		if outcome.Tracks.Skipped != 1 {
			t.Errorf("expected 1 skipped track, got %+v", outcome.Tracks)
		}
		if h.status(t, "albums") != tracker.StatusOutdated {
			t.Error("skipped work should leave the directory outdated")
		}

		track, err := h.catalog.LoadTrackBySourcePath(ctx, h.collection, "albums/a.mp3")
		if err != nil {
			t.Fatalf("failed to load track: %v", err)
		}
		if track.Title != "Song A" {
			t.Error("once mode must not overwrite the track")
		}
	})

	t.Run("SyncModifiedSkipsLocallyEditedTracks", func(t *testing.T) {
		h := setupHarness(t)
		h.write(t, "albums/a.mp3", "Song A")
		h.scan(t)
		h.importAll(t, tracker.SyncModified)

		// Local edit: the revision moves past the synchronized one.
		track, err := h.catalog.LoadTrackBySourcePath(ctx, h.collection, "albums/a.mp3")
		if err != nil {
			t.Fatalf("failed to load track: %v", err)
		}
		track.Title = "My Custom Title"
		track.Bump()
		if err := h.catalog.SaveTrack(ctx, track); err != nil {
			t.Fatalf("failed to save edited track: %v", err)
		}

		h.write(t, "albums/a.mp3", "Song A changed")
		h.scan(t)

		outcome := h.importAll(t, tracker.SyncModified)
		if outcome.Tracks.Skipped != 1 {
			t.Errorf("expected local edits to win, got %+v", outcome.Tracks)
		}

		kept, err := h.catalog.LoadTrackBySourcePath(ctx, h.collection, "albums/a.mp3")
		if err != nil {
			t.Fatalf("failed to load track: %v", err)
		}
		if kept.Title != "My Custom Title" {
			t.Error("modified mode must not clobber local edits")
		}
	})

	t.Run("SyncModifiedReimportsCleanTracks", func(t *testing.T) {
		h := setupHarness(t)
		h.write(t, "albums/a.mp3", "Song A")
		h.scan(t)
		h.importAll(t, tracker.SyncModified)

		h.write(t, "albums/a.mp3", "Song A changed")
		h.scan(t)

		outcome := h.importAll(t, tracker.SyncModified)
		if outcome.Tracks.Updated != 1 {
			t.Errorf("expected 1 updated track, got %+v", outcome.Tracks)
		}
	})

	t.Run("SyncModifiedResyncClobbersLocalEdits", func(t *testing.T) {
		h := setupHarness(t)
		h.write(t, "albums/a.mp3", "Song A")
		h.scan(t)
		h.importAll(t, tracker.SyncModifiedResync)

		track, err := h.catalog.LoadTrackBySourcePath(ctx, h.collection, "albums/a.mp3")
		if err != nil {
			t.Fatalf("failed to load track: %v", err)
		}
		track.Title = "My Custom Title"
		track.Bump()
		if err := h.catalog.SaveTrack(ctx, track); err != nil {
			t.Fatalf("failed to save edited track: %v", err)
		}

		h.write(t, "albums/a.mp3", "Song A changed")
		h.scan(t)

		outcome := h.importAll(t, tracker.SyncModifiedResync)
		if outcome.Tracks.Updated != 1 {
			t.Errorf("expected 1 updated track, got %+v", outcome.Tracks)
		}

		reimported, err := h.catalog.LoadTrackBySourcePath(ctx, h.collection, "albums/a.mp3")
		if err != nil {
			t.Fatalf("failed to load track: %v", err)
		}
		if reimported.Title != "Song A changed" {
			t.Errorf("resync should re-import over local edits, got %s", reimported.Title)
		}
	})

	t.Run("SyncAlwaysReimportsUnchangedFiles", func(t *testing.T) {
		h := setupHarness(t)
		h.write(t, "albums/a.mp3", "Song A")
		h.scan(t)
		h.importAll(t, tracker.SyncAlways)

		// Force the directory pending without touching the file.
		if err := h.catalog.UpdateDirStatus(ctx, h.collection, "albums", tracker.StatusModified); err != nil {
			t.Fatalf("failed to mark directory: %v", err)
		}

		calls := h.importer.Calls
		outcome := h.importAll(t, tracker.SyncAlways)
		if outcome.Tracks.Updated != 1 {
			t.Errorf("always mode should re-import, got %+v", outcome.Tracks)
		}
		if h.importer.Calls != calls+1 {
			t.Error("importer should run for the unchanged file")
		}
	})

	t.Run("DeclinedFilesNeverBlockConfirmation", func(t *testing.T) {
		h := setupHarness(t)
		h.importer.ImportFunc = func(data []byte, existing *models.Track, cfg importer.Config) (*importer.Result, error) {
			if strings.HasPrefix(string(data), "not audio") {
				return &importer.Result{}, nil
			}
			return &importer.Result{Track: models.NewTrack(string(data)), ContentType: "audio/mpeg"}, nil
		}

		h.write(t, "albums/a.mp3", "Song A")
		h.write(t, "albums/cover.jpg", "not audio: jpeg bytes")
		h.scan(t)

		outcome := h.importAll(t, tracker.SyncModifiedResync)
		if outcome.Tracks.Created != 1 || outcome.Tracks.NotImported != 1 {
			t.Errorf("expected 1 created and 1 declined, got %+v", outcome.Tracks)
		}
		if h.status(t, "albums") != tracker.StatusCurrent {
			t.Error("declined files must not keep the directory outstanding")
		}
	})

	t.Run("FailureIsolatesToFileAndDirectory", func(t *testing.T) {
		h := setupHarness(t)
		h.importer.ImportFunc = func(data []byte, existing *models.Track, cfg importer.Config) (*importer.Result, error) {
			if string(data) == "broken" {
				return nil, errors.New("corrupt frame")
			}
			return &importer.Result{Track: models.NewTrack(string(data)), ContentType: "audio/mpeg"}, nil
		}

		h.write(t, "good/a.mp3", "Song A")
		h.write(t, "bad/b.mp3", "broken")
		h.scan(t)

		outcome := h.importAll(t, tracker.SyncModifiedResync)
		if outcome.Tracks.Created != 1 || outcome.Tracks.Failed != 1 {
			t.Errorf("expected 1 created and 1 failed, got %+v", outcome.Tracks)
		}
		if len(outcome.Issues) != 1 || outcome.Issues[0].Path != "bad/b.mp3" {
			t.Errorf("expected issue for bad/b.mp3, got %+v", outcome.Issues)
		}
		if h.status(t, "good") != tracker.StatusCurrent {
			t.Error("healthy directory should be confirmed")
		}
		if h.status(t, "bad") != tracker.StatusOutdated {
			t.Error("failing directory should stay outdated for retry")
		}

		// Fix the importer and retry: only the outstanding directory runs.
		h.importer.ImportFunc = nil
		retry := h.importAll(t, tracker.SyncModifiedResync)
		if retry.Tracks.Created != 1 {
			t.Errorf("retry should import the failed file, got %+v", retry.Tracks)
		}
		if h.status(t, "bad") != tracker.StatusCurrent {
			t.Error("retried directory should be confirmed")
		}
	})

	t.Run("RescanKeepsFailedDirectoryPending", func(t *testing.T) {
		h := setupHarness(t)
		h.importer.ImportFunc = func(data []byte, existing *models.Track, cfg importer.Config) (*importer.Result, error) {
			return nil, errors.New("corrupt frame")
		}

		h.write(t, "albums/a.mp3", "Song A")
		h.scan(t)
		h.importAll(t, tracker.SyncModifiedResync)
		if h.status(t, "albums") != tracker.StatusOutdated {
			t.Fatal("failing directory should be outdated")
		}

		// An unchanged rescan must not launder the outstanding work away.
		h.scan(t)
		if h.status(t, "albums") != tracker.StatusOutdated {
			t.Error("rescan should keep the directory outdated")
		}

		h.importer.ImportFunc = nil
		retry := h.importAll(t, tracker.SyncModifiedResync)
		if retry.Tracks.Created != 1 {
			t.Errorf("retry should import the failed file, got %+v", retry.Tracks)
		}
		if h.status(t, "albums") != tracker.StatusCurrent {
			t.Error("retried directory should be confirmed")
		}
	})

	t.Run("ValidationRejectionCountsNotCreated", func(t *testing.T) {
		h := setupHarness(t)
		h.importer.ImportFunc = func(data []byte, existing *models.Track, cfg importer.Config) (*importer.Result, error) {
			return &importer.Result{Track: &models.Track{Revision: 1}, ContentType: "audio/mpeg"}, nil
		}

		h.write(t, "albums/untitled.mp3", "no title tag")
		h.scan(t)

		outcome := h.importAll(t, tracker.SyncModifiedResync)
		if outcome.Tracks.NotCreated != 1 {
			t.Errorf("expected 1 not-created, got %+v", outcome.Tracks)
		}
		if h.status(t, "albums") != tracker.StatusOutdated {
			t.Error("rejected file should keep the directory outstanding")
		}
	})

	t.Run("CancelledContextAborts", func(t *testing.T) {
		h := setupHarness(t)
		h.write(t, "albums/a.mp3", "Song A")
		h.scan(t)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		outcome, err := h.engine.Import(cancelled, "", tracker.ImportOptions{Mode: tracker.SyncModifiedResync}, nil)
		if err != nil {
			t.Fatalf("aborted import should not error: %v", err)
		}
		if outcome.Completion != tracker.Aborted {
			t.Errorf("expected aborted completion, got %s", outcome.Completion)
		}

		// Nothing was confirmed; the rerun picks everything up.
		retry := h.importAll(t, tracker.SyncModifiedResync)
		if retry.Tracks.Created != 1 {
			t.Errorf("rerun should import pending work, got %+v", retry.Tracks)
		}
	})

	t.Run("SourceRecordsDigestAndSyncState", func(t *testing.T) {
		h := setupHarness(t)
		h.write(t, "albums/a.mp3", "Song A")
		h.scan(t)
		h.importAll(t, tracker.SyncModifiedResync)

		src, err := h.catalog.LoadSourceByPath(ctx, h.collection, "albums/a.mp3")
		if err != nil {
			t.Fatalf("failed to load source: %v", err)
		}
		if src == nil {
			t.Fatal("expected media source after import")
		}
		if string(src.Digest) != string(tracker.FileDigestBytes([]byte("Song A"))) {
			t.Error("source digest should match the file contents")
		}
		if src.SyncedRevision == nil || *src.SyncedRevision != 1 {
			t.Errorf("expected synced revision 1, got %v", src.SyncedRevision)
		}
		if src.ContentType != "audio/mpeg" {
			t.Errorf("expected content type audio/mpeg, got %s", src.ContentType)
		}
	})
}
