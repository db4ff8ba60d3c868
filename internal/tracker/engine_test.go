package tracker_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/cadenza-music/cadenza/internal/models"
	"github.com/cadenza-music/cadenza/internal/repositories"
	"github.com/cadenza-music/cadenza/internal/shared"
	cdztest "github.com/cadenza-music/cadenza/internal/testing"
	"github.com/cadenza-music/cadenza/internal/tracker"
	"github.com/cadenza-music/cadenza/internal/vfs"
)

// harness bundles an engine over a real catalog and a temp library root.
type harness struct {
	engine     *tracker.Engine
	catalog    *repositories.Catalog
	db         *sql.DB
	importer   *cdztest.MockImporter
	root       string
	collection string
}

func setupHarness(t *testing.T) *harness {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// In-memory databases exist per connection, so force a single one
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	root := t.TempDir()

	collections := repositories.NewCollectionRepository(db)
	collection := models.NewCollection("Test Library", root)
	if err := collections.Create(context.Background(), collection); err != nil {
		t.Fatalf("failed to create collection: %v", err)
	}

	resolver, err := vfs.NewFileURLResolver(root)
	if err != nil {
		t.Fatalf("failed to create resolver: %v", err)
	}

	mock := &cdztest.MockImporter{}
	catalog := repositories.NewCatalog(db)

	engine := tracker.NewEngine(tracker.EngineOpts{
		Repository: catalog,
		Importer:   mock,
		Resolver:   resolver,
		Collection: collection.ID,
	})

	return &harness{
		engine:     engine,
		catalog:    catalog,
		db:         db,
		importer:   mock,
		root:       root,
		collection: collection.ID,
	}
}

// write creates or replaces one file under the library root.
func (h *harness) write(t *testing.T, rel, content string) {
	t.Helper()
	cdztest.WriteTree(t, h.root, map[string]string{rel: content})
}

// status loads the tracked status of one directory, failing if untracked.
func (h *harness) status(t *testing.T, dir string) tracker.DirTrackingStatus {
	t.Helper()
	state, err := h.catalog.LoadDirState(context.Background(), h.collection, dir)
	if err != nil {
		t.Fatalf("failed to load state for %q: %v", dir, err)
	}
	if state == nil {
		t.Fatalf("directory %q is not tracked", dir)
	}
	return state.Status
}

// scan runs a full scan and fails the test on error.
func (h *harness) scan(t *testing.T) *tracker.ScanOutcome {
	t.Helper()
	outcome, err := h.engine.Scan(context.Background(), "", tracker.ScanOptions{}, nil)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	return outcome
}

// importAll runs an import over the whole collection and fails on error.
func (h *harness) importAll(t *testing.T, mode tracker.SyncMode) *tracker.ImportOutcome {
	t.Helper()
	outcome, err := h.engine.Import(context.Background(), "", tracker.ImportOptions{Mode: mode}, nil)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	return outcome
}

func TestEngineStatus(t *testing.T) {
	h := setupHarness(t)

	h.write(t, "albums/one/a.mp3", "song a")
	h.write(t, "albums/two/b.mp3", "song b")
	h.scan(t)

	counts, err := h.engine.Status(context.Background(), "")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	// Root, albums, albums/one, albums/two.
	if counts.Added != 4 {
		t.Errorf("expected 4 added directories, got %+v", counts)
	}

	counts, err = h.engine.Status(context.Background(), "albums/one")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if counts.Total() != 1 {
		t.Errorf("expected 1 directory under albums/one, got %+v", counts)
	}
}

func TestEngineStatusRejectsEscapingRoot(t *testing.T) {
	h := setupHarness(t)

	if _, err := h.engine.Status(context.Background(), "../outside"); err == nil {
		t.Fatal("expected error for root escaping the collection")
	}

	if _, err := h.engine.Scan(context.Background(), "../outside", tracker.ScanOptions{}, nil); err == nil {
		t.Fatal("expected scan to reject escaping root")
	}
}

func TestScanRootMissing(t *testing.T) {
	h := setupHarness(t)

	if err := os.RemoveAll(h.root); err != nil {
		t.Fatalf("failed to remove root: %v", err)
	}

	if _, err := h.engine.Scan(context.Background(), "", tracker.ScanOptions{}, nil); err == nil {
		t.Fatal("expected error when scan root does not exist")
	}
}

func TestScanRootIsFile(t *testing.T) {
	h := setupHarness(t)

	h.write(t, "notadir", "contents")

	if _, err := h.engine.Scan(context.Background(), "notadir", tracker.ScanOptions{}, nil); err == nil {
		t.Fatal("expected error when scan root is a file")
	}
}

func TestProgressNeverBlocks(t *testing.T) {
	h := setupHarness(t)

	for i := 0; i < 10; i++ {
		h.write(t, filepath.Join("dir", string(rune('a'+i)), "x.mp3"), "x")
	}

	// Unbuffered channel nobody reads from: the scan must still finish.
	progress := make(chan tracker.ProgressUpdate)
	outcome, err := h.engine.Scan(context.Background(), "", tracker.ScanOptions{}, progress)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if outcome.Completion != tracker.Finished {
		t.Errorf("expected finished completion, got %s", outcome.Completion)
	}
}
