package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cadenza-music/cadenza/internal/importer"
	"github.com/cadenza-music/cadenza/internal/models"
	"github.com/cadenza-music/cadenza/internal/repositories"
	"github.com/cadenza-music/cadenza/internal/server"
	"github.com/cadenza-music/cadenza/internal/shared"
	cdztest "github.com/cadenza-music/cadenza/internal/testing"
	"github.com/cadenza-music/cadenza/internal/tracker"
	"github.com/cadenza-music/cadenza/internal/vfs"
)

// setupServer builds a library handler over a real engine with a temp
// library root, wrapped in the router so middleware applies too.
func setupServer(t *testing.T) (*server.LibraryHandler, http.Handler, string, *cdztest.MockImporter) {
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
	engine := tracker.NewEngine(tracker.EngineOpts{
		Repository: repositories.NewCatalog(db),
		Importer:   mock,
		Resolver:   resolver,
		Collection: collection.ID,
	})

	logger := shared.NewLogger(io.Discard)
	logger.SetLevel(log.ErrorLevel)

	handler := server.NewLibraryHandler(engine, logger)
	router := server.NewBasicRouter()
	router.Handler(handler)

	return handler, router, root, mock
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %s: %v", rec.Body.String(), err)
	}
}

// awaitOperation polls the registry until the operation leaves the running state.
func awaitOperation(t *testing.T, h *server.LibraryHandler, id string) *server.Operation {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		op := h.Registry().Get(id)
		if op == nil {
			t.Fatalf("operation %s vanished", id)
		}
		if op.State != server.OperationRunning {
			return op
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("operation %s never finished", id)
	return nil
}

func TestLibraryHandler(t *testing.T) {
	t.Run("Health", func(t *testing.T) {
		_, router, _, _ := setupServer(t)

		rec := doJSON(t, router, http.MethodGet, "/health", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}

		var body map[string]string
		decode(t, rec, &body)
		if body["status"] != "ok" {
			t.Errorf("expected ok, got %v", body)
		}
	})

	t.Run("StatusReportsTrackedDirectories", func(t *testing.T) {
		handler, router, root, _ := setupServer(t)
		cdztest.WriteTree(t, root, map[string]string{"albums/a.mp3": "Song A"})

		rec := doJSON(t, router, http.MethodPost, "/library/scan", map[string]any{})
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}
		var started map[string]string
		decode(t, rec, &started)
		op := awaitOperation(t, handler, started["id"])
		if op.State != server.OperationFinished {
			t.Fatalf("scan did not finish: %+v", op)
		}

		rec = doJSON(t, router, http.MethodGet, "/library/status", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var status struct {
			Root  string `json:"root"`
			Total int    `json:"total"`
		}
		decode(t, rec, &status)
		if status.Total != 2 {
			t.Errorf("expected 2 tracked directories, got %d", status.Total)
		}
	})

	t.Run("StatusRejectsEscapingRoot", func(t *testing.T) {
		_, router, _, _ := setupServer(t)

		rec := doJSON(t, router, http.MethodGet, "/library/status?root=../outside", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("ScanThenImportLifecycle", func(t *testing.T) {
		handler, router, root, _ := setupServer(t)
		cdztest.WriteTree(t, root, map[string]string{"albums/a.mp3": "Song A"})

		rec := doJSON(t, router, http.MethodPost, "/library/scan", map[string]any{"root": ""})
		var started map[string]string
		decode(t, rec, &started)
		scanOp := awaitOperation(t, handler, started["id"])
		if scanOp.State != server.OperationFinished {
			t.Fatalf("scan did not finish: %+v", scanOp)
		}

		rec = doJSON(t, router, http.MethodPost, "/library/import", map[string]any{"mode": "modified-resync"})
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}
		decode(t, rec, &started)
		importOp := awaitOperation(t, handler, started["id"])
		if importOp.State != server.OperationFinished {
			t.Fatalf("import did not finish: %+v", importOp)
		}

		// The terminal operation is visible over the poll endpoint.
		rec = doJSON(t, router, http.MethodGet, "/library/operations/"+started["id"], nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var op struct {
			State   string `json:"state"`
			Outcome struct {
				Tracks struct {
					Created int `json:"created"`
				} `json:"tracks"`
			} `json:"outcome"`
		}
		decode(t, rec, &op)
		if op.State != "finished" {
			t.Errorf("expected finished, got %s", op.State)
		}
		if op.Outcome.Tracks.Created != 1 {
			t.Errorf("expected 1 created track in outcome, got %d", op.Outcome.Tracks.Created)
		}
	})

	t.Run("InvalidSyncModeRejected", func(t *testing.T) {
		_, router, _, _ := setupServer(t)

		rec := doJSON(t, router, http.MethodPost, "/library/import", map[string]any{"mode": "sometimes"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("OperationsListed", func(t *testing.T) {
		handler, router, _, _ := setupServer(t)

		rec := doJSON(t, router, http.MethodPost, "/library/scan", map[string]any{})
		var started map[string]string
		decode(t, rec, &started)
		awaitOperation(t, handler, started["id"])

		rec = doJSON(t, router, http.MethodGet, "/library/operations", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var list []map[string]any
		decode(t, rec, &list)
		if len(list) != 1 {
			t.Errorf("expected 1 operation, got %d", len(list))
		}
	})

	t.Run("UnknownOperationIs404", func(t *testing.T) {
		_, router, _, _ := setupServer(t)

		rec := doJSON(t, router, http.MethodGet, "/library/operations/"+shared.GenerateID(), nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("DeletedOperationRecordsCancelled", func(t *testing.T) {
		handler, router, root, mock := setupServer(t)
		cdztest.WriteTree(t, root, map[string]string{"albums/a.mp3": "Song A"})

		rec := doJSON(t, router, http.MethodPost, "/library/scan", map[string]any{})
		var started map[string]string
		decode(t, rec, &started)
		awaitOperation(t, handler, started["id"])

		// Park the import inside the importer so the DELETE lands mid-run.
		entered := make(chan struct{})
		release := make(chan struct{})
		var once sync.Once
		mock.ImportFunc = func(data []byte, existing *models.Track, cfg importer.Config) (*importer.Result, error) {
			once.Do(func() { close(entered) })
			<-release
			return &importer.Result{Track: models.NewTrack(string(data)), ContentType: "audio/mpeg"}, nil
		}

		rec = doJSON(t, router, http.MethodPost, "/library/import", map[string]any{"mode": "modified-resync"})
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}
		decode(t, rec, &started)

		<-entered
		rec = doJSON(t, router, http.MethodDelete, "/library/operations/"+started["id"], nil)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202 for a running operation, got %d", rec.Code)
		}
		close(release)

		op := awaitOperation(t, handler, started["id"])
		if op.State != server.OperationCancelled {
			t.Errorf("expected cancelled, got %s", op.State)
		}
	})

	t.Run("CancelFinishedOperationConflicts", func(t *testing.T) {
		handler, router, _, _ := setupServer(t)

		rec := doJSON(t, router, http.MethodPost, "/library/scan", map[string]any{})
		var started map[string]string
		decode(t, rec, &started)
		awaitOperation(t, handler, started["id"])

		rec = doJSON(t, router, http.MethodDelete, "/library/operations/"+started["id"], nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409 for a terminal operation, got %d", rec.Code)
		}
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		_, router, _, _ := setupServer(t)

		rec := doJSON(t, router, http.MethodDelete, "/library/scan", nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestRegistry(t *testing.T) {
	t.Run("CancelRunningOperation", func(t *testing.T) {
		registry := server.NewRegistry()
		ctx, cancel := context.WithCancel(context.Background())
		op := registry.Start("scan", "", cancel)

		if !registry.Cancel(op.ID) {
			t.Fatal("expected cancel to succeed")
		}
		if ctx.Err() == nil {
			t.Error("cancel should propagate to the operation context")
		}

		registry.Finish(op.ID, nil, ctx.Err())
		got := registry.Get(op.ID)
		if got.State != server.OperationCancelled {
			t.Errorf("expected cancelled, got %s", got.State)
		}
	})

	t.Run("FinishRecordsFailure", func(t *testing.T) {
		registry := server.NewRegistry()
		_, cancel := context.WithCancel(context.Background())
		op := registry.Start("import", "albums", cancel)
		cancel()

		registry.Finish(op.ID, nil, io.ErrUnexpectedEOF)
		got := registry.Get(op.ID)
		if got.State != server.OperationFailed {
			t.Errorf("expected failed, got %s", got.State)
		}
		if got.Error == "" {
			t.Error("expected the error message to be recorded")
		}
		if got.EndedAt == nil {
			t.Error("expected an end timestamp")
		}
	})

	t.Run("CancelUnknownOperation", func(t *testing.T) {
		registry := server.NewRegistry()
		if registry.Cancel("missing") {
			t.Error("cancelling an unknown operation should fail")
		}
	})
}
