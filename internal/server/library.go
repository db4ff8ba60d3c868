package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cadenza-music/cadenza/internal/shared"
	"github.com/cadenza-music/cadenza/internal/tracker"
)

// OperationState describes where a background operation is in its lifecycle.
type OperationState string

const (
	OperationRunning   OperationState = "running"
	OperationFinished  OperationState = "finished"
	OperationFailed    OperationState = "failed"
	OperationCancelled OperationState = "cancelled"
)

// Operation records one background scan or import.
type Operation struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Root      string         `json:"root"`
	State     OperationState `json:"state"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
	Outcome   any            `json:"outcome,omitempty"`
	Error     string         `json:"error,omitempty"`

	cancel context.CancelFunc
}

// Registry tracks background operations by id.
type Registry struct {
	mu         sync.Mutex
	operations map[string]*Operation
}

func NewRegistry() *Registry {
	return &Registry{operations: make(map[string]*Operation)}
}

// Start registers a new running operation and returns it with its cancel func installed.
func (r *Registry) Start(kind, root string, cancel context.CancelFunc) *Operation {
	op := &Operation{
		ID:        shared.GenerateID(),
		Kind:      kind,
		Root:      root,
		State:     OperationRunning,
		StartedAt: time.Now(),
		cancel:    cancel,
	}

	r.mu.Lock()
	r.operations[op.ID] = op
	r.mu.Unlock()
	return op
}

// Finish records the terminal state of an operation.
func (r *Registry) Finish(id string, outcome any, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	op, ok := r.operations[id]
	if !ok {
		return
	}
	now := time.Now()
	op.EndedAt = &now
	op.Outcome = outcome
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		op.State = OperationCancelled
	case err != nil:
		op.State = OperationFailed
		op.Error = err.Error()
	default:
		op.State = OperationFinished
	}
}

// Get returns a snapshot of the operation, or nil if unknown.
func (r *Registry) Get(id string) *Operation {
	r.mu.Lock()
	defer r.mu.Unlock()

	op, ok := r.operations[id]
	if !ok {
		return nil
	}
	snapshot := *op
	return &snapshot
}

// List returns snapshots of all registered operations.
func (r *Registry) List() []*Operation {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]*Operation, 0, len(r.operations))
	for _, op := range r.operations {
		snapshot := *op
		list = append(list, &snapshot)
	}
	return list
}

// Cancel requests cancellation of a running operation. Returns false if the
// operation is unknown or already terminal.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	op, ok := r.operations[id]
	if !ok || op.State != OperationRunning {
		return false
	}
	op.cancel()
	return true
}

// LibraryHandler exposes the synchronization engine over HTTP.
// Implements the Handler interface for registration with a Router.
type LibraryHandler struct {
	engine   *tracker.Engine
	registry *Registry
	logger   *log.Logger
}

// NewLibraryHandler creates a handler around the given engine.
func NewLibraryHandler(engine *tracker.Engine, logger *log.Logger) *LibraryHandler {
	return &LibraryHandler{
		engine:   engine,
		registry: NewRegistry(),
		logger:   logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *LibraryHandler) Routes() []string {
	return []string{
		"/health",
		"/library/status",
		"/library/scan",
		"/library/import",
		"/library/operations",
		"/library/operations/",
	}
}

// Registry returns the handler's operation registry.
func (h *LibraryHandler) Registry() *Registry {
	return h.registry
}

// ServeHTTP dispatches library requests.
func (h *LibraryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/health":
		h.health(w, r)
	case r.URL.Path == "/library/status":
		h.status(w, r)
	case r.URL.Path == "/library/scan":
		h.scan(w, r)
	case r.URL.Path == "/library/import":
		h.importFiles(w, r)
	case r.URL.Path == "/library/operations":
		h.operations(w, r)
	case strings.HasPrefix(r.URL.Path, "/library/operations/"):
		h.operation(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *LibraryHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *LibraryHandler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	root := r.URL.Query().Get("root")
	counts, err := h.engine.Status(r.Context(), root)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"root":        root,
		"directories": counts,
		"total":       counts.Total(),
	})
}

// scanRequest is the body of POST /library/scan.
type scanRequest struct {
	Root     string `json:"root"`
	MaxDepth int    `json:"max_depth"`
}

func (h *LibraryHandler) scan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req scanRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.launch(w, "scan", req.Root, func(ctx context.Context) (any, error) {
		return h.engine.Scan(ctx, req.Root, tracker.ScanOptions{MaxDepth: req.MaxDepth}, nil)
	})
}

// importRequest is the body of POST /library/import.
type importRequest struct {
	Root string `json:"root"`
	Mode string `json:"mode"`
}

func (h *LibraryHandler) importFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req importRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	mode := tracker.SyncModifiedResync
	if req.Mode != "" {
		parsed, err := tracker.ParseSyncMode(req.Mode)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mode = parsed
	}

	h.launch(w, "import", req.Root, func(ctx context.Context) (any, error) {
		return h.engine.Import(ctx, req.Root, tracker.ImportOptions{Mode: mode}, nil)
	})
}

// launch starts fn in the background, registers it, and replies 202 with the
// operation id.
func (h *LibraryHandler) launch(w http.ResponseWriter, kind, root string, fn func(ctx context.Context) (any, error)) {
	ctx, cancel := context.WithCancel(context.Background())
	op := h.registry.Start(kind, root, cancel)

	go func() {
		defer cancel()
		outcome, err := fn(ctx)
		if err != nil {
			h.logger.Error("operation failed", "id", op.ID, "kind", kind, "error", err)
		}
		// The engine reports cancellation as an aborted outcome, not an
		// error; the operation context tells the registry what happened.
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		h.registry.Finish(op.ID, outcome, err)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":    op.ID,
		"kind":  kind,
		"state": string(OperationRunning),
	})
}

func (h *LibraryHandler) operations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.registry.List())
}

func (h *LibraryHandler) operation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/library/operations/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		op := h.registry.Get(id)
		if op == nil {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, op)
	case http.MethodDelete:
		if !h.registry.Cancel(id) {
			http.Error(w, "Operation not running", http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "state": string(OperationCancelled)})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrIO):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
