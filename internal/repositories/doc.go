// Package repositories implements SQLite persistence for the music catalog.
//
// The [Catalog] type implements the tracker.Repository contract across all
// three capability interfaces (directory tracking, media sources, tracks)
// with handwritten SQL over a *sql.DB. Mutating operations join the batch
// transaction carried by the context from [Catalog.WithBatch], which also
// enforces single-writer-per-collection semantics with an in-process lock;
// read queries outside a batch run concurrently on the pool.
//
// [CollectionRepository] persists the library roots themselves, with atomic
// sequence generation for human-readable ordering. Sequence numbers are
// internal sort keys, never surfaced in CLI output.
package repositories
