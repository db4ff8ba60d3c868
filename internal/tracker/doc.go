// Package tracker implements the media-tracking synchronization engine that
// keeps the catalog consistent with an externally-mutated directory tree.
//
// # Core Operations
//
// The [Engine] exposes five long-running operations:
//
//  1. [Engine.Scan] : Walk a subtree, digest each directory's immediate
//     listing, classify it against the stored tracking state, and persist the
//     new state per directory. Directories whose digest is unchanged are
//     Current, unless they carry outstanding import work and stay Outdated;
//     new directories are Added; changed ones Modified; previously tracked
//     directories that disappeared are swept as Orphaned.
//  2. [Engine.Import] : For every directory the scanner left pending, list
//     its files, apply the [SyncMode] policy, invoke the [importer.Importer],
//     and commit the resulting track and media-source mutations. Single-file
//     failures never abort the batch.
//  3. [Engine.Untrack] : Forget tracking state under a prefix without
//     touching catalog rows.
//  4. [Engine.PurgeOrphaned] / [Engine.PurgeUntracked] : Permanently delete
//     media sources (cascading to their tracks) that are orphaned or were
//     never confirmed by a scan.
//  5. [Engine.Relocate] : Rewrite a path prefix across tracking records and
//     media sources when the library root has moved, preserving digests,
//     UIDs, and revisions.
//
// # Change Detection
//
// A directory's digest covers the names, kinds, sizes, and modification
// times of its immediate listing, sorted by name. Computing it never opens
// file contents, so a scan is O(entries) per directory. The digest is flat
// rather than recursive: a change deep in a subtree is detected when that
// subtree's own directory is visited, not through its ancestors. A missed
// match only delays detection until a later scan, which is the deliberate
// eventual-consistency trade-off of the engine.
//
// # Progress Reporting
//
// All operations send [ProgressUpdate] values through a caller-supplied
// channel. Updates use select with default so a slow consumer can never
// influence control flow.
//
// # Cancellation
//
// Operations poll their [context.Context] at directory and file boundaries,
// never inside a batch commit. On cancellation they return
// [Aborted] with the counters accumulated so far; everything committed
// before the abort remains valid, and re-running the operation is
// idempotent thanks to digest-based change detection.
package tracker
