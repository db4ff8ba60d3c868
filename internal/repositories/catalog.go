// package repositories provides the persistence layer for the catalog
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// dbtx is the subset of *sql.DB and *sql.Tx the accessors run against.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txContextKey carries the batch transaction through a context.
type txContextKey struct{}

// Catalog implements tracker.Repository over SQLite.
type Catalog struct {
	db      *sql.DB
	mu      sync.Mutex
	writers map[string]*sync.Mutex
}

// NewCatalog creates a Catalog over the given database connection.
func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{db: db, writers: make(map[string]*sync.Mutex)}
}

// conn returns the batch transaction from the context if present, otherwise
// the connection pool.
func (c *Catalog) conn(ctx context.Context) dbtx {
	if tx, ok := ctx.Value(txContextKey{}).(*sql.Tx); ok {
		return tx
	}
	return c.db
}

// writerLock returns the per-collection writer mutex, creating it on first use.
func (c *Catalog) writerLock(collectionID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.writers[collectionID]
	if !ok {
		m = &sync.Mutex{}
		c.writers[collectionID] = m
	}
	return m
}

// WithBatch runs fn inside one transaction while holding the collection's
// writer lock. One synchronization operation may mutate a collection's rows
// at a time; reads outside a batch run concurrently on the pool.
//
// A context that already carries a batch joins it instead of nesting.
func (c *Catalog) WithBatch(ctx context.Context, collectionID string, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txContextKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	lock := c.writerLock(collectionID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txContextKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// NextSequence atomically increments and returns the next sequence number
// for the given table, joining the batch transaction when one is active.
//
// Sequence numbers provide stable internal ordering for entities independent
// of UUIDs and creation timestamps.
func (c *Catalog) NextSequence(ctx context.Context, table string) (int, error) {
	conn := c.conn(ctx)
	sequenceTable := table + "_sequence"

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable)); err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	if err := conn.QueryRowContext(ctx, fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	return sequence, nil
}

// prefixClause builds a WHERE fragment matching a path and everything below
// it. The empty root matches every row.
func prefixClause(column, root string) (string, []any) {
	if root == "" {
		return "1 = 1", nil
	}
	return fmt.Sprintf("(%s = ? OR %s LIKE ?)", column, column), []any{root, root + "/%"}
}
