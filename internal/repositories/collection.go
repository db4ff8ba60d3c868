package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cadenza-music/cadenza/internal/models"
	"github.com/cadenza-music/cadenza/internal/shared"
)

// CollectionRepository manages the named library roots that own all tracking
// and track rows.
type CollectionRepository struct {
	db *sql.DB
}

func NewCollectionRepository(db *sql.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// Create persists a new collection, assigning its sequence number.
func (r *CollectionRepository) Create(ctx context.Context, collection *models.Collection) error {
	if err := collection.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int
	err = tx.QueryRowContext(ctx,
		"UPDATE collections_sequence SET value = value + 1 WHERE id = 1 RETURNING value",
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to get next sequence: %w", err)
	}
	collection.Sequence = seq

	_, err = tx.ExecContext(ctx, `
		INSERT INTO collections (id, sequence, title, root_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, collection.ID, collection.Sequence, collection.Title, collection.RootPath,
		collection.CreatedAt, collection.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get retrieves a collection by id.
func (r *CollectionRepository) Get(ctx context.Context, id string) (*models.Collection, error) {
	return r.get(ctx, "SELECT id, sequence, title, root_path, created_at, updated_at FROM collections WHERE id = ?", id)
}

// GetByTitle retrieves a collection by its title.
func (r *CollectionRepository) GetByTitle(ctx context.Context, title string) (*models.Collection, error) {
	return r.get(ctx, "SELECT id, sequence, title, root_path, created_at, updated_at FROM collections WHERE title = ?", title)
}

func (r *CollectionRepository) get(ctx context.Context, query string, arg any) (*models.Collection, error) {
	var c models.Collection
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&c.ID, &c.Sequence, &c.Title, &c.RootPath, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %v", shared.ErrCollectionNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return &c, nil
}

// List returns all collections ordered by sequence.
func (r *CollectionRepository) List(ctx context.Context) ([]*models.Collection, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, sequence, title, root_path, created_at, updated_at FROM collections ORDER BY sequence",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var collections []*models.Collection
	for rows.Next() {
		var c models.Collection
		if err := rows.Scan(&c.ID, &c.Sequence, &c.Title, &c.RootPath, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, &c)
	}
	return collections, rows.Err()
}

// FindOrCreate returns the collection with the given title, creating it
// rooted at rootPath when absent.
func (r *CollectionRepository) FindOrCreate(ctx context.Context, title, rootPath string) (*models.Collection, error) {
	existing, err := r.GetByTitle(ctx, title)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrCollectionNotFound) {
		return nil, err
	}

	collection := models.NewCollection(title, rootPath)
	if err := r.Create(ctx, collection); err != nil {
		return nil, err
	}
	return collection, nil
}
