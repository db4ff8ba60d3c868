package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cadenza-music/cadenza/internal/tracker"
)

// LoadDirState retrieves the stored (digest, status) pair for a directory,
// returning (nil, nil) when the directory was never tracked.
func (c *Catalog) LoadDirState(ctx context.Context, collectionID, path string) (*tracker.DirState, error) {
	query := `
		SELECT digest, status
		FROM dir_tracking
		WHERE collection_id = ? AND path = ?
	`

	var (
		digest []byte
		status string
	)
	err := c.conn(ctx).QueryRowContext(ctx, query, collectionID, path).Scan(&digest, &status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load directory state: %w", err)
	}

	parsed, err := tracker.ParseDirTrackingStatus(status)
	if err != nil {
		return nil, err
	}
	return &tracker.DirState{Digest: digest, Status: parsed}, nil
}

// SaveDirState inserts or replaces the state for a directory.
func (c *Catalog) SaveDirState(ctx context.Context, collectionID, path string, state tracker.DirState) error {
	query := `
		INSERT INTO dir_tracking (collection_id, path, digest, status, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection_id, path) DO UPDATE SET
			digest = excluded.digest,
			status = excluded.status,
			updated_at = excluded.updated_at
	`

	_, err := c.conn(ctx).ExecContext(ctx, query, collectionID, path, state.Digest, state.Status.String(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save directory state: %w", err)
	}
	return nil
}

// UpdateDirStatus rewrites only the status of a tracked directory.
func (c *Catalog) UpdateDirStatus(ctx context.Context, collectionID, path string, status tracker.DirTrackingStatus) error {
	query := `
		UPDATE dir_tracking
		SET status = ?, updated_at = ?
		WHERE collection_id = ? AND path = ?
	`

	result, err := c.conn(ctx).ExecContext(ctx, query, status.String(), time.Now(), collectionID, path)
	if err != nil {
		return fmt.Errorf("failed to update directory status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("directory not tracked: %s", path)
	}
	return nil
}

// ListTrackedUnder returns the paths of all tracked directories under root.
func (c *Catalog) ListTrackedUnder(ctx context.Context, collectionID, root string) ([]string, error) {
	clause, args := prefixClause("path", root)
	query := fmt.Sprintf(`
		SELECT path FROM dir_tracking
		WHERE collection_id = ? AND %s
		ORDER BY path ASC
	`, clause)

	return c.listPaths(ctx, query, append([]any{collectionID}, args...))
}

// ListPendingUnder returns the paths of directories requiring import work.
// Outdated directories carry outstanding work from an earlier pass, so they
// stay pending until an import confirms them.
func (c *Catalog) ListPendingUnder(ctx context.Context, collectionID, root string) ([]string, error) {
	clause, args := prefixClause("path", root)
	query := fmt.Sprintf(`
		SELECT path FROM dir_tracking
		WHERE collection_id = ? AND status IN ('added', 'modified', 'outdated') AND %s
		ORDER BY path ASC
	`, clause)

	return c.listPaths(ctx, query, append([]any{collectionID}, args...))
}

func (c *Catalog) listPaths(ctx context.Context, query string, args []any) ([]string, error) {
	rows, err := c.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked directories: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return paths, nil
}

// DeleteTrackedUnder removes tracking records under root, optionally
// restricted to the given statuses.
func (c *Catalog) DeleteTrackedUnder(ctx context.Context, collectionID, root string, filter []tracker.DirTrackingStatus) (int, error) {
	clause, args := prefixClause("path", root)
	query := fmt.Sprintf("DELETE FROM dir_tracking WHERE collection_id = ? AND %s", clause)
	queryArgs := append([]any{collectionID}, args...)

	if len(filter) > 0 {
		placeholders := make([]string, len(filter))
		for i, status := range filter {
			placeholders[i] = "?"
			queryArgs = append(queryArgs, status.String())
		}
		query += fmt.Sprintf(" AND status IN (%s)", strings.Join(placeholders, ", "))
	}

	result, err := c.conn(ctx).ExecContext(ctx, query, queryArgs...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tracking records: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(rows), nil
}

// CountStatusesUnder aggregates per-status directory counts under root.
func (c *Catalog) CountStatusesUnder(ctx context.Context, collectionID, root string) (tracker.DirectoryCounts, error) {
	clause, args := prefixClause("path", root)
	query := fmt.Sprintf(`
		SELECT status, COUNT(*) FROM dir_tracking
		WHERE collection_id = ? AND %s
		GROUP BY status
	`, clause)

	rows, err := c.conn(ctx).QueryContext(ctx, query, append([]any{collectionID}, args...)...)
	if err != nil {
		return tracker.DirectoryCounts{}, fmt.Errorf("failed to aggregate statuses: %w", err)
	}
	defer rows.Close()

	var counts tracker.DirectoryCounts
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return tracker.DirectoryCounts{}, fmt.Errorf("failed to scan status count: %w", err)
		}
		parsed, err := tracker.ParseDirTrackingStatus(status)
		if err != nil {
			return tracker.DirectoryCounts{}, err
		}
		switch parsed {
		case tracker.StatusCurrent:
			counts.Current = n
		case tracker.StatusOutdated:
			counts.Outdated = n
		case tracker.StatusAdded:
			counts.Added = n
		case tracker.StatusModified:
			counts.Modified = n
		case tracker.StatusOrphaned:
			counts.Orphaned = n
		}
	}
	if err := rows.Err(); err != nil {
		return tracker.DirectoryCounts{}, fmt.Errorf("row iteration error: %w", err)
	}
	return counts, nil
}

// CountTrackedUnder counts tracking records under root.
func (c *Catalog) CountTrackedUnder(ctx context.Context, collectionID, root string) (int, error) {
	clause, args := prefixClause("path", root)
	query := fmt.Sprintf("SELECT COUNT(*) FROM dir_tracking WHERE collection_id = ? AND %s", clause)

	var count int
	if err := c.conn(ctx).QueryRowContext(ctx, query, append([]any{collectionID}, args...)...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tracking records: %w", err)
	}
	return count, nil
}

// RelocateTracked rewrites the path prefix of tracking records under oldPrefix.
func (c *Catalog) RelocateTracked(ctx context.Context, collectionID, oldPrefix, newPrefix string) (int, error) {
	clause, args := prefixClause("path", oldPrefix)
	query := fmt.Sprintf(`
		UPDATE dir_tracking
		SET path = ? || substr(path, ?), updated_at = ?
		WHERE collection_id = ? AND %s
	`, clause)

	// substr counts characters, not bytes.
	queryArgs := append([]any{newPrefix, utf8.RuneCountInString(oldPrefix) + 1, time.Now(), collectionID}, args...)
	result, err := c.conn(ctx).ExecContext(ctx, query, queryArgs...)
	if err != nil {
		return 0, fmt.Errorf("failed to relocate tracking records: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(rows), nil
}
