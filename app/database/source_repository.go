package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SourceRepository handles database operations for ingestion sources
type SourceRepository struct {
	db *DB
}

func NewSourceRepository(db *DB) *SourceRepository {
	return &SourceRepository{db: db}
}

const sourceColumns = `id, name, url, post_type, title, link, description, language,
	last_fetched_at, next_fetch_at, created_at, updated_at`

func scanSource(row interface{ Scan(...any) error }) (Source, error) {
	var s Source
	var lastFetched, nextFetch sql.NullTime

	err := row.Scan(&s.ID, &s.Name, &s.URL, &s.PostType, &s.Title, &s.Link, &s.Description, &s.Language,
		&lastFetched, &nextFetch, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}

	if lastFetched.Valid {
		s.LastFetchedAt = &lastFetched.Time
	}
	if nextFetch.Valid {
		s.NextFetchAt = &nextFetch.Time
	}
	return s, nil
}

// GetSource returns nil when no source with that name has been synced yet
func (r *SourceRepository) GetSource(ctx context.Context, name string) (*Source, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE name = ?`, name)

	s, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return &s, nil
}

func (r *SourceRepository) ListSources(ctx context.Context) ([]Source, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

// UpsertSource inserts or updates a source configuration
func (r *SourceRepository) UpsertSource(ctx context.Context, name, url, postType string) error {
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sources (name, url, post_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			url = excluded.url,
			post_type = excluded.post_type,
			updated_at = excluded.updated_at
	`, name, url, postType, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	return nil
}

// UpdateSourceMetadata stores channel metadata after a successful fetch and schedules the next one
func (r *SourceRepository) UpdateSourceMetadata(ctx context.Context, name, title, link, description, language string, nextFetch time.Time) error {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE sources
		SET title = ?, link = ?, description = ?, language = ?,
			last_fetched_at = ?, next_fetch_at = ?, updated_at = ?
		WHERE name = ?
	`, title, link, description, language, now, nextFetch.UTC(), now, name)
	if err != nil {
		return fmt.Errorf("failed to update source metadata: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("source %q not found", name)
	}

	return nil
}

func (r *SourceRepository) GetSourceCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}
