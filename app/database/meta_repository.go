package database

import (
	"context"
	"database/sql"
	"fmt"
)

// execer is satisfied by both *DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// MetaRepository stores key/value metadata per namespace and object.
// A key may hold several values; insertion order is kept.
type MetaRepository struct {
	db *DB
}

func NewMetaRepository(db *DB) *MetaRepository {
	return &MetaRepository{db: db}
}

// GetMeta returns the first value as a string when single is set, otherwise
// every value as []string. Missing keys give "" or an empty slice.
func (r *MetaRepository) GetMeta(ctx context.Context, namespace string, objectID int64, key string, single bool) (any, error) {
	values, err := metaValues(ctx, r.db, namespace, objectID, key)
	if err != nil {
		return nil, err
	}

	if single {
		if len(values) == 0 {
			return "", nil
		}
		return values[0], nil
	}
	return values, nil
}

func (r *MetaRepository) GetAllMeta(ctx context.Context, namespace string, objectID int64) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT meta_key, meta_value FROM meta
		WHERE namespace = ? AND object_id = ?
		ORDER BY id
	`, namespace, objectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}
	defer rows.Close()

	meta := make(map[string][]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		meta[key] = append(meta[key], value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metadata rows: %w", err)
	}

	return meta, nil
}

func (r *MetaRepository) AddMeta(ctx context.Context, namespace string, objectID int64, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO meta (namespace, object_id, meta_key, meta_value) VALUES (?, ?, ?, ?)
	`, namespace, objectID, key, value)
	if err != nil {
		return fmt.Errorf("failed to add metadata: %w", err)
	}
	return nil
}

// SetMeta replaces every value of key with values.
func (r *MetaRepository) SetMeta(ctx context.Context, namespace string, objectID int64, key string, values ...string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replaceMeta(ctx, tx, namespace, objectID, key, values); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metadata: %w", err)
	}
	return nil
}

func metaValues(ctx context.Context, ex execer, namespace string, objectID int64, key string) ([]string, error) {
	rows, err := ex.QueryContext(ctx, `
		SELECT meta_value FROM meta
		WHERE namespace = ? AND object_id = ? AND meta_key = ?
		ORDER BY id
	`, namespace, objectID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata key %s: %w", key, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan metadata value: %w", err)
		}
		values = append(values, value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metadata values: %w", err)
	}

	return values, nil
}

func replaceMeta(ctx context.Context, ex execer, namespace string, objectID int64, key string, values []string) error {
	_, err := ex.ExecContext(ctx, `
		DELETE FROM meta WHERE namespace = ? AND object_id = ? AND meta_key = ?
	`, namespace, objectID, key)
	if err != nil {
		return fmt.Errorf("failed to clear metadata key %s: %w", key, err)
	}

	for _, value := range values {
		_, err := ex.ExecContext(ctx, `
			INSERT INTO meta (namespace, object_id, meta_key, meta_value) VALUES (?, ?, ?, ?)
		`, namespace, objectID, key, value)
		if err != nil {
			return fmt.Errorf("failed to insert metadata key %s: %w", key, err)
		}
	}

	return nil
}
