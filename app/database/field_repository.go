package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/press-comb/app/content"
)

// Field types whose value is a list of post ids.
var relationFieldTypes = map[string]bool{
	"relationship": true,
	"post_object":  true,
}

// FieldRepository stores custom fields as JSON values keyed by post and name.
type FieldRepository struct {
	db *DB
}

func NewFieldRepository(db *DB) *FieldRepository {
	return &FieldRepository{db: db}
}

// GetFields returns the formatted value of every field of a post. A field whose
// stored value cannot be decoded is logged and left out.
func (r *FieldRepository) GetFields(ctx context.Context, postID int64) (map[string]any, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, type, value FROM fields
		WHERE post_id = ?
		ORDER BY position, name
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fields: %w", err)
	}
	defer rows.Close()

	fields := make(map[string]any)
	for rows.Next() {
		var name, fieldType, raw string
		if err := rows.Scan(&name, &fieldType, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan field row: %w", err)
		}

		value, err := decodeFieldValue(fieldType, raw, true)
		if err != nil {
			slog.Warn("Failed to decode field value, skipping", "post_id", postID, "field", name, "error", err)
			continue
		}
		fields[name] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating field rows: %w", err)
	}

	return fields, nil
}

// GetFieldObject returns nil when the post has no such field.
func (r *FieldRepository) GetFieldObject(ctx context.Context, name string, postID int64, formatted bool) (*content.FieldObject, error) {
	var obj content.FieldObject
	var raw string

	err := r.db.QueryRowContext(ctx, `
		SELECT field_key, name, label, type, instructions, required, value
		FROM fields
		WHERE post_id = ? AND name = ?
	`, postID, name).Scan(&obj.Key, &obj.Name, &obj.Label, &obj.Type, &obj.Instructions, &obj.Required, &raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get field object: %w", err)
	}

	obj.Value, err = decodeFieldValue(obj.Type, raw, formatted)
	if err != nil {
		return nil, fmt.Errorf("failed to decode field %s: %w", name, err)
	}

	return &obj, nil
}

// SetField creates or replaces a field. Relation values may be given as
// []content.PostRef, []int64 or a single id.
func (r *FieldRepository) SetField(ctx context.Context, postID int64, def FieldDefinition, value any) error {
	return upsertField(ctx, r.db, postID, def, value)
}

func upsertField(ctx context.Context, ex execer, postID int64, def FieldDefinition, value any) error {
	if def.Name == "" {
		return fmt.Errorf("field name is required")
	}
	if def.Type == "" {
		def.Type = "text"
	}
	if def.Key == "" {
		def.Key = "field_" + def.Name
	}

	raw, err := encodeFieldValue(def.Type, value)
	if err != nil {
		return fmt.Errorf("failed to encode field %s: %w", def.Name, err)
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO fields (post_id, name, field_key, label, type, instructions, required, value, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (post_id, name) DO UPDATE SET
			field_key = excluded.field_key,
			label = excluded.label,
			type = excluded.type,
			instructions = excluded.instructions,
			required = excluded.required,
			value = excluded.value,
			position = excluded.position
	`, postID, def.Name, def.Key, def.Label, def.Type, def.Instructions, def.Required, raw, def.Position)
	if err != nil {
		return fmt.Errorf("failed to upsert field %s: %w", def.Name, err)
	}

	return nil
}

func encodeFieldValue(fieldType string, value any) (string, error) {
	if relationFieldTypes[fieldType] {
		switch v := value.(type) {
		case []content.PostRef:
			ids := make([]int64, 0, len(v))
			for _, ref := range v {
				ids = append(ids, ref.ID)
			}
			value = ids
		case content.PostRef:
			value = []int64{v.ID}
		case int64:
			value = []int64{v}
		case int:
			value = []int64{int64(v)}
		}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeFieldValue turns relation ids into post references when formatted;
// everything else is plain decoded JSON.
func decodeFieldValue(fieldType, raw string, formatted bool) (any, error) {
	if formatted && relationFieldTypes[fieldType] {
		var ids []int64
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, err
		}
		refs := make([]content.PostRef, 0, len(ids))
		for _, id := range ids {
			refs = append(refs, content.PostRef{ID: id})
		}
		return refs, nil
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, err
	}
	return value, nil
}
