package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/press-comb/app/menu"
)

// MenuRepository handles menus, their items and theme locations
type MenuRepository struct {
	db *DB
}

func NewMenuRepository(db *DB) *MenuRepository {
	return &MenuRepository{db: db}
}

// ResolveLocation returns nil when no menu is assigned to location
func (r *MenuRepository) ResolveLocation(ctx context.Context, location string) (*menu.Menu, error) {
	var m menu.Menu
	err := r.db.QueryRowContext(ctx, `
		SELECT m.id, m.name, m.slug
		FROM menu_locations l
		JOIN menus m ON m.id = l.menu_id
		WHERE l.location = ?
	`, location).Scan(&m.ID, &m.Name, &m.Slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve menu location: %w", err)
	}
	return &m, nil
}

// GetMenuItems returns the flat item list in display order
func (r *MenuRepository) GetMenuItems(ctx context.Context, m *menu.Menu) ([]menu.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, object_id, parent_item_id, classes, title, url, object, object_type, position
		FROM menu_items
		WHERE menu_id = ?
		ORDER BY position, id
	`, m.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get menu items: %w", err)
	}
	defer rows.Close()

	var items []menu.Item
	for rows.Next() {
		var item menu.Item
		var classes string
		err := rows.Scan(&item.ID, &item.ObjectID, &item.ParentMenuItemID, &classes,
			&item.Title, &item.URL, &item.Object, &item.ObjectType, &item.Order)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu item row: %w", err)
		}
		if err := json.Unmarshal([]byte(classes), &item.Classes); err != nil {
			return nil, fmt.Errorf("failed to decode classes of menu item %d: %w", item.ID, err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating menu item rows: %w", err)
	}

	return items, nil
}

// Seed replaces the items of every seeded menu and the location assignments.
// Menus not named in the seed are left alone.
func (r *MenuRepository) Seed(ctx context.Context, seed *MenuSeed) error {
	if seed == nil {
		return nil
	}
	if err := seed.Validate(); err != nil {
		return fmt.Errorf("invalid menu seed: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	itemCount := 0
	for _, sm := range seed.Menus {
		var menuID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO menus (name, slug) VALUES (?, ?)
			ON CONFLICT (slug) DO UPDATE SET name = excluded.name
			RETURNING id
		`, sm.Name, sm.Slug).Scan(&menuID)
		if err != nil {
			return fmt.Errorf("failed to upsert menu %s: %w", sm.Slug, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM menu_items WHERE menu_id = ?`, menuID); err != nil {
			return fmt.Errorf("failed to clear items of menu %s: %w", sm.Slug, err)
		}

		position := 0
		if err := insertSeedItems(ctx, tx, menuID, 0, sm.Items, &position); err != nil {
			return fmt.Errorf("failed to seed menu %s: %w", sm.Slug, err)
		}
		itemCount += position
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM menu_locations`); err != nil {
		return fmt.Errorf("failed to clear menu locations: %w", err)
	}
	for location, slug := range seed.Locations {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO menu_locations (location, menu_id)
			SELECT ?, id FROM menus WHERE slug = ?
		`, location, slug)
		if err != nil {
			return fmt.Errorf("failed to assign location %s: %w", location, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("location %s refers to unknown menu %s", location, slug)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit menu seed: %w", err)
	}

	slog.Info("Menus seeded", "menus", len(seed.Menus), "items", itemCount, "locations", len(seed.Locations))
	return nil
}

// insertSeedItems writes items depth first so positions follow the YAML order.
// Custom links get the negated item id as object id: non-zero, and never equal
// to a post id, which the tree builder relies on to find an item's children.
func insertSeedItems(ctx context.Context, tx *sql.Tx, menuID, parentID int64, items []MenuSeedItem, position *int) error {
	for _, si := range items {
		objectID, object, err := resolveSeedObject(ctx, tx, si)
		if err != nil {
			return err
		}

		classes := si.Classes
		if classes == nil {
			classes = []string{}
		}
		rawClasses, err := json.Marshal(classes)
		if err != nil {
			return fmt.Errorf("failed to encode classes: %w", err)
		}

		*position++
		res, err := tx.ExecContext(ctx, `
			INSERT INTO menu_items (menu_id, parent_item_id, object_id, object, object_type, title, url, classes, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, menuID, parentID, objectID, object, objectTypeFor(object), si.Title, si.URL, string(rawClasses), *position)
		if err != nil {
			return fmt.Errorf("failed to insert menu item %q: %w", si.Title, err)
		}

		itemID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get menu item id: %w", err)
		}

		if objectID == 0 {
			if _, err := tx.ExecContext(ctx, `UPDATE menu_items SET object_id = -id WHERE id = ?`, itemID); err != nil {
				return fmt.Errorf("failed to set custom link object: %w", err)
			}
		}

		if err := insertSeedItems(ctx, tx, menuID, itemID, si.Items, position); err != nil {
			return err
		}
	}
	return nil
}

func resolveSeedObject(ctx context.Context, tx *sql.Tx, si MenuSeedItem) (int64, string, error) {
	if si.Post != "" {
		var id int64
		var postType string
		err := tx.QueryRowContext(ctx, `
			SELECT id, type FROM posts WHERE slug = ? ORDER BY id LIMIT 1
		`, si.Post).Scan(&id, &postType)
		if err == sql.ErrNoRows {
			slog.Warn("Menu item refers to unknown post, seeding as custom link", "title", si.Title, "post", si.Post)
			return 0, "custom", nil
		}
		if err != nil {
			return 0, "", fmt.Errorf("failed to resolve post %s: %w", si.Post, err)
		}
		return id, postType, nil
	}

	if si.ObjectID != 0 {
		if si.Object == "" {
			return si.ObjectID, "post", nil
		}
		return si.ObjectID, si.Object, nil
	}

	return 0, "custom", nil
}

func objectTypeFor(object string) string {
	switch object {
	case "custom":
		return "custom"
	case "category", "tag":
		return "taxonomy"
	default:
		return "post_type"
	}
}
