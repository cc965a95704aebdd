package menu

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/press-comb/app/metric"
)

const DefaultMaxDepth = 32

type Builder struct {
	locations Locations
	items     ItemStore
	maxDepth  int
	builds    metric.IncrementalCounter
}

type BuilderOption func(*Builder)

// WithMaxDepth bounds how many nested levels a tree may have.
func WithMaxDepth(depth int) BuilderOption {
	return func(b *Builder) {
		if depth > 0 {
			b.maxDepth = depth
		}
	}
}

// WithCounter records builds by location and result.
func WithCounter(c metric.IncrementalCounter) BuilderOption {
	return func(b *Builder) {
		if c != nil {
			b.builds = c
		}
	}
}

func NewBuilder(locations Locations, items ItemStore, opts ...BuilderOption) *Builder {
	b := &Builder{
		locations: locations,
		items:     items,
		maxDepth:  DefaultMaxDepth,
		builds:    metric.Nop{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// GetMenuTree builds the tree for the menu assigned to location, rooted at
// parentObjectID (0 for the whole menu). Missing menus or items give a nil
// tree; only malformed structure is reported as an error.
func (b *Builder) GetMenuTree(ctx context.Context, location string, parentObjectID, overrideObjectID int64, view View) ([]Node, error) {
	m, err := b.locations.ResolveLocation(ctx, location)
	if err != nil {
		slog.Warn("Failed to resolve menu location", "location", location, "error", err)
		b.builds.Increment(location, "unresolved")
		return nil, nil
	}
	if m == nil {
		slog.Debug("Menu location not assigned", "location", location)
		b.builds.Increment(location, "unresolved")
		return nil, nil
	}

	items, err := b.items.GetMenuItems(ctx, m)
	if err != nil {
		slog.Warn("Failed to get menu items", "location", location, "menu", m.Slug, "error", err)
		b.builds.Increment(location, "empty")
		return nil, nil
	}
	if len(items) == 0 {
		b.builds.Increment(location, "empty")
		return nil, nil
	}

	tree, err := BuildMenu(items, parentObjectID, overrideObjectID, view, b.maxDepth)
	if err != nil {
		slog.Error("Menu structure rejected", "location", location, "menu", m.Slug, "error", err)
		b.builds.Increment(location, "structural_error")
		return nil, err
	}

	b.builds.Increment(location, "ok")
	return tree, nil
}

// BuildMenu turns flat items into the forest below parentObjectID. The input
// is never modified; every level is a fresh slice.
func BuildMenu(items []Item, parentObjectID, overrideObjectID int64, view View, maxDepth int) ([]Node, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return buildLevel(items, parentObjectID, overrideObjectID, view, 1, maxDepth)
}

func buildLevel(items []Item, parentObjectID, overrideObjectID int64, view View, depth, maxDepth int) ([]Node, error) {
	parentKey := int64(0)
	for _, item := range items {
		if item.ObjectID == parentObjectID {
			parentKey = item.ID
			break
		}
	}

	var level []Node
	for _, item := range items {
		if item.ParentMenuItemID != parentKey {
			continue
		}
		if depth > maxDepth {
			return nil, &StructuralError{MaxDepth: maxDepth, ObjectID: parentObjectID}
		}

		submenu, err := buildLevel(items, item.ObjectID, overrideObjectID, view, depth+1, maxDepth)
		if err != nil {
			return nil, err
		}

		node := Node{Item: item, Submenu: submenu}
		node.Classes = normalizeClasses(item.Classes)

		if len(submenu) > 0 {
			node.Classes = append(node.Classes, ClassHasSubmenu)
		}
		for _, child := range submenu {
			if child.Active || child.HasActiveDescendant {
				node.HasActiveDescendant = true
				break
			}
		}
		node.Active = view.matches(item.ObjectID, overrideObjectID)
		if node.Active || node.HasActiveDescendant {
			node.Classes = append(node.Classes, ClassActive)
		}

		level = append(level, node)
	}

	return level, nil
}

// normalizeClasses copies classes without empty entries, keeping order.
func normalizeClasses(classes []string) []string {
	out := make([]string, 0, len(classes)+2)
	for _, class := range classes {
		if class != "" {
			out = append(out, class)
		}
	}
	return out
}
