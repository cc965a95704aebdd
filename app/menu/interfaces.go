package menu

import "context"

// Locations resolves a theme location name to a menu. A nil menu means unresolved.
type Locations interface {
	ResolveLocation(ctx context.Context, location string) (*Menu, error)
}

// ItemStore returns the flat item list of a menu in display order.
type ItemStore interface {
	GetMenuItems(ctx context.Context, menu *Menu) ([]Item, error)
}
