package menu

import (
	"errors"
	"fmt"
)

const (
	ClassHasSubmenu = "has_submenu"
	ClassActive     = "active"
)

// Menu is a resolved navigation menu.
type Menu struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Item is one flat menu record. ParentMenuItemID 0 means top level.
type Item struct {
	ID               int64    `json:"id"`
	ObjectID         int64    `json:"object_id"`
	ParentMenuItemID int64    `json:"parent_menu_item_id"`
	Classes          []string `json:"classes"`
	Title            string   `json:"title"`
	URL              string   `json:"url"`
	Object           string   `json:"object"`
	ObjectType       string   `json:"object_type"`
	Order            int      `json:"order"`
}

// Node is an Item placed in the tree. Classes are normalised and carry the
// has_submenu and active markers.
type Node struct {
	Item
	Submenu             []Node `json:"submenu,omitempty"`
	Active              bool   `json:"active"`
	HasActiveDescendant bool   `json:"has_active_descendant"`
}

// View describes what the request is currently showing. Zero ids are absent.
type View struct {
	CurrentItemID     int64
	CurrentCategoryID int64
	IsCategory        bool
}

func (v View) matches(objectID, overrideObjectID int64) bool {
	if objectID == 0 {
		return false
	}
	if objectID == v.CurrentItemID {
		return true
	}
	if v.IsCategory && objectID == v.CurrentCategoryID {
		return true
	}
	return objectID == overrideObjectID
}

var ErrStructural = errors.New("malformed menu structure")

// StructuralError reports menu data whose parent references nest deeper than
// allowed, which is how cyclic references show up.
type StructuralError struct {
	MaxDepth int
	ObjectID int64
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("menu nesting exceeds %d levels below object %d", e.MaxDepth, e.ObjectID)
}

func (e *StructuralError) Unwrap() error {
	return ErrStructural
}
