package content

import (
	"strings"
	"time"
)

// Post is the raw content record as the store returns it.
type Post struct {
	ID          int64      `json:"id"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Excerpt     string     `json:"excerpt"`
	AuthorID    int64      `json:"author_id"`
	ParentID    int64      `json:"parent_id"`
	MenuOrder   int        `json:"menu_order"`
	PublishedAt time.Time  `json:"published_at"`
	ModifiedAt  *time.Time `json:"modified_at,omitempty"`
}

// Item is a post decorated with metadata and, for the field-aware fetches,
// custom fields and a permalink.
type Item struct {
	Post
	Meta      map[string]any `json:"meta"`
	Fields    map[string]any `json:"fields,omitempty"`
	Permalink string         `json:"permalink,omitempty"`
}

// PostRef is a custom field value element pointing at another post.
type PostRef struct {
	ID int64 `json:"id"`
}

// FieldObject is the full definition of a custom field for one post.
type FieldObject struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	Label        string `json:"label"`
	Type         string `json:"type"`
	Instructions string `json:"instructions,omitempty"`
	Required     bool   `json:"required"`
	Value        any    `json:"value"`
}

// MetaSelector chooses which metadata to attach. The zero value attaches nothing.
type MetaSelector struct {
	All  bool
	Keys []string
}

func MetaAll() MetaSelector {
	return MetaSelector{All: true}
}

func MetaKeys(keys ...string) MetaSelector {
	return MetaSelector{Keys: keys}
}

// ParseMetaSelector reads the query form: "all", a comma separated key list, or empty.
func ParseMetaSelector(s string) MetaSelector {
	s = strings.TrimSpace(s)
	if s == "" {
		return MetaSelector{}
	}
	if s == "all" {
		return MetaAll()
	}

	var keys []string
	for _, key := range strings.Split(s, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return MetaKeys(keys...)
}

func (s MetaSelector) IsZero() bool {
	return !s.All && len(s.Keys) == 0
}

const (
	DefaultPostType  = "post"
	DefaultStatus    = "publish"
	DefaultOrderBy   = "published_at"
	DefaultLimit     = 10
	DefaultNamespace = "post"
)

var validOrderBy = map[string]bool{
	"published_at": true,
	"title":        true,
	"menu_order":   true,
	"id":           true,
}

// Filter narrows a collection query. Limit -1 means no limit.
type Filter struct {
	Type      string
	Status    string
	ParentID  *int64
	AuthorID  int64
	Search    string
	MetaKey   string
	MetaValue string
	OrderBy   string
	Order     string
	Limit     int
	Offset    int
}

// Normalized returns a copy with defaults applied and ordering sanitised.
func (f Filter) Normalized() Filter {
	if f.Type == "" {
		f.Type = DefaultPostType
	}
	if f.Status == "" {
		f.Status = DefaultStatus
	}
	if !validOrderBy[f.OrderBy] {
		f.OrderBy = DefaultOrderBy
	}
	if strings.EqualFold(f.Order, "ASC") {
		f.Order = "ASC"
	} else {
		f.Order = "DESC"
	}
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit < -1 {
		f.Limit = -1
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
