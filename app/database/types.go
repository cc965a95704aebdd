package database

import (
	"time"
)

const (
	StatusFiltered = "filtered"

	ExtractionPending = "pending"
	ExtractionSuccess = "success"
	ExtractionFailed  = "failed"
)

type Source struct {
	ID            int64
	Name          string // Configuration source identifier derived from filename
	URL           string
	PostType      string
	Title         string
	Link          string
	Description   string
	Language      string
	LastFetchedAt *time.Time
	NextFetchAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SourcePost is an ingested entry ready to be stored as a post.
type SourcePost struct {
	GUID         string
	Slug         string
	Link         string
	Title        string
	Excerpt      string
	Content      string
	PublishedAt  time.Time
	ModifiedAt   *time.Time
	Authors      []string
	Categories   []string
	ContentHash  string
	IsFiltered   bool
	FilterReason string

	EnclosureURL    string
	EnclosureLength int64
	EnclosureType   string
}

type StoredSourcePost struct {
	ID int64
	SourcePost
}

// FilterValues exposes a stored post to source filters. Authors come from the
// post's author meta and categories from its categories field.
func (p StoredSourcePost) FilterValues(field string) []string {
	switch field {
	case "title":
		return []string{p.Title}
	case "excerpt":
		return []string{p.Excerpt}
	case "content":
		return []string{p.Content}
	case "authors":
		return p.Authors
	case "link":
		return []string{p.Link}
	case "categories":
		return p.Categories
	default:
		return nil
	}
}

type PostForExtraction struct {
	ID   int64
	Link string
}

// FieldDefinition describes a custom field attached to a post.
type FieldDefinition struct {
	Key          string
	Name         string
	Label        string
	Type         string
	Instructions string
	Required     bool
	Position     int
}

type SourceStats struct {
	Total    int
	Visible  int
	Filtered int
}
