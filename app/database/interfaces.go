package database

import (
	"context"
	"time"
)

type SourceStore interface {
	GetSource(ctx context.Context, name string) (*Source, error)
	ListSources(ctx context.Context) ([]Source, error)

	UpsertSource(ctx context.Context, name, url, postType string) error
	UpdateSourceMetadata(ctx context.Context, name, title, link, description, language string, nextFetch time.Time) error
}

type SourcePostStore interface {
	CheckDuplicate(ctx context.Context, sourceName, contentHash string) (bool, error)
	UpsertSourcePost(ctx context.Context, sourceName string, post SourcePost) (int64, error)

	GetSourcePosts(ctx context.Context, sourceName string) ([]StoredSourcePost, error)
	UpdateFilterStatus(ctx context.Context, postID int64, isFiltered bool, reason string) error
	GetSourceStats(ctx context.Context, sourceName string) (SourceStats, error)

	GetPostsForExtraction(ctx context.Context, sourceName string, limit int) ([]PostForExtraction, error)
	UpdateExtractionStatus(ctx context.Context, postID int64, status string, extractedAt time.Time, errMsg string) error
	UpdateExtractedContent(ctx context.Context, postID int64, content string, extractedAt time.Time) error
}

var (
	_ SourceStore     = (*SourceRepository)(nil)
	_ SourcePostStore = (*PostRepository)(nil)
)
