package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/press-comb/app/database"
	"github.com/lysyi3m/press-comb/app/sources"
)

// ImportSourceTask fetches a source document and stores its entries as posts.
type ImportSourceTask struct {
	Task
	SourceConfig *sources.Config
	httpClient   *http.Client
	parser       *sources.Parser
	filterer     *sources.Filterer
	sourceRepo   database.SourceStore
	postRepo     database.SourcePostStore
	userAgent    string
}

func NewImportSourceTask(sourceName string, sourceConfig *sources.Config, httpClient *http.Client, parser *sources.Parser, filterer *sources.Filterer, sourceRepo database.SourceStore, postRepo database.SourcePostStore, userAgent string) *ImportSourceTask {
	return &ImportSourceTask{
		Task:         NewTask(TaskTypeImportSource, sourceName),
		SourceConfig: sourceConfig,
		httpClient:   httpClient,
		parser:       parser,
		filterer:     filterer,
		sourceRepo:   sourceRepo,
		postRepo:     postRepo,
		userAgent:    userAgent,
	}
}

func (t *ImportSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.SourceName)
		return nil
	}

	timeout := time.Duration(t.SourceConfig.Settings.Timeout) * time.Second
	data, err := fetchURL(ctx, t.httpClient, t.SourceConfig.URL, t.userAgent, timeout, false)
	if err != nil {
		return fmt.Errorf("failed to fetch source: %w", err)
	}

	metadata, entries, err := t.parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse source: %w", err)
	}

	// Make sure the source row exists even if the sync task has not run yet
	if err := t.sourceRepo.UpsertSource(ctx, t.SourceConfig.Name, t.SourceConfig.URL, t.SourceConfig.PostType); err != nil {
		return fmt.Errorf("failed to register source: %w", err)
	}

	nextFetch := time.Now().UTC().Add(time.Duration(t.SourceConfig.Settings.RefreshInterval) * time.Second)
	err = t.sourceRepo.UpdateSourceMetadata(ctx, t.SourceName, metadata.Title, metadata.Link, metadata.Description, metadata.Language, nextFetch)
	if err != nil {
		return fmt.Errorf("failed to store source metadata: %w", err)
	}

	if maxItems := t.SourceConfig.Settings.MaxItems; maxItems > 0 && len(entries) > maxItems {
		entries = entries[:maxItems]
	}

	duplicateCount := 0
	filteredCount := 0
	newCount := 0

	var fresh []sources.Entry
	for _, entry := range entries {
		isDuplicate, err := t.postRepo.CheckDuplicate(ctx, t.SourceName, entry.ContentHash)
		if err != nil {
			return fmt.Errorf("failed to check for duplicates: %w", err)
		}

		if isDuplicate {
			duplicateCount++
		} else {
			fresh = append(fresh, entry)
		}
	}

	for _, entry := range t.filterer.Run(fresh, t.SourceConfig) {
		if entry.IsFiltered {
			filteredCount++
		} else {
			newCount++
		}

		if _, err := t.postRepo.UpsertSourcePost(ctx, t.SourceName, toSourcePost(entry)); err != nil {
			return fmt.Errorf("failed to store entry %s: %w", entry.GUID, err)
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"total", len(entries),
		"duplicates", duplicateCount,
		"filtered", filteredCount,
		"new", newCount)

	return nil
}

func toSourcePost(entry sources.Entry) database.SourcePost {
	return database.SourcePost{
		GUID:            entry.GUID,
		Slug:            entry.Slug,
		Link:            entry.Link,
		Title:           entry.Title,
		Excerpt:         entry.Excerpt,
		Content:         entry.Content,
		PublishedAt:     entry.PublishedAt,
		ModifiedAt:      entry.UpdatedAt,
		Authors:         entry.Authors,
		Categories:      entry.Categories,
		ContentHash:     entry.ContentHash,
		IsFiltered:      entry.IsFiltered,
		FilterReason:    entry.FilterReason,
		EnclosureURL:    entry.EnclosureURL,
		EnclosureLength: entry.EnclosureLength,
		EnclosureType:   entry.EnclosureType,
	}
}
