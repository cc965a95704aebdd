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

// ExtractContentTask replaces entry content with the readable article of the linked page.
type ExtractContentTask struct {
	Task
	SourceConfig     *sources.Config
	httpClient       *http.Client
	contentExtractor *sources.ContentExtractor
	postRepo         database.SourcePostStore
	userAgent        string
}

func NewExtractContentTask(sourceName string, sourceConfig *sources.Config, httpClient *http.Client, contentExtractor *sources.ContentExtractor, postRepo database.SourcePostStore, userAgent string) *ExtractContentTask {
	return &ExtractContentTask{
		Task:             NewTask(TaskTypeExtractContent, sourceName),
		SourceConfig:     sourceConfig,
		httpClient:       httpClient,
		contentExtractor: contentExtractor,
		postRepo:         postRepo,
		userAgent:        userAgent,
	}
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.ExtractContent {
		slog.Debug("Content extraction disabled for source", "source", t.SourceName)
		return nil
	}

	posts, err := t.postRepo.GetPostsForExtraction(ctx, t.SourceName, t.SourceConfig.Settings.MaxItems)
	if err != nil {
		return fmt.Errorf("failed to get posts for content extraction: %w", err)
	}

	if len(posts) == 0 {
		slog.Debug("No posts need content extraction", "source", t.SourceName)
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, p := range posts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.extractContentForPost(ctx, p); err != nil {
			slog.Error("Failed to extract content for post", "post_id", p.ID, "url", p.Link, "error", err)
			errorCount++

			if err := t.postRepo.UpdateExtractionStatus(ctx, p.ID, database.ExtractionFailed, time.Now().UTC(), err.Error()); err != nil {
				slog.Error("Failed to update content extraction status", "post_id", p.ID, "error", err)
			}
		} else {
			successCount++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *ExtractContentTask) extractContentForPost(ctx context.Context, p database.PostForExtraction) error {
	timeout := time.Duration(t.SourceConfig.Settings.Timeout) * time.Second
	data, err := fetchURL(ctx, t.httpClient, p.Link, t.userAgent, timeout, true)
	if err != nil {
		return fmt.Errorf("failed to fetch article content: %w", err)
	}

	extracted, err := t.contentExtractor.Run(data, p.Link)
	if err != nil {
		return fmt.Errorf("failed to extract content: %w", err)
	}

	if err := t.postRepo.UpdateExtractedContent(ctx, p.ID, extracted, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update extracted content: %w", err)
	}

	slog.Debug("Content extracted successfully", "post_id", p.ID, "url", p.Link, "content_length", len(extracted))
	return nil
}
