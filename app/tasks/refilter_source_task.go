package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/press-comb/app/database"
	"github.com/lysyi3m/press-comb/app/sources"
)

var _ sources.Subject = database.StoredSourcePost{}

// RefilterSourceTask re-applies the current filters to every stored entry of a source.
type RefilterSourceTask struct {
	Task
	SourceConfig *sources.Config
	filterer     *sources.Filterer
	postRepo     database.SourcePostStore
}

func NewRefilterSourceTask(sourceName string, sourceConfig *sources.Config, filterer *sources.Filterer, postRepo database.SourcePostStore) *RefilterSourceTask {
	return &RefilterSourceTask{
		Task:         NewTask(TaskTypeRefilterSource, sourceName),
		SourceConfig: sourceConfig,
		filterer:     filterer,
		postRepo:     postRepo,
	}
}

func (t *RefilterSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	posts, err := t.postRepo.GetSourcePosts(ctx, t.SourceName)
	if err != nil {
		return fmt.Errorf("failed to get source posts: %w", err)
	}

	updatedCount := 0
	errorCount := 0

	for _, stored := range posts {
		isFiltered, reason := t.filterer.Evaluate(stored, t.SourceConfig.Filters)
		if stored.IsFiltered == isFiltered && stored.FilterReason == reason {
			continue
		}

		if err := t.postRepo.UpdateFilterStatus(ctx, stored.ID, isFiltered, reason); err != nil {
			slog.Error("Failed to update post filter status", "post_id", stored.ID, "error", err)
			errorCount++
		} else {
			updatedCount++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"success", updatedCount,
		"errors", errorCount)

	return nil
}
