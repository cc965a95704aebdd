package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lysyi3m/press-comb/app/cfg"
	"github.com/lysyi3m/press-comb/app/database"
	"github.com/lysyi3m/press-comb/app/metric"
	"github.com/lysyi3m/press-comb/app/sources"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	taskResultSuccess = "success"
	taskResultRetry   = "retry"
	taskResultFailed  = "failed"
)

type Scheduler struct {
	sourceRepo       database.SourceStore
	postRepo         database.SourcePostStore
	configCache      *sources.ConfigCache
	httpClient       *http.Client
	parser           *sources.Parser
	filterer         *sources.Filterer
	contentExtractor *sources.ContentExtractor
	runs             metric.IncrementalCounter
	userAgent        string
	interval         time.Duration
	workerCount      int
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface
}

func NewScheduler(configCache *sources.ConfigCache, sourceRepo database.SourceStore,
	postRepo database.SourcePostStore, httpClient *http.Client, parser *sources.Parser, filterer *sources.Filterer,
	contentExtractor *sources.ContentExtractor, runs metric.IncrementalCounter) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	if runs == nil {
		runs = metric.Nop{}
	}

	return &Scheduler{
		sourceRepo:       sourceRepo,
		postRepo:         postRepo,
		configCache:      configCache,
		httpClient:       httpClient,
		parser:           parser,
		filterer:         filterer,
		contentExtractor: contentExtractor,
		runs:             runs,
		userAgent:        cfg.UserAgent,
		interval:         time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:      cfg.WorkerCount,
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// ReloadSource re-reads a source configuration from disk and queues a config
// sync, a refilter of stored entries and, for enabled sources, a fresh import.
func (s *Scheduler) ReloadSource(name string) error {
	sourceConfig, err := s.configCache.LoadConfig(name)
	if err != nil {
		return fmt.Errorf("failed to reload source config: %w", err)
	}

	if err := s.EnqueueTask(NewSyncSourceConfigTask(name, sourceConfig, s.sourceRepo)); err != nil {
		return fmt.Errorf("failed to enqueue sync task: %w", err)
	}

	if err := s.EnqueueTask(NewRefilterSourceTask(name, sourceConfig, s.filterer, s.postRepo)); err != nil {
		return fmt.Errorf("failed to enqueue refilter task: %w", err)
	}

	if !sourceConfig.Settings.Enabled {
		return nil
	}

	if err := s.EnqueueTask(s.newImportTask(sourceConfig)); err != nil {
		return fmt.Errorf("failed to enqueue import task: %w", err)
	}

	slog.Info("Source reloaded", "source", name)
	return nil
}

func (s *Scheduler) newImportTask(sourceConfig *sources.Config) *ImportSourceTask {
	return NewImportSourceTask(sourceConfig.Name, sourceConfig, s.httpClient, s.parser, s.filterer, s.sourceRepo, s.postRepo, s.userAgent)
}

func (s *Scheduler) enqueueStartupTasks() {
	sourceConfigs := s.configCache.GetConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No source configurations found")
		return
	}

	slog.Debug("Processing source configurations", "count", len(sourceConfigs))

	for _, sourceConfig := range sourceConfigs {
		syncTask := NewSyncSourceConfigTask(sourceConfig.Name, sourceConfig, s.sourceRepo)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncSourceConfigTask", "source", sourceConfig.Name, "error", err)
			continue
		}

		if !sourceConfig.Settings.Enabled {
			slog.Debug("Source disabled, skipping ImportSourceTask", "source", sourceConfig.Name)
			continue
		}

		if err := s.EnqueueTask(s.newImportTask(sourceConfig)); err != nil {
			slog.Warn("Failed to enqueue ImportSourceTask", "source", sourceConfig.Name, "error", err)
		}
	}
}

func (s *Scheduler) enqueueTasks() {
	sourceConfigs := s.configCache.GetEnabledConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No enabled source configurations found")
		return
	}

	slog.Debug("Processing enabled source configurations for task scheduling", "count", len(sourceConfigs))

	for _, sourceConfig := range sourceConfigs {
		source, err := s.sourceRepo.GetSource(s.ctx, sourceConfig.Name)
		if err != nil {
			slog.Warn("Failed to get source from database, skipping", "source", sourceConfig.Name, "error", err)
			continue
		}
		if source == nil {
			slog.Warn("Source not found in database, skipping", "source", sourceConfig.Name)
			continue
		}

		now := time.Now().UTC()
		if source.NextFetchAt != nil && source.NextFetchAt.After(now) {
			slog.Debug("Source not due for refresh yet", "source", sourceConfig.Name, "next_fetch_at", source.NextFetchAt)
		} else {
			if err := s.EnqueueTask(s.newImportTask(sourceConfig)); err != nil {
				slog.Warn("Failed to enqueue ImportSourceTask", "source", sourceConfig.Name, "error", err)
			}
		}

		if sourceConfig.Settings.ExtractContent {
			extractTask := NewExtractContentTask(sourceConfig.Name, sourceConfig, s.httpClient, s.contentExtractor, s.postRepo, s.userAgent)
			if err := s.EnqueueTask(extractTask); err != nil {
				slog.Warn("Failed to enqueue ExtractContentTask", "source", sourceConfig.Name, "error", err)
			}
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		s.runs.Increment(string(task.GetType()), taskResultSuccess)
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		s.runs.Increment(string(task.GetType()), taskResultFailed)
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	s.runs.Increment(string(task.GetType()), taskResultRetry)
	task.IncrementRetryCount()

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay(task.GetRetryCount()).String())

	go func() {
		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-time.After(retryDelay(task.GetRetryCount())):
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}

// retryDelay doubles per attempt starting at one second, capped at 30 seconds.
func retryDelay(retryCount int) time.Duration {
	delay := time.Duration(1<<uint(retryCount-1)) * time.Second
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}
