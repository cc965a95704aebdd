package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to manage background ingestion.
//
//	scheduler := NewScheduler(configCache, sourceRepo, postRepo, httpClient, parser, filterer, extractor, counters.TaskRuns)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.ReloadSource("news")
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	ReloadSource(name string) error
}
