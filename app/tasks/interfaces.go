package tasks

import "context"

// TaskSchedulerInterface defines the interface for background task scheduling.
// Used by the main application and the API layer to manage source processing.
// Example usage:
//
//	scheduler := NewScheduler(catalog, sourceRepo, fetcher, pipeline)
//	scheduler.Start()
//	defer scheduler.Stop()
//	count, _ := scheduler.RefreshAll(ctx)
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	// RefreshAll enqueues a fetch for every active source not already being
	// processed and reports how many were enqueued.
	RefreshAll(ctx context.Context) (int, error)
}
