package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ilyakom/newsriver/app/cfg"
	"github.com/ilyakom/newsriver/app/database"
	"github.com/ilyakom/newsriver/app/fetch"
	"github.com/ilyakom/newsriver/app/ingest"
	"github.com/ilyakom/newsriver/app/sources"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	catalog          *sources.Catalog
	sourceRepo       database.SourceRepository
	fetcher          *fetch.Fetcher
	pipeline         *ingest.Pipeline
	interval         time.Duration
	workerCount      int
	defaultFrequency int
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface

	// inflight holds the names of sources with a fetch task queued or
	// running. A source is never fetched by two workers at once.
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewScheduler(catalog *sources.Catalog, sourceRepo database.SourceRepository,
	fetcher *fetch.Fetcher, pipeline *ingest.Pipeline) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		catalog:          catalog,
		sourceRepo:       sourceRepo,
		fetcher:          fetcher,
		pipeline:         pipeline,
		interval:         time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:      cfg.WorkerCount,
		defaultFrequency: cfg.DefaultFrequency,
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, 300),
		inflight:         make(map[string]struct{}),
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
				s.enqueueDueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
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

// RefreshAll enqueues a fetch for every active source regardless of its
// schedule. Sources already in flight are skipped, not re-queued.
func (s *Scheduler) RefreshAll(ctx context.Context) (int, error) {
	activeSources, err := s.sourceRepo.GetActiveSources(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get active sources: %w", err)
	}

	enqueued := 0
	for _, source := range activeSources {
		if !s.acquire(source.Name) {
			slog.Debug("Source already in flight, skipping", "source", source.Name)
			continue
		}

		task := s.newProcessSourceTask(source.Name)
		if err := s.EnqueueTask(task); err != nil {
			s.release(source.Name)
			slog.Warn("Failed to enqueue ProcessSourceTask", "source", source.Name, "error", err)
			continue
		}
		enqueued++
	}

	slog.Info("Refresh requested", "active", len(activeSources), "enqueued", enqueued)

	return enqueued, nil
}

func (s *Scheduler) enqueueStartupTasks() {
	defs := s.catalog.All()
	if len(defs) == 0 {
		slog.Debug("No source definitions found")
		return
	}

	slog.Debug("Processing source definitions", "count", len(defs))

	for _, def := range defs {
		syncTask := NewSyncSourceTask(def, s.sourceRepo)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncSourceTask", "source", def.Name, "error", err)
			continue
		}

		if !def.Active {
			slog.Debug("Source inactive, skipping ProcessSourceTask", "source", def.Name)
			continue
		}

		s.tryEnqueueProcess(def.Name)
	}
}

func (s *Scheduler) enqueueDueTasks() {
	dueSources, err := s.sourceRepo.GetSourcesDueForFetch(s.ctx, 100)
	if err != nil {
		slog.Warn("Failed to get sources due for fetch", "error", err)
		return
	}
	if len(dueSources) == 0 {
		return
	}

	slog.Debug("Scheduling due sources", "count", len(dueSources))

	for _, source := range dueSources {
		s.tryEnqueueProcess(source.Name)
	}
}

func (s *Scheduler) tryEnqueueProcess(sourceName string) {
	if !s.acquire(sourceName) {
		slog.Debug("Source already in flight, skipping", "source", sourceName)
		return
	}

	task := s.newProcessSourceTask(sourceName)
	if err := s.EnqueueTask(task); err != nil {
		s.release(sourceName)
		slog.Warn("Failed to enqueue ProcessSourceTask", "source", sourceName, "error", err)
	}
}

func (s *Scheduler) newProcessSourceTask(sourceName string) *ProcessSourceTask {
	return NewProcessSourceTask(sourceName, s.sourceRepo, s.fetcher, s.pipeline, s.defaultFrequency)
}

func (s *Scheduler) acquire(sourceName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.inflight[sourceName]; held {
		return false
	}
	s.inflight[sourceName] = struct{}{}
	return true
}

func (s *Scheduler) release(sourceName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, sourceName)
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
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
		s.releaseIfProcess(task)
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if task.CanRetry() {
		task.IncrementRetryCount()
		retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
		if retryDelay > 30*time.Second {
			retryDelay = 30 * time.Second
		}

		slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

		// The in-flight hold survives across retries so the ticker cannot
		// slip a second fetch in between attempts.
		go func() {
			time.Sleep(retryDelay)
			select {
			case <-s.ctx.Done():
				slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
				return
			default:
				if retryErr := s.EnqueueTask(task); retryErr != nil {
					s.releaseIfProcess(task)
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				}
			}
		}()
		return
	}

	s.releaseIfProcess(task)
	slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
}

func (s *Scheduler) releaseIfProcess(task TaskInterface) {
	if task.GetType() == TaskTypeProcessSource {
		s.release(task.GetSourceName())
	}
}
