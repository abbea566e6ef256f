package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ilyakom/newsriver/app/database"
	"github.com/ilyakom/newsriver/app/fetch"
	"github.com/ilyakom/newsriver/app/ingest"
	"github.com/ilyakom/newsriver/app/sources"
)

type ProcessSourceTask struct {
	Task
	sourceRepo       database.SourceRepository
	fetcher          *fetch.Fetcher
	pipeline         *ingest.Pipeline
	defaultFrequency int
}

func NewProcessSourceTask(sourceName string, sourceRepo database.SourceRepository, fetcher *fetch.Fetcher, pipeline *ingest.Pipeline, defaultFrequency int) *ProcessSourceTask {
	return &ProcessSourceTask{
		Task:             NewTask(TaskTypeProcessSource, sourceName),
		sourceRepo:       sourceRepo,
		fetcher:          fetcher,
		pipeline:         pipeline,
		defaultFrequency: defaultFrequency,
	}
}

func (t *ProcessSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	source, err := t.sourceRepo.GetSource(ctx, t.SourceName)
	if err != nil {
		return fmt.Errorf("failed to get source: %w", err)
	}
	if source == nil {
		// Sync task has not landed yet; a retry picks the source up.
		return fmt.Errorf("source %q not found in database", t.SourceName)
	}

	if !source.Active {
		slog.Debug("Source inactive, skipping", "source", t.SourceName)
		return nil
	}

	result := t.fetchSource(ctx, *source)

	if result.Status == fetch.StatusNotModified {
		if err := t.updateFetchState(ctx, source, source.ETag, source.LastModified); err != nil {
			return err
		}
		slog.Info("Task completed",
			"type", "ProcessSource",
			"source", t.SourceName,
			"duration", t.GetDuration(),
			"status", "not_modified")
		return nil
	}

	if result.Status == fetch.StatusFailed {
		// Advance the schedule anyway so a dead source cannot pin itself to
		// the front of every cycle.
		if err := t.updateFetchState(ctx, source, source.ETag, source.LastModified); err != nil {
			return err
		}
		slog.Error("Source fetch failed", "source", t.SourceName, "fallback_used", result.FallbackUsed, "error", result.Err)
		return nil
	}

	report, err := t.pipeline.Run(ctx, *source, result.Items)
	if err != nil {
		return fmt.Errorf("failed to ingest items: %w", err)
	}

	etag, lastModified := result.ETag, result.LastModified
	if result.FallbackUsed {
		// Sitemaps carry no conditional-fetch tokens; keep the feed's.
		etag, lastModified = source.ETag, source.LastModified
	}
	if err := t.updateFetchState(ctx, source, etag, lastModified); err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "ProcessSource",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"total", len(result.Items),
		"new", report.Inserted,
		"duplicates", report.Duplicates,
		"invalid", report.Invalid,
		"failed", report.Failed,
		"fallback_used", result.FallbackUsed)

	return nil
}

// fetchSource runs the source's primary path, falling back to the sitemap
// when a feed source fails or yields nothing.
func (t *ProcessSourceTask) fetchSource(ctx context.Context, source database.Source) fetch.Result {
	if source.Method == sources.MethodSitemap {
		return t.fetcher.FetchSitemap(ctx, source)
	}

	result := t.fetcher.FetchFeed(ctx, source)
	if result.Status == fetch.StatusNotModified {
		return result
	}

	if result.Status == fetch.StatusFailed || len(result.Items) == 0 {
		if source.SiteDomain == "" {
			return result
		}
		slog.Warn("Feed fetch yielded nothing, trying sitemap fallback", "source", source.Name, "error", result.Err)
		return t.fetcher.FetchSitemap(ctx, source)
	}

	return result
}

func (t *ProcessSourceTask) updateFetchState(ctx context.Context, source *database.Source, etag, lastModified string) error {
	frequency := source.FrequencyMinutes
	if frequency <= 0 {
		frequency = t.defaultFrequency
	}

	now := time.Now().UTC()
	nextFetch := now.Add(time.Duration(frequency) * time.Minute)

	if err := t.sourceRepo.UpdateFetchState(ctx, source.ID, etag, lastModified, now, nextFetch); err != nil {
		return fmt.Errorf("failed to update fetch state: %w", err)
	}

	return nil
}
