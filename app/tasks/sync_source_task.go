package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ilyakom/newsriver/app/database"
	"github.com/ilyakom/newsriver/app/sources"
)

type SyncSourceTask struct {
	Task
	Definition *sources.Definition
	sourceRepo database.SourceRepository
}

func NewSyncSourceTask(def *sources.Definition, sourceRepo database.SourceRepository) *SyncSourceTask {
	return &SyncSourceTask{
		Task:       NewTask(TaskTypeSyncSource, def.Name),
		Definition: def,
		sourceRepo: sourceRepo,
	}
}

func (t *SyncSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	_, err := t.sourceRepo.UpsertSource(ctx,
		t.Definition.Name,
		t.Definition.URL,
		t.Definition.SiteDomain,
		t.Definition.Method,
		t.Definition.FrequencyMinutes,
		t.Definition.Active)
	if err != nil {
		slog.Error("Task failed", "type", "SyncSource", "source", t.SourceName, "error", err)
		return fmt.Errorf("failed to sync source definition to database: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncSource",
		"source", t.SourceName,
		"duration", t.GetDuration())

	return nil
}
