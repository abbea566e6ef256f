package api

import (
	"context"

	"github.com/ilyakom/newsriver/app/database"
	"github.com/ilyakom/newsriver/app/gencache"
	"github.com/ilyakom/newsriver/app/llm"
	"github.com/ilyakom/newsriver/app/sources"
	"github.com/ilyakom/newsriver/app/tasks"
)

type GeneratorInterface interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
	Model() string
}

var _ GeneratorInterface = (*llm.Client)(nil)

type Handler struct {
	sourceRepo  database.SourceRepository
	articleRepo database.ArticleRepository
	clusterRepo database.ClusterRepository
	cacheRepo   database.CacheRepository
	catalog     *sources.Catalog
	cache       *gencache.Cache
	generator   GeneratorInterface
	scheduler   tasks.TaskSchedulerInterface
}

type synthesizeRequest struct {
	Operation string         `json:"operation" binding:"required"`
	Model     string         `json:"model"`
	Params    map[string]any `json:"params"`
}
