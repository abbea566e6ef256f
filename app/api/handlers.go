package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ilyakom/newsriver/app/database"
	"github.com/ilyakom/newsriver/app/gencache"
	"github.com/ilyakom/newsriver/app/sources"
	"github.com/ilyakom/newsriver/app/tasks"
)

func NewHandler(sourceRepo database.SourceRepository, articleRepo database.ArticleRepository,
	clusterRepo database.ClusterRepository, cacheRepo database.CacheRepository,
	catalog *sources.Catalog, cache *gencache.Cache, generator GeneratorInterface,
	scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		sourceRepo:  sourceRepo,
		articleRepo: articleRepo,
		clusterRepo: clusterRepo,
		cacheRepo:   cacheRepo,
		catalog:     catalog,
		cache:       cache,
		generator:   generator,
		scheduler:   scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()

	health := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(ctx); err == nil {
		health["sources"] = sourceCount
	}

	health["loaded_definitions"] = h.catalog.Count()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	stats := map[string]interface{}{}

	if count, err := h.sourceRepo.GetSourceCount(ctx); err == nil {
		stats["sources"] = count
	}
	if count, err := h.sourceRepo.GetActiveSourceCount(ctx); err == nil {
		stats["active_sources"] = count
	}
	if count, err := h.articleRepo.GetArticleCount(ctx); err == nil {
		stats["articles"] = count
	}
	if count, err := h.clusterRepo.GetClusterCount(ctx); err == nil {
		stats["clusters"] = count
	}
	if count, err := h.cacheRepo.GetEntryCount(ctx); err == nil {
		stats["cached_generations"] = count
	}

	c.JSON(http.StatusOK, stats)
}

// Collect triggers an immediate fetch of every active source, bypassing the
// per-source cadence once. Sources already being fetched are skipped.
func (h *Handler) Collect(c *gin.Context) {
	enqueued, err := h.scheduler.RefreshAll(c.Request.Context())
	if err != nil {
		slog.Error("Refresh-all failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue sources"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"enqueued": enqueued})
}

func (h *Handler) Synthesize(c *gin.Context) {
	var req synthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "operation is required"})
		return
	}

	model := req.Model
	if model == "" {
		model = h.generator.Model()
	}

	response, cached, err := h.cache.GetOrCompute(c.Request.Context(), req.Operation, model, req.Params,
		func(ctx context.Context) (string, error) {
			return h.generator.Generate(ctx, model, buildPrompt(req.Operation, req.Params))
		})
	if err != nil {
		slog.Error("Generation failed", "operation", req.Operation, "model", model, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"operation": req.Operation,
		"model":     model,
		"response":  response,
		"cached":    cached,
	})
}

func (h *Handler) ListClusters(c *gin.Context) {
	ctx := c.Request.Context()

	hours := queryInt(c, "hours", 48)
	limit := queryInt(c, "limit", 50)
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	clusters, err := h.clusterRepo.ListRecentClusters(ctx, since, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_clusters", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	out := make([]map[string]interface{}, 0, len(clusters))
	for _, cluster := range clusters {
		out = append(out, map[string]interface{}{
			"id":            cluster.ID,
			"member_count":  cluster.MemberCount,
			"first_seen_at": cluster.FirstSeenAt,
			"last_seen_at":  cluster.LastSeenAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"clusters": out, "count": len(out)})
}

func (h *Handler) GetClusterArticles(c *gin.Context) {
	ctx := c.Request.Context()

	clusterID := c.Param("id")
	if clusterID == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	cluster, err := h.clusterRepo.GetCluster(ctx, clusterID)
	if err != nil {
		slog.Error("Database error", "operation", "get_cluster", "cluster_id", clusterID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if cluster == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cluster not found"})
		return
	}

	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	articles, err := h.articleRepo.GetArticlesByCluster(ctx, clusterID, limit, offset)
	if err != nil {
		slog.Error("Database error", "operation", "get_cluster_articles", "cluster_id", clusterID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	out := make([]map[string]interface{}, 0, len(articles))
	for _, a := range articles {
		out = append(out, map[string]interface{}{
			"id":            a.ID,
			"title":         a.Title,
			"canonical_url": a.CanonicalURL,
			"domain":        a.Domain,
			"published_at":  a.PublishedAt,
			"status":        a.Status,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"cluster": map[string]interface{}{
			"id":            cluster.ID,
			"member_count":  cluster.MemberCount,
			"first_seen_at": cluster.FirstSeenAt,
			"last_seen_at":  cluster.LastSeenAt,
		},
		"articles": out,
	})
}

// buildPrompt renders the generation prompt for an operation from its
// parameters. Unknown operations fall back to a generic instruction carrying
// the raw parameters.
func buildPrompt(operation string, params map[string]any) string {
	switch operation {
	case "synthesis":
		topic, _ := params["topic"].(string)
		hours := paramInt(params, "hours", 24)
		if topic != "" {
			return fmt.Sprintf("Write a concise news synthesis about %q covering the last %d hours. Focus on what changed and why it matters.", topic, hours)
		}
		return fmt.Sprintf("Write a concise synthesis of the most significant news of the last %d hours.", hours)
	case "summary":
		text, _ := params["text"].(string)
		return "Summarize the following article in three sentences:\n\n" + text
	default:
		raw, _ := json.Marshal(params)
		return fmt.Sprintf("Perform the %q operation with these parameters: %s", operation, raw)
	}
}

func paramInt(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
