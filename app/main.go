package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ilyakom/newsriver/app/api"
	"github.com/ilyakom/newsriver/app/cfg"
	"github.com/ilyakom/newsriver/app/cluster"
	"github.com/ilyakom/newsriver/app/database"
	"github.com/ilyakom/newsriver/app/enrich"
	"github.com/ilyakom/newsriver/app/fetch"
	"github.com/ilyakom/newsriver/app/gencache"
	"github.com/ilyakom/newsriver/app/ingest"
	"github.com/ilyakom/newsriver/app/llm"
	"github.com/ilyakom/newsriver/app/sources"
	"github.com/ilyakom/newsriver/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was requested
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting News River server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBHost, appCfg.DBPort, appCfg.DBUser, appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", version, "dirty", dirty)

	sourceRepo := database.NewSourceRepository(db)
	articleRepo := database.NewArticleRepository(db)
	clusterRepo := database.NewClusterRepository(db)
	cacheRepo := database.NewCacheRepository(db)

	catalog := sources.NewCatalog(appCfg.SourcesDir, appCfg.DefaultFrequency)
	if err := catalog.Load(); err != nil {
		slog.Error("Failed to load source definitions", "error", err)
		os.Exit(1)
	}
	slog.Info("Source definitions loaded", "count", catalog.Count(), "dir", appCfg.SourcesDir)

	fetchTimeout := time.Duration(appCfg.FetchTimeout) * time.Second
	httpClient := &http.Client{Timeout: fetchTimeout + 5*time.Second}
	fetcher := fetch.NewFetcher(httpClient, appCfg.UserAgent, fetchTimeout, appCfg.MaxItemsPerSource)

	assigner := cluster.NewAssigner(articleRepo, clusterRepo,
		time.Duration(appCfg.ClusterWindowHours)*time.Hour, appCfg.HammingThreshold)
	if err := assigner.Seed(context.Background()); err != nil {
		slog.Error("Failed to seed cluster window", "error", err)
		os.Exit(1)
	}

	dispatcher := enrich.NewDispatcher(256)
	dispatcher.Start()
	defer dispatcher.Stop()

	pipeline := ingest.NewPipeline(articleRepo, assigner, dispatcher)

	scheduler := tasks.NewScheduler(catalog, sourceRepo, fetcher, pipeline)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval)

	var sharedCache *gencache.SharedCache
	if appCfg.RedisAddr != "" {
		sharedCache, err = gencache.NewSharedCache(appCfg.RedisAddr, 24*time.Hour)
		if err != nil {
			// The database remains the source of truth; run without Redis.
			slog.Warn("Shared cache unavailable, continuing without it", "error", err)
			sharedCache = nil
		} else {
			defer sharedCache.Close()
		}
	}
	genCache := gencache.NewCache(cacheRepo, sharedCache)

	generator := llm.NewClient(appCfg.OllamaBaseURL, appCfg.OllamaModel,
		time.Duration(appCfg.GenerationTimeout)*time.Second)

	handler := api.NewHandler(sourceRepo, articleRepo, clusterRepo, cacheRepo,
		catalog, genCache, generator, scheduler)
	server := api.NewServer(handler, appCfg.APIAccessKey, appCfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler and dispatcher are stopped via defer
	slog.Info("Shutdown complete")
}
