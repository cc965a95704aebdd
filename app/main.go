package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/press-comb/app/api"
	"github.com/lysyi3m/press-comb/app/cfg"
	"github.com/lysyi3m/press-comb/app/content"
	"github.com/lysyi3m/press-comb/app/database"
	"github.com/lysyi3m/press-comb/app/logger"
	"github.com/lysyi3m/press-comb/app/menu"
	"github.com/lysyi3m/press-comb/app/metric"
	"github.com/lysyi3m/press-comb/app/sources"
	"github.com/lysyi3m/press-comb/app/tasks"
)

const shutdownTimeout = 30 * time.Second

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		return
	}

	logger.Setup("press-comb", appCfg.Version, appCfg.LogLevel, appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting Press Comb", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	menuRepo := database.NewMenuRepository(db)
	seed, err := database.LoadMenuSeed(appCfg.MenusFile)
	if err != nil {
		return fmt.Errorf("failed to load menus: %w", err)
	}
	if seed != nil {
		if err := menuRepo.Seed(context.Background(), seed); err != nil {
			return fmt.Errorf("failed to seed menus: %w", err)
		}
	}

	configCache := sources.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load source configurations: %w", err)
	}
	slog.Info("Source configurations loaded", "count", configCache.GetConfigCount(), "dir", appCfg.SourcesDir)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	counters := metric.NewSet(reg)

	sourceRepo := database.NewSourceRepository(db)
	postRepo := database.NewPostRepository(db, appCfg.BaseUrl)
	metaRepo := database.NewMetaRepository(db)
	fieldRepo := database.NewFieldRepository(db)

	aggregator := content.NewAggregator(content.Deps{
		Posts:            postRepo,
		Meta:             metaRepo,
		Fields:           fieldRepo,
		Permalinks:       postRepo,
		Fetches:          counters.ContentFetches,
		MaxRelationDepth: appCfg.RelationMaxDepth,
	})

	menuBuilder := menu.NewBuilder(menuRepo, menuRepo,
		menu.WithMaxDepth(appCfg.MenuMaxDepth),
		menu.WithCounter(counters.MenuBuilds))

	httpClient := &http.Client{Timeout: 60 * time.Second}
	scheduler := tasks.NewScheduler(configCache, sourceRepo, postRepo, httpClient,
		sources.NewParser(), sources.NewFilterer(), sources.NewContentExtractor(), counters.TaskRuns)

	if !appCfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := api.NewHandler(aggregator, menuBuilder, configCache, sourceRepo, postRepo, scheduler,
		metric.GetHandlerForRegistry(reg))

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Scheduler started", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		slog.Info("Shutting down server gracefully", "grace_period", shutdownTimeout)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("Press Comb shutdown complete")
	return nil
}
