package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/handler"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, timetable caching disabled", "error", err)
		redisClient = nil
	}

	jobRepo := repository.NewSchedulingJobRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	dataRepo := repository.NewSchedulerDataRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	engineDefaults := scheduler.DefaultConfig()
	if cfg.Scheduler.Algorithm != "" {
		engineDefaults.Algorithm = scheduler.Algorithm(cfg.Scheduler.Algorithm)
	}
	if cfg.Scheduler.MaxIterations > 0 {
		engineDefaults.MaxIterations = cfg.Scheduler.MaxIterations
	}
	if cfg.Scheduler.TimeoutSeconds > 0 {
		engineDefaults.TimeoutSeconds = cfg.Scheduler.TimeoutSeconds
	}
	if cfg.Scheduler.MinQualityScore > 0 {
		engineDefaults.MinQualityScore = cfg.Scheduler.MinQualityScore
	}
	engineDefaults.AllowPartial = cfg.Scheduler.AllowPartial

	worker := service.NewSchedulingWorker(jobRepo, dataRepo, timetableRepo, cacheRepo, metrics, engineDefaults, logr)
	queue := jobs.NewQueue("scheduling", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Scheduler.WorkerConcurrency,
		MaxRetries: cfg.Scheduler.WorkerRetries,
		Logger:     logr,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()

	timetableSvc := service.NewTimetableService(jobRepo, timetableRepo, cacheRepo, queue, metrics, nil, logr, cfg.Timetable.CacheTTL)
	exportSvc := service.NewExportService(timetableRepo, dataRepo, logr)
	timetableSvc.RecoverPendingJobs(ctx)

	timetableHandler := handler.NewTimetableHandler(timetableSvc, exportSvc)
	configHandler := handler.NewSchedulerConfigHandler(engineDefaults)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/timetable/generate", timetableHandler.Generate)
		api.GET("/timetable/jobs/:id", timetableHandler.JobStatus)
		api.GET("/timetable", timetableHandler.List)
		api.GET("/timetable/export", timetableHandler.Export)
		api.GET("/timetable/config", configHandler.Get)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
