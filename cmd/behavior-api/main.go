package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ash-tracker/behavior-api/api/swagger"
	"github.com/ash-tracker/behavior-api/internal/handler"
	internalmiddleware "github.com/ash-tracker/behavior-api/internal/middleware"
	"github.com/ash-tracker/behavior-api/internal/pseudonym"
	"github.com/ash-tracker/behavior-api/internal/repository"
	"github.com/ash-tracker/behavior-api/internal/service"
	"github.com/ash-tracker/behavior-api/pkg/cache"
	"github.com/ash-tracker/behavior-api/pkg/config"
	"github.com/ash-tracker/behavior-api/pkg/database"
	"github.com/ash-tracker/behavior-api/pkg/logger"
	corsmiddleware "github.com/ash-tracker/behavior-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ash-tracker/behavior-api/pkg/middleware/requestid"
	"github.com/ash-tracker/behavior-api/pkg/storage"
)

// @title Ash Behavior Tracker API
// @version 1.0.0
// @description Privacy-first ABC behavior tracking for caregivers
// @BasePath /api/v1
// @schemes http

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
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Insights.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, insights cache disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Insights.CacheTTL, logr, true)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	childRepo := repository.NewChildRepository(db)
	incidentRepo := repository.NewIncidentRepository(db)
	templateRepo := repository.NewTemplateRepository(db)

	validate := validator.New()
	names := pseudonym.NewGenerator()

	childSvc := service.NewChildService(childRepo, names, validate, logr)
	incidentSvc := service.NewIncidentService(incidentRepo, childRepo, cacheSvc, validate, logr)
	insightsSvc := service.NewInsightsService(incidentRepo, childRepo, cacheSvc, metrics, cfg.Insights.CacheTTL, logr)
	exportSvc := service.NewExportService(childRepo, incidentRepo, store, signer, metrics, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr)
	templateSvc := service.NewTemplateService(templateRepo, logr)

	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := templateSvc.EnsureSeeded(seedCtx); err != nil {
		logr.Sugar().Warnw("behavior template seeding failed", "error", err)
	}
	cancel()

	if removed, err := exportSvc.Cleanup(0); err != nil {
		logr.Sugar().Warnw("stale export cleanup failed", "error", err)
	} else if len(removed) > 0 {
		logr.Sugar().Infow("removed stale exports", "count", len(removed))
	}

	childHandler := handler.NewChildHandler(childSvc)
	incidentHandler := handler.NewIncidentHandler(incidentSvc)
	insightsHandler := handler.NewInsightsHandler(insightsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	templateHandler := handler.NewTemplateHandler(templateSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/children", childHandler.List)
		api.POST("/children", childHandler.Create)
		api.GET("/children/:id", childHandler.Get)
		api.PUT("/children/:id", childHandler.Update)
		api.POST("/children/:id/archive", childHandler.Archive)
		api.POST("/children/:id/unarchive", childHandler.Unarchive)

		api.GET("/children/:id/insights", insightsHandler.Get)
		api.GET("/children/:id/export/summary", exportHandler.Summary)
		api.POST("/children/:id/exports", exportHandler.Create)
		api.GET("/exports/:token", exportHandler.Download)

		api.GET("/incidents", incidentHandler.List)
		api.POST("/incidents", incidentHandler.Create)
		api.GET("/incidents/:id", incidentHandler.Get)
		api.PUT("/incidents/:id", incidentHandler.Update)
		api.DELETE("/incidents/:id", incidentHandler.Delete)

		api.GET("/templates", templateHandler.List)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
