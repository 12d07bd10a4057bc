package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/talent-pipeline-api/api/swagger"
	"github.com/noah-isme/talent-pipeline-api/internal/handler"
	"github.com/noah-isme/talent-pipeline-api/internal/middleware"
	"github.com/noah-isme/talent-pipeline-api/internal/models"
	"github.com/noah-isme/talent-pipeline-api/internal/repository"
	"github.com/noah-isme/talent-pipeline-api/internal/service"
	"github.com/noah-isme/talent-pipeline-api/pkg/cache"
	"github.com/noah-isme/talent-pipeline-api/pkg/config"
	"github.com/noah-isme/talent-pipeline-api/pkg/database"
	"github.com/noah-isme/talent-pipeline-api/pkg/jobs"
	"github.com/noah-isme/talent-pipeline-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/talent-pipeline-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/talent-pipeline-api/pkg/middleware/requestid"
	"github.com/noah-isme/talent-pipeline-api/pkg/storage"
)

// @title Talent Pipeline API
// @version 1.0.0
// @description Onboarding portal backend: users, onboarding lifecycle, approvals, documents and analytics
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	blobs, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	validate := validator.New()
	metricsService := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	onboardingRepo := repository.NewOnboardingRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Analytics.CacheTTL, logr, redisClient != nil)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "talent-pipeline-api",
	})
	identityService := service.NewIdentityService(userRepo, logr)
	userService := service.NewUserService(userRepo, validate, logr)
	onboardingService := service.NewOnboardingService(onboardingRepo, cacheService, validate, logr)
	approvalService := service.NewApprovalService(onboardingRepo, cacheService, validate, logr)
	documentService := service.NewDocumentService(documentRepo, blobs, signer, userRepo, metricsService, validate, logr, service.DocumentConfig{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
		OrphanMinAge:     cfg.Uploads.OrphanSweep.MinAge,
	})
	analyticsService := service.NewAnalyticsService(onboardingRepo, cacheService, logr, cfg.Analytics, cfg.Dashboard)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	onboardingHandler := handler.NewOnboardingHandler(onboardingService)
	approvalHandler := handler.NewApprovalHandler(approvalService)
	documentHandler := handler.NewDocumentHandler(documentService, onboardingService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, metricsService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweepQueue := jobs.NewQueue("orphan-sweep", func(jobCtx context.Context, _ jobs.Job) error {
		_, err := documentService.SweepOrphans(jobCtx)
		return err
	}, jobs.QueueConfig{Workers: 1, Logger: logr})

	if cfg.Uploads.OrphanSweep.Enabled {
		sweepQueue.Start(ctx)
		defer sweepQueue.Stop()
		go func() {
			ticker := time.NewTicker(cfg.Uploads.OrphanSweep.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := sweepQueue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "sweep"}); err != nil {
						logr.Sugar().Warnw("failed to enqueue orphan sweep", "error", err)
					}
				}
			}
		}()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authRequired := middleware.JWT(authService, identityService)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	managersUp := middleware.RequireRoles(models.RoleAdmin, models.RoleManager)
	allRoles := middleware.RequireRoles(models.RoleAdmin, models.RoleManager, models.RoleEmployee)

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.SignUp)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authRequired, authHandler.Logout)
			auth.POST("/change-password", authRequired, authHandler.ChangePassword)
			auth.GET("/me", authRequired, authHandler.Me)
		}

		api.GET("/navigation", authRequired, authHandler.Navigation)
		api.GET("/dashboard", authRequired, allRoles, analyticsHandler.Dashboard)

		users := api.Group("/users", authRequired)
		{
			users.GET("", adminOnly, userHandler.List)
			users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Get)
			users.PUT("/:id", adminOnly, userHandler.Update)
			users.DELETE("/:id", adminOnly, userHandler.Delete)
		}

		onboarding := api.Group("/onboarding", authRequired, managersUp)
		{
			onboarding.POST("", middleware.Audit(userRepo, models.AuditActionOnboardingNew, "onboarding"), onboardingHandler.Create)
			onboarding.GET("", onboardingHandler.List)
			onboarding.GET("/:id", onboardingHandler.Get)
			onboarding.PUT("/:id/step", onboardingHandler.AdvanceStep)
		}

		approvals := api.Group("/approvals", authRequired, managersUp)
		{
			approvals.GET("", approvalHandler.Queue)
			approvals.POST("/decide", middleware.Audit(userRepo, models.AuditActionApprovalDecide, "approvals"), approvalHandler.Decide)
		}

		documents := api.Group("/documents")
		{
			documents.GET("/download", documentHandler.Download)

			authed := documents.Group("", authRequired, allRoles)
			authed.POST("", documentHandler.Upload)
			authed.GET("", documentHandler.List)
			authed.GET("/:id", documentHandler.Get)
			authed.GET("/:id/url", documentHandler.SignedURL)
			authed.DELETE("/:id", documentHandler.Delete)
			authed.PUT("/:id/review", managersUp, documentHandler.Review)
		}

		analytics := api.Group("/analytics", authRequired, managersUp)
		{
			analytics.GET("/report", analyticsHandler.Report)
			analytics.GET("/export/csv", analyticsHandler.ExportCSV)
			analytics.GET("/export/pdf", analyticsHandler.ExportPDF)
			analytics.GET("/system", adminOnly, analyticsHandler.System)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
