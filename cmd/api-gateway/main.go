package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/brgy-docs-api/api/swagger"
	"github.com/noah-isme/brgy-docs-api/internal/handler"
	"github.com/noah-isme/brgy-docs-api/internal/middleware"
	"github.com/noah-isme/brgy-docs-api/internal/models"
	"github.com/noah-isme/brgy-docs-api/internal/repository"
	"github.com/noah-isme/brgy-docs-api/internal/service"
	"github.com/noah-isme/brgy-docs-api/pkg/cache"
	"github.com/noah-isme/brgy-docs-api/pkg/config"
	"github.com/noah-isme/brgy-docs-api/pkg/database"
	"github.com/noah-isme/brgy-docs-api/pkg/export"
	"github.com/noah-isme/brgy-docs-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/brgy-docs-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/brgy-docs-api/pkg/middleware/requestid"
	"github.com/noah-isme/brgy-docs-api/pkg/storage"
)

// @title Barangay Document Request API
// @version 1.0.0
// @description Multi-tenant document request, payment, and release workflow for barangay halls
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
	sugar := logr.Sugar()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	proofStore, err := storage.NewLocalStorage(cfg.Payments.StorageDir)
	if err != nil {
		sugar.Fatalw("failed to init proof storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Payments.SignedURLSecret, cfg.Payments.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	barangayRepo := repository.NewBarangayRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	audit := service.NewAuditRecorder(userRepo, service.AuditRecorderConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
	}, logr)
	audit.Start(ctx)
	defer audit.Stop()

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validator.New(), logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "brgy-docs-api",
	})
	barangaySvc := service.NewBarangayService(barangayRepo, cacheRepo, audit, cfg.Pricing.CacheTTL, logr)
	requestSvc := service.NewRequestService(requestRepo, barangaySvc, audit, metricsSvc, logr)
	notificationSvc := service.NewNotificationService(requestRepo)
	receiptSvc := service.NewReceiptService(requestRepo, barangaySvc, export.NewReceiptRenderer())
	paymentSvc := service.NewPaymentService(requestRepo, proofStore, signer, audit, metricsSvc,
		cfg.Payments.MaxProofBytes, cfg.Payments.AllowedMIMEs, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	requestHandler := handler.NewRequestHandler(requestSvc, receiptSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, cfg.Payments.MaxProofBytes)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	barangayHandler := handler.NewBarangayHandler(barangaySvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(reqidmiddleware.Middleware())
	router.Use(logger.GinMiddleware(logr))
	router.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	router.Use(middleware.Metrics(metricsSvc))

	router.GET("/health", metricsHandler.Health)
	router.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := router.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	authSecured := auth.Group("", middleware.JWT(authSvc))
	authSecured.POST("/logout", authHandler.Logout)
	authSecured.POST("/change-password", authHandler.ChangePassword)

	// Proof downloads authenticate through the signed token itself.
	api.GET("/payments/proof/download", paymentHandler.DownloadProof)

	secured := api.Group("", middleware.JWT(authSvc))

	requests := secured.Group("/requests")
	requests.POST("", middleware.RequireRoles(models.RoleResident), requestHandler.Create)
	requests.GET("", requestHandler.List)
	requests.GET("/:id", requestHandler.Get)
	requests.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleCaptain), requestHandler.Delete)
	requests.POST("/:id/approve", middleware.RequireStaff(), requestHandler.Transition(models.EventApprove))
	requests.POST("/:id/reject", middleware.RequireStaff(), requestHandler.Transition(models.EventReject))
	requests.POST("/:id/submit-payment", middleware.RequireRoles(models.RoleResident), requestHandler.Transition(models.EventSubmitPayment))
	requests.POST("/:id/verify-payment", middleware.RequireStaff(), requestHandler.Transition(models.EventVerifyPayment))
	requests.POST("/:id/reject-payment", middleware.RequireStaff(), requestHandler.Transition(models.EventRejectPayment))
	requests.POST("/:id/ready", middleware.RequireStaff(), requestHandler.Transition(models.EventMarkReady))
	requests.POST("/:id/release", middleware.RequireStaff(), requestHandler.Transition(models.EventRelease))
	requests.GET("/:id/proof", paymentHandler.ProofLink)
	requests.GET("/:id/receipt", requestHandler.Receipt)
	requests.GET("/:id/receipt/pdf", requestHandler.ReceiptPDF)

	secured.POST("/payments/proof", middleware.RequireRoles(models.RoleResident), paymentHandler.UploadProof)
	secured.GET("/notifications", middleware.RequireRoles(models.RoleResident), notificationHandler.Feed)

	barangays := secured.Group("/barangays")
	barangays.GET("", middleware.RequireRoles(models.RoleSuperAdmin), barangayHandler.List)
	barangays.POST("", middleware.RequireRoles(models.RoleSuperAdmin), barangayHandler.Create)
	barangays.GET("/:id", barangayHandler.Get)
	barangays.GET("/:id/pricing", barangayHandler.Pricing)
	barangays.PUT("/:id/pricing", middleware.RequireRoles(models.RoleAdmin, models.RoleCaptain), barangayHandler.UpdatePricing)
	barangays.PATCH("/:id/active", middleware.RequireRoles(models.RoleSuperAdmin), barangayHandler.SetActive)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("graceful shutdown failed", "error", err)
	}
}
