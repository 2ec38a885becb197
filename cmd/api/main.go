package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/fisiohome/fisiohome-api/api/swagger"
	"github.com/fisiohome/fisiohome-api/internal/handler"
	"github.com/fisiohome/fisiohome-api/internal/middleware"
	"github.com/fisiohome/fisiohome-api/internal/models"
	"github.com/fisiohome/fisiohome-api/internal/repository"
	"github.com/fisiohome/fisiohome-api/internal/service"
	"github.com/fisiohome/fisiohome-api/pkg/cache"
	"github.com/fisiohome/fisiohome-api/pkg/config"
	"github.com/fisiohome/fisiohome-api/pkg/database"
	"github.com/fisiohome/fisiohome-api/pkg/logger"
	"github.com/fisiohome/fisiohome-api/pkg/middleware/cors"
	"github.com/fisiohome/fisiohome-api/pkg/middleware/requestid"
)

// @title Fisiohome API
// @version 1.0
// @description Booking backend for home physiotherapy visits.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	// Redis is optional; caching degrades to passthrough without it.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	therapistRepo := repository.NewTherapistRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db, cfg.Booking.MaxListLimit)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, log)

	metricsService := service.NewMetricsService()

	var cacheService *service.CacheService
	if redisClient != nil {
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Dashboard.CacheTTL, log)
	} else {
		cacheService = service.NewCacheService(nil, metricsService, cfg.Dashboard.CacheTTL, log)
	}

	authService := service.NewAuthService(userRepo, auditRepo, validate, log, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	therapistService := service.NewTherapistService(therapistRepo, userRepo, validate, log)
	availabilityService := service.NewAvailabilityService(availabilityRepo, appointmentRepo, validate, log)
	appointmentService := service.NewAppointmentService(appointmentRepo, therapistRepo, notificationRepo, auditRepo, validate, log, cfg.Booking.DefaultDurationMinutes)
	notificationService := service.NewNotificationService(notificationRepo, log)
	dashboardService := service.NewDashboardService(appointmentRepo, userRepo, notificationRepo, cacheService, log)
	exportService := service.NewExportService(appointmentRepo, log)

	authHandler := handler.NewAuthHandler(authService)
	therapistHandler := handler.NewTherapistHandler(therapistService)
	availabilityHandler := handler.NewAvailabilityHandler(availabilityService)
	appointmentHandler := handler.NewAppointmentHandler(appointmentService, dashboardService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, auditRepo)
	exportHandler := handler.NewExportHandler(exportService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.Middleware())
	router.Use(logger.GinMiddleware(log))
	router.Use(cors.New(cfg.CORS.AllowedOrigins))
	router.Use(middleware.Metrics(metricsService))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/metrics", gin.WrapH(metricsService.Handler()))
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		auth.Use(limiter.Handler())
	}
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))

	authed.POST("/auth/change-password", authHandler.ChangePassword)
	authed.GET("/auth/me", authHandler.Me)

	authed.GET("/therapists", therapistHandler.List)
	authed.GET("/therapists/:id", therapistHandler.Get)
	authed.PUT("/therapists/:id/profile",
		middleware.RequireRoles(models.RoleAdmin, models.RoleTherapist),
		therapistHandler.UpsertProfile)
	authed.GET("/therapists/:id/availability", availabilityHandler.ListWindows)
	authed.GET("/therapists/:id/slots", availabilityHandler.Slots)

	authed.POST("/availability",
		middleware.RequireRoles(models.RoleAdmin, models.RoleTherapist),
		availabilityHandler.CreateWindow)
	authed.PUT("/availability/:id",
		middleware.RequireRoles(models.RoleAdmin, models.RoleTherapist),
		availabilityHandler.UpdateWindow)
	authed.DELETE("/availability/:id",
		middleware.RequireRoles(models.RoleAdmin, models.RoleTherapist),
		availabilityHandler.DeleteWindow)

	authed.POST("/appointments", appointmentHandler.Create)
	authed.GET("/appointments", appointmentHandler.List)
	authed.GET("/appointments/:id", appointmentHandler.Get)
	authed.PATCH("/appointments/:id/status", appointmentHandler.UpdateStatus)
	authed.GET("/appointments/:id/audit",
		middleware.RequireRoles(models.RoleAdmin),
		dashboardHandler.AppointmentAudit)

	authed.GET("/notifications", notificationHandler.List)
	authed.GET("/notifications/unread-count", notificationHandler.UnreadCount)
	authed.POST("/notifications/:id/read", notificationHandler.MarkRead)

	if cfg.Dashboard.Enabled {
		authed.GET("/dashboard/summary", dashboardHandler.Summary)
	}

	authed.GET("/exports/appointments",
		middleware.RequireRoles(models.RoleAdmin),
		exportHandler.Appointments)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
