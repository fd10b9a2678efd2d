// Package main runs the booking and payment HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tripnest/backend/config"
	"github.com/tripnest/backend/internal/bookings"
	"github.com/tripnest/backend/internal/events"
	"github.com/tripnest/backend/internal/gateway"
	"github.com/tripnest/backend/internal/middleware"
	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/internal/notify"
	"github.com/tripnest/backend/internal/realtime"
	"github.com/tripnest/backend/internal/staff"
	"github.com/tripnest/backend/pkg/database"
	"github.com/tripnest/backend/pkg/queue"
	"github.com/tripnest/backend/pkg/redis"
	"github.com/tripnest/backend/pkg/response"
	"github.com/tripnest/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Razorpay.KeySecret == "" || cfg.Razorpay.WebhookSecret == "" {
		logger.Warn("razorpay secrets not set; payment verification will fail")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis backs the email queue and cross-instance realtime; both degrade without it.
	var (
		jobQueue *queue.Queue
		hub      *realtime.Hub
	)
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis disabled", zap.Error(err))
		hub = realtime.NewHub(logger, nil, nil)
	} else {
		defer rdb.Close()
		jobQueue = queue.NewQueue(rdb.Client, logger)
		redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, redisPubSub, redisPubSub)
	}

	var archiver bookings.Archiver
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			PaymentsBucket:  cfg.AWS.PaymentsBucket,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			archiver = s3Client
		}
	}

	gw := gateway.NewClient(gateway.Config{
		KeyID:            cfg.Razorpay.KeyID,
		KeySecret:        cfg.Razorpay.KeySecret,
		WebhookSecret:    cfg.Razorpay.WebhookSecret,
		BaseURL:          cfg.Razorpay.BaseURL,
		Currency:         cfg.Razorpay.Currency,
		Timeout:          cfg.Razorpay.Timeout,
		BreakerThreshold: cfg.Razorpay.BreakerThreshold,
	}, logger)

	jwtService := staff.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	staffRepo := staff.NewRepository(pool)

	// Staff notifications run after commit, never inside the booking transaction.
	channels := []notify.Channel{notify.NewInAppChannel(notify.NewRepository(pool))}
	if jobQueue != nil {
		channels = append(channels, notify.NewEmailChannel(jobQueue))
	}
	notifier := notify.NewStaffNotifier(staffRepo, logger, channels...)

	bookingRepo := bookings.NewRepository(pool)
	engine := bookings.NewEngine(bookingRepo, gw, logger,
		notifier,
		realtime.NewBookingBroadcaster(hub),
	)
	bookingService := bookings.NewService(bookingRepo, engine, gw, archiver, logger)
	bookingHandler := bookings.NewHandler(bookingService, logger)

	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, gw.Currency(), logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			response.Internal(c, "database unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	// Public: events, slots, order, verify, and the gateway webhook (signature checked in handler)
	router.GET("/events", eventHandler.List)
	router.GET("/events/:eventId", eventHandler.GetByID)
	bookingHandler.RegisterPublic(router)

	// Admin (JWT with staff role)
	admin := router.Group("/admin")
	admin.Use(middleware.JWT(jwtService), middleware.RequireRole(models.StaffRoles...))
	{
		admin.POST("/events", eventHandler.Create)
		bookingHandler.RegisterAdmin(admin)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/admin/ws", realtime.ServeAdminWs(hub, jwtService, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
