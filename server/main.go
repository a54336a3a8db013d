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

	"cinetix/api/routes"
	"cinetix/internal/eventbus"
	"cinetix/internal/notifications"
	"cinetix/internal/seats"
	"cinetix/internal/shared/config"
	"cinetix/internal/shared/constants"
	"cinetix/internal/shared/database"
	"cinetix/pkg/logger"
	"cinetix/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()

	gin.SetMode(cfg.GinMode)

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect:", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Preload the seat-map Lua scripts so the first hold does not pay the
	// SCRIPT LOAD round trip.
	if db.Redis != nil {
		atomicOps := seats.NewAtomicSeatOps(db.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := atomicOps.PreloadScripts(ctx); err != nil {
			appLogger.Error("Failed to preload Redis Lua scripts", slog.Any("error", err))
			// Scripts fall back to EVAL on first use.
		} else {
			appLogger.Info("Redis Lua scripts preloaded for atomic seat operations")
		}
		cancel()
	}

	// Rate limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiterConfig := &ratelimit.Config{
			Enabled:                  cfg.RateLimit.Enabled,
			WindowDuration:           cfg.RateLimit.WindowDuration,
			DefaultRequests:          cfg.RateLimit.DefaultRequests,
			PublicRequests:           cfg.RateLimit.PublicRequests,
			AuthRequests:             cfg.RateLimit.AuthRequests,
			PurchaseRequests:         cfg.RateLimit.PurchaseRequests,
			PurchaseCriticalRequests: cfg.RateLimit.PurchaseCriticalRequests,
			AdminRequests:            cfg.RateLimit.AdminRequests,
			StatsRequests:            cfg.RateLimit.StatsRequests,
			UserRequests:             cfg.RateLimit.UserRequests,
			HealthRequests:           cfg.RateLimit.HealthRequests,
			WhitelistedIPs:           cfg.RateLimit.WhitelistedIPs,
		}

		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), rateLimiterConfig)
		appLogger.Info("Rate limiter initialized",
			slog.Bool("enabled", cfg.RateLimit.Enabled),
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Service graph
	appRouter := routes.NewRouter(cfg, db)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// Hold-expiry reaper
	appRouter.Reaper.Start(bgCtx)
	defer appRouter.Reaper.Stop()

	// Sink bus: sales metrics consumer group
	metricsConsumer := eventbus.NewConsumer(appRouter.Cache, constants.BUS_GROUP_METRICS, hostname(), appRouter.MetricsHandler)
	if err := metricsConsumer.Start(bgCtx); err != nil {
		appLogger.Error("Failed to start metrics consumer", slog.Any("error", err))
	} else {
		defer metricsConsumer.Stop()
	}

	// Email pipeline: sink bus -> Kafka -> SMTP. Each stage is optional so
	// a dev box without brokers still serves traffic.
	startEmailPipeline(bgCtx, cfg, appRouter, appLogger)

	// Realtime hub closes all sessions on the way out.
	defer appRouter.Hub.Shutdown()

	router := setupRouter(cfg, db, appRouter, rateLimiter)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("api_status", fmt.Sprintf("http://localhost:%s%s/status", cfg.Port, cfg.GetAPIBasePath())),
			slog.String("version", cfg.APIVersion),
			slog.Bool("redis_cache", (db.Redis != nil)),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

// startEmailPipeline wires the sale_confirmed events into Kafka and the
// Kafka topic into SMTP. Broker failures are logged and skipped rather than
// fatal: the purchase path never depends on email.
func startEmailPipeline(ctx context.Context, cfg *config.Config, appRouter *routes.Router, appLogger *logger.Logger) {
	producer, err := notifications.NewKafkaProducer(cfg)
	if err != nil {
		appLogger.Error("Failed to initialize Kafka producer, email pipeline disabled", slog.Any("error", err))
		return
	}

	emailConsumer := eventbus.NewConsumer(appRouter.Cache, constants.BUS_GROUP_EMAIL, hostname(), appRouter.EmailHandler(producer))
	if err := emailConsumer.Start(ctx); err != nil {
		appLogger.Error("Failed to start email event consumer", slog.Any("error", err))
		producer.Close()
		return
	}

	kafkaConsumer, err := notifications.NewConsumer(cfg, notifications.NewSMTPEmailService(cfg))
	if err != nil {
		appLogger.Error("Failed to initialize Kafka email consumer", slog.Any("error", err))
	} else {
		kafkaConsumer.Start(ctx)
		go func() {
			<-ctx.Done()
			if err := kafkaConsumer.Stop(); err != nil {
				appLogger.Error("Error stopping Kafka email consumer", slog.Any("error", err))
			}
		}()
	}

	go func() {
		<-ctx.Done()
		emailConsumer.Stop()
		if err := producer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", slog.Any("error", err))
		}
	}()

	appLogger.Info("Email pipeline started",
		slog.String("topic", cfg.Kafka.EmailTopic),
		slog.Any("brokers", cfg.Kafka.Brokers),
	)
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "cinetix"
	}
	return name
}

func setupRouter(cfg *config.Config, db *database.DB, appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	// Built-in middleware: logs requests + recovers from panics
	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())

	// CORS configuration
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true // allow every origin dynamically
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-RateLimit-*"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Global rate limiting middleware (applied to all routes)
	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	appRouter.SetupRoutes(engine)

	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		l.LogHTTPRequest(c, duration)
	}
}
