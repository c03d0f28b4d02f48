package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/api"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/config"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/db"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/events"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/metrics"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/notification"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/observ"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/redis"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting notification gateway",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Port),
		zap.String("timezone", cfg.Location.String()),
	)

	// Initialize database connection
	ctx := context.Background()
	database, err := db.New(ctx, db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		MaxConns: cfg.DBMaxConns,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	notifications := db.NewNotificationRepository(database, logger)
	preferences := db.NewPreferencesRepository(database, logger)

	clock := notification.SystemClock{Location: cfg.Location}

	sinks := events.Build(ctx, cfg, logger)
	service := notification.NewService(notifications, preferences, clock, logger, sinks.ServiceOptions()...)

	// Redis is optional: without it the scheduler runs unclaimed and the
	// API is not rate limited.
	redisClient, err := redis.New(ctx, redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.Warn("redis unavailable, slot claims and rate limiting disabled",
			zap.Error(err),
			zap.String("host", cfg.RedisHost),
		)
		redisClient = nil
	}

	var rateLimiter api.Limiter
	var schedulerOpts []worker.Option
	if redisClient != nil {
		defer redisClient.Close()
		rateLimiter = redis.NewRateLimiter(redisClient, logger, redis.RateLimitConfig{
			Limit:  cfg.RateLimitPerMinute,
			Window: time.Minute,
		})
		schedulerOpts = append(schedulerOpts, worker.WithSlotClaimer(redis.NewSlotClaimer(redisClient, logger)))
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	if cfg.SchedulerEnabled {
		scheduler := worker.New(preferences, service, clock, worker.Config{
			Interval:    cfg.SchedulerInterval,
			BatchSize:   cfg.SchedulerBatchSize,
			Concurrency: cfg.SchedulerConcurrency,
			Rate:        cfg.SchedulerRate,
			MaxCatchUp:  cfg.SchedulerMaxCatchUp,
			Schedule: worker.Schedule{
				DailySummaryAt:    cfg.DailySummaryTime,
				WeeklyProgressAt:  cfg.WeeklyProgressTime,
				WeeklyProgressDay: time.Sunday,
				CleanupAt:         cfg.CleanupTime,
			},
		}, logger, schedulerOpts...)
		go scheduler.Start(workerCtx)
	} else {
		logger.Info("scheduler disabled")
	}

	// Setup router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware(routePattern))

	// Custom logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration_ms", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	})

	handler := api.NewHandler(logger, service)
	r.Route("/v1", func(r chi.Router) {
		r.Use(api.RateLimitMiddleware(rateLimiter, logger, api.UserKeyFunc))
		handler.Register(r)
	})

	// An open publisher breaker is reported but does not fail the check:
	// notifications are still stored.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		if err := database.Health(ctx); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			status, code = "database unavailable", http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     status,
			"publishers": sinks.Stats(),
		})
	})

	// Prometheus metrics endpoint
	r.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		workerCancel()

		// Give outstanding requests 10 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		logger.Info("server stopped gracefully")
	}

	return nil
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
