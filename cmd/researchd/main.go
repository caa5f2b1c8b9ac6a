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
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/prevalidate/researchd/internal/config"
	dbRedis "github.com/prevalidate/researchd/internal/db/redis"
	logpkg "github.com/prevalidate/researchd/internal/logger"
	"github.com/prevalidate/researchd/internal/metrics"
	resultsrepo "github.com/prevalidate/researchd/internal/repository/results"
	"github.com/prevalidate/researchd/internal/repository/samplecache"
	"github.com/prevalidate/researchd/internal/transport/httpapi"
	openaiClf "github.com/prevalidate/researchd/internal/transport/openai"
	"github.com/prevalidate/researchd/internal/transport/reddit"
	coverageuc "github.com/prevalidate/researchd/internal/usecase/coverage"
	"github.com/prevalidate/researchd/internal/usecase/quality"
	relevanceuc "github.com/prevalidate/researchd/internal/usecase/relevance"
	researchuc "github.com/prevalidate/researchd/internal/usecase/research"
	"github.com/prevalidate/researchd/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting researchd API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("classifier_model", cfg.Classifier.Model),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline metrics explicitly (no init())
	metrics.Register()

	// Transports
	classifier := openaiClf.NewClassifier(&openaiClf.Config{
		APIKey:  cfg.Classifier.APIKey,
		BaseURL: cfg.Classifier.BaseURL,
		Model:   cfg.Classifier.Model,
		Timeout: time.Duration(cfg.Classifier.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	source := reddit.New(&reddit.Config{
		BaseURL:   cfg.Source.BaseURL,
		UserAgent: cfg.Source.UserAgent,
		Timeout:   time.Duration(cfg.Source.TimeoutSec) * time.Second,
		Logger:    logger,
	})

	// Filtering stages — composition root
	qualityGate := quality.New().
		WithThresholds(cfg.Research.MinPostChars, cfg.Research.MinCommentChars)
	domainGate := relevanceuc.NewGate(classifier, logger).
		WithWorkers(cfg.Classifier.Workers)
	filterSvc := relevanceuc.New(qualityGate, domainGate, logger)

	// Repositories
	resultsRepo := resultsrepo.New(store)
	sampleCache := samplecache.New(store, time.Duration(cfg.Research.SampleTTLHours)*time.Hour)

	// Use case services
	coverageSvc := coverageuc.New(source, sampleCache, filterSvc, logger)
	researchSvc := researchuc.New(source, classifier, filterSvc, resultsRepo, logger)

	server := httpapi.NewServer(researchSvc, coverageSvc, classifier, resultsRepo, httpapi.RunPolicy{
		MaxCommunities:    cfg.Research.MaxCommunities,
		PerCommunityLimit: cfg.Research.PerCommunityLimit,
		TimeRangeDays:     cfg.Research.TimeRangeDays,
		MaxAttempts:       cfg.Research.MaxExpansionAttempts,
		MinYield:          cfg.Research.MinYield,
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Mount("/", server.Routes(cfg.Auth.APIKeys))

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
