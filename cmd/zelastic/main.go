package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/zelastic/internal/config"
	"github.com/kailas-cloud/zelastic/internal/db"
	"github.com/kailas-cloud/zelastic/internal/db/memengine"
	"github.com/kailas-cloud/zelastic/internal/db/pebblekv"
	dbRedis "github.com/kailas-cloud/zelastic/internal/db/redis"
	logpkg "github.com/kailas-cloud/zelastic/internal/logger"
	"github.com/kailas-cloud/zelastic/internal/metrics"
	containerrepo "github.com/kailas-cloud/zelastic/internal/repository/container"
	recordrepo "github.com/kailas-cloud/zelastic/internal/repository/record"
	schemarepo "github.com/kailas-cloud/zelastic/internal/repository/schema"
	searchrepo "github.com/kailas-cloud/zelastic/internal/repository/search"
	chiTransport "github.com/kailas-cloud/zelastic/internal/transport/chi"
	healthuc "github.com/kailas-cloud/zelastic/internal/usecase/health"
	storeuc "github.com/kailas-cloud/zelastic/internal/usecase/store"
	"github.com/kailas-cloud/zelastic/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting zelastic API server",
		zap.Stringer("build", version.Current()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_path", cfg.Storage.Path),
		zap.Bool("storage_in_memory", cfg.Storage.InMemory),
		zap.Strings("search_addrs", cfg.Search.Addrs),
	)

	// Primary store
	kv, err := pebblekv.Open(pebblekv.Config{
		Path:           cfg.Storage.Path,
		InMemory:       cfg.Storage.InMemory,
		NoSync:         !*cfg.Storage.Sync,
		BlockCacheSize: int64(cfg.Storage.BlockCacheMB) << 20,
	})
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	prometheus.MustRegister(metrics.NewPebbleCollector(kv.DB()))

	// Search engine
	engine, err := openEngine(cfg.Search)
	if err != nil {
		logger.Fatal("Failed to create search engine", zap.Error(err))
	}

	ctx := context.Background()
	readiness := time.Duration(cfg.Search.ReadinessTimeout) * time.Second
	if err := engine.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Search engine not ready", zap.Error(err))
	}
	logger.Info("Connected to search engine", zap.Bool("embedded", cfg.Search.Embedded()))

	metrics.RegisterSearchMetrics()

	schemas := schemarepo.NewRegistry(kv)
	adapter := searchrepo.New(engine, schemas, searchrepo.Options{
		KeyPrefix: cfg.Search.KeyPrefix,
		Bulk:      cfg.Search.Bulk,
		BulkSize:  cfg.Search.BulkSize,
		PageSize:  cfg.Search.PageSize,
		MaxHits:   cfg.Search.MaxHits,
	}, logger)

	storeSvc := storeuc.New(containerrepo.New(kv), recordrepo.New(kv), schemas, adapter, logger)
	healthSvc := healthuc.New(kv, engine)

	server := chiTransport.NewServer(storeSvc, adapter, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuth(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
		if err := adapter.Close(shutdownCtx); err != nil {
			logger.Error("Failed to flush search queue", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", zap.Error(err))
	}

	engine.Close()
	if err := kv.Close(); err != nil {
		logger.Error("Failed to close storage", zap.Error(err))
	}
	logger.Info("Server stopped gracefully")
}

// openEngine connects to Redis when addresses are configured, otherwise starts the embedded engine.
func openEngine(cfg config.SearchConfig) (db.Engine, error) {
	if cfg.Embedded() {
		return memengine.New(), nil
	}
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, err
	}
	return store, nil
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
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
						Message: "internal error",
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.NewContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// One line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
