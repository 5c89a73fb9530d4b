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

	"github.com/scholarmesh/paperdex/internal/config"
	"github.com/scholarmesh/paperdex/internal/db"
	dbMemory "github.com/scholarmesh/paperdex/internal/db/memory"
	dbRedis "github.com/scholarmesh/paperdex/internal/db/redis"
	"github.com/scholarmesh/paperdex/internal/domain"
	"github.com/scholarmesh/paperdex/internal/domain/usage"
	logpkg "github.com/scholarmesh/paperdex/internal/logger"
	"github.com/scholarmesh/paperdex/internal/metrics"
	collectionrepo "github.com/scholarmesh/paperdex/internal/repository/collection"
	documentrepo "github.com/scholarmesh/paperdex/internal/repository/document"
	"github.com/scholarmesh/paperdex/internal/repository/embcache"
	searchrepo "github.com/scholarmesh/paperdex/internal/repository/search"
	chiTransport "github.com/scholarmesh/paperdex/internal/transport/chi"
	openaiTransport "github.com/scholarmesh/paperdex/internal/transport/openai"
	answeruc "github.com/scholarmesh/paperdex/internal/usecase/answer"
	collectionuc "github.com/scholarmesh/paperdex/internal/usecase/collection"
	documentuc "github.com/scholarmesh/paperdex/internal/usecase/document"
	embeddinguc "github.com/scholarmesh/paperdex/internal/usecase/embedding"
	healthuc "github.com/scholarmesh/paperdex/internal/usecase/health"
	searchuc "github.com/scholarmesh/paperdex/internal/usecase/search"
	usageuc "github.com/scholarmesh/paperdex/internal/usecase/usage"
	"github.com/scholarmesh/paperdex/internal/version"
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

	logger.Info("Starting paperdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Create database store based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	case "memory":
		store = dbMemory.NewStore()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
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

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()
	metrics.RegisterHTTPMetrics()

	// Build embedder chain — composition root
	provName := cfg.Embedding.Provider
	if provName == "" {
		provName = "openai"
	}
	embedder := buildEmbedder(provName, cfg.Embedding, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", provName),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Weighted multi-field vector constructor for document ingestion.
	fieldEmbedder := embeddinguc.NewConstructor(embedder, cfg.Embedding.FieldWeights, cfg.Embedding.Dimensions)

	// Create repositories (domain-native, no adapters)
	collRepo := collectionrepo.New(store, cfg.Embedding.Dimensions).WithHNSW(collectionrepo.HNSWConfig{
		M:           cfg.Retrieval.HNSWM,
		EFConstruct: cfg.Retrieval.HNSWEFConstruct,
	})
	docRepo := documentrepo.New(store)
	searchRepo := searchrepo.New(store)

	// Create use case services
	collSvc := collectionuc.New(collRepo, docRepo, cfg.Embedding.Dimensions)
	docSvc := documentuc.New(docRepo, collRepo, fieldEmbedder).
		WithLimits(cfg.Embedding.MaxChunkTokens, cfg.Retrieval.MaxBatchSize).
		WithPagination(cfg.Retrieval.DefaultPageSize, cfg.Retrieval.MaxPageSize)
	searchSvc := searchuc.New(searchRepo, collRepo, embedder, cfg.Retrieval.OverfetchFactor)

	// Usage accounting with the configured rate table
	rates := usage.DefaultRates()
	if cfg.Generation.InputRatePer1K > 0 || cfg.Generation.OutputRatePer1K > 0 {
		rates = usage.Rates{
			InputPer1K:  cfg.Generation.InputRatePer1K,
			OutputPer1K: cfg.Generation.OutputRatePer1K,
		}
	}
	usageSvc := usageuc.New(store, rates)

	// Generator variant is chosen once at startup: LLM when credentials
	// are configured, template fallback otherwise.
	var generator domain.Generator
	if cfg.Generation.APIKey != "" {
		generator = openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
			APIKey:    cfg.Generation.APIKey,
			BaseURL:   cfg.Generation.BaseURL,
			Model:     cfg.Generation.Model,
			MaxTokens: cfg.Generation.MaxTokens,
			Provider:  provName,
			Logger:    logger,
		})
		logger.Info("Answer generation enabled", zap.String("model", cfg.Generation.Model))
	} else {
		generator = answeruc.NewTemplateGenerator()
		logger.Info("Answer generation disabled, using template fallback")
	}

	answerSvc := answeruc.New(
		searchSvc, generator, usageSvc, rates,
		cfg.Retrieval.PaperCollection, cfg.Retrieval.FacultyCollection,
		logger,
	)

	// Health service
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder))

	// Create chi server
	server := chiTransport.NewServer(collSvc, docSvc, searchSvc, answerSvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
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

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented
func buildEmbedder(
	provName string,
	embCfg config.EmbeddingConfig,
	store db.Store,
	logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics and rate-limit retry built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     embCfg.APIKey,
		BaseURL:    embCfg.BaseURL,
		Model:      embCfg.Model,
		Dimensions: embCfg.Dimensions,
		Provider:   provName,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (logging)
	return embeddinguc.NewInstrumentedEmbedder(embedder, provName, embCfg.Model, logger)
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

			// Set X-Request-ID in response header
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
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
