package main

import (
	"context"
	"fmt"
	"time"

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
	openaiTransport "github.com/scholarmesh/paperdex/internal/transport/openai"
	answeruc "github.com/scholarmesh/paperdex/internal/usecase/answer"
	collectionuc "github.com/scholarmesh/paperdex/internal/usecase/collection"
	documentuc "github.com/scholarmesh/paperdex/internal/usecase/document"
	embeddinguc "github.com/scholarmesh/paperdex/internal/usecase/embedding"
	searchuc "github.com/scholarmesh/paperdex/internal/usecase/search"
	usageuc "github.com/scholarmesh/paperdex/internal/usecase/usage"
)

// app wires the services the CLI commands need.
type app struct {
	cfg         config.Config
	store       db.Store
	collections *collectionuc.Service
	documents   *documentuc.Service
	answer      *answeruc.Service
}

// buildApp assembles the service graph from configuration, mirroring the
// API server composition root without the HTTP layer.
func buildApp() (*app, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create store: %w", err)
		}
	case "memory":
		store = dbMemory.NewStore()
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()

	provName := cfg.Embedding.Provider
	if provName == "" {
		provName = "openai"
	}

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   provName,
		Logger:     logger,
	})
	var embedder domain.Embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, provName, cfg.Embedding.Model, logger)

	fieldEmbedder := embeddinguc.NewConstructor(embedder, cfg.Embedding.FieldWeights, cfg.Embedding.Dimensions)

	collRepo := collectionrepo.New(store, cfg.Embedding.Dimensions).WithHNSW(collectionrepo.HNSWConfig{
		M:           cfg.Retrieval.HNSWM,
		EFConstruct: cfg.Retrieval.HNSWEFConstruct,
	})
	docRepo := documentrepo.New(store)
	searchRepo := searchrepo.New(store)

	collSvc := collectionuc.New(collRepo, docRepo, cfg.Embedding.Dimensions)
	docSvc := documentuc.New(docRepo, collRepo, fieldEmbedder).
		WithLimits(cfg.Embedding.MaxChunkTokens, cfg.Retrieval.MaxBatchSize).
		WithPagination(cfg.Retrieval.DefaultPageSize, cfg.Retrieval.MaxPageSize)
	searchSvc := searchuc.New(searchRepo, collRepo, embedder, cfg.Retrieval.OverfetchFactor)

	rates := usage.DefaultRates()
	if cfg.Generation.InputRatePer1K > 0 || cfg.Generation.OutputRatePer1K > 0 {
		rates = usage.Rates{
			InputPer1K:  cfg.Generation.InputRatePer1K,
			OutputPer1K: cfg.Generation.OutputRatePer1K,
		}
	}
	usageSvc := usageuc.New(store, rates)

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
	} else {
		generator = answeruc.NewTemplateGenerator()
	}

	answerSvc := answeruc.New(
		searchSvc, generator, usageSvc, rates,
		cfg.Retrieval.PaperCollection, cfg.Retrieval.FacultyCollection,
		logger,
	)

	return &app{
		cfg:         cfg,
		store:       store,
		collections: collSvc,
		documents:   docSvc,
		answer:      answerSvc,
	}, nil
}

// Close releases the database connection.
func (a *app) Close() {
	a.store.Close()
}

func askRequest(question string) answeruc.Request {
	return answeruc.Request{Question: question}
}
