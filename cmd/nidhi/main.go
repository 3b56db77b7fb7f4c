package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nidhi-ai/nidhi/internal/advisor"
	"github.com/nidhi-ai/nidhi/internal/chunker"
	"github.com/nidhi-ai/nidhi/internal/config"
	"github.com/nidhi-ai/nidhi/internal/db"
	dbMemory "github.com/nidhi-ai/nidhi/internal/db/memory"
	dbRedis "github.com/nidhi-ai/nidhi/internal/db/redis"
	"github.com/nidhi-ai/nidhi/internal/domain"
	"github.com/nidhi-ai/nidhi/internal/extract"
	"github.com/nidhi-ai/nidhi/internal/fallback"
	"github.com/nidhi-ai/nidhi/internal/finance"
	"github.com/nidhi-ai/nidhi/internal/index"
	"github.com/nidhi-ai/nidhi/internal/ingest"
	logpkg "github.com/nidhi-ai/nidhi/internal/logger"
	"github.com/nidhi-ai/nidhi/internal/metrics"
	"github.com/nidhi-ai/nidhi/internal/registry"
	fileRegistry "github.com/nidhi-ai/nidhi/internal/registry/file"
	redisRegistry "github.com/nidhi-ai/nidhi/internal/registry/redis"
	"github.com/nidhi-ai/nidhi/internal/repository/embcache"
	"github.com/nidhi-ai/nidhi/internal/retrieval"
	chiTransport "github.com/nidhi-ai/nidhi/internal/transport/chi"
	openaiTransport "github.com/nidhi-ai/nidhi/internal/transport/openai"
	"github.com/nidhi-ai/nidhi/internal/version"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

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

	logger.Info("Starting nidhi API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("registry_driver", cfg.Registry.Driver),
	)

	// Create key-value store based on driver
	var store db.KV
	switch cfg.Cache.Driver {
	case "memory":
		store = dbMemory.NewStore()
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
	default:
		logger.Fatal("Unknown cache driver", zap.String("driver", cfg.Cache.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create key-value store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Key-value store not ready", zap.Error(err))
	}
	logger.Info("Connected to key-value store")

	// Create document registry based on driver
	var reg registry.Registry
	switch cfg.Registry.Driver {
	case "file":
		reg, err = fileRegistry.New(cfg.Registry.Path)
		if err != nil {
			logger.Fatal("Failed to create document registry", zap.Error(err))
		}
	case "redis":
		reg = redisRegistry.New(store)
	default:
		logger.Fatal("Unknown registry driver", zap.String("driver", cfg.Registry.Driver))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()

	// Build embedder chains — composition root
	docEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.DocumentInstruction, store, logger)
	queryEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.QueryInstruction, store, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Vector index, loaded from the snapshot or created fresh
	idx := index.New(docEmbedder, queryEmbedder, cfg.Index.Path, logger)
	if err := idx.LoadOrCreate(); err != nil {
		logger.Fatal("Failed to load index", zap.Error(err))
	}

	ch, err := chunker.New(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	if err != nil {
		logger.Fatal("Invalid chunking configuration", zap.Error(err))
	}

	// Application services
	ingestSvc := ingest.New(reg, idx, ch, cfg.Index.MaxFileBytes, logger)
	retrievalEngine := retrieval.New(idx, cfg.Index.MaxChunks, logger)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		Logger:      logger,
	})

	advisorSvc := advisor.New(
		generator,
		retrievalEngine,
		extract.New(),
		fallback.New(rand.New(rand.NewSource(time.Now().UnixNano()))),
		logger,
	)

	marketClient := finance.NewMarketClient(&finance.MarketConfig{
		BaseURL: cfg.Market.CoinGeckoBaseURL,
		TTL:     time.Duration(cfg.Market.CacheTTLSec) * time.Second,
		Logger:  logger,
	}, store)

	// Create chi server
	server := chiTransport.NewServer(advisorSvc, ingestSvc, retrievalEngine, marketClient, store, logger).
		WithDefaultTopK(cfg.Index.TopK)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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

	if err := idx.Persist(); err != nil {
		logger.Error("Failed to persist index on shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction
func buildEmbedder(
	embCfg config.EmbeddingConfig,
	instruction string,
	store db.KV,
	logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     embCfg.APIKey,
		BaseURL:    embCfg.BaseURL,
		Model:      embCfg.Model,
		Dimensions: embCfg.Dimensions,
		Provider:   embCfg.Provider,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Instruction prefix (outermost — cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}

	return embedder
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
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
