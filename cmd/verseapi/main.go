package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/verseapi/internal/auth"
	"github.com/kailas-cloud/verseapi/internal/cache"
	"github.com/kailas-cloud/verseapi/internal/config"
	dbRedis "github.com/kailas-cloud/verseapi/internal/db/redis"
	logpkg "github.com/kailas-cloud/verseapi/internal/logger"
	"github.com/kailas-cloud/verseapi/internal/metrics"
	"github.com/kailas-cloud/verseapi/internal/policy"
	"github.com/kailas-cloud/verseapi/internal/repository/embcache"
	tagrepo "github.com/kailas-cloud/verseapi/internal/repository/tag"
	verserepo "github.com/kailas-cloud/verseapi/internal/repository/verse"
	chiTransport "github.com/kailas-cloud/verseapi/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/verseapi/internal/transport/openai"
	healthuc "github.com/kailas-cloud/verseapi/internal/usecase/health"
	raguc "github.com/kailas-cloud/verseapi/internal/usecase/rag"
	taguc "github.com/kailas-cloud/verseapi/internal/usecase/tag"
	verseuc "github.com/kailas-cloud/verseapi/internal/usecase/verse"
	"github.com/kailas-cloud/verseapi/internal/version"
)

func main() {
	seedPath := flag.String("seed", "", "seed the store from a JSON corpus file and exit")
	flag.Parse()

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

	logger.Info("Starting verseapi server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)
	// The login endpoint issues tokens without verifying any credential.
	logger.Warn("login endpoint has no password verification; do not expose without a real user store")

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.Register()

	versesRepo := verserepo.New(store, cfg.Embedding.Dimensions, cfg.Storage.KeyPrefix)
	tagsRepo := tagrepo.New(store, cfg.Storage.KeyPrefix)

	if *seedPath != "" {
		if err := seed(ctx, *seedPath, versesRepo, tagsRepo); err != nil {
			logger.Fatal("Seeding failed", zap.Error(err))
		}
		logger.Info("Seeding completed", zap.String("file", *seedPath))
		return
	}

	// Embedder chain: OpenAI provider -> TTL'd cache decorator.
	baseEmbedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	embedder := embcache.New(
		baseEmbedder, store,
		time.Duration(cfg.Cache.EmbeddingTTLSec)*time.Second,
		cfg.Storage.KeyPrefix,
		metrics.EmbeddingCacheTotal, logger,
	)

	rules := policy.New(policy.Config{
		FirstChapter:      cfg.Policy.FirstChapter,
		GuestChapterLimit: cfg.Policy.GuestChapterLimit,
		GuestListingLimit: cfg.Policy.GuestListingLimit,
		GuestTagLimit:     cfg.Policy.GuestTagLimit,
		GuestTagCatalogue: cfg.Policy.GuestTagCatalogue,
		GuestTags:         cfg.Policy.GuestTags,
	})

	readCache := cache.New(store, cfg.Storage.KeyPrefix, metrics.CacheRequestsTotal, logger)

	verseSvc := verseuc.New(versesRepo, readCache, rules, verseuc.TTLs{
		Listing:  time.Duration(cfg.Cache.ListingTTLSec) * time.Second,
		Chapters: time.Duration(cfg.Cache.ChaptersTTLSec) * time.Second,
		Chapter:  time.Duration(cfg.Cache.ChapterTTLSec) * time.Second,
		Verse:    time.Duration(cfg.Cache.VerseTTLSec) * time.Second,
	})
	tagSvc := taguc.New(tagsRepo, versesRepo, readCache, rules, taguc.TTLs{
		Catalogue: time.Duration(cfg.Cache.TagCatalogueTTLSec) * time.Second,
		Verses:    time.Duration(cfg.Cache.TagVersesTTLSec) * time.Second,
	})
	ragSvc := raguc.New(versesRepo, embedder, readCache, raguc.Config{
		OverfetchFactor: cfg.Search.OverfetchFactor,
		MaxTopK:         cfg.Search.MaxTopK,
		ResultTTL:       time.Duration(cfg.Cache.SearchTTLSec) * time.Second,
	})
	healthSvc := healthuc.New(store, embedder)

	resolver := auth.NewResolver(cfg.Auth.Secret, time.Duration(cfg.Auth.TokenExpiryMin)*time.Minute)

	server := chiTransport.NewServer(verseSvc, tagSvc, ragSvc, healthSvc, resolver, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.CORSMiddleware(cfg.CORS.Origins))
	r.Use(chiTransport.PrincipalMiddleware(resolver))
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
