// Command embedgen annotates stored verses with embeddings. It is run
// out-of-band after seeding (and after any corpus change), so the API server
// never talks to the embedding provider on the write path.
package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/verseapi/internal/config"
	dbRedis "github.com/kailas-cloud/verseapi/internal/db/redis"
	logpkg "github.com/kailas-cloud/verseapi/internal/logger"
	verserepo "github.com/kailas-cloud/verseapi/internal/repository/verse"
	openaiEmb "github.com/kailas-cloud/verseapi/internal/transport/openai"
	"github.com/kailas-cloud/verseapi/internal/version"
)

func main() {
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

	logger.Info("Starting embedgen",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

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

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	repo := verserepo.New(store, cfg.Embedding.Dimensions, cfg.Storage.KeyPrefix)

	if err := repo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure index", zap.Error(err))
	}

	pending, err := repo.MissingEmbeddings(ctx)
	if err != nil {
		logger.Fatal("Failed to list verses without embeddings", zap.Error(err))
	}
	if len(pending) == 0 {
		logger.Info("All verses already embedded")
		return
	}
	logger.Info("Embedding verses", zap.Int("count", len(pending)))

	var failed int
	for i := range pending {
		v := &pending[i]
		result, err := embedder.Embed(ctx, v.EmbeddingText())
		if err != nil {
			logger.Error("Failed to embed verse",
				zap.String("verse_number", v.VerseNumber),
				zap.Error(err),
			)
			failed++
			continue
		}
		if err := repo.SetEmbedding(ctx, v.VerseNumber, result.Embedding); err != nil {
			logger.Error("Failed to store embedding",
				zap.String("verse_number", v.VerseNumber),
				zap.Error(err),
			)
			failed++
			continue
		}
		logger.Debug("Embedded verse",
			zap.String("verse_number", v.VerseNumber),
			zap.Int("total_tokens", result.TotalTokens),
		)
	}

	if failed > 0 {
		logger.Warn("Embedding run finished with failures",
			zap.Int("embedded", len(pending)-failed),
			zap.Int("failed", failed),
		)
		return
	}
	logger.Info("Embedding run finished", zap.Int("embedded", len(pending)))
}
