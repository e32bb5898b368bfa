package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kirillkom/clinical-qa/internal/config"
	"github.com/kirillkom/clinical-qa/internal/core/classify"
	"github.com/kirillkom/clinical-qa/internal/core/evidence"
	"github.com/kirillkom/clinical-qa/internal/core/ports"
	"github.com/kirillkom/clinical-qa/internal/core/usecase"
	"github.com/kirillkom/clinical-qa/internal/infrastructure/cache/natskv"
	neo4jstore "github.com/kirillkom/clinical-qa/internal/infrastructure/curated/neo4j"
	"github.com/kirillkom/clinical-qa/internal/infrastructure/embedding/ollama"
	"github.com/kirillkom/clinical-qa/internal/infrastructure/formindex"
	"github.com/kirillkom/clinical-qa/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/clinical-qa/internal/infrastructure/resilience"
	"github.com/kirillkom/clinical-qa/internal/infrastructure/vector/qdrant"
)

// App wires the answering pipeline. Postgres is required; every other
// backend is optional and the pipeline degrades without it.
type App struct {
	Config   config.Config
	AnswerUC *usecase.AnswerUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, metrics usecase.PipelineMetrics, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewKnowledgeRepository(db, executor)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	closers := []func(){func() { _ = db.Close() }}

	var curated ports.CuratedKBStore = repo
	if cfg.CuratedBackend == "neo4j" {
		graph, err := neo4jstore.New(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase, executor)
		if err != nil {
			logger.Warn("neo4j_unavailable_falling_back_to_postgres", "error", err)
		} else {
			curated = graph
			closers = append(closers, func() { _ = graph.Close(context.Background()) })
		}
	}

	var forms ports.FormIndex
	if cfg.FormInventoryPath != "" {
		index, err := formindex.LoadFile(cfg.FormInventoryPath)
		if err != nil {
			logger.Warn("form_inventory_unavailable", "path", cfg.FormInventoryPath, "error", err)
		} else {
			forms = index
		}
	}

	var embedder ports.Embedder
	var vectors ports.VectorStore
	if cfg.SemanticEnabled && cfg.QdrantURL != "" && cfg.OllamaURL != "" {
		embedder = ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, executor)
		vectors = qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor)
	}

	var cache ports.ResponseCache
	if cfg.CacheEnabled && cfg.NATSURL != "" {
		kv, err := natskv.New(cfg.NATSURL, cfg.CacheBucket, natskv.Options{
			BucketTTL:          cfg.CacheTTL,
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			logger.Warn("response_cache_unavailable", "error", err)
		} else {
			cache = kv
			closers = append(closers, kv.Close)
		}
	}

	classifier, err := buildClassifier(cfg.DictionaryPath, logger)
	if err != nil {
		return nil, err
	}

	ucCfg := usecase.DefaultConfig()
	ucCfg.Tiers[0].Threshold = cfg.TierDirectThreshold
	ucCfg.Tiers[1].Threshold = cfg.TierCuratedThreshold
	ucCfg.Tiers[2].Threshold = cfg.TierHybridThreshold
	ucCfg.Tiers[3].Threshold = cfg.TierLooseThreshold
	ucCfg.Tiers[0].Timeout = cfg.TierDirectTimeout
	ucCfg.Tiers[1].Timeout = cfg.TierCuratedTimeout
	ucCfg.Tiers[2].Timeout = cfg.TierHybridTimeout
	ucCfg.Tiers[3].Timeout = cfg.TierLooseTimeout
	ucCfg.OverallDeadline = cfg.OverallDeadline
	ucCfg.HybridCandidates = cfg.HybridCandidates
	ucCfg.FusionRRFK = cfg.FusionRRFK
	ucCfg.CacheTTL = cfg.CacheTTL
	ucCfg.CacheConfidenceFloor = cfg.CacheConfFloor
	ucCfg.WorkerPoolSize = cfg.WorkerPoolSize

	answerUC, err := usecase.NewAnswerUseCase(ucCfg, usecase.Deps{
		Classifier: classifier,
		Evidence:   evidence.NewMapper(repo),
		Documents:  repo,
		Vectors:    vectors,
		Embedder:   embedder,
		Curated:    curated,
		Forms:      forms,
		Cache:      cache,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build answer pipeline: %w", err)
	}
	closers = append(closers, answerUC.Close)

	return &App{
		Config:   cfg,
		AnswerUC: answerUC,
		closeFn: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

// Close releases resources acquired during New, in reverse order.
func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func buildClassifier(dictionaryPath string, logger *slog.Logger) (*classify.Classifier, error) {
	if dictionaryPath == "" {
		return classify.New(), nil
	}
	f, err := os.Open(dictionaryPath)
	if err != nil {
		logger.Warn("dictionary_overlay_unavailable", "path", dictionaryPath, "error", err)
		return classify.New(), nil
	}
	defer f.Close()

	overlay, err := classify.LoadOverlay(f)
	if err != nil {
		return nil, fmt.Errorf("load dictionary overlay %s: %w", dictionaryPath, err)
	}
	return classify.NewWithOverlay(overlay), nil
}
