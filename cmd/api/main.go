package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/halluc-lab/backend/internal/agent"
	"github.com/halluc-lab/backend/internal/api/handlers"
	"github.com/halluc-lab/backend/internal/cache/redis"
	"github.com/halluc-lab/backend/internal/knowledge"
	"github.com/halluc-lab/backend/internal/knowledge/milvus"
	"github.com/halluc-lab/backend/internal/llm"
	"github.com/halluc-lab/backend/internal/metrics"
	"github.com/halluc-lab/backend/internal/middleware/ratelimit"
	"github.com/halluc-lab/backend/internal/middleware/security"
	"github.com/halluc-lab/backend/internal/middleware/validation"
	"github.com/halluc-lab/backend/internal/runner"
	"github.com/halluc-lab/backend/internal/storage/sqlite"
	"github.com/halluc-lab/backend/pkg/config"
	appLogger "github.com/halluc-lab/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting hallucination lab API server")

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var embeddingCache knowledge.EmbeddingCache
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
		embeddingCache = redisClient
	}

	llmClient := llm.NewClient(llm.Options{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		TimeoutSec:     cfg.LLM.TimeoutSec,
	})

	knowledgeStore := buildKnowledgeStore(cfg, llmClient)

	if cfg.Knowledge.SeedOnStart {
		if err := seedKnowledge(cfg, llmClient, embeddingCache, knowledgeStore); err != nil {
			appLogger.Fatal("Failed to seed knowledge store", zap.Error(err))
		}
	}
	metrics.KnowledgeDocuments.Set(float64(knowledgeStore.Count()))

	mitigationAgent := agent.New(llmClient, knowledgeStore, cfg.Knowledge.TopK)
	batchRunner := runner.New(mitigationAgent, sqliteClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{Logger: appLogger.GetLogger()})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{Logger: appLogger.GetLogger()}))

	experimentHandler := handlers.NewExperimentHandler(sqliteClient, batchRunner)
	annotationHandler := handlers.NewAnnotationHandler(sqliteClient)
	statisticsHandler := handlers.NewStatisticsHandler(sqliteClient)
	knowledgeHandler := handlers.NewKnowledgeHandler(knowledgeStore, cfg.Knowledge.TopK)
	wsHandler := handlers.NewWebSocketHandler(sqliteClient, batchRunner)

	api := app.Group("/api/v1")

	api.Post("/experiments", experimentHandler.CreateExperiment)
	api.Get("/experiments", experimentHandler.ListExperiments)
	api.Get("/experiments/:id/results", experimentHandler.GetResults)
	api.Get("/experiments/:id/export", experimentHandler.ExportCSV)
	api.Post("/experiments/:id/run", experimentHandler.RunBatch)

	api.Post("/annotations", annotationHandler.CreateAnnotation)
	api.Get("/statistics", statisticsHandler.GetStatistics)
	api.Post("/knowledge/query", knowledgeHandler.Query)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/runs", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.Handler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":              "ready",
			"knowledge_documents": knowledgeStore.Count(),
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

func buildKnowledgeStore(cfg *config.Config, llmClient *llm.Client) knowledge.Store {
	switch cfg.Knowledge.Backend {
	case "milvus":
		store, err := milvus.NewStore(
			cfg.Milvus.Endpoint,
			cfg.Milvus.CollectionName,
			cfg.Milvus.VectorDim,
			llmClient,
		)
		if err != nil {
			appLogger.Fatal("Failed to create Milvus store", zap.Error(err))
		}
		if err := store.EnsureCollection(context.Background()); err != nil {
			appLogger.Fatal("Failed to ensure Milvus collection", zap.Error(err))
		}
		return store
	default:
		return knowledge.NewMemoryStore(llmClient)
	}
}

// seedKnowledge runs the built-in security corpus through the loader so
// cached embeddings are reused across restarts.
func seedKnowledge(
	cfg *config.Config,
	llmClient *llm.Client,
	cache knowledge.EmbeddingCache,
	store knowledge.Store,
) error {
	seeds := knowledge.SeedDocuments()

	raws := make([]knowledge.RawDocument, len(seeds))
	for i, doc := range seeds {
		raws[i] = knowledge.RawDocument{
			ID:       doc.ID,
			Text:     doc.Text,
			Topic:    doc.Topic,
			Category: doc.Category,
		}
	}

	loader := knowledge.NewLoader(llmClient, cache, cfg.Knowledge.MaxChunkWords)
	docs, err := loader.Prepare(context.Background(), raws)
	if err != nil {
		return err
	}

	return store.Load(context.Background(), docs)
}
