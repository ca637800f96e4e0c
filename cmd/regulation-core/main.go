package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/careworks-oss/regulation-core/internal/adapters/driven/ai"
	"github.com/careworks-oss/regulation-core/internal/adapters/driven/auth"
	"github.com/careworks-oss/regulation-core/internal/adapters/driven/bolt"
	"github.com/careworks-oss/regulation-core/internal/adapters/driven/memory"
	"github.com/careworks-oss/regulation-core/internal/adapters/driven/postgres"
	postgresqueue "github.com/careworks-oss/regulation-core/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/careworks-oss/regulation-core/internal/adapters/driven/queue/redis"
	redisadapter "github.com/careworks-oss/regulation-core/internal/adapters/driven/redis"
	httpserver "github.com/careworks-oss/regulation-core/internal/adapters/driving/http"
	"github.com/careworks-oss/regulation-core/internal/chunker"
	"github.com/careworks-oss/regulation-core/internal/classifier"
	"github.com/careworks-oss/regulation-core/internal/config"
	"github.com/careworks-oss/regulation-core/internal/core/domain"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driven"
	"github.com/careworks-oss/regulation-core/internal/core/services"
	"github.com/careworks-oss/regulation-core/internal/runtime"
	"github.com/careworks-oss/regulation-core/internal/worker"
)

var version = "dev"

func main() {
	// .env is optional, real environments set variables directly
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	mode := getEnv("RUN_MODE", "all")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	cfgPath := getEnv("CONFIG_PATH", "config.yaml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger.Info("regulation-core starting",
		"version", version,
		"mode", mode,
		"storage", cfg.Storage.Backend,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// ===== Storage backend =====
	var (
		documentStore driven.DocumentStore
		chunkStore    driven.ChunkStore
		lock          driven.DistributedLock
		taskQueue     driven.TaskQueue
		dbPinger      httpserver.Pinger
	)

	switch cfg.Storage.Backend {
	case "postgres":
		db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.Storage.Postgres.DSN()))
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			logger.Error("failed to initialize schema", "error", err)
			os.Exit(1)
		}

		documentStore = postgres.NewDocumentStore(db)
		chunkStore = postgres.NewChunkStore(db)
		lock = postgres.NewAdvisoryLock(db)
		taskQueue = postgresqueue.NewQueue(db.DB)
		dbPinger = db
		logger.Info("postgres connected")

	case "bolt":
		store, err := bolt.Open(cfg.Storage.Bolt.Path)
		if err != nil {
			logger.Error("failed to open bolt store", "path", cfg.Storage.Bolt.Path, "error", err)
			os.Exit(1)
		}
		defer store.Close()

		documentStore = store
		chunkStore = store
		lock = memory.NewLock()
		logger.Info("bolt store opened", "path", cfg.Storage.Bolt.Path)

	case "memory":
		store := memory.NewStore()
		documentStore = store
		chunkStore = store
		lock = memory.NewLock()
		logger.Info("using in-memory store")
	}

	// ===== Redis (optional, preferred lock and queue backend) =====
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		lock = redisadapter.NewLock(redisClient)
		queue, err := redisqueue.NewQueue(redisClient)
		if err != nil {
			logger.Error("failed to create redis queue", "error", err)
			os.Exit(1)
		}
		taskQueue = queue
		logger.Info("redis connected", "addr", cfg.Redis.Addr)
	}

	// ===== AI services =====
	runtimeConfig := domain.NewRuntimeConfig(cfg.Storage.Backend)
	runtimeServices := runtime.NewServices(runtimeConfig)
	defer runtimeServices.Close()

	aiFactory := ai.NewFactory()

	embeddingSvc, err := aiFactory.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProvider(cfg.Embedding.Provider),
		Model:    cfg.Embedding.Model,
		APIKey:   cfg.Embedding.APIKey(),
		BaseURL:  cfg.Embedding.BaseURL,
	})
	if err != nil {
		logger.Error("failed to create embedding service", "error", err)
		os.Exit(1)
	}
	if err := runtimeServices.ValidateAndSetEmbedding(ctx, embeddingSvc); err != nil {
		logger.Warn("embedding service unavailable, ingestion and retrieval disabled", "error", err)
	}

	llmSvc, err := aiFactory.CreateLLMService(&domain.LLMSettings{
		Provider: domain.AIProvider(cfg.LLM.Provider),
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey(),
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		logger.Error("failed to create llm service", "error", err)
		os.Exit(1)
	}
	if err := runtimeServices.ValidateAndSetLLM(ctx, llmSvc); err != nil {
		logger.Warn("llm service unavailable, answers fall back to referral", "error", err)
	}

	logger.Info("runtime config",
		"embedding", runtimeConfig.EmbeddingAvailable(),
		"llm", runtimeConfig.LLMAvailable(),
	)

	// ===== Core services =====
	authAdapter := auth.NewAdapter(cfg.Auth.JWTSecret())
	authService := services.NewAuthService(authAdapter, services.ServiceAccount{
		Email:        cfg.Auth.Account.Email,
		PasswordHash: cfg.Auth.Account.PasswordHash,
		Role:         domain.Role(cfg.Auth.Account.Role),
	}, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	ingestService := services.NewIngestService(services.IngestServiceConfig{
		DocumentStore: documentStore,
		ChunkStore:    chunkStore,
		Lock:          lock,
		Chunker: chunker.New(chunker.Config{
			MinChunkSize: cfg.Chunker.MinChunkSize,
			MaxChunkSize: cfg.Chunker.MaxChunkSize,
		}),
		Classifier: classifier.NewDefault(),
		Services:   runtimeServices,
		Logger:     logger,
	})

	retrievalService := services.NewRetrievalService(chunkStore, runtimeServices)
	answerService := services.NewAnswerService(runtimeServices, logger)
	askService := services.NewAskService(retrievalService, answerService, domain.RetrieveOptions{
		K:             cfg.Retrieval.TopK,
		MinSimilarity: cfg.Retrieval.MinSimilarity,
	})

	runWorker := func() {
		w := worker.New(worker.Config{
			TaskQueue:      taskQueue,
			IngestService:  ingestService,
			Logger:         logger,
			Concurrency:    cfg.Worker.Concurrency,
			DequeueTimeout: cfg.Worker.DequeueTimeout,
		})
		if err := w.Start(ctx); err != nil {
			logger.Error("failed to start worker", "error", err)
			os.Exit(1)
		}
		<-ctx.Done()
		w.Stop()
	}

	runAPI := func() {
		server := httpserver.NewServer(
			httpserver.Config{
				Host:    cfg.Server.Host,
				Port:    cfg.Server.Port,
				Version: version,
			},
			logger,
			authService,
			ingestService,
			askService,
			chunkStore,
			taskQueue,
			dbPinger,
		)
		if err := server.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	switch mode {
	case "api":
		runAPI()
	case "worker":
		if taskQueue == nil {
			logger.Error("worker mode requires a task queue backend")
			os.Exit(1)
		}
		runWorker()
	case "all":
		if taskQueue != nil {
			go runWorker()
		}
		runAPI()
	default:
		logger.Error("unknown mode", "mode", mode)
		os.Exit(1)
	}
}

// applyEnvOverrides lets deployment environments override file settings
// without editing the YAML.
func applyEnvOverrides(cfg *config.AppConfig) {
	if v := getEnv("PORT", ""); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
	if v := getEnv("STORAGE_BACKEND", ""); v != "" {
		cfg.Storage.Backend = v
	}
	if v := getEnv("REDIS_ADDR", ""); v != "" {
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
