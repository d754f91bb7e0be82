package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/priyamehta/docintel/internal/audit"
	"github.com/priyamehta/docintel/internal/cache"
	"github.com/priyamehta/docintel/internal/classifier"
	"github.com/priyamehta/docintel/internal/config"
	"github.com/priyamehta/docintel/internal/contract"
	"github.com/priyamehta/docintel/internal/database"
	"github.com/priyamehta/docintel/internal/document"
	"github.com/priyamehta/docintel/internal/jobstore"
	"github.com/priyamehta/docintel/internal/llm"
	"github.com/priyamehta/docintel/internal/ops"
	"github.com/priyamehta/docintel/internal/pipeline"
	"github.com/priyamehta/docintel/internal/queue"
	"github.com/priyamehta/docintel/internal/queue/workers"
	"github.com/priyamehta/docintel/internal/rag"
	"github.com/priyamehta/docintel/internal/vectorstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	registry := llm.NewRegistry(cfg.LLM)
	executor := llm.NewFallbackExecutor(registry, cfg.LLM.FallbackOrder)

	cls := classifier.New(classifier.LLMExternal(executor), cache.NewRedis(redisClient))
	auditSvc := audit.NewService(pool)
	validator := contract.NewValidator(auditSvc)

	engine := rag.NewEngine(
		vectorstore.NewPgVectorStore(pool),
		rag.NewProviderEmbedder(executor, cfg.RAG.EmbedModel),
		rag.ChunkOptions{Size: cfg.RAG.ChunkSize, Overlap: cfg.RAG.ChunkOverlap},
		cfg.RAG.BatchSize,
	)

	orchestrator := pipeline.NewOrchestrator(
		executor, cls, engine, validator, auditSvc, document.NewFetcher(), cfg.RAG.DefaultTopK,
	)

	jobs := jobstore.NewStore(pool)
	analysisWorker := workers.NewAnalysisWorker(jobs, orchestrator, cfg.Queue.DefaultTimeoutMs)

	handlers := queue.NewHandlersRegistry()
	handlers.Register(queue.TypeAnalysisRun, asynq.HandlerFunc(analysisWorker.ProcessTask))

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Queue.Concurrency,
			Queues: map[string]int{
				cfg.Queue.Name: 1,
			},
		},
	)

	opsServer := ops.NewServer(cfg.Ops.Addr, auditSvc, jobs,
		func(ctx context.Context) error { return pool.Ping(ctx) },
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	)
	go func() {
		slog.Info("ops listener starting", "addr", cfg.Ops.Addr)
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ops listener error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		opsServer.Shutdown(shutdownCtx)
		srv.Shutdown()
	}()

	slog.Info("worker starting",
		"queue", cfg.Queue.Name,
		"concurrency", cfg.Queue.Concurrency,
		"providers", registry.Names(),
	)
	if err := srv.Run(handlers.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
