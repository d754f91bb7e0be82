package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Queue    QueueConfig
	LLM      LLMConfig
	RAG      RAGConfig
	Ops      OpsConfig
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type QueueConfig struct {
	Name             string
	Concurrency      int
	MaxAttempts      int
	DefaultTimeoutMs int
}

type LLMConfig struct {
	OpenAIKey     string
	AnthropicKey  string
	OllamaURL     string
	FallbackOrder []string
}

type RAGConfig struct {
	EmbedModel   string
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	DefaultTopK  int
}

type OpsConfig struct {
	Addr string
}

func Load() (*Config, error) {
	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	concurrency, err := getEnvInt("WORKER_CONCURRENCY", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	maxAttempts, err := getEnvInt("JOB_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid JOB_MAX_ATTEMPTS: %w", err)
	}

	defaultTimeout, err := getEnvInt("JOB_DEFAULT_TIMEOUT_MS", 120000)
	if err != nil {
		return nil, fmt.Errorf("invalid JOB_DEFAULT_TIMEOUT_MS: %w", err)
	}

	chunkSize, err := getEnvInt("RAG_CHUNK_SIZE", 1200)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_CHUNK_SIZE: %w", err)
	}

	chunkOverlap, err := getEnvInt("RAG_CHUNK_OVERLAP", 180)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_CHUNK_OVERLAP: %w", err)
	}

	batchSize, err := getEnvInt("RAG_EMBED_BATCH_SIZE", 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_EMBED_BATCH_SIZE: %w", err)
	}

	topK, err := getEnvInt("RAG_DEFAULT_TOP_K", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_DEFAULT_TOP_K: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: maxConns,
			MinConns: minConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Queue: QueueConfig{
			Name:             getEnv("QUEUE_NAME", "analysis"),
			Concurrency:      concurrency,
			MaxAttempts:      maxAttempts,
			DefaultTimeoutMs: defaultTimeout,
		},
		LLM: LLMConfig{
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:  getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:     getEnv("OLLAMA_URL", ""),
			FallbackOrder: splitList(getEnv("LLM_FALLBACK_ORDER", "openai,anthropic,ollama")),
		},
		RAG: RAGConfig{
			EmbedModel:   getEnv("RAG_EMBED_MODEL", "text-embedding-3-small"),
			ChunkSize:    chunkSize,
			ChunkOverlap: chunkOverlap,
			BatchSize:    batchSize,
			DefaultTopK:  topK,
		},
		Ops: OpsConfig{
			Addr: getEnv("OPS_ADDR", ":9090"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.LLM.OpenAIKey == "" && c.LLM.AnthropicKey == "" && c.LLM.OllamaURL == "" {
		missing = append(missing, "OPENAI_API_KEY or ANTHROPIC_API_KEY or OLLAMA_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
