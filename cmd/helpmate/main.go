// File path: cmd/helpmate/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/helpmate-bot/helpmate/internal/api"
	"github.com/helpmate-bot/helpmate/internal/common"
	"github.com/helpmate-bot/helpmate/internal/embed"
	"github.com/helpmate-bot/helpmate/internal/faq"
	"github.com/helpmate-bot/helpmate/internal/history"
	"github.com/helpmate-bot/helpmate/internal/kb"
	"github.com/helpmate-bot/helpmate/internal/llm"
	"github.com/helpmate-bot/helpmate/internal/pipeline"
	"github.com/helpmate-bot/helpmate/internal/retriever"
	"github.com/helpmate-bot/helpmate/internal/vector"
)

func main() {
	logger := common.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warn("helpmate: .env file not loaded", "error", err)
	} else {
		logger.Info("helpmate: environment loaded from .env")
	}

	addr := flag.String("addr", ":8082", "listen address")
	faqJSON := flag.String("faq-json", defaultFAQJSONPath(), "path to the FAQ json corpus")
	faqCSV := flag.String("faq-csv", defaultFAQCSVPath(), "path to the FAQ csv fallback")
	kbDir := flag.String("kb-dir", filepath.Join("data", "kb"), "directory with knowledge base markdown files")
	historyPath := flag.String("history", filepath.Join("data", "history.db"), "path to the answer audit database (empty to disable)")
	vectorPath := flag.String("vector-store", filepath.Join("data", "chunks.jsonl"), "path to the jsonl chunk store (used without postgres)")
	postgresDSN := flag.String("postgres-dsn", strings.TrimSpace(os.Getenv("DATABASE_URL")), "postgres dsn for the pgvector chunk store")
	redisAddr := flag.String("redis-addr", strings.TrimSpace(os.Getenv("REDIS_ADDR")), "redis address for the shared answer cache (empty for in-memory)")
	askTimeout := flag.Duration("ask-timeout", 30*time.Second, "per-request deadline for /v1/ask")
	flag.Parse()

	logger.Info("helpmate: startup initiated", "addr", *addr, "faq", *faqJSON, "kb", *kbDir)

	pipeCfg, err := pipeline.LoadConfig()
	if err != nil {
		logger.Error("helpmate: pipeline config load failed", "error", err)
		fmt.Println("pipeline config error:", err)
		os.Exit(1)
	}

	store := faq.NewStore(*faqJSON, *faqCSV)
	matcher := faq.NewMatcher(store, pipeCfg.FuzzyThreshold)
	index := kb.NewIndex(func() ([]kb.Doc, error) { return kb.LoadDir(*kbDir) })

	var cache pipeline.Cache
	if *redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: *redisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("helpmate: redis unreachable, using in-memory cache", "addr", *redisAddr, "error", err)
			cache = pipeline.NewMemoryCache(pipeCfg.CacheCapacity, pipeCfg.CacheTTL)
		} else {
			logger.Info("helpmate: redis cache ready", "addr", *redisAddr)
			cache = pipeline.NewRedisCache(client, pipeCfg.CacheTTL)
		}
	} else {
		cache = pipeline.NewMemoryCache(pipeCfg.CacheCapacity, pipeCfg.CacheTTL)
	}

	var engineOpts []pipeline.Option
	var serverOpts []api.Option

	var auditLog *history.Log
	if strings.TrimSpace(*historyPath) != "" {
		auditLog, err = history.Open(*historyPath)
		if err != nil {
			logger.Error("helpmate: history db open failed", "error", err)
			fmt.Println("history error:", err)
			os.Exit(1)
		}
		defer auditLog.Close()
		engineOpts = append(engineOpts, pipeline.WithRecorder(auditLog))
		serverOpts = append(serverOpts, api.WithHistory(auditLog))
	}

	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey != "" {
		chunkStore, err := buildChunkStore(ctx, *postgresDSN, *vectorPath)
		if err != nil {
			logger.Error("helpmate: chunk store init failed", "error", err)
			fmt.Println("chunk store error:", err)
			os.Exit(1)
		}
		embedder := embed.NewOpenAIEmbedder(apiKey, "")
		provider := llm.NewOpenAIProvider(apiKey, strings.TrimSpace(os.Getenv("OPENAI_MODEL")))
		engineOpts = append(engineOpts,
			pipeline.WithRetriever(retriever.New(embedder, chunkStore)),
			pipeline.WithProvider(provider),
		)
		logger.Info("helpmate: ask tier ready", "provider", provider.Name())
	} else {
		logger.Warn("helpmate: OPENAI_API_KEY not set, /v1/ask disabled")
	}

	engine := pipeline.NewEngine(store, matcher, index, cache, pipeCfg, engineOpts...)
	serverOpts = append(serverOpts, api.WithAskTimeout(*askTimeout))
	server := api.NewServer(engine, index, serverOpts...)

	logger.Info("helpmate: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("helpmate: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

func buildChunkStore(ctx context.Context, dsn, jsonlPath string) (vector.Store, error) {
	if strings.TrimSpace(dsn) != "" {
		pool, err := vector.NewPostgresPool(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return vector.NewPostgresStore(pool), nil
	}
	return vector.NewMemoryStore(jsonlPath)
}

func defaultFAQJSONPath() string {
	return filepath.Join("data", "faq.json")
}

func defaultFAQCSVPath() string {
	return filepath.Join("data", "faq.csv")
}
