// Command searcher starts the question bank HTTP API.
//
// It serves ranked search over the on-disk index, document lookup, and the
// ingestion endpoints. In direct ingestion mode this process is the index
// writer; in kafka mode it publishes batches for cmd/indexer and picks up
// the resulting commits through the manifest watcher.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion/ledger"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion/orchestrator"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"index_dir", cfg.Indexer.DataDir,
		"ingestion_mode", cfg.Ingestion.Mode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	store, err := indexer.Open(cfg.Indexer, indexer.WithMetrics(m))
	if err != nil {
		slog.Error("failed to open index", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	stats := store.Stats()
	slog.Info("index opened",
		"generation", stats.Generation,
		"segments", stats.Segments,
		"documents", stats.Documents,
	)
	if err := store.WatchManifest(ctx); err != nil {
		slog.Warn("manifest watcher unavailable, falling back to polling", "error", err)
		store.StartRefreshLoop(ctx)
	}
	if cfg.Ingestion.Mode == "direct" {
		store.StartMergeLoop(ctx)
	}

	var redisClient *pkgredis.Client
	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, cache.WithMetrics(m))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var db *postgres.Client
	orchOpts := []orchestrator.Option{orchestrator.WithMetrics(m)}
	if cfg.Postgres.Enabled {
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, ingestion ledger disabled", "error", err)
		} else {
			defer db.Close()
			l := ledger.New(db)
			if err := l.EnsureTable(ctx); err != nil {
				slog.Warn("ingestion ledger disabled", "error", err)
			} else {
				orchOpts = append(orchOpts, orchestrator.WithLedger(l))
				slog.Info("ingestion ledger enabled", "database", cfg.Postgres.Database)
			}
		}
	}
	if cfg.Ingestion.Mode == "kafka" {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QuestionIngest)
		defer producer.Close()
		orchOpts = append(orchOpts, orchestrator.WithPublisher(publisher.New(producer)))
		slog.Info("kafka publisher initialized", "topic", cfg.Kafka.Topics.QuestionIngest)
	}

	engine := searcher.New(store, cfg.Search, searcher.WithMetrics(m))
	orch := orchestrator.New(store, cfg.Ingestion, orchOpts...)

	checker := health.NewChecker()
	checker.Register("index", health.IndexCheck(func() (uint64, int, int) {
		s := store.Stats()
		return s.Generation, s.Documents, s.Segments
	}))
	// Disabled dependencies must reach PingCheck as an untyped nil.
	var redisPinger, pgPinger health.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}
	if db != nil {
		pgPinger = db
	}
	checker.Register("redis", health.PingCheck(redisPinger, true))
	checker.Register("postgres", health.PingCheck(pgPinger, true))

	searchH := handler.New(engine, queryCache, m, cfg.Search.MinQueryLength)
	ingestH := ingesthandler.New(orch, store, cfg.Server.MaxUploadBytes)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", searchH.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", searchH.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", searchH.CacheInvalidate)
	mux.HandleFunc("POST /api/v1/ingest/text", ingestH.IngestText)
	mux.HandleFunc("POST /api/v1/documents", ingestH.IngestRecords)
	mux.HandleFunc("GET /api/v1/documents/{id}", ingestH.GetDocument)
	mux.HandleFunc("GET /api/v1/index/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(store.Stats())
	})
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, nil)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
