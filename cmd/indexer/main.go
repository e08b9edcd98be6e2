// Command indexer consumes question batches from Kafka and commits them to
// the on-disk index. It is the single index writer when ingestion runs in
// kafka mode, and also runs periodic segment merges.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion/ledger"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer service", "index_dir", cfg.Indexer.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	store, err := indexer.Open(cfg.Indexer, indexer.WithMetrics(m))
	if err != nil {
		slog.Error("failed to open index", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.EnsureSchema(); err != nil {
		slog.Error("failed to create index", "error", err)
		os.Exit(1)
	}
	store.StartMergeLoop(ctx)
	slog.Info("merge loop started", "interval", cfg.Indexer.MergeInterval)

	handlerCfg := consumer.Config{
		Retry:   resilience.RetryConfig{MaxAttempts: cfg.Ingestion.RetryMax},
		Metrics: m,
	}
	var db *postgres.Client
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
				handlerCfg.Ledger = l
			}
		}
	}

	checker := health.NewChecker()
	checker.Register("index", health.IndexCheck(func() (uint64, int, int) {
		st := store.Stats()
		return st.Generation, st.Documents, st.Segments
	}))
	var pgPinger health.Pinger
	if db != nil {
		pgPinger = db
	}
	checker.Register("postgres", health.PingCheck(pgPinger, true))
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, map[string]http.Handler{
			"GET /health/live":  checker.LiveHandler(),
			"GET /health/ready": checker.ReadyHandler(),
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	kafkaConsumer := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.QuestionIngest,
		consumer.HandleMessage(store, handlerCfg),
	)
	indexConsumer := consumer.New(kafkaConsumer)

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.QuestionIngest,
		"group", cfg.Kafka.ConsumerGroup,
	)

	if err := indexConsumer.Start(ctx); err != nil && ctx.Err() == nil {
		slog.Error("consumer error", "error", err)
	}

	stats := store.Stats()
	slog.Info("indexer service stopped",
		"generation", stats.Generation,
		"documents", stats.Documents,
	)
}
