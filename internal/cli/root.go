// Package cli implements the qbank command line tool: local ingestion,
// search and maintenance against an index directory.
//
// The CLI writes to the index directly, so it must not run alongside a
// service that is writing to the same directory.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion/orchestrator"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/logger"
)

type app struct {
	configPath string
	indexDir   string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd builds the command tree. Each call returns independent flag
// state, so tests can execute it repeatedly.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "qbank",
		Short:         "Segment, index and search exam question banks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (defaults and QB_* env when empty)")
	root.PersistentFlags().StringVar(&a.indexDir, "index", "", "index directory (overrides indexer.dataDir)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides logging.level)")

	root.AddCommand(
		a.ingestTextCmd(),
		a.loadCmd(),
		a.seedCmd(),
		a.searchCmd(),
		a.getCmd(),
		a.statsCmd(),
		a.mergeCmd(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		stop()
		os.Exit(1)
	}
}

func (a *app) load(logOut io.Writer) error {
	_ = godotenv.Load()
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.indexDir != "" {
		cfg.Indexer.DataDir = a.indexDir
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	// Logs go to stderr so that stdout carries only command output.
	logger.SetupWriter(logOut, cfg.Logging.Level, "text")
	a.cfg = cfg
	return nil
}

func (a *app) openStore() (*indexer.Store, error) {
	store, err := indexer.Open(a.cfg.Indexer)
	if err != nil {
		return nil, fmt.Errorf("opening index %s: %w", a.cfg.Indexer.DataDir, err)
	}
	return store, nil
}

// newOrchestrator always commits in-process, whatever ingestion.mode says.
func (a *app) newOrchestrator(store *indexer.Store) *orchestrator.Orchestrator {
	ingestCfg := a.cfg.Ingestion
	ingestCfg.Mode = "direct"
	return orchestrator.New(store, ingestCfg)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	return nil
}
