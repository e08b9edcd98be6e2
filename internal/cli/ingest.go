package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion/orchestrator"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion/seed"
)

func (a *app) ingestTextCmd() *cobra.Command {
	var (
		source    string
		year      string
		normalize bool
	)
	cmd := &cobra.Command{
		Use:   "ingest-text <file>",
		Short: "Segment an extracted paper text file and index its questions",
		Long: `Reads text extracted from a question paper, splits it into numbered
questions and indexes each as "<source>_<number>". The source defaults to
the file name without its extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if source == "" {
				source = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			resp, err := a.newOrchestrator(store).IngestText(cmd.Context(), ingestion.TextRequest{
				Source:    source,
				Year:      year,
				Text:      string(data),
				Normalize: normalize,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "source label used in document ids")
	cmd.Flags().StringVar(&year, "year", "", "paper year (defaults to ingestion.defaultYear)")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "repair OCR damage before segmenting")
	return cmd
}

func (a *app) loadCmd() *cobra.Command {
	var (
		source string
		limit  int
		resume bool
	)
	cmd := &cobra.Command{
		Use:   "load <records.jsonl>",
		Short: "Index question records from a JSON Lines file",
		Long: `Reads one question record per line. Records may carry content directly or
the OCR shape (question_text plus options).

With --resume each record is committed on its own and ids already in the
index are skipped, so an interrupted load can simply be run again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()
			records, err := readRecords(f)
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if source == "" {
				source = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			orch := a.newOrchestrator(store)

			if resume {
				items := make([]orchestrator.WorkItem, 0, len(records))
				for _, rec := range records {
					items = append(items, orchestrator.WorkItem{
						ID: rec.ID,
						Produce: func(context.Context) (ingestion.Record, error) {
							return rec, nil
						},
					})
				}
				report, err := orch.RunResumable(cmd.Context(), items, limit)
				if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
					return perr
				}
				return err
			}

			if limit > 0 && limit < len(records) {
				records = records[:limit]
			}
			resp, err := orch.IngestRecords(cmd.Context(), source, records)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "batch source label (defaults to the file name)")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many records (0 for all)")
	cmd.Flags().BoolVar(&resume, "resume", false, "commit one record at a time and skip ids already indexed")
	return cmd
}

func (a *app) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Index the built-in sample questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := seed.Records()
			if err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			resp, err := a.newOrchestrator(store).IngestRecords(cmd.Context(), seed.Source, records)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

// readRecords decodes JSON Lines, skipping blank lines.
func readRecords(r io.Reader) ([]ingestion.Record, error) {
	var records []ingestion.Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 2<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rec ingestion.Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
