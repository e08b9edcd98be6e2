package cli

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/searcher"
)

func (a *app) searchCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed questions",
		Long: `Runs a query over content, tags, subject and year. Terms are ANDed by
default; OR, NOT, field:term, "phrases" and parentheses are supported. When
the exact query finds nothing, a typo-tolerant pass runs automatically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(args[0])
			if n := a.cfg.Search.MinQueryLength; utf8.RuneCountInString(query) < n {
				return fmt.Errorf("query must be at least %d characters", n)
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			out := searcher.New(store, a.cfg.Search).Search(cmd.Context(), query, limit)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), out)
			}
			writeOutcome(cmd.OutOrStdout(), out)
			if out.Status == searcher.StatusError {
				return fmt.Errorf("search failed: %w", out.Err)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results (defaults to search.defaultLimit)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the outcome as JSON")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print one stored question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			doc, ok := store.Document(args[0])
			if !ok {
				return fmt.Errorf("document %q not found", args[0])
			}
			return printJSON(cmd.OutOrStdout(), doc.Document)
		},
	}
}

func writeOutcome(w io.Writer, out searcher.Outcome) {
	switch out.Status {
	case searcher.StatusError:
		fmt.Fprintln(w, "Search error.")
		return
	case searcher.StatusEmpty:
		fmt.Fprintln(w, "No results found.")
		return
	}
	fmt.Fprintf(w, "%d result(s), %s match:\n\n", len(out.Hits), out.Tier)
	for i, hit := range out.Hits {
		fmt.Fprintf(w, "  [%d] %s (%.2f)\n", i+1, hit.ID, hit.Score)
		if hit.Subject != "" || hit.Year != "" {
			fmt.Fprintf(w, "      %s %s\n", hit.Subject, hit.Year)
		}
		fmt.Fprintf(w, "      %s\n", firstLine(hit.Content))
		if hit.CorrectAnswer != "" {
			fmt.Fprintf(w, "      Answer: %s\n", hit.CorrectAnswer)
		}
		fmt.Fprintln(w)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
