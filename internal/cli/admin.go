package cli

import (
	"github.com/spf13/cobra"
)

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the current index generation, segments and document count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			return printJSON(cmd.OutOrStdout(), store.Stats())
		},
	}
}

func (a *app) mergeCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge index segments",
		Long: `Merges segments when their number exceeds indexer.maxSegmentsBeforeMerge.
With --all every live document is rewritten into a single segment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if all {
				err = store.Compact()
			} else {
				err = store.Merge()
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), store.Stats())
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "compact into one segment regardless of count")
	return cmd
}
