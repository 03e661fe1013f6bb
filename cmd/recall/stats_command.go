package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"recall/internal/memory"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show learning memory totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *memory.Store) error {
				summary, err := store.MemorySummary(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", summary.DatabasePath)
				fmt.Fprintln(out, renderTable(
					[]string{"Metric", "Value"},
					[][]string{
						{"Learned pairs", strconv.Itoa(summary.TotalPairs)},
						{"Distinct names", strconv.Itoa(summary.TotalNames)},
						{"Distinct documents", strconv.Itoa(summary.TotalDocuments)},
						{"Active", strconv.Itoa(summary.ActivePairs)},
						{"Quarantined", strconv.Itoa(summary.QuarantinedPairs)},
					},
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
