package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"recall/internal/memory"
)

func newLearnCommand(ctx *commandContext) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "learn <file>...",
		Short: "Ingest corrected output files into the learning memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *memory.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				var failed []string
				for _, path := range args {
					summary, err := store.LearnFromFile(cmd.Context(), path)
					if err != nil {
						failed = append(failed, path)
						fmt.Fprintln(out, renderStatusLine(path, statusError, err.Error(), colorize))
						continue
					}
					printLearnSummary(out, summary, verbose, colorize)
				}
				if len(failed) > 0 {
					return fmt.Errorf("failed to learn from %d of %d file(s)", len(failed), len(args))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the per-pair detail lines")
	return cmd
}

func printLearnSummary(out io.Writer, summary *memory.LearnSummary, verbose, colorize bool) {
	for _, line := range renderSectionHeader(summary.SourceFile, colorize) {
		fmt.Fprintln(out, line)
	}

	if summary.ReplayDetected {
		message := fmt.Sprintf("already learned in session #%d", summary.ReplaySessionID)
		if !summary.ReplayProcessedAt.IsZero() {
			message += " at " + summary.ReplayProcessedAt.Format(time.RFC3339)
		}
		fmt.Fprintln(out, renderStatusLine("Replay", statusWarn, message, colorize))
		return
	}

	fmt.Fprintln(out, renderStatusLine("Records", statusInfo, fmt.Sprintf("%d parsed, %d invalid lines", summary.TotalRecords, summary.InvalidLines), colorize))
	fmt.Fprintln(out, renderStatusLine("Pairs", statusInfo, fmt.Sprintf("%d candidates: %d new, %d updated, %d ignored", summary.CandidatePairs, summary.NewPairs, summary.UpdatedPairs, summary.Ignored), colorize))

	statusKindForSession := statusOK
	if summary.ActiveThisSession == 0 && summary.CandidatePairs > 0 {
		statusKindForSession = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Confidence", statusKindForSession, fmt.Sprintf("%d active, %d quarantined (%d promoted, %d demoted)", summary.ActiveThisSession, summary.QuarantinedThisSession, summary.Promoted, summary.Demoted), colorize))

	if verbose {
		for _, detail := range summary.Details {
			fmt.Fprintln(out, statusIndent+detail)
		}
	}
}
