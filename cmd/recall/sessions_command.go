package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"recall/internal/memory"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions [id]",
		Short: "List ingestion sessions or show one session's audit trail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				sessionID, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || sessionID < 1 {
					return fmt.Errorf("invalid session id %q", args[0])
				}
				return ctx.withStore(func(store *memory.Store) error {
					return printSessionItems(cmd, store, sessionID)
				})
			}
			return ctx.withStore(func(store *memory.Store) error {
				return printSessions(cmd, store, limit)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions to list")
	return cmd
}

func printSessions(cmd *cobra.Command, store *memory.Store, limit int) error {
	sessions, err := store.Sessions(cmd.Context(), limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No ingestion sessions recorded")
		return nil
	}

	rows := make([][]string, 0, len(sessions))
	for _, session := range sessions {
		processed := ""
		if !session.ProcessedAt.IsZero() {
			processed = session.ProcessedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{
			strconv.FormatInt(session.ID, 10),
			processed,
			session.SourceFile,
			strconv.Itoa(session.TotalRecords),
			strconv.Itoa(session.Learned),
			strconv.Itoa(session.Updated),
			strconv.Itoa(session.Ignored),
			strconv.Itoa(session.InvalidLines),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Processed", "Source", "Records", "New", "Updated", "Ignored", "Invalid"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
	return nil
}

func printSessionItems(cmd *cobra.Command, store *memory.Store, sessionID int64) error {
	items, err := store.SessionItems(cmd.Context(), sessionID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintf(out, "No audit entries for session %d\n", sessionID)
		return nil
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			string(item.Role),
			item.NameOriginal,
			item.Document,
			string(item.DocumentKind),
			item.Action,
			strconv.Itoa(item.OccurrencesFile),
			strconv.Itoa(item.OccurrencesTotal),
			item.SampleRefs,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Role", "Name", "Document", "Kind", "Action", "In file", "Total", "Invoices"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	return nil
}
