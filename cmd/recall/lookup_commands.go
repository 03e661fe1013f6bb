package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"recall/internal/memory"
)

func newLookupCommand(ctx *commandContext) *cobra.Command {
	lookupCmd := &cobra.Command{
		Use:   "lookup",
		Short: "Resolve learned names and documents",
	}

	lookupCmd.AddCommand(newLookupDocumentCommand(ctx))
	lookupCmd.AddCommand(newLookupNameCommand(ctx))

	return lookupCmd
}

func newLookupDocumentCommand(ctx *commandContext) *cobra.Command {
	var roleFlag string

	cmd := &cobra.Command{
		Use:   "document <name>",
		Short: "Find the learned document for a name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := parseRoleFlag(roleFlag)
			if err != nil {
				return err
			}
			name := strings.Join(args, " ")

			return ctx.withStore(func(store *memory.Store) error {
				document, ok := store.FindDocumentByName(name, role)
				if !ok {
					return fmt.Errorf("no confident match for %q", name)
				}
				fmt.Fprintln(cmd.OutOrStdout(), document)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&roleFlag, "role", "", "Restrict the lookup to one role (issuer, contracting_party, recipient)")
	return cmd
}

func newLookupNameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "name <document>",
		Short: "Find the learned name for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *memory.Store) error {
				name, ok := store.FindNameByDocument(args[0])
				if !ok {
					return fmt.Errorf("no confident match for %q", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), name)
				return nil
			})
		},
	}
}

func parseRoleFlag(value string) (memory.Role, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	role, ok := memory.ParseRole(value)
	if !ok {
		roles := make([]string, 0, len(memory.AllRoles()))
		for _, r := range memory.AllRoles() {
			roles = append(roles, string(r))
		}
		return "", fmt.Errorf("unknown role %q (expected one of %s)", value, strings.Join(roles, ", "))
	}
	return role, nil
}
