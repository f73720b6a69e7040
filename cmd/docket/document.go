package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/docket/pkg/typed"
)

func newAddCmd(a *app) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "add <fields>",
		Short: "Add a document",
		Long: `Add a document with the given fields, written as a YAML or JSON mapping.
Without --id the store generates the identifier. With --id an existing
document is replaced.`,
		Example: `  docket add -c users '{name: Ada, age: 36}'
  docket add -c users --id ada '{"name": "Ada"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			repo, factory, err := a.documents(ctx)
			if err != nil {
				return err
			}
			defer factory.Close()

			added, err := repo.Add(ctx, &typed.Document{Fields: fields}, id)
			if err != nil {
				return fmt.Errorf("failed to add document: %w", err)
			}
			return newPrinter(cmd.OutOrStdout()).document(added)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Document ID (generated when empty)")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Read a document",
		Long: `Read a document once, or with --watch print every new state until interrupted.
A missing document is printed as {"id": ..., "exists": false}.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, factory, err := a.documents(ctx)
			if err != nil {
				return err
			}
			defer factory.Close()
			out := newPrinter(cmd.OutOrStdout())
			id := args[0]

			emit := func(doc *typed.Document) error {
				if doc == nil {
					return out.missing(id)
				}
				return out.document(doc)
			}

			if !watch {
				doc, err := repo.Find(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to read document: %w", err)
				}
				return emit(doc)
			}

			ctx, stop := interruptible(ctx)
			defer stop()
			return drain(repo.Get(ctx, id), emit)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep printing the document as it changes")
	return cmd
}

func newExistsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <id>",
		Short: "Check whether a document exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, factory, err := a.documents(ctx)
			if err != nil {
				return err
			}
			defer factory.Close()

			ok, err := repo.Exists(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to check document: %w", err)
			}
			return newPrinter(cmd.OutOrStdout()).exists(args[0], ok)
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <fields>",
		Short: "Merge fields into an existing document",
		Long: `Merge the given fields into an existing document. Dotted keys such as
"address.city" address nested fields. Updating a missing document fails.`,
		Example: `  docket update -c users ada '{age: 37, "address.city": London}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			repo, factory, err := a.documents(ctx)
			if err != nil {
				return err
			}
			defer factory.Close()

			if err := repo.UpdateFields(ctx, args[0], fields); err != nil {
				return fmt.Errorf("failed to update document: %w", err)
			}
			a.logger.Info("document updated", "id", args[0])
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, factory, err := a.documents(ctx)
			if err != nil {
				return err
			}
			defer factory.Close()

			if err := repo.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete document: %w", err)
			}
			a.logger.Info("document deleted", "id", args[0])
			return nil
		},
	}
}
