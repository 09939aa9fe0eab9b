package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/guildwallet/walletdb/store"
	walletmongo "github.com/guildwallet/walletdb/store/mongo"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <db> <collection> <id>",
		Short: "Print the document with the given id",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s *walletmongo.Store) error {
				doc, err := s.FindEntryByID(ctx, args[0], args[1], args[2])
				if err != nil {
					return err
				}
				return writeDocument(cmd.OutOrStdout(), doc)
			})
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <db> <collection>",
		Short: "Print every document of a collection, one per line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s *walletmongo.Store) error {
				docs, err := s.FindDocuments(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				for _, doc := range docs {
					if err := writeDocument(cmd.OutOrStdout(), doc); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newPutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "put <db> <collection> <document>",
		Short: "Insert a document",
		Long:  `Inserts the Extended JSON document. A random UUID is used as _id when the document has none.`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseDocument(args[2])
			if err != nil {
				return err
			}
			if _, ok := doc.ID(); !ok {
				doc[store.IDField] = uuid.NewString()
			}
			return a.withStore(cmd, func(ctx context.Context, s *walletmongo.Store) error {
				if err := s.SaveEntry(ctx, args[0], args[1], doc); err != nil {
					return err
				}
				id, _ := doc.ID()
				_, err := fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <db> <collection> <id>",
		Short: "Delete the document with the given id",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s *walletmongo.Store) error {
				removed, err := s.RemoveEntry(ctx, args[0], args[1], args[2])
				if err != nil {
					return err
				}
				printModified(cmd, "removed", removed)
				return nil
			})
		},
	}
}

func newIncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inc <db> <collection> <id> <field=delta>...",
		Short: "Atomically increment numeric fields",
		Args:  cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			deltas, err := parseDeltas(args[3:])
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, s *walletmongo.Store) error {
				modified, err := s.IncrementFields(ctx, args[0], args[1], args[2], deltas)
				if err != nil {
					return err
				}
				printModified(cmd, "modified", modified)
				return nil
			})
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <db> <collection> <query> <update>",
		Short: "Set fields on the first document matching query",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := parseDocument(args[2])
			if err != nil {
				return err
			}
			update, err := parseDocument(args[3])
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, s *walletmongo.Store) error {
				modified, err := s.UpdateDocument(ctx, args[0], args[1], query, update)
				if err != nil {
					return err
				}
				printModified(cmd, "modified", modified)
				return nil
			})
		},
	}
}

func newPushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "push <db> <collection> <id> <field> <item>",
		Short: "Append an item to an array field",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			item := parseValue(args[4])
			return a.withStore(cmd, func(ctx context.Context, s *walletmongo.Store) error {
				modified, err := s.AddItemToArray(ctx, args[0], args[1], args[2], args[3], item)
				if err != nil {
					return err
				}
				printModified(cmd, "modified", modified)
				return nil
			})
		},
	}
}

func printModified(cmd *cobra.Command, label string, ok bool) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %t\n", label, ok)
}
