package main

import (
	"context"

	"github.com/spf13/cobra"

	walletmongo "github.com/guildwallet/walletdb/store/mongo"
)

func newKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the keys collection of the wallet database",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <id>",
			Short: "Print the key document with the given id",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(cmd, func(ctx context.Context, s *walletmongo.Store) error {
					doc, err := s.FindKeyByID(ctx, args[0])
					if err != nil {
						return err
					}
					return writeDocument(cmd.OutOrStdout(), doc)
				})
			},
		},
		&cobra.Command{
			Use:   "put <document>",
			Short: "Insert a key document; it must carry an _id",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				doc, err := parseDocument(args[0])
				if err != nil {
					return err
				}
				return a.withStore(cmd, func(ctx context.Context, s *walletmongo.Store) error {
					return s.SaveKey(ctx, doc)
				})
			},
		},
	)
	return cmd
}
