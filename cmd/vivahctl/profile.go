package main

import (
	"fmt"

	"github.com/matheus3301/vivah/internal/chat"
	"github.com/matheus3301/vivah/internal/paths"
	"github.com/spf13/cobra"
)

func newProfileCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage member profiles",
	}

	var p chat.Profile
	add := &cobra.Command{
		Use:   "add <id>",
		Short: "Create or update a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := paths.ValidateID(args[0]); err != nil {
				return err
			}
			p.ID = args[0]

			ac, closeFn, err := opts.connect(false)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := ac.Backend.UpsertProfile(cmd.Context(), p); err != nil {
				return err
			}
			if opts.JSON {
				return outputJSON(cmd.OutOrStdout(), p)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Profile %s saved\n", p.ID)
			return nil
		},
	}
	add.Flags().StringVar(&p.FirstName, "first", "", "first name")
	add.Flags().StringVar(&p.LastName, "last", "", "last name")
	add.Flags().StringVar(&p.PhotoURL, "photo", "", "photo URL")

	cmd.AddCommand(add)
	return cmd
}
