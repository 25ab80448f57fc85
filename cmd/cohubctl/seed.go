package main

import (
	"fmt"
	"log/slog"

	"github.com/ashureev/cohub/internal/seed"
	"github.com/spf13/cobra"
)

func newSeedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Replace dashboard fixtures from a YAML file",
		Long: `Load a YAML fixture file into the database.

Each top-level list (payments, issues, residents, properties) replaces its
table. Lists absent from the file leave their table untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openStore()
			if err != nil {
				return err
			}
			defer repo.Close()

			loader := seed.NewLoader(repo, nil, slog.Default())
			if err := loader.Apply(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s into %s\n", successStyle.Render("Seeded"), args[0], opts.cfg.DBPath)
			return nil
		},
	}
}
