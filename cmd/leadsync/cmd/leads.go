package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"leadsync/internal/app/bootstrap"
)

func newLeadsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "leads",
		Short: "Print every lead in the database as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, bootstrap.Options{}, func(runtime *bootstrap.Runtime, _ *slog.Logger) error {
				resp, err := runtime.Module.Handler.ListLeadsHandler(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
}
