package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"leadsync/internal/app/bootstrap"
)

func newSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one reconciliation in either direction",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "postgres",
		Short: "Make the leads table match the sheet",
		Long: `Reads every sheet row, upserts new and changed leads by lead_id and
deletes leads that are no longer in the sheet. An empty sheet changes
nothing.`,
		Example: `  leadsync sync postgres
  leadsync sync postgres --backend memory`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, bootstrap.Options{}, func(runtime *bootstrap.Runtime, _ *slog.Logger) error {
				resp, err := runtime.Module.Handler.SyncPostgresHandler(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "gsheet",
		Short: "Make the sheet match the leads table",
		Long: `Deletes sheet rows whose lead is gone and rewrites the range when any
lead is new or changed. An empty leads table changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, bootstrap.Options{}, func(runtime *bootstrap.Runtime, _ *slog.Logger) error {
				resp, err := runtime.Module.Handler.SyncGSheetHandler(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	})
	return cmd
}
