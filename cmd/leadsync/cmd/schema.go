package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"leadsync/internal/app/bootstrap"
	"leadsync/internal/platform/config"
)

func newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the leads table and its change trigger",
		Long: `Creates the leads table if it is missing and (re)installs the row
trigger that notifies NOTIFY_CHANNEL on every insert, update and delete.
Safe to run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreBackend != config.StoreBackendPostgres {
				return fmt.Errorf("schema requires the %s backend", config.StoreBackendPostgres)
			}
			logger := newLogger(cmd.ErrOrStderr())
			if err := bootstrap.EnsureSchema(cmd.Context(), cfg, logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready, notifying on %q\n", cfg.NotifyChannel)
			return nil
		},
	}
}
