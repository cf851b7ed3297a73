package cmd

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	httpadapter "leadsync/contexts/sales-ops/lead-sync/adapters/http"
	"leadsync/internal/app/bootstrap"
)

func newListenCommand() *cobra.Command {
	var triggerURL string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Sync the sheet whenever the leads table changes",
		Long: `Subscribes to the change channel and runs a database to sheet sync for
each burst of changes until interrupted. With --trigger-url the sync is
requested from a running API instead of executed locally.`,
		Example: `  leadsync listen
  leadsync listen --trigger-url http://localhost:8080/sync_gsheet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := bootstrap.Options{Listen: true}
			return withRuntime(cmd, opts, func(runtime *bootstrap.Runtime, logger *slog.Logger) error {
				listener := runtime.Module.Listener
				if listener == nil {
					return errors.New("no change source configured")
				}
				if triggerURL != "" {
					listener.Trigger = httpadapter.NewTrigger(triggerURL, logger)
				}
				return listener.Run(cmd.Context())
			})
		},
	}
	cmd.Flags().StringVar(&triggerURL, "trigger-url", "", "POST this URL on change instead of syncing locally")
	return cmd
}
