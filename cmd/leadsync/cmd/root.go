package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"leadsync/internal/app/bootstrap"
	"leadsync/internal/platform/config"
)

var (
	verbose bool
	backend string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "leadsync",
	Short: "Reconcile sales leads between a spreadsheet and PostgreSQL",
	Long: `leadsync keeps a Google Sheets lead list and the PostgreSQL leads
table in agreement. Each sync reads both sides, computes the inserts,
updates and deletes needed on the target and applies them.

Configuration is read from the environment and from a .env file in the
working directory.`,
	SilenceUsage: true,
}

// Execute runs the root command until completion or SIGINT/SIGTERM.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Override STORE_BACKEND (postgres or memory)")

	rootCmd.AddCommand(newSyncCommand())
	rootCmd.AddCommand(newLeadsCommand())
	rootCmd.AddCommand(newSchemaCommand())
	rootCmd.AddCommand(newListenCommand())
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if backend != "" {
		cfg.StoreBackend = backend
	}
	return cfg, nil
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// withRuntime builds the module for one command and releases it afterwards.
func withRuntime(cmd *cobra.Command, opts bootstrap.Options, fn func(*bootstrap.Runtime, *slog.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr()).With("service", cfg.ServiceName, "process", "cli")
	runtime, err := bootstrap.BuildRuntime(cmd.Context(), cfg, logger, opts)
	if err != nil {
		return err
	}
	defer runtime.Close()
	return fn(runtime, logger)
}

func printJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
