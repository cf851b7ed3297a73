package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	leadsync "leadsync/contexts/sales-ops/lead-sync"
	httpadapter "leadsync/contexts/sales-ops/lead-sync/adapters/http"
	"leadsync/contexts/sales-ops/lead-sync/adapters/memory"
	postgresadapter "leadsync/contexts/sales-ops/lead-sync/adapters/postgres"
	sheetsadapter "leadsync/contexts/sales-ops/lead-sync/adapters/sheets"
	"leadsync/contexts/sales-ops/lead-sync/application/workers"
	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	"leadsync/contexts/sales-ops/lead-sync/ports"
	"leadsync/internal/platform/config"
	"leadsync/internal/platform/db"
	"leadsync/internal/platform/httpserver"
	"leadsync/internal/platform/messaging"
	"leadsync/internal/shared/events"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	runtime  *Runtime
	listener *workers.ChangeListener
	logger   *slog.Logger
}

type WorkerApp struct {
	runtime  *Runtime
	listener *workers.ChangeListener
	logger   *slog.Logger
}

// Runtime is a fully wired lead-sync module plus the resources it owns.
type Runtime struct {
	Module   leadsync.Module
	Config   config.Config
	postgres *db.Postgres
}

// Options selects the optional pieces BuildRuntime wires.
type Options struct {
	// Listen attaches a change listener to the module.
	Listen bool
	// Trigger replaces the in-process sync the listener would otherwise run.
	Trigger ports.SyncTrigger
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	runtime, err := BuildRuntime(ctx, cfg, logger, Options{Listen: cfg.EnableChangeListener})
	if err != nil {
		return nil, err
	}

	server := httpserver.New(runtime.Module, cfg.ServiceName, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		runtime:  runtime,
		listener: runtime.Module.Listener,
		logger:   logger,
	}, nil
}

// BuildWorker wires a standalone listener. With LISTENER_TRIGGER_URL set each
// change is forwarded to the API's sync endpoint; otherwise the worker syncs
// in-process.
func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	opts := Options{Listen: true}
	if cfg.ListenerTriggerURL != "" {
		opts.Trigger = httpadapter.NewTrigger(cfg.ListenerTriggerURL, logger)
	}
	runtime, err := BuildRuntime(ctx, cfg, logger, opts)
	if err != nil {
		return nil, err
	}
	if runtime.Module.Listener == nil {
		_ = runtime.Close()
		return nil, errors.New("worker requires a change source")
	}
	return &WorkerApp{
		runtime:  runtime,
		listener: runtime.Module.Listener,
		logger:   logger,
	}, nil
}

// BuildRuntime wires the module against the configured store backend.
func BuildRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	listener := leadsync.ListenerSettings{
		PollInterval:     cfg.ListenerPollInterval,
		DebounceWindow:   cfg.ListenerDebounce,
		ResubscribeDelay: cfg.ListenerResubscribeDelay,
	}

	if cfg.StoreBackend == config.StoreBackendMemory {
		return buildMemoryRuntime(ctx, cfg, logger, opts, listener)
	}

	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN or DB_HOST is required")
	}
	sheet, err := buildSheet(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	pg, err := db.ConnectContext(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	repo := postgresadapter.NewRepository(pg.DB, logger)
	if cfg.EnableSchemaBootstrap {
		if err := repo.EnsureSchema(ctx, cfg.NotifyChannel); err != nil {
			_ = pg.Close()
			return nil, err
		}
	}

	deps := leadsync.Dependencies{
		Sheet:       sheet,
		Leads:       repo,
		Clock:       postgresadapter.SystemClock{},
		IDGenerator: postgresadapter.UUIDGenerator{},
		KeyField:    entities.LeadKeyField,
		Trigger:     opts.Trigger,
		Listener:    listener,
		Logger:      logger,
	}
	if opts.Listen {
		notifier, err := postgresadapter.NewNotifier(pg.DSN, cfg.NotifyChannel, logger)
		if err != nil {
			_ = pg.Close()
			return nil, err
		}
		deps.Changes = notifier
	}

	return &Runtime{
		Module:   leadsync.NewModule(deps),
		Config:   cfg,
		postgres: pg,
	}, nil
}

// buildMemoryRuntime keeps leads in process and publishes every mutation on
// an in-process bus, so the listener path behaves as it does against
// PostgreSQL. The sheet stays in memory unless a spreadsheet is configured.
func buildMemoryRuntime(
	ctx context.Context,
	cfg config.Config,
	logger *slog.Logger,
	opts Options,
	listener leadsync.ListenerSettings,
) (*Runtime, error) {
	store := memory.NewStore()
	deps := leadsync.Dependencies{
		Leads:       store,
		Clock:       store,
		IDGenerator: store,
		KeyField:    entities.LeadKeyField,
		Trigger:     opts.Trigger,
		Listener:    listener,
		Logger:      logger,
	}

	var memorySheet *memory.Sheet
	if strings.TrimSpace(cfg.SpreadsheetID) != "" {
		sheet, err := buildSheet(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		deps.Sheet = sheet
	} else {
		memorySheet = memory.NewSheet(nil)
		deps.Sheet = memorySheet
	}

	if opts.Listen {
		bus := messaging.NewBus(logger)
		channel := cfg.NotifyChannel
		store.OnChange(func(ctx context.Context, op string, leadID int64) {
			payload, err := events.LeadChanged(cfg.ServiceName, op, leadID, time.Now()).Encode()
			if err != nil {
				logger.Error("encode lead change failed",
					"event", "bootstrap_change_encode_failed",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"error", err.Error(),
				)
				return
			}
			_ = bus.Publish(ctx, channel, payload)
		})
		deps.Changes = bus.Source(channel)
	}

	module := leadsync.NewModule(deps)
	module.Store = store
	module.Sheet = memorySheet
	return &Runtime{Module: module, Config: cfg}, nil
}

func buildSheet(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sheetsadapter.Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("SPREADSHEET_ID is required")
	}
	return sheetsadapter.NewClient(ctx, sheetsadapter.Config{
		SpreadsheetID:   cfg.SpreadsheetID,
		RangeName:       cfg.RangeName,
		SheetID:         cfg.SheetGID,
		CredentialsFile: cfg.GoogleCredentialsFile,
	}, logger)
}

// EnsureSchema creates the leads table and its change trigger without wiring
// the rest of the module.
func EnsureSchema(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return errors.New("POSTGRES_DSN or DB_HOST is required")
	}
	pg, err := db.ConnectContext(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer pg.Close()
	return postgresadapter.NewRepository(pg.DB, logger).EnsureSchema(ctx, cfg.NotifyChannel)
}

func (r *Runtime) Close() error {
	if r != nil && r.postgres != nil {
		return r.postgres.Close()
	}
	return nil
}

// Run serves HTTP and, when enabled, listens for changes until ctx is
// cancelled or either side fails.
func (a *APIApp) Run(ctx context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"listener", a.listener != nil,
		)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.server.Run(groupCtx)
	})
	if a.listener != nil {
		group.Go(func() error {
			return a.listener.Run(groupCtx)
		})
	}
	return group.Wait()
}

func (a *APIApp) Close() error {
	return a.runtime.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.runtime.Config.ListenerPollInterval.String(),
		"channel", w.runtime.Config.NotifyChannel,
	)
	return w.listener.Run(ctx)
}

func (w *WorkerApp) Close() error {
	return w.runtime.Close()
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
