package leadsync

import (
	"context"
	"log/slog"
	"time"

	httpadapter "leadsync/contexts/sales-ops/lead-sync/adapters/http"
	"leadsync/contexts/sales-ops/lead-sync/adapters/memory"
	"leadsync/contexts/sales-ops/lead-sync/application/commands"
	"leadsync/contexts/sales-ops/lead-sync/application/queries"
	"leadsync/contexts/sales-ops/lead-sync/application/workers"
	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	"leadsync/contexts/sales-ops/lead-sync/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Sync     commands.SyncUseCase
	Listener *workers.ChangeListener
	Store    *memory.Store
	Sheet    *memory.Sheet
}

type ListenerSettings struct {
	PollInterval     time.Duration
	DebounceWindow   time.Duration
	ResubscribeDelay time.Duration
}

type Dependencies struct {
	Sheet       ports.SheetStore
	Leads       ports.LeadSessions
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	KeyField    string
	// Changes enables the change listener when set. Trigger defaults to an
	// in-process DB to sheet sync.
	Changes  ports.ChangeSource
	Trigger  ports.SyncTrigger
	Listener ListenerSettings
	Logger   *slog.Logger
}

func NewModule(deps Dependencies) Module {
	sync := commands.SyncUseCase{
		Sheet:    deps.Sheet,
		Leads:    deps.Leads,
		Clock:    deps.Clock,
		IDGen:    deps.IDGenerator,
		KeyField: deps.KeyField,
		Logger:   deps.Logger,
	}
	leads := queries.LeadsUseCase{
		Leads: deps.Leads,
	}

	module := Module{
		Handler: httpadapter.Handler{
			Sync:   sync,
			Leads:  leads,
			Logger: deps.Logger,
		},
		Sync: sync,
	}
	if deps.Changes != nil {
		trigger := deps.Trigger
		if trigger == nil {
			trigger = DirectTrigger(sync)
		}
		module.Listener = &workers.ChangeListener{
			Source:           deps.Changes,
			Trigger:          trigger,
			PollInterval:     deps.Listener.PollInterval,
			DebounceWindow:   deps.Listener.DebounceWindow,
			ResubscribeDelay: deps.Listener.ResubscribeDelay,
			Logger:           deps.Logger,
		}
	}
	return module
}

// DirectTrigger runs a DB to sheet sync in-process for each change.
func DirectTrigger(sync commands.SyncUseCase) ports.SyncTrigger {
	return ports.SyncTriggerFunc(func(ctx context.Context, _ entities.ChangeEvent) error {
		_, err := sync.SyncGSheet(ctx)
		return err
	})
}

// NewInMemoryModule wires both stores in memory. changes may be nil; callers
// that pass a source are expected to feed it from Store.OnChange.
func NewInMemoryModule(rows [][]any, seed []entities.Lead, changes ports.ChangeSource, logger *slog.Logger) Module {
	sheet := memory.NewSheet(rows)
	store := memory.NewStore(seed...)
	module := NewModule(Dependencies{
		Sheet:       sheet,
		Leads:       store,
		Clock:       store,
		IDGenerator: store,
		Changes:     changes,
		Listener: ListenerSettings{
			PollInterval:     50 * time.Millisecond,
			DebounceWindow:   50 * time.Millisecond,
			ResubscribeDelay: 50 * time.Millisecond,
		},
		Logger: logger,
	})
	module.Store = store
	module.Sheet = sheet
	return module
}
