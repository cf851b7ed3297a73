package ports

import (
	"context"
	"time"

	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
)

// SheetStore is the spreadsheet collaborator. Rows are returned header first,
// in sheet order. WriteRows replaces the whole configured range.
type SheetStore interface {
	ReadAllRows(ctx context.Context) ([][]any, error)
	WriteRows(ctx context.Context, rows [][]any) error
	// DeleteRowsAt removes the given 1-based sheet rows in one batch. Callers
	// pass positions computed before any deletion.
	DeleteRowsAt(ctx context.Context, positions []int) error
}

// LeadRepository is the relational store as seen inside one session.
type LeadRepository interface {
	FetchAllLeads(ctx context.Context) ([]entities.Lead, error)
	UpsertLeads(ctx context.Context, leads []entities.Lead) error
	DeleteLeads(ctx context.Context, leadIDs []int64) error
}

// LeadSessions hands out a scoped repository session per reconciliation run.
// The session is released when fn returns, whatever the outcome.
type LeadSessions interface {
	WithSession(ctx context.Context, fn func(ctx context.Context, repo LeadRepository) error) error
}

// ChangeSource opens subscriptions to the relational store's change channel.
type ChangeSource interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription delivers change events. Next blocks until an event arrives or
// ctx is done; a ctx deadline reports context.DeadlineExceeded.
type Subscription interface {
	Next(ctx context.Context) (entities.ChangeEvent, error)
	Close(ctx context.Context) error
}

// SyncTrigger starts one reconciliation run in response to a change.
type SyncTrigger interface {
	Trigger(ctx context.Context, event entities.ChangeEvent) error
}

type SyncTriggerFunc func(ctx context.Context, event entities.ChangeEvent) error

func (f SyncTriggerFunc) Trigger(ctx context.Context, event entities.ChangeEvent) error {
	return f(ctx, event)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
