package commands

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	"leadsync/contexts/sales-ops/lead-sync/ports"
)

const (
	moduleName = "sales-ops/lead-sync"

	MessageNoSheetData     = "No data found in Google Sheets."
	MessageNoDatabaseData  = "No data found in the database."
	MessageSyncedPostgres  = "Data from Google Sheets synced to PostgreSQL."
	MessagePostgresCurrent = "PostgreSQL already matches Google Sheets."
	MessageSyncedSheet     = "Google Sheets updated with the latest data from the database."
	MessageSheetCurrent    = "Google Sheets already matches the database."
)

// SyncResult summarizes one reconciliation run.
type SyncResult struct {
	RunID     string
	Direction entities.Direction
	Message   string
	NoData    bool
	Plan      entities.Plan
	Upserted  int
	Deleted   int
	Dropped   int
	Duration  time.Duration
}

// SyncUseCase reconciles the sheet and the leads table in either direction.
// Runs do not roll back across stores: a failure leaves whatever was already
// applied and the next successful run converges.
type SyncUseCase struct {
	Sheet    ports.SheetStore
	Leads    ports.LeadSessions
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	KeyField string
	Logger   *slog.Logger
}

func (uc SyncUseCase) keyField() string {
	if strings.TrimSpace(uc.KeyField) == "" {
		return entities.LeadKeyField
	}
	return uc.KeyField
}

func (uc SyncUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc SyncUseCase) runID(ctx context.Context) string {
	if uc.IDGen == nil {
		return strconv.FormatInt(uc.now().UnixNano(), 36)
	}
	id, err := uc.IDGen.NewID(ctx)
	if err != nil || strings.TrimSpace(id) == "" {
		return strconv.FormatInt(uc.now().UnixNano(), 36)
	}
	return id
}

func parseLeadIDs(keys []string) ([]int64, error) {
	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
