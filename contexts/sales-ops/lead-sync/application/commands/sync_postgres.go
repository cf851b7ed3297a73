package commands

import (
	"context"
	"errors"

	application "leadsync/contexts/sales-ops/lead-sync/application"
	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	domainerrors "leadsync/contexts/sales-ops/lead-sync/domain/errors"
	"leadsync/contexts/sales-ops/lead-sync/domain/services"
	"leadsync/contexts/sales-ops/lead-sync/ports"
)

// SyncPostgres makes the leads table match the sheet. The sheet decides which
// rows exist: changed or new rows are upserted by lead_id and rows missing from
// the sheet are deleted in one batch.
func (uc SyncUseCase) SyncPostgres(ctx context.Context) (SyncResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	started := uc.now()
	result := SyncResult{
		RunID:     uc.runID(ctx),
		Direction: entities.DirectionSheetToDB,
	}
	logger = logger.With("run_id", result.RunID, "direction", string(result.Direction))
	logger.Info("sheet to postgres sync started",
		"event", "lead_sync_postgres_started",
		"module", moduleName,
		"layer", "application",
	)

	rows, err := uc.Sheet.ReadAllRows(ctx)
	if err != nil {
		err = domainerrors.NewReadError("sheet", "read_all_rows", err)
		logger.Error("sheet read failed",
			"event", "lead_sync_postgres_sheet_read_failed",
			"module", moduleName,
			"layer", "application",
			"error", err.Error(),
		)
		return SyncResult{}, err
	}
	if len(rows) == 0 {
		logger.Info("sheet has no data",
			"event", "lead_sync_postgres_no_data",
			"module", moduleName,
			"layer", "application",
		)
		result.Message = MessageNoSheetData
		result.NoData = true
		result.Duration = uc.now().Sub(started)
		return result, nil
	}

	source, stats, err := services.NormalizeRows(rows, uc.keyField())
	if err != nil {
		logger.Warn("sheet rows rejected",
			"event", "lead_sync_postgres_normalize_failed",
			"module", moduleName,
			"layer", "application",
			"error", err.Error(),
		)
		return SyncResult{}, err
	}
	result.Dropped = stats.Dropped()
	logger.Info("sheet rows normalized",
		"event", "lead_sync_postgres_normalized",
		"module", moduleName,
		"layer", "application",
		"columns", source.Header,
		"rows_read", stats.Read,
		"rows_kept", stats.Kept,
		"wrong_width", stats.WrongWidth,
		"empty", stats.Empty,
		"missing_key", stats.MissingKey,
		"duplicate_key", stats.DuplicateKey,
	)

	err = uc.Leads.WithSession(ctx, func(ctx context.Context, repo ports.LeadRepository) error {
		current, err := repo.FetchAllLeads(ctx)
		if err != nil {
			return domainerrors.NewReadError("postgres", "fetch_all_leads", err)
		}
		target, _, err := services.SnapshotFromLeads(current)
		if err != nil {
			return err
		}

		plan := services.Diff(source, target)
		result.Plan = plan
		if plan.IsEmpty() {
			return nil
		}

		leads, err := services.LeadsForKeys(source, plan.ToUpsert)
		if err != nil {
			return err
		}
		ids, err := parseLeadIDs(plan.ToDelete)
		if err != nil {
			return &domainerrors.ValidationError{Field: entities.LeadKeyField, Reason: err.Error()}
		}

		if len(leads) > 0 {
			if err := repo.UpsertLeads(ctx, leads); err != nil {
				return domainerrors.NewWriteError("postgres", "upsert_leads", 0, err)
			}
			result.Upserted = len(leads)
		}
		if len(ids) > 0 {
			if err := repo.DeleteLeads(ctx, ids); err != nil {
				return domainerrors.NewWriteError("postgres", "delete_leads", result.Upserted, err)
			}
			result.Deleted = len(ids)
		}
		return nil
	})
	result.Duration = uc.now().Sub(started)
	if err != nil {
		level := logger.Error
		if errors.Is(err, domainerrors.ErrValidation) {
			level = logger.Warn
		}
		level("sheet to postgres sync failed",
			"event", "lead_sync_postgres_failed",
			"module", moduleName,
			"layer", "application",
			"upserted", result.Upserted,
			"deleted", result.Deleted,
			"error", err.Error(),
		)
		return SyncResult{}, err
	}

	result.Message = MessageSyncedPostgres
	if result.Plan.IsEmpty() {
		result.Message = MessagePostgresCurrent
	}
	logger.Info("sheet to postgres sync completed",
		"event", "lead_sync_postgres_completed",
		"module", moduleName,
		"layer", "application",
		"upserted", result.Upserted,
		"deleted", result.Deleted,
		"unchanged", len(result.Plan.Unchanged),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}
