package commands

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	application "leadsync/contexts/sales-ops/lead-sync/application"
	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	domainerrors "leadsync/contexts/sales-ops/lead-sync/domain/errors"
	"leadsync/contexts/sales-ops/lead-sync/domain/services"
	"leadsync/contexts/sales-ops/lead-sync/ports"
)

// SyncGSheet makes the sheet match the leads table. Sheet rows whose lead is
// gone are deleted by position in one batch; if any lead is new or changed the
// whole range is rewritten once, header included.
func (uc SyncUseCase) SyncGSheet(ctx context.Context) (SyncResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	started := uc.now()
	result := SyncResult{
		RunID:     uc.runID(ctx),
		Direction: entities.DirectionDBToSheet,
	}
	logger = logger.With("run_id", result.RunID, "direction", string(result.Direction))
	logger.Info("postgres to sheet sync started",
		"event", "lead_sync_gsheet_started",
		"module", moduleName,
		"layer", "application",
	)

	var current []entities.Lead
	err := uc.Leads.WithSession(ctx, func(ctx context.Context, repo ports.LeadRepository) error {
		leads, err := repo.FetchAllLeads(ctx)
		if err != nil {
			return domainerrors.NewReadError("postgres", "fetch_all_leads", err)
		}
		current = leads
		return nil
	})
	if err != nil {
		return SyncResult{}, uc.fail(logger, "lead_sync_gsheet_db_read_failed", result, err)
	}
	if len(current) == 0 {
		logger.Info("leads table has no data",
			"event", "lead_sync_gsheet_no_data",
			"module", moduleName,
			"layer", "application",
		)
		result.Message = MessageNoDatabaseData
		result.NoData = true
		result.Duration = uc.now().Sub(started)
		return result, nil
	}

	source, _, err := services.SnapshotFromLeads(current)
	if err != nil {
		return SyncResult{}, uc.fail(logger, "lead_sync_gsheet_normalize_failed", result, err)
	}

	rows, err := uc.Sheet.ReadAllRows(ctx)
	if err != nil {
		err = domainerrors.NewReadError("sheet", "read_all_rows", err)
		return SyncResult{}, uc.fail(logger, "lead_sync_gsheet_sheet_read_failed", result, err)
	}
	target, stats, err := services.NormalizeRows(rows, uc.keyField())
	if err != nil {
		if !errors.Is(err, domainerrors.ErrKeyColumnMissing) {
			return SyncResult{}, uc.fail(logger, "lead_sync_gsheet_normalize_failed", result, err)
		}
		// An unrecognizable header means nothing in the sheet can be matched;
		// the rewrite below replaces it wholesale.
		logger.Warn("sheet header has no key column",
			"event", "lead_sync_gsheet_header_unrecognized",
			"module", moduleName,
			"layer", "application",
			"key_field", uc.keyField(),
		)
		target = entities.Snapshot{KeyField: uc.keyField()}
	}
	result.Dropped = stats.Dropped()

	plan := services.Diff(source, target)
	result.Plan = plan
	if plan.IsEmpty() {
		result.Message = MessageSheetCurrent
		result.Duration = uc.now().Sub(started)
		logger.Info("sheet already up to date",
			"event", "lead_sync_gsheet_noop",
			"module", moduleName,
			"layer", "application",
			"unchanged", len(plan.Unchanged),
		)
		return result, nil
	}

	if positions := DeletePositions(target, plan); len(positions) > 0 {
		if err := uc.Sheet.DeleteRowsAt(ctx, positions); err != nil {
			err = domainerrors.NewWriteError("sheet", "delete_rows", 0, err)
			return SyncResult{}, uc.fail(logger, "lead_sync_gsheet_delete_failed", result, err)
		}
		result.Deleted = len(positions)
	}
	if len(plan.ToUpsert) > 0 {
		if err := uc.Sheet.WriteRows(ctx, RewriteRows(source, target, plan)); err != nil {
			err = domainerrors.NewWriteError("sheet", "write_rows", result.Deleted, err)
			return SyncResult{}, uc.fail(logger, "lead_sync_gsheet_write_failed", result, err)
		}
		result.Upserted = len(plan.ToUpsert)
	}

	result.Message = MessageSyncedSheet
	result.Duration = uc.now().Sub(started)
	logger.Info("postgres to sheet sync completed",
		"event", "lead_sync_gsheet_completed",
		"module", moduleName,
		"layer", "application",
		"upserted", result.Upserted,
		"deleted", result.Deleted,
		"unchanged", len(plan.Unchanged),
		"dropped", result.Dropped,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (uc SyncUseCase) fail(logger *slog.Logger, event string, result SyncResult, err error) error {
	logger.Error("postgres to sheet sync failed",
		"event", event,
		"module", moduleName,
		"layer", "application",
		"upserted", result.Upserted,
		"deleted", result.Deleted,
		"error", err.Error(),
	)
	return err
}

// DeletePositions returns the sheet rows holding ToDelete keys, highest first,
// so each deletion leaves the remaining positions valid.
func DeletePositions(target entities.Snapshot, plan entities.Plan) []int {
	index := target.Index()
	positions := make([]int, 0, len(plan.ToDelete))
	for _, key := range plan.ToDelete {
		if record, ok := index[key]; ok && record.Position > 0 {
			positions = append(positions, record.Position)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(positions)))
	return positions
}

// RewriteRows renders the full range written back to the sheet: the header,
// then the surviving sheet rows in their current order carrying the source
// values, then source rows the sheet did not have yet, in source order.
func RewriteRows(source entities.Snapshot, target entities.Snapshot, plan entities.Plan) [][]any {
	sourceIndex := source.Index()
	deleted := make(map[string]struct{}, len(plan.ToDelete))
	for _, key := range plan.ToDelete {
		deleted[key] = struct{}{}
	}

	header := make([]any, 0, len(source.Header))
	for _, name := range source.Header {
		header = append(header, name)
	}
	rows := make([][]any, 0, len(source.Records)+1)
	rows = append(rows, header)

	written := make(map[string]struct{}, len(source.Records))
	for _, record := range target.Records {
		if _, gone := deleted[record.Key]; gone {
			continue
		}
		latest, ok := sourceIndex[record.Key]
		if !ok {
			continue
		}
		rows = append(rows, latest.Values)
		written[record.Key] = struct{}{}
	}
	for _, record := range source.Records {
		if _, ok := written[record.Key]; ok {
			continue
		}
		rows = append(rows, record.Values)
	}
	return rows
}
