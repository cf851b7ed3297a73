package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	application "leadsync/contexts/sales-ops/lead-sync/application"
	"leadsync/contexts/sales-ops/lead-sync/application/commands"
	"leadsync/contexts/sales-ops/lead-sync/application/queries"
	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	httptransport "leadsync/contexts/sales-ops/lead-sync/transport/http"
)

type Handler struct {
	Sync   commands.SyncUseCase
	Leads  queries.LeadsUseCase
	Logger *slog.Logger
}

func (h Handler) SyncPostgresHandler(ctx context.Context) (httptransport.SyncResponse, error) {
	result, err := h.Sync.SyncPostgres(ctx)
	if err != nil {
		return httptransport.SyncResponse{}, err
	}
	return mapSyncResult(result), nil
}

func (h Handler) SyncGSheetHandler(ctx context.Context) (httptransport.SyncResponse, error) {
	result, err := h.Sync.SyncGSheet(ctx)
	if err != nil {
		return httptransport.SyncResponse{}, err
	}
	return mapSyncResult(result), nil
}

func (h Handler) ListLeadsHandler(ctx context.Context) (httptransport.LeadsResponse, error) {
	leads, err := h.Leads.ListLeads(ctx)
	if err != nil {
		application.ResolveLogger(h.Logger).Error("list leads failed",
			"event", "lead_http_list_failed",
			"module", "sales-ops/lead-sync",
			"layer", "adapter",
			"error", err.Error(),
		)
		return httptransport.LeadsResponse{}, err
	}
	items := make([]httptransport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, mapLead(lead))
	}
	return httptransport.LeadsResponse{Leads: items}, nil
}

func mapSyncResult(result commands.SyncResult) httptransport.SyncResponse {
	return httptransport.SyncResponse{
		Message:   result.Message,
		RunID:     result.RunID,
		Direction: string(result.Direction),
		Upserted:  result.Upserted,
		Deleted:   result.Deleted,
		Unchanged: len(result.Plan.Unchanged),
		Dropped:   result.Dropped,
	}
}

func mapLead(lead entities.Lead) httptransport.LeadResponse {
	item := httptransport.LeadResponse{
		LeadID:           lead.LeadID,
		ClientName:       lead.ClientName,
		LeadStatus:       lead.LeadStatus,
		AssignedSalesRep: lead.AssignedSalesRep,
	}
	if lead.ExpectedValue != nil {
		value := json.Number(*lead.ExpectedValue)
		item.ExpectedValue = &value
	}
	if lead.CloseDate != nil {
		value := lead.CloseDate.Format(entities.LeadDateLayout)
		item.CloseDate = &value
	}
	return item
}
