package queries

import (
	"context"
	"sort"

	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	domainerrors "leadsync/contexts/sales-ops/lead-sync/domain/errors"
	"leadsync/contexts/sales-ops/lead-sync/ports"
)

type LeadsUseCase struct {
	Leads ports.LeadSessions
}

// ListLeads returns every lead ordered by lead_id.
func (uc LeadsUseCase) ListLeads(ctx context.Context) ([]entities.Lead, error) {
	var leads []entities.Lead
	err := uc.Leads.WithSession(ctx, func(ctx context.Context, repo ports.LeadRepository) error {
		items, err := repo.FetchAllLeads(ctx)
		if err != nil {
			return domainerrors.NewReadError("postgres", "fetch_all_leads", err)
		}
		leads = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].LeadID < leads[j].LeadID
	})
	return leads, nil
}
