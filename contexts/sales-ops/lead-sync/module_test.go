package leadsync

import (
	"context"
	"testing"
	"time"

	"leadsync/contexts/sales-ops/lead-sync/application/commands"
	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	"leadsync/contexts/sales-ops/lead-sync/domain/services"
	"leadsync/internal/platform/messaging"
	"leadsync/internal/shared/events"
)

func TestOutOfBandChangeReachesSheetThroughListener(t *testing.T) {
	bus := messaging.NewBus(nil)
	module := NewInMemoryModule([][]any{
		{"lead_id", "client_name", "lead_status", "assigned_sales_rep", "expected_value", "close_date"},
		{"1", "Acme", "Open", "Sam", "100", "2024-01-01"},
	}, nil, bus.Source("leads_changed"), nil)
	module.Store.OnChange(func(ctx context.Context, op string, leadID int64) {
		payload, err := events.LeadChanged("memory", op, leadID, time.Now()).Encode()
		if err != nil {
			t.Errorf("encode change: %v", err)
			return
		}
		_ = bus.Publish(ctx, "leads_changed", payload)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- module.Listener.Run(ctx)
	}()
	waitUntil(t, "listener subscribed", func() bool {
		return module.Listener.State() == entities.ListenerListening
	})

	resp, err := module.Handler.SyncPostgresHandler(context.Background())
	if err != nil {
		t.Fatalf("sync postgres: %v", err)
	}
	if resp.Message != commands.MessageSyncedPostgres || resp.Upserted != 1 {
		t.Fatalf("unexpected sync response: %+v", resp)
	}

	value := "75"
	if err := module.Store.UpsertLeads(context.Background(), []entities.Lead{
		{LeadID: 2, ClientName: "Hooli", LeadStatus: "Open", AssignedSalesRep: "Lee", ExpectedValue: &value},
	}); err != nil {
		t.Fatalf("out-of-band insert: %v", err)
	}

	waitUntil(t, "sheet to pick up lead 2", func() bool {
		snapshot, _, err := services.NormalizeRows(module.Sheet.Rows(), entities.LeadKeyField)
		if err != nil {
			return false
		}
		_, ok := snapshot.Index()["2"]
		return ok
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("listener stopped with error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("listener did not stop")
	}
	if stats := module.Listener.Stats(); stats.Runs < 1 || stats.Failures != 0 {
		t.Fatalf("unexpected listener stats: %+v", stats)
	}
}

func TestListLeadsThroughHandler(t *testing.T) {
	value := "10"
	module := NewInMemoryModule(nil, []entities.Lead{
		{LeadID: 3, ClientName: "C"},
		{LeadID: 1, ClientName: "A", ExpectedValue: &value},
	}, nil, nil)
	if module.Listener != nil {
		t.Fatalf("expected no listener without a change source")
	}

	resp, err := module.Handler.ListLeadsHandler(context.Background())
	if err != nil {
		t.Fatalf("list leads: %v", err)
	}
	if len(resp.Leads) != 2 || resp.Leads[0].LeadID != 1 || resp.Leads[1].LeadID != 3 {
		t.Fatalf("expected leads ordered by id, got %+v", resp.Leads)
	}
	if resp.Leads[0].ExpectedValue == nil || resp.Leads[0].ExpectedValue.String() != "10" {
		t.Fatalf("unexpected expected_value: %v", resp.Leads[0].ExpectedValue)
	}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
