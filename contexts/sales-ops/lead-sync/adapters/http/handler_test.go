package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
)

func TestMapLeadRendersNumbersAndDates(t *testing.T) {
	value := "100.5"
	closeDate := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	raw, err := json.Marshal(mapLead(entities.Lead{
		LeadID:        1,
		ClientName:    "Acme",
		ExpectedValue: &value,
		CloseDate:     &closeDate,
	}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)
	if !strings.Contains(body, `"expected_value":100.5`) {
		t.Fatalf("expected plain number, got %s", body)
	}
	if !strings.Contains(body, `"close_date":"2024-01-01"`) {
		t.Fatalf("expected YYYY-MM-DD date, got %s", body)
	}

	raw, _ = json.Marshal(mapLead(entities.Lead{LeadID: 2}))
	if !strings.Contains(string(raw), `"expected_value":null`) || !strings.Contains(string(raw), `"close_date":null`) {
		t.Fatalf("expected nulls for unset values, got %s", raw)
	}
}

func TestTriggerPostsToSyncEndpoint(t *testing.T) {
	var method, channel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		channel = r.Header.Get("X-Change-Channel")
		_, _ = w.Write([]byte(`{"message":"Google Sheets updated with the latest data from the database.","run_id":"r-1"}`))
	}))
	defer srv.Close()

	trigger := NewTrigger(srv.URL+"/sync_gsheet", nil)
	if err := trigger.Trigger(context.Background(), entities.ChangeEvent{Channel: "leads_changed"}); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if method != http.MethodPost || channel != "leads_changed" {
		t.Fatalf("unexpected request: method=%s channel=%s", method, channel)
	}
}

func TestTriggerSurfacesServerErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"sync_failed","detail":"Error updating Google Sheets: quota exceeded"}`))
	}))
	defer srv.Close()

	err := NewTrigger(srv.URL, nil).Trigger(context.Background(), entities.ChangeEvent{})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected server detail in error, got %v", err)
	}
}
