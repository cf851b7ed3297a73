package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	leadsync "leadsync/contexts/sales-ops/lead-sync"
	"leadsync/contexts/sales-ops/lead-sync/application/commands"
	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	leadhttp "leadsync/contexts/sales-ops/lead-sync/transport/http"
)

func newTestServer(rows [][]any, seed ...entities.Lead) (*Server, leadsync.Module) {
	module := leadsync.NewInMemoryModule(rows, seed, nil, nil)
	return New(module, "leadsync-test", nil, ":0"), module
}

func sheetRows() [][]any {
	return [][]any{
		{"lead_id", "client_name", "lead_status", "assigned_sales_rep", "expected_value", "close_date"},
		{"1", "Acme", "Open", "Sam", "100", "2024-01-01"},
		{"2", "Globex", "Won", "Kim", "250.5", ""},
	}
}

func TestSyncPostgresRoute(t *testing.T) {
	server, module := newTestServer(sheetRows())

	req := httptest.NewRequest(http.MethodPost, "/sync_postgres", nil)
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp leadhttp.SyncResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message != commands.MessageSyncedPostgres || resp.Upserted != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	leads, err := module.Store.FetchAllLeads(req.Context())
	if err != nil || len(leads) != 2 {
		t.Fatalf("expected 2 stored leads, got %d err=%v", len(leads), err)
	}

	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sync_postgres", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), commands.MessagePostgresCurrent) {
		t.Fatalf("expected idempotent second sync, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSyncPostgresRejectsGet(t *testing.T) {
	server, _ := newTestServer(sheetRows())

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sync_postgres", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestSyncPostgresReadFailureMapsTo500(t *testing.T) {
	server, module := newTestServer(sheetRows())
	module.Sheet.Fail("read", errors.New("quota exceeded"))

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sync_postgres", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp leadhttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "store_read_error" {
		t.Fatalf("expected store_read_error, got %q", resp.Code)
	}
	if !strings.HasPrefix(resp.Detail, "Error syncing data: ") || !strings.Contains(resp.Detail, "quota exceeded") {
		t.Fatalf("unexpected detail %q", resp.Detail)
	}
}

func TestSyncPostgresValidationFailure(t *testing.T) {
	rows := sheetRows()
	rows[1][4] = "lots"
	server, _ := newTestServer(rows)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sync_postgres", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"code":"validation_error"`) {
		t.Fatalf("expected validation_error, got %s", rr.Body.String())
	}
}

func TestSyncGSheetRoute(t *testing.T) {
	value := "42"
	server, module := newTestServer(nil, entities.Lead{
		LeadID: 7, ClientName: "Initech", LeadStatus: "Open", AssignedSalesRep: "Ana", ExpectedValue: &value,
	})

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sync_gsheet", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), commands.MessageSyncedSheet) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
	if rows := module.Sheet.Rows(); len(rows) != 2 {
		t.Fatalf("expected header and one row, got %v", rows)
	}
}

func TestSyncGSheetWriteFailure(t *testing.T) {
	server, module := newTestServer(nil, entities.Lead{LeadID: 7, ClientName: "Initech"})
	module.Sheet.Fail("write", errors.New("permission denied"))

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sync_gsheet", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp leadhttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "store_write_error" || !strings.HasPrefix(resp.Detail, "Error updating Google Sheets: ") {
		t.Fatalf("unexpected error response %+v", resp)
	}
}

func TestListLeadsRoute(t *testing.T) {
	server, module := newTestServer(nil, entities.Lead{LeadID: 3, ClientName: "C"}, entities.Lead{LeadID: 1, ClientName: "A"})

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/leads", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp leadhttp.LeadsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Leads) != 2 || resp.Leads[0].LeadID != 1 || resp.Leads[1].LeadID != 3 {
		t.Fatalf("unexpected leads %+v", resp.Leads)
	}
	if resp.Leads[0].ExpectedValue != nil || resp.Leads[0].CloseDate != nil {
		t.Fatalf("expected null value and date, got %+v", resp.Leads[0])
	}

	module.Store.Fail("fetch", errors.New("connection reset"))
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/leads", nil))
	if rr.Code != http.StatusInternalServerError || !strings.Contains(rr.Body.String(), "Error fetching leads: ") {
		t.Fatalf("expected 500 with fetch detail, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestHealthRoute(t *testing.T) {
	server, _ := newTestServer(nil)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"service":"leadsync-test"`) {
		t.Fatalf("unexpected health response %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSwaggerDocListsSyncRoutes(t *testing.T) {
	server, _ := newTestServer(nil)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for swagger doc, got %d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, route := range []string{"/sync_postgres", "/sync_gsheet", "/leads"} {
		if !strings.Contains(body, `"`+route+`"`) {
			t.Fatalf("swagger doc missing %s: %s", route, body)
		}
	}
}
