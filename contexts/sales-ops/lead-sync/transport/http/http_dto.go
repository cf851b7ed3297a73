package http

import "encoding/json"

type ErrorResponse struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// SyncResponse is returned by both sync routes. Message is always present;
// the remaining fields describe the run that produced it.
type SyncResponse struct {
	Message   string `json:"message"`
	RunID     string `json:"run_id,omitempty"`
	Direction string `json:"direction,omitempty"`
	Upserted  int    `json:"upserted"`
	Deleted   int    `json:"deleted"`
	Unchanged int    `json:"unchanged"`
	Dropped   int    `json:"dropped"`
}

// LeadResponse renders expected_value as a plain JSON number and close_date
// as YYYY-MM-DD. Both are null when unset.
type LeadResponse struct {
	LeadID           int64        `json:"lead_id"`
	ClientName       string       `json:"client_name"`
	LeadStatus       string       `json:"lead_status"`
	AssignedSalesRep string       `json:"assigned_sales_rep"`
	ExpectedValue    *json.Number `json:"expected_value"`
	CloseDate        *string      `json:"close_date"`
}

type LeadsResponse struct {
	Leads []LeadResponse `json:"leads"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
