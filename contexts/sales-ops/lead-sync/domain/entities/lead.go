package entities

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	LeadKeyField   = "lead_id"
	LeadDateLayout = "2006-01-02"
)

// LeadHeader is the column order used for the leads table and for sheet rows
// rendered from it.
var LeadHeader = []string{
	"lead_id",
	"client_name",
	"lead_status",
	"assigned_sales_rep",
	"expected_value",
	"close_date",
}

// leadTypedFields are the columns holding numbers or dates. They compare by
// value; the remaining columns are free text.
var leadTypedFields = map[string]struct{}{
	LeadKeyField:     {},
	"expected_value": {},
	"close_date":     {},
}

func IsTypedLeadField(field string) bool {
	_, ok := leadTypedFields[field]
	return ok
}

// Lead is the typed form of one row of the leads table.
type Lead struct {
	LeadID           int64
	ClientName       string
	LeadStatus       string
	AssignedSalesRep string
	// ExpectedValue holds the decimal in its canonical text form, nil when unset.
	ExpectedValue *string
	CloseDate     *time.Time
}

func (l Lead) Key() string {
	return strconv.FormatInt(l.LeadID, 10)
}

// Values renders the lead in LeadHeader order. Numbers stay numbers and dates
// become YYYY-MM-DD strings so the row can be sent to the sheet as-is.
func (l Lead) Values() []any {
	var expected any = ""
	if l.ExpectedValue != nil {
		expected = json.Number(*l.ExpectedValue)
	}
	closeDate := ""
	if l.CloseDate != nil {
		closeDate = l.CloseDate.Format(LeadDateLayout)
	}
	return []any{
		l.LeadID,
		l.ClientName,
		l.LeadStatus,
		l.AssignedSalesRep,
		expected,
		closeDate,
	}
}

// Record converts the lead into a snapshot record keyed by lead_id.
func (l Lead) Record() Record {
	return Record{
		Key:    l.Key(),
		Header: LeadHeader,
		Values: l.Values(),
	}
}
