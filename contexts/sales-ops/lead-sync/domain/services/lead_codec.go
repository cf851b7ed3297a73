package services

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	domainerrors "leadsync/contexts/sales-ops/lead-sync/domain/errors"
)

// LeadFromRecord parses a snapshot record into a typed lead. Blank
// expected_value and close_date become NULL.
func LeadFromRecord(record entities.Record) (entities.Lead, error) {
	invalid := func(field string, reason string) error {
		return &domainerrors.ValidationError{Row: record.Position, Field: field, Reason: reason}
	}

	id, err := strconv.ParseInt(record.Key, 10, 64)
	if err != nil || id <= 0 {
		return entities.Lead{}, invalid(entities.LeadKeyField, fmt.Sprintf("%q is not a positive integer", record.Key))
	}
	lead := entities.Lead{
		LeadID:           id,
		ClientName:       textField(record, "client_name"),
		LeadStatus:       textField(record, "lead_status"),
		AssignedSalesRep: textField(record, "assigned_sales_rep"),
	}

	if raw, _ := record.Get("expected_value"); !IsBlank(raw) {
		decimal, ok := decimalText(Canonical(raw))
		if !ok {
			return entities.Lead{}, invalid("expected_value", fmt.Sprintf("%q is not a number", Canonical(raw)))
		}
		lead.ExpectedValue = &decimal
	}

	if raw, _ := record.Get("close_date"); !IsBlank(raw) {
		parsed, err := time.Parse(entities.LeadDateLayout, Canonical(raw))
		if err != nil {
			return entities.Lead{}, invalid("close_date", fmt.Sprintf("%q is not a YYYY-MM-DD date", Canonical(raw)))
		}
		lead.CloseDate = &parsed
	}
	return lead, nil
}

// LeadsForKeys parses the records of snapshot named by keys, in key order.
func LeadsForKeys(snapshot entities.Snapshot, keys []string) ([]entities.Lead, error) {
	index := snapshot.Index()
	leads := make([]entities.Lead, 0, len(keys))
	for _, key := range keys {
		record, ok := index[key]
		if !ok {
			continue
		}
		lead, err := LeadFromRecord(record)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

func textField(record entities.Record, field string) string {
	value, _ := record.Get(field)
	if value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

// decimalText turns a canonical number ("3", "7/2") into exact decimal text
// ("3", "3.5") suitable for a NUMERIC column. It fails for fractions with no
// finite decimal expansion.
func decimalText(canonical string) (string, bool) {
	rat, ok := new(big.Rat).SetString(canonical)
	if !ok {
		return "", false
	}
	if rat.IsInt() {
		return rat.Num().String(), true
	}
	places, ok := decimalPlaces(rat.Denom())
	if !ok {
		return "", false
	}
	return rat.FloatString(places), true
}

// decimalPlaces returns the number of fractional digits needed to write 1/denom
// exactly, which is defined only when denom has no prime factors besides 2 and 5.
func decimalPlaces(denom *big.Int) (int, bool) {
	rest := new(big.Int).Set(denom)
	remainder := new(big.Int)
	count := func(factor int64) int {
		divisor := big.NewInt(factor)
		n := 0
		for {
			quotient, _ := new(big.Int).QuoRem(rest, divisor, remainder)
			if remainder.Sign() != 0 {
				return n
			}
			rest = quotient
			n++
		}
	}
	twos := count(2)
	fives := count(5)
	if rest.Cmp(big.NewInt(1)) != 0 {
		return 0, false
	}
	return max(twos, fives), true
}
