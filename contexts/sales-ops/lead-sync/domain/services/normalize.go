package services

import (
	"fmt"
	"strings"

	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	domainerrors "leadsync/contexts/sales-ops/lead-sync/domain/errors"
)

// NormalizeStats counts what normalization kept and why rows were dropped.
type NormalizeStats struct {
	Read         int
	Kept         int
	WrongWidth   int
	Empty        int
	MissingKey   int
	DuplicateKey int
}

func (s NormalizeStats) Dropped() int {
	return s.WrongWidth + s.Empty + s.MissingKey + s.DuplicateKey
}

// NormalizeRows builds a Snapshot from raw sheet rows where the first row is
// the header. Record positions are 1-based sheet row numbers.
//
// An input without a header yields an empty Snapshot.
func NormalizeRows(rows [][]any, keyField string) (entities.Snapshot, NormalizeStats, error) {
	if len(rows) == 0 {
		return entities.Snapshot{KeyField: keyField}, NormalizeStats{}, nil
	}
	header := make([]string, 0, len(rows[0]))
	for _, cell := range rows[0] {
		header = append(header, strings.TrimSpace(fmt.Sprint(cell)))
	}
	return normalize(header, keyField, rows[1:], 2)
}

// PadRows extends data rows shorter than the header with empty cells. The
// Sheets API omits trailing empty cells, so a lead with a blank close_date
// arrives one cell short. Rows longer than the header are left alone.
func PadRows(rows [][]any) [][]any {
	if len(rows) == 0 {
		return rows
	}
	width := len(rows[0])
	padded := make([][]any, 0, len(rows))
	padded = append(padded, rows[0])
	for _, row := range rows[1:] {
		if len(row) >= width {
			padded = append(padded, row)
			continue
		}
		full := make([]any, width)
		copy(full, row)
		for i := len(row); i < width; i++ {
			full[i] = ""
		}
		padded = append(padded, full)
	}
	return padded
}

// NormalizeRecords builds a Snapshot from already typed records sharing an
// implicit header. Positions are left at zero.
func NormalizeRecords(header []string, keyField string, records [][]any) (entities.Snapshot, NormalizeStats, error) {
	if len(header) == 0 {
		return entities.Snapshot{KeyField: keyField}, NormalizeStats{}, nil
	}
	return normalize(header, keyField, records, 0)
}

// SnapshotFromLeads is NormalizeRecords over typed leads.
func SnapshotFromLeads(leads []entities.Lead) (entities.Snapshot, NormalizeStats, error) {
	records := make([][]any, 0, len(leads))
	for _, lead := range leads {
		records = append(records, lead.Values())
	}
	return NormalizeRecords(entities.LeadHeader, entities.LeadKeyField, records)
}

func normalize(header []string, keyField string, rows [][]any, firstPosition int) (entities.Snapshot, NormalizeStats, error) {
	keyIndex := -1
	for i, name := range header {
		if name == keyField {
			keyIndex = i
			break
		}
	}
	if keyIndex < 0 {
		return entities.Snapshot{}, NormalizeStats{}, fmt.Errorf("%w: %q", domainerrors.ErrKeyColumnMissing, keyField)
	}

	stats := NormalizeStats{Read: len(rows)}
	snapshot := entities.Snapshot{
		Header:   header,
		KeyField: keyField,
		Records:  make([]entities.Record, 0, len(rows)),
	}
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		if len(row) != len(header) {
			stats.WrongWidth++
			continue
		}
		if allBlank(row) {
			stats.Empty++
			continue
		}
		key := Canonical(row[keyIndex])
		if key == "" {
			stats.MissingKey++
			continue
		}
		if _, dup := seen[key]; dup {
			stats.DuplicateKey++
			continue
		}
		seen[key] = struct{}{}

		position := 0
		if firstPosition > 0 {
			position = firstPosition + i
		}
		values := make([]any, len(row))
		copy(values, row)
		snapshot.Records = append(snapshot.Records, entities.Record{
			Key:      key,
			Header:   header,
			Values:   values,
			Position: position,
		})
	}
	stats.Kept = len(snapshot.Records)
	return snapshot, stats, nil
}

func allBlank(row []any) bool {
	for _, cell := range row {
		if !IsBlank(cell) {
			return false
		}
	}
	return true
}
