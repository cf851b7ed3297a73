package services

import "leadsync/contexts/sales-ops/lead-sync/domain/entities"

// Diff compares source against target by key. ToUpsert and Unchanged follow
// source order; ToDelete follows target order. Applying the plan to target and
// diffing again yields an empty plan.
func Diff(source entities.Snapshot, target entities.Snapshot) entities.Plan {
	targetIndex := target.Index()
	sourceIndex := source.Index()

	plan := entities.Plan{
		ToUpsert:  []string{},
		ToDelete:  []string{},
		Unchanged: []string{},
	}
	for _, record := range source.Records {
		existing, ok := targetIndex[record.Key]
		if !ok || !RecordsEqual(record, existing) {
			plan.ToUpsert = append(plan.ToUpsert, record.Key)
			continue
		}
		plan.Unchanged = append(plan.Unchanged, record.Key)
	}
	for _, record := range target.Records {
		if _, ok := sourceIndex[record.Key]; !ok {
			plan.ToDelete = append(plan.ToDelete, record.Key)
		}
	}
	return plan
}

// RecordsEqual compares two records field by field over the union of their
// headers after CanonicalField. A field missing on one side counts as blank.
func RecordsEqual(a entities.Record, b entities.Record) bool {
	if a.Key != b.Key {
		return false
	}
	for _, field := range unionFields(a.Header, b.Header) {
		left, _ := a.Get(field)
		right, _ := b.Get(field)
		if CanonicalField(field, left) != CanonicalField(field, right) {
			return false
		}
	}
	return true
}

func unionFields(a []string, b []string) []string {
	fields := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, group := range [][]string{a, b} {
		for _, field := range group {
			if _, ok := seen[field]; ok {
				continue
			}
			seen[field] = struct{}{}
			fields = append(fields, field)
		}
	}
	return fields
}
