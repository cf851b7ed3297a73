package entities

// Direction names which store is authoritative for a reconciliation run.
type Direction string

const (
	DirectionSheetToDB Direction = "sheet_to_db"
	DirectionDBToSheet Direction = "db_to_sheet"
)

// Plan is the result of comparing a source Snapshot against a target Snapshot.
// The three key sets are disjoint and ordered by first appearance in source,
// except ToDelete which follows target order.
type Plan struct {
	ToUpsert  []string
	ToDelete  []string
	Unchanged []string
}

// IsEmpty reports whether applying the plan would change nothing.
func (p Plan) IsEmpty() bool {
	return len(p.ToUpsert) == 0 && len(p.ToDelete) == 0
}
