package entities

// Record is one keyed row of a Snapshot. Values are aligned with Header, so the
// pair behaves as an ordered field -> value mapping.
type Record struct {
	Key    string
	Header []string
	Values []any

	// Position is the 1-based row number the record was read from in the sheet,
	// header included. Records read from the relational store carry zero.
	Position int
}

// Get returns the value stored under field and whether the field exists.
func (r Record) Get(field string) (any, bool) {
	for i, name := range r.Header {
		if name == field {
			if i < len(r.Values) {
				return r.Values[i], true
			}
			return nil, false
		}
	}
	return nil, false
}

// Snapshot is a normalized, keyed, ordered view of one store at one instant.
// Keys are unique and every record carries the snapshot header.
type Snapshot struct {
	Header   []string
	KeyField string
	Records  []Record
}

func (s Snapshot) IsEmpty() bool {
	return len(s.Header) == 0 && len(s.Records) == 0
}

// Index maps each key to its record.
func (s Snapshot) Index() map[string]Record {
	index := make(map[string]Record, len(s.Records))
	for _, record := range s.Records {
		index[record.Key] = record
	}
	return index
}

// Keys returns the record keys in snapshot order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.Records))
	for _, record := range s.Records {
		keys = append(keys, record.Key)
	}
	return keys
}
