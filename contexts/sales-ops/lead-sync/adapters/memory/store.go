package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	"leadsync/contexts/sales-ops/lead-sync/domain/services"
	"leadsync/contexts/sales-ops/lead-sync/ports"

	"github.com/google/uuid"
)

// ChangeFunc is called after every committed mutation of the leads table, the
// way the database trigger fires after each statement row.
type ChangeFunc func(ctx context.Context, op string, leadID int64)

// Store is an in-memory leads table. It implements ports.LeadSessions and
// ports.LeadRepository, plus the clock and ID generator used by sync runs.
type Store struct {
	mu sync.RWMutex

	leads    map[int64]entities.Lead
	failures map[string]error
	onChange ChangeFunc

	sessions       int
	activeSessions int
}

func NewStore(seed ...entities.Lead) *Store {
	store := &Store{
		leads:    make(map[int64]entities.Lead, len(seed)),
		failures: make(map[string]error),
	}
	for _, lead := range seed {
		store.leads[lead.LeadID] = cloneLead(lead)
	}
	return store
}

// OnChange registers fn to be told about every inserted, updated or deleted
// lead. Only one hook is kept.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Fail makes every later call of op return err until Fail(op, nil). op is one
// of "fetch", "upsert" or "delete".
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) WithSession(
	ctx context.Context,
	fn func(ctx context.Context, repo ports.LeadRepository) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions++
	s.activeSessions++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.activeSessions--
		s.mu.Unlock()
	}()
	return fn(ctx, s)
}

// Sessions reports how many sessions were opened and how many are still open.
func (s *Store) Sessions() (opened int, active int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions, s.activeSessions
}

func (s *Store) FetchAllLeads(ctx context.Context) ([]entities.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures["fetch"]; err != nil {
		return nil, err
	}
	items := make([]entities.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		items = append(items, cloneLead(lead))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].LeadID < items[j].LeadID
	})
	return items, nil
}

// UpsertLeads applies the batch atomically: either every lead is written or,
// on an injected failure, none is.
func (s *Store) UpsertLeads(ctx context.Context, leads []entities.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	type change struct {
		op string
		id int64
	}
	changes := make([]change, 0, len(leads))

	s.mu.Lock()
	if err := s.failures["upsert"]; err != nil {
		s.mu.Unlock()
		return err
	}
	for _, lead := range leads {
		op := "INSERT"
		if _, exists := s.leads[lead.LeadID]; exists {
			op = "UPDATE"
		}
		s.leads[lead.LeadID] = cloneLead(lead)
		changes = append(changes, change{op: op, id: lead.LeadID})
	}
	hook := s.onChange
	s.mu.Unlock()

	if hook != nil {
		for _, item := range changes {
			hook(ctx, item.op, item.id)
		}
	}
	return nil
}

func (s *Store) DeleteLeads(ctx context.Context, leadIDs []int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if err := s.failures["delete"]; err != nil {
		s.mu.Unlock()
		return err
	}
	removed := make([]int64, 0, len(leadIDs))
	for _, id := range leadIDs {
		if _, ok := s.leads[id]; !ok {
			continue
		}
		delete(s.leads, id)
		removed = append(removed, id)
	}
	hook := s.onChange
	s.mu.Unlock()

	if hook != nil {
		for _, id := range removed {
			hook(ctx, "DELETE", id)
		}
	}
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// Sheet is an in-memory spreadsheet range. Row 1 is the header.
type Sheet struct {
	mu sync.RWMutex

	rows     [][]any
	failures map[string]error
	writes   int
	deletes  int
}

func NewSheet(rows [][]any) *Sheet {
	return &Sheet{
		rows:     cloneRows(rows),
		failures: make(map[string]error),
	}
}

// Fail makes every later call of op return err until Fail(op, nil). op is one
// of "read", "write" or "delete".
func (s *Sheet) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Sheet) ReadAllRows(ctx context.Context) ([][]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures["read"]; err != nil {
		return nil, err
	}
	rows := cloneRows(s.rows)
	for i, row := range rows {
		rows[i] = trimTrailingBlanks(row)
	}
	return services.PadRows(rows), nil
}

func (s *Sheet) WriteRows(ctx context.Context, rows [][]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["write"]; err != nil {
		return err
	}
	s.rows = cloneRows(rows)
	s.writes++
	return nil
}

func (s *Sheet) DeleteRowsAt(ctx context.Context, positions []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["delete"]; err != nil {
		return err
	}
	ordered := append([]int(nil), positions...)
	sort.Sort(sort.Reverse(sort.IntSlice(ordered)))
	for _, position := range ordered {
		if position < 1 || position > len(s.rows) {
			return fmt.Errorf("row %d out of range 1..%d", position, len(s.rows))
		}
	}
	for _, position := range ordered {
		idx := position - 1
		s.rows = append(s.rows[:idx], s.rows[idx+1:]...)
	}
	s.deletes += len(ordered)
	return nil
}

// Rows returns a copy of the current range.
func (s *Sheet) Rows() [][]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRows(s.rows)
}

// Counters reports how many whole-range writes and row deletions happened.
func (s *Sheet) Counters() (writes int, deletedRows int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes, s.deletes
}

// trimTrailingBlanks drops empty cells at the end of a row, as the Sheets API
// does when returning values.
func trimTrailingBlanks(row []any) []any {
	end := len(row)
	for end > 0 && services.IsBlank(row[end-1]) {
		end--
	}
	return row[:end]
}

func cloneRows(rows [][]any) [][]any {
	if rows == nil {
		return nil
	}
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = append([]any(nil), row...)
	}
	return out
}

func cloneLead(lead entities.Lead) entities.Lead {
	if lead.ExpectedValue != nil {
		value := *lead.ExpectedValue
		lead.ExpectedValue = &value
	}
	if lead.CloseDate != nil {
		date := *lead.CloseDate
		lead.CloseDate = &date
	}
	return lead
}
