package snippet

import (
	"sync"
	"time"
)

// Store owns every tracked Record in insertion order plus the next-id
// counter. It is injected into the Tracker rather than living as a package
// singleton so tests can run isolated stores side by side.
//
// All mutation happens under one exclusive lock held for a whole Tracker
// invocation, never per field: a file-change pass must see a consistent
// view of every record to decide finalization versus abandonment.
type Store struct {
	mu      sync.Mutex
	nextID  uint64
	records []*Record

	now func() time.Time
}

// NewStore returns an empty store. IDs start at 1 and are never reused.
func NewStore() *Store {
	return &Store{nextID: 1, now: time.Now}
}

// register appends a new record and returns its id. Caller holds s.mu.
func (s *Store) register(model string, in Inputs, suggested string) uint64 {
	id := s.nextID
	s.nextID++
	s.records = append(s.records, &Record{
		ID:                id,
		Model:             model,
		Inputs:            in,
		SuggestedText:     suggested,
		RemainingFraction: NotEvaluated,
		CreatedAt:         s.now().Unix(),
	})
	return id
}

// markAccepted stamps AcceptedAt on an unfinished record. Caller holds s.mu.
func (s *Store) markAccepted(id uint64) bool {
	for _, r := range s.records {
		if r.ID != id {
			continue
		}
		if r.FinishedAt != 0 {
			return false
		}
		r.AcceptedAt = s.now().Unix()
		return true
	}
	return false
}

// Snapshot returns deep copies of all records in insertion order.
func (s *Store) Snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	return out
}

// Len reports how many records the store holds.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
