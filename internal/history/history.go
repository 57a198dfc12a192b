// Package history owns the persisted records of finished downloads. The
// record list lives in memory behind its own mutex and is mirrored to sqlite
// off the critical path. Nothing in this package ever touches the task
// store's lock.
package history

import (
	"fmt"
	"sync"

	"github.com/cesargomez89/downpour/internal/domain"
	"github.com/cesargomez89/downpour/internal/logger"
)

// Persister is the durable side of the store. *store.DB satisfies it.
type Persister interface {
	ListHistory() ([]domain.HistoryRecord, error)
	ReplaceHistory([]domain.HistoryRecord) error
}

// Store holds the history records. Disk writes happen outside the lock: the
// lock only ever guards a linear copy of the slice.
type Store struct {
	mu      sync.Mutex
	records []domain.HistoryRecord
	db      Persister
	log     *logger.Logger
}

func NewStore(db Persister, log *logger.Logger) *Store {
	return &Store{
		db:  db,
		log: log.WithComponent("history"),
	}
}

// Load reads the persisted records at startup.
func (s *Store) Load() error {
	if s.db == nil {
		return nil
	}
	records, err := s.db.ListHistory()
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	s.log.Info("History loaded", "records", len(records))
	return nil
}

// GetAll returns a copy of every record.
func (s *Store) GetAll() []domain.HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.HistoryRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Append adds a record.
func (s *Store) Append(rec domain.HistoryRecord) {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
}

// DeleteByID removes the record with the given id. Deleting an absent id is
// an idempotent no-op returning false, never an error.
func (s *Store) DeleteByID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.records {
		if rec.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return true
		}
	}
	return false
}

// DeleteByIndex removes the record at position i.
//
// Deprecated: indices shift under concurrent mutation; this exists only for
// callers that predate id-based deletion. It resolves the index to an id at
// call time and forwards, accepting that the resolved record may already be
// gone.
func (s *Store) DeleteByIndex(i int) bool {
	s.mu.Lock()
	if i < 0 || i >= len(s.records) {
		s.mu.Unlock()
		return false
	}
	id := s.records[i].ID
	s.mu.Unlock()

	return s.DeleteByID(id)
}

// ReplaceAll swaps in a new record set.
func (s *Store) ReplaceAll(records []domain.HistoryRecord) {
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
}

// ReplaceKnown swaps in a record set computed from an earlier copy without
// dropping records appended since that copy was taken. seen holds the ids the
// computation started from; a current record with an unseen id arrived
// mid-computation and must survive the swap.
func (s *Store) ReplaceKnown(records []domain.HistoryRecord, seen map[string]bool) {
	s.mu.Lock()
	for _, rec := range s.records {
		if !seen[rec.ID] {
			records = append(records, rec)
		}
	}
	s.records = records
	s.mu.Unlock()
}

// FindByURL returns the newest record for a normalized URL.
func (s *Store) FindByURL(url string) (domain.HistoryRecord, bool) {
	key := domain.NormalizeURL(url)

	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	var best domain.HistoryRecord
	for _, rec := range s.records {
		if domain.NormalizeURL(rec.URL) == key {
			if !found || rec.Timestamp > best.Timestamp {
				best = rec
				found = true
			}
		}
	}
	return best, found
}

// Persist rewrites the durable copy from the current records. The snapshot is
// taken under the lock; the write happens after it is released.
func (s *Store) Persist() error {
	if s.db == nil {
		return nil
	}

	s.mu.Lock()
	records := make([]domain.HistoryRecord, len(s.records))
	copy(records, s.records)
	s.mu.Unlock()

	if err := s.db.ReplaceHistory(records); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	return nil
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
