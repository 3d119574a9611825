package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/pressure-forecast/internal/monitor"
)

var (
	// ErrNotFound is returned when no snapshots match a query.
	ErrNotFound = errors.New("no pressure snapshots recorded")
)

// MemoryStore is a concurrency-safe in-memory history of pressure snapshots.
// It lives for the lifetime of the process.
type MemoryStore struct {
	mu sync.RWMutex

	// time-ordered, oldest first
	records []monitor.Record

	// retention configuration
	maxHistory int           // max number of snapshots
	maxAge     time.Duration // optional max age for snapshots

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save appends a snapshot and enforces retention.
func (s *MemoryStore) Save(rec monitor.Record) {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.records) > s.maxHistory {
		over := len(s.records) - s.maxHistory
		s.records = append(s.records[:0:0], s.records[over:]...)
	}

	// Enforce retention by age. The newest record is always kept.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := sort.Search(len(s.records), func(i int) bool {
			return !s.records[i].UpdatedAt.Before(cutoff)
		})
		if i >= len(s.records) {
			i = len(s.records) - 1
		}
		if i > 0 {
			s.records = s.records[i:]
		}
	}
}

// GetLatest returns the most recent snapshot.
func (s *MemoryStore) GetLatest() (monitor.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return monitor.Record{}, ErrNotFound
	}
	return s.records[len(s.records)-1], nil
}

// GetRange returns all snapshots between from and to (inclusive).
func (s *MemoryStore) GetRange(from, to time.Time) ([]monitor.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []monitor.Record
	for _, rec := range s.records {
		ts := rec.UpdatedAt
		if !ts.Before(from) && !ts.After(to) {
			result = append(result, rec)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// Len reports the number of retained snapshots.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
